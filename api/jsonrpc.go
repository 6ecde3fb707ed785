package api

import (
	"context"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/utils/log"
)

type jsonrpcHandlerFunc func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error)

// registerMethod wires a method name to a handler, wrapping it in
// processParams when paramsType is non-nil so the handler can assume a
// decoded-and-validated params struct is already in ctx.
func registerMethod(h *JSONRPCHandler, method string, handlerFunc jsonrpcHandlerFunc, paramsType interface{}) {
	log.WithField("method", method).Debug("api: register rpc method")

	if paramsType == nil {
		h.RegisterMethod(method, handlerFunc)
		return
	}

	typ := reflect.TypeOf(paramsType)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	h.RegisterMethod(method, processParams(handlerFunc, typ))
}

// JSONRPCHandler dispatches JSON-RPC 2.0 requests to registered methods.
type JSONRPCHandler struct {
	methods map[string]jsonrpcHandlerFunc
}

// NewJSONRPCHandler creates an empty JSONRPCHandler.
func NewJSONRPCHandler() *JSONRPCHandler {
	return &JSONRPCHandler{
		methods: make(map[string]jsonrpcHandlerFunc),
	}
}

// RegisterMethod registers a method directly, bypassing processParams.
func (h *JSONRPCHandler) RegisterMethod(method string, handlerFunc jsonrpcHandlerFunc) {
	h.methods[method] = handlerFunc
}

// Handler returns a jsonrpc2.Handler serving every registered method.
func (h *JSONRPCHandler) Handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(h.handle)
}

var methodNotFound = func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: errors.Errorf("method not found: %q", req.Method).Error()}
}

func (h *JSONRPCHandler) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (
	result interface{}, err error,
) {
	defer func() {
		if p := recover(); p != nil {
			log.WithField("method", req.Method).Errorf("api: handler panic: %v", p)
			switch p := p.(type) {
			case error:
				err = p
			default:
				err = fmt.Errorf("%v", p)
			}
		}
	}()

	fn := h.methods[req.Method]
	if fn == nil {
		fn = methodNotFound
	}
	return fn(ctx, conn, req)
}
