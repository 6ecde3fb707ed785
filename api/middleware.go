package api

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/sourcegraph/jsonrpc2"
)

// paramsKey is the context key processParams stashes the decoded params
// struct under, read back out by each method's handler.
type paramsKey struct{}

// Validator lets a params struct reject itself before its handler runs.
type Validator interface {
	Validate() error
}

// processParams decodes req.Params (a JSON object, not the positional-array
// shape some RPC conventions use) into a fresh paramsType value, validates
// it if it implements Validator, and hands the result to h through the
// context.
func processParams(h jsonrpcHandlerFunc, paramsType reflect.Type) jsonrpcHandlerFunc {
	return func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (
		result interface{}, err error,
	) {
		paramsNew := reflect.New(paramsType)
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, paramsNew.Interface()); err != nil {
				return nil, &jsonrpc2.Error{
					Code:    jsonrpc2.CodeInvalidParams,
					Message: fmt.Sprintf("decoding params: %v", err),
				}
			}
		}

		params := paramsNew.Interface()
		if v, ok := params.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, &jsonrpc2.Error{
					Code:    jsonrpc2.CodeInvalidParams,
					Message: err.Error(),
				}
			}
		}

		ctx = context.WithValue(ctx, paramsKey{}, params)
		return h(ctx, conn, req)
	}
}

func paramsFrom(ctx context.Context) interface{} {
	return ctx.Value(paramsKey{})
}
