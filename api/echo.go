package api

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
)

// echo is a connectivity smoke-test method: it turns whatever was sent
// right back around.
func echo(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (
	result interface{}, err error,
) {
	return req.Params, nil
}
