// Package admin exposes a small, read-only HTTP surface for operators: the
// state that doesn't round-trip through a host-facing JSON-RPC call
// because no caller of that API owns it — hot log size, archive shard
// bookkeeping, the offload job's halt state and error, and the prepared
// transaction count. Archive retry counters and the cycles budget are not
// reported.
package admin

import (
	"github.com/gin-gonic/gin"
)

func abortWithError(c *gin.Context, code int, err error) {
	if err != nil {
		c.AbortWithStatusJSON(code, map[string]interface{}{
			"success": false,
			"msg":     err.Error(),
		})
		_ = c.Error(err)
	}
}

func respond(c *gin.Context, code int, data interface{}) {
	c.JSON(code, map[string]interface{}{
		"success": true,
		"msg":     "",
		"data":    data,
	})
}
