package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/util"
)

// Recovery returns a middleware that converts panics into an internal
// error handled by ErrorHandler. It must be installed after ErrorHandler.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			c.Set(stackKey, string(debug.Stack()))

			cause := fmt.Errorf("panic: %v", rec)
			if span := GetSpan(c); span != nil {
				span.RecordError(cause)
			}

			_ = c.Error(util.NewInternalError("Unexpected server error", cause))
			c.Abort()
		}()

		c.Next()
	}
}
