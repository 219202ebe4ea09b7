package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/util"
)

// BodyLimit returns a middleware that rejects request bodies larger than
// maxSize. Declared lengths are rejected up front; streamed bodies fail
// on read with *http.MaxBytesError, which ErrorHandler maps to 413.
func BodyLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			_ = c.Error(util.NewPayloadTooLargeError(maxSize))
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}

		c.Next()
	}
}
