package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
)

// DefaultMaxBodyBytes is the default request body limit.
const DefaultMaxBodyBytes = 10 * 1024

// BodyLimit returns a gin middleware that caps the request body at max
// bytes.  Reads past the limit fail and the handler binding the body
// rejects the request.
func BodyLimit(max int64) gin.HandlerFunc {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
				Code:    domainerrors.ErrCodeInvalidInput,
				Message: "request body too large",
			})
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
