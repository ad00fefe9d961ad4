// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/pkg/redact"
)

// ErrorMiddleware handles error recovery and formatting.
type ErrorMiddleware struct{}

// NewErrorMiddleware creates a new ErrorMiddleware.
func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

// Recovery returns a gin middleware that recovers from panics.
func (m *ErrorMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Code:    domainerrors.ErrCodeInternal,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// ErrorResponseFor converts err into the body and status sent to callers.
// Messages and details are redacted; causes are never included.
func ErrorResponseFor(err error) (int, dto.ErrorResponse) {
	domainErr, ok := domainerrors.GetDomainError(err)
	if !ok {
		return http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerrors.ErrCodeInternal,
			Message: "internal server error",
		}
	}

	return domainErr.HTTPStatus, dto.ErrorResponse{
		Code:           domainErr.Code,
		Message:        redact.String(domainErr.Message),
		Details:        redact.String(domainErr.Details),
		UpstreamStatus: domainErr.UpstreamStatus,
	}
}

// HandleError handles errors and sends appropriate HTTP responses.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	status, body := ErrorResponseFor(err)

	logger := GetRequestLogger(c)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", body.Code).Msg("request failed")
	} else {
		logger.Debug().Str("code", body.Code).Msg("request rejected")
	}

	if domainErr, ok := domainerrors.GetDomainError(err); ok && domainErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(domainErr.RetryAfter))
	}

	c.AbortWithStatusJSON(status, body)
}

// NotFound returns a 404 handler.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Code:    domainerrors.ErrCodeNotFound,
			Message: "resource not found",
			Details: redact.String(c.Request.URL.Path),
		})
	}
}

// MethodNotAllowed returns a 405 handler.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{
			Code:    domainerrors.ErrCodeMethodNotAllowed,
			Message: "method not allowed",
			Details: c.Request.Method,
		})
	}
}
