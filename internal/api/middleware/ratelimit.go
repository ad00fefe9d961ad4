package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// RateLimitMiddleware limits requests per source address.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware.
func NewRateLimitMiddleware(limiter ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// PerIP returns a gin middleware that rejects requests from an address
// over its limit.
func (m *RateLimitMiddleware) PerIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := m.limiter.Allow(c.Request.Context(), ratelimit.IPKey(c.ClientIP()))
		if err != nil {
			HandleError(c, domainerrors.NewInternalError("rate limiter unavailable", err))
			return
		}

		if !decision.Allowed {
			logger := GetRequestLogger(c)
			logger.Warn().Str("client_ip", c.ClientIP()).Msg("address rate limit exceeded")
			HandleError(c, domainerrors.NewRateLimitExceededError(ratelimit.RetryAfterSeconds(decision.RetryAfter)))
			return
		}

		c.Next()
	}
}

// SetRateLimitHeaders reports a session's remaining quota to the caller.
func SetRateLimitHeaders(c *gin.Context, decision *ratelimit.Decision) {
	if decision == nil {
		return
	}
	c.Header(HeaderRateLimitLimit, strconv.FormatInt(decision.Limit, 10))
	c.Header(HeaderRateLimitRemaining, strconv.FormatInt(decision.Remaining, 10))
}
