package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionHeader is the alternative header carrying the session id.
const SessionHeader = "X-Session-ID"

// Caller identifies the requester to handlers that run outside gin, such as
// the MCP transport.
type Caller struct {
	SessionID string
	ClientIP  string
}

type callerKey struct{}

// ContextWithCaller returns a copy of ctx carrying caller.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by ContextWithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}

// CallerFromRequest derives a caller from the raw request, without proxy
// header handling.
func CallerFromRequest(r *http.Request) Caller {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return Caller{
		SessionID: SessionIDFromHeader(r.Header),
		ClientIP:  ip,
	}
}

// SessionMiddleware extracts the session id from the request.
type SessionMiddleware struct{}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware() *SessionMiddleware {
	return &SessionMiddleware{}
}

// Extract returns a gin middleware that reads the session id from an
// Authorization Bearer header or from X-Session-ID, in that order.  A
// missing id is not rejected here; the gateway decides whether a default
// session applies.  The id and the client address are also attached to the
// request context.
func (m *SessionMiddleware) Extract() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := SessionIDFromHeader(c.Request.Header)
		if id != "" {
			c.Set("session_id", id)
		}

		c.Request = c.Request.WithContext(ContextWithCaller(c.Request.Context(), Caller{
			SessionID: id,
			ClientIP:  c.ClientIP(),
		}))

		c.Next()
	}
}

// SessionIDFromHeader returns the session id carried by h, or "".
func SessionIDFromHeader(h http.Header) string {
	if authHeader := h.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if id := strings.TrimSpace(parts[1]); id != "" {
				return id
			}
		}
	}
	return strings.TrimSpace(h.Get(SessionHeader))
}

// GetSessionID retrieves the session id from the gin context.
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get("session_id"); exists {
		return id.(string)
	}
	return ""
}
