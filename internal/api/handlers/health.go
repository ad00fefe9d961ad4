// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	rateLimiter Pinger
	audit       Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(rateLimiter, audit Pinger) *HealthHandler {
	return &HealthHandler{
		rateLimiter: rateLimiter,
		audit:       audit,
	}
}

// Health handles the /health endpoint.
// @Summary Health check
// @Description Returns the overall health status and component statuses
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse "Service healthy"
// @Failure 503 {object} dto.HealthResponse "Service unhealthy"
// @Router /api/v1/canvas-gateway/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	components := make(map[string]string)
	healthy := true

	// Check rate limit store
	if err := h.rateLimiter.Ping(c.Request.Context()); err != nil {
		components["ratelimit"] = "unhealthy"
		healthy = false
	} else {
		components["ratelimit"] = "healthy"
	}

	// Check audit store
	if err := h.audit.Ping(c.Request.Context()); err != nil {
		components["audit"] = "unhealthy"
		healthy = false
	} else {
		components["audit"] = "healthy"
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, dto.HealthResponse{
		Status:     status,
		Components: components,
	})
}

// Ready handles the /ready endpoint.  Only the rate limit store gates
// readiness; audit events are dropped when their store is down.
// @Summary Readiness check
// @Description Returns 200 if the service is ready to accept traffic
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service ready"
// @Failure 503 {object} map[string]string "Service not ready"
// @Router /api/v1/canvas-gateway/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.rateLimiter.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "rate limit store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// Live handles the /live endpoint.
// @Summary Liveness check
// @Description Returns 200 if the service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service alive"
// @Router /api/v1/canvas-gateway/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
