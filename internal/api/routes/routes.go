// Package routes defines the HTTP routes for the Canvas gateway.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/unifiedui/canvas-gateway/internal/api/handlers"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
)

// BasePath is the prefix of every API route.
const BasePath = "/api/v1/canvas-gateway"

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler     *handlers.HealthHandler
	AuthHandler       *handlers.AuthHandler
	CanvasHandler     *handlers.CanvasHandler
	MCPHandler        *handlers.MCPHandler
	SessionMiddleware *middleware.SessionMiddleware

	// RateLimitMiddleware is optional; nil disables the per-address limit.
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	v1 := r.Group(BasePath)
	{
		// Health check routes (no session, no limit)
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		api := v1.Group("")
		if cfg.RateLimitMiddleware != nil {
			api.Use(cfg.RateLimitMiddleware.PerIP())
		}
		api.Use(cfg.SessionMiddleware.Extract())

		// --- Session Routes ---
		api.POST("/auth", cfg.AuthHandler.Authenticate)
		api.DELETE("/auth", cfg.AuthHandler.Logout)
		api.GET("/session", cfg.AuthHandler.SessionInfo)

		// --- Canvas Routes ---
		api.GET("/profile", cfg.CanvasHandler.GetProfile)
		api.GET("/search/courses", cfg.CanvasHandler.SearchCourses)

		courses := api.Group("/courses")
		{
			courses.GET("", cfg.CanvasHandler.ListCourses)
			courses.GET("/:course_id", cfg.CanvasHandler.GetCourseDetails)
			courses.GET("/:course_id/assignments", cfg.CanvasHandler.ListAssignments)
			courses.GET("/:course_id/assignments/:assignment_id", cfg.CanvasHandler.GetAssignmentDetails)
			courses.GET("/:course_id/discussions", cfg.CanvasHandler.ListDiscussions)
			courses.GET("/:course_id/discussions/:discussion_id", cfg.CanvasHandler.GetDiscussionDetails)
			courses.GET("/:course_id/announcements", cfg.CanvasHandler.ListAnnouncements)
			courses.GET("/:course_id/grades", cfg.CanvasHandler.GetGrades)
			courses.GET("/:course_id/calendar-events", cfg.CanvasHandler.ListCalendarEvents)
		}

		// --- MCP Route ---
		api.POST("/mcp", gin.WrapH(cfg.MCPHandler.Handler()))
	}
}

// MiddlewareConfig holds the global middleware.
type MiddlewareConfig struct {
	Logging      *middleware.LoggingMiddleware
	Error        *middleware.ErrorMiddleware
	CORS         middleware.CORSConfig
	MaxBodyBytes int64
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, mw *MiddlewareConfig) {
	// Apply global middleware
	r.Use(mw.Logging.RequestLogger())
	r.Use(mw.Logging.Logger())
	r.Use(mw.Error.Recovery())
	r.Use(middleware.NewCORSMiddleware(mw.CORS))
	r.Use(middleware.BodyLimit(mw.MaxBodyBytes))

	r.HandleMethodNotAllowed = true
	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	// Setup routes
	Setup(r, cfg)
}
