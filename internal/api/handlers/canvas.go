package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
)

// CanvasHandler handles the Canvas read endpoints.
type CanvasHandler struct {
	gateway gateway.Service
}

// NewCanvasHandler creates a new CanvasHandler.
func NewCanvasHandler(gw gateway.Service) *CanvasHandler {
	return &CanvasHandler{
		gateway: gw,
	}
}

// GetProfile handles GET /profile
// @Summary Get profile
// @Description Returns the anonymized profile of the authenticated Canvas user
// @Tags Canvas
// @Produce json
// @Success 200 {object} dto.OperationResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/profile [get]
func (h *CanvasHandler) GetProfile(c *gin.Context) {
	h.invoke(c, canvas.OpGetProfile)
}

// ListCourses handles GET /courses
// @Summary List courses
// @Description Lists the caller's courses
// @Tags Canvas
// @Produce json
// @Param include_concluded query bool false "Include concluded courses"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses [get]
func (h *CanvasHandler) ListCourses(c *gin.Context) {
	h.invoke(c, canvas.OpListCourses)
}

// SearchCourses handles GET /search/courses
// @Summary Search courses
// @Description Searches the caller's courses by name or code
// @Tags Canvas
// @Produce json
// @Param search_term query string true "Search term" minlength(2) maxlength(1000)
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/search/courses [get]
func (h *CanvasHandler) SearchCourses(c *gin.Context) {
	h.invoke(c, canvas.OpSearchCourses)
}

// GetCourseDetails handles GET /courses/:course_id
// @Summary Get course details
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id} [get]
func (h *CanvasHandler) GetCourseDetails(c *gin.Context) {
	h.invoke(c, canvas.OpGetCourseDetails)
}

// ListAssignments handles GET /courses/:course_id/assignments
// @Summary List assignments
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param include_concluded query bool false "Include concluded assignments"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/assignments [get]
func (h *CanvasHandler) ListAssignments(c *gin.Context) {
	h.invoke(c, canvas.OpListAssignments)
}

// GetAssignmentDetails handles GET /courses/:course_id/assignments/:assignment_id
// @Summary Get assignment details
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param assignment_id path string true "Assignment ID"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/assignments/{assignment_id} [get]
func (h *CanvasHandler) GetAssignmentDetails(c *gin.Context) {
	h.invoke(c, canvas.OpGetAssignmentDetails)
}

// ListDiscussions handles GET /courses/:course_id/discussions
// @Summary List discussions
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param only_announcements query bool false "Only list announcements"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/discussions [get]
func (h *CanvasHandler) ListDiscussions(c *gin.Context) {
	h.invoke(c, canvas.OpListDiscussions)
}

// GetDiscussionDetails handles GET /courses/:course_id/discussions/:discussion_id
// @Summary Get discussion details
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param discussion_id path string true "Discussion topic ID"
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/discussions/{discussion_id} [get]
func (h *CanvasHandler) GetDiscussionDetails(c *gin.Context) {
	h.invoke(c, canvas.OpGetDiscussionDetails)
}

// ListAnnouncements handles GET /courses/:course_id/announcements
// @Summary List announcements
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/announcements [get]
func (h *CanvasHandler) ListAnnouncements(c *gin.Context) {
	h.invoke(c, canvas.OpListAnnouncements)
}

// GetGrades handles GET /courses/:course_id/grades
// @Summary Get grades
// @Description Lists anonymized student enrollments with their grades
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/grades [get]
func (h *CanvasHandler) GetGrades(c *gin.Context) {
	h.invoke(c, canvas.OpGetGrades)
}

// ListCalendarEvents handles GET /courses/:course_id/calendar-events
// @Summary List calendar events
// @Tags Canvas
// @Produce json
// @Param course_id path string true "Course ID"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param page query string false "Page number or bookmark"
// @Param per_page query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.OperationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/courses/{course_id}/calendar-events [get]
func (h *CanvasHandler) ListCalendarEvents(c *gin.Context) {
	h.invoke(c, canvas.OpListCalendarEvents)
}

// invoke collects path and query parameters and forwards the operation.
func (h *CanvasHandler) invoke(c *gin.Context, operation string) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 1 {
			middleware.HandleError(c, domainerrors.NewInvalidInputError("repeated query parameter", canvas.SanitizeText(key)))
			return
		}
		params[key] = values[0]
	}
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	result, err := h.gateway.Invoke(c.Request.Context(), middleware.GetSessionID(c), operation, params)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	middleware.SetRateLimitHeaders(c, result.RateLimit)
	c.JSON(http.StatusOK, toOperationResponse(result))
}

func toOperationResponse(result *gateway.Result) dto.OperationResponse {
	resp := dto.OperationResponse{
		Operation: result.Operation,
		Data:      result.Data,
	}
	if p := result.Pagination; p != nil {
		resp.Pagination = &dto.PaginationResponse{
			Current: p.Current,
			Next:    p.Next,
			Prev:    p.Prev,
			First:   p.First,
			Last:    p.Last,
		}
	}
	return resp
}
