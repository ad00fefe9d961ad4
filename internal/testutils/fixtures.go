package testutils

import (
	"encoding/json"
	"time"

	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
)

// Test constants
const (
	TestSessionID   = "c2Vzc2lvbi10ZXN0LWlkLTAxMjM0NTY3ODlhYmNkZWY"
	TestToken       = "tok_abc123"
	TestCanvasURL   = "https://school.instructure.com"
	TestAPIURL      = TestCanvasURL + "/api/v1"
	TestUserID      = "42"
	TestInstitution = "State University"
)

// TestTime is a fixed timestamp for fixtures.
var TestTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// NewTestAuthResult creates a test authentication result.
func NewTestAuthResult() *gateway.AuthResult {
	return &gateway.AuthResult{
		SessionID:   TestSessionID,
		UserID:      TestUserID,
		DisplayName: "User_" + TestUserID,
		Institution: TestInstitution,
		BaseURL:     TestAPIURL,
		ExpiresIn:   24 * time.Hour,
	}
}

// NewTestSessionInfo creates a test session description.
func NewTestSessionInfo() *gateway.SessionInfo {
	return &gateway.SessionInfo{
		UserID:      TestUserID,
		Institution: TestInstitution,
		BaseURL:     TestAPIURL,
		CreatedAt:   TestTime,
		LastUsedAt:  TestTime.Add(time.Minute),
		ExpiresIn:   24 * time.Hour,
	}
}

// NewTestCoursesResult creates a test anonymized list_courses result.
func NewTestCoursesResult() *gateway.Result {
	return &gateway.Result{
		Operation: canvas.OpListCourses,
		Data: []any{
			map[string]any{
				"id":          json.Number("101"),
				"name":        "User_101",
				"course_code": "COURSE_101",
			},
		},
		Pagination: &canvas.Pagination{Next: "2", Last: "3"},
		RateLimit:  &ratelimit.Decision{Allowed: true, Limit: 60, Remaining: 59},
	}
}
