package canvas_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
)

func mustLookup(t *testing.T, name string) *canvas.Operation {
	t.Helper()

	op, ok := canvas.Lookup(name)
	require.True(t, ok, name)
	return op
}

func TestLookup_Unknown(t *testing.T) {
	op, ok := canvas.Lookup("delete_course")

	assert.False(t, ok)
	assert.Nil(t, op)
}

func TestOperations_Sorted(t *testing.T) {
	ops := canvas.Operations()

	require.Len(t, ops, 11)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, ops[i-1].Name, ops[i].Name)
	}
}

func TestBuild_ListCourses(t *testing.T) {
	// Act
	req, err := mustLookup(t, canvas.OpListCourses).Build(map[string]string{
		"include_concluded": "true",
		"page":              "2",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/courses", req.Path)
	assert.Equal(t, []string{"term", "teachers", "total_students"}, req.Query["include[]"])
	assert.Equal(t, []string{"available", "completed"}, req.Query["state[]"])
	assert.Equal(t, "100", req.Query.Get("per_page"))
	assert.Equal(t, "2", req.Query.Get("page"))
}

func TestBuild_ListCoursesWithoutConcluded(t *testing.T) {
	req, err := mustLookup(t, canvas.OpListCourses).Build(map[string]string{"include_concluded": "false"})

	require.NoError(t, err)
	assert.Empty(t, req.Query["state[]"])
}

func TestBuild_PathParams(t *testing.T) {
	req, err := mustLookup(t, canvas.OpGetAssignmentDetails).Build(map[string]string{
		"course_id":     "101",
		"assignment_id": "2002",
	})

	require.NoError(t, err)
	assert.Equal(t, "/courses/101/assignments/2002", req.Path)
	assert.Equal(t, canvas.OpGetAssignmentDetails, req.Operation)
}

func TestBuild_CalendarEvents(t *testing.T) {
	op := mustLookup(t, canvas.OpListCalendarEvents)

	req, err := op.Build(map[string]string{"course_id": "5"})
	require.NoError(t, err)
	assert.Equal(t, "/calendar_events", req.Path)
	assert.Equal(t, "course_5", req.Query.Get("context_codes[]"))
	assert.Equal(t, "true", req.Query.Get("all_events"))

	req, err = op.Build(map[string]string{"course_id": "5", "start_date": "2026-01-01", "end_date": "2026-02-01"})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", req.Query.Get("start_date"))
	assert.Equal(t, "2026-02-01", req.Query.Get("end_date"))
	assert.Empty(t, req.Query.Get("all_events"))
}

func TestBuild_SearchSanitizesText(t *testing.T) {
	req, err := mustLookup(t, canvas.OpSearchCourses).Build(map[string]string{
		"search_term": ` <script>"bio'</script> `,
	})

	require.NoError(t, err)
	assert.Equal(t, "scriptbio/script", req.Query.Get("search_term"))
}

func TestBuild_Announcements(t *testing.T) {
	req, err := mustLookup(t, canvas.OpListAnnouncements).Build(map[string]string{"course_id": "1", "per_page": "10"})

	require.NoError(t, err)
	assert.Equal(t, "/courses/1/discussion_topics", req.Path)
	assert.Equal(t, "true", req.Query.Get("only_announcements"))
	assert.Equal(t, "10", req.Query.Get("per_page"))
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		params map[string]string
	}{
		{name: "missing course id", op: canvas.OpListAssignments, params: map[string]string{}},
		{name: "traversal course id", op: canvas.OpListAssignments, params: map[string]string{"course_id": "../users"}},
		{name: "slash in id", op: canvas.OpGetCourseDetails, params: map[string]string{"course_id": "1/2"}},
		{name: "non numeric id", op: canvas.OpGetCourseDetails, params: map[string]string{"course_id": "abc"}},
		{name: "id too long", op: canvas.OpGetCourseDetails, params: map[string]string{"course_id": strings.Repeat("1", 21)}},
		{name: "unknown param", op: canvas.OpListCourses, params: map[string]string{"as_user_id": "1"}},
		{name: "paging on detail", op: canvas.OpGetCourseDetails, params: map[string]string{"course_id": "1", "page": "2"}},
		{name: "bad bool", op: canvas.OpListCourses, params: map[string]string{"include_concluded": "yes"}},
		{name: "bad date", op: canvas.OpListCalendarEvents, params: map[string]string{"course_id": "1", "start_date": "01/02/2026"}},
		{name: "page zero", op: canvas.OpListCourses, params: map[string]string{"page": "0"}},
		{name: "per page too big", op: canvas.OpListCourses, params: map[string]string{"per_page": "101"}},
		{name: "search too short", op: canvas.OpSearchCourses, params: map[string]string{"search_term": "<a>"}},
		{name: "search too long", op: canvas.OpSearchCourses, params: map[string]string{"search_term": strings.Repeat("a", 1001)}},
		{name: "search missing", op: canvas.OpSearchCourses, params: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := mustLookup(t, tt.op).Build(tt.params)

			assert.Nil(t, req)
			assert.True(t, domainerrors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestBuild_PageBookmark(t *testing.T) {
	req, err := mustLookup(t, canvas.OpGetGrades).Build(map[string]string{
		"course_id": "1",
		"page":      "bookmark:WzEwXQ",
	})

	require.NoError(t, err)
	assert.Equal(t, "bookmark:WzEwXQ", req.Query.Get("page"))
	assert.Equal(t, "StudentEnrollment", req.Query.Get("type[]"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello world", canvas.SanitizeText("  hello\x00 world\n"))
	assert.Equal(t, "abc", canvas.SanitizeText(`<a>"b'c`))
}

func TestAllParams(t *testing.T) {
	detail := mustLookup(t, canvas.OpGetCourseDetails)
	assert.Len(t, detail.AllParams(), 1)

	list := mustLookup(t, canvas.OpListAssignments)
	assert.Len(t, list.AllParams(), 4)
}
