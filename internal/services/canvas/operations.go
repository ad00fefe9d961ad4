package canvas

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
)

// Operation names.
const (
	OpGetProfile           = "get_profile"
	OpListCourses          = "list_courses"
	OpSearchCourses        = "search_courses"
	OpGetCourseDetails     = "get_course_details"
	OpListAssignments      = "list_assignments"
	OpGetAssignmentDetails = "get_assignment_details"
	OpListDiscussions      = "list_discussions"
	OpGetDiscussionDetails = "get_discussion_details"
	OpListAnnouncements    = "list_announcements"
	OpGetGrades            = "get_grades"
	OpListCalendarEvents   = "list_calendar_events"
)

// Common parameter names.
const (
	ParamCourseID         = "course_id"
	ParamAssignmentID     = "assignment_id"
	ParamDiscussionID     = "discussion_id"
	ParamIncludeConcluded = "include_concluded"
	ParamOnlyAnnouncement = "only_announcements"
	ParamSearchTerm       = "search_term"
	ParamStartDate        = "start_date"
	ParamEndDate          = "end_date"
	ParamPage             = "page"
	ParamPerPage          = "per_page"
)

// Values holds validated parameter values by name.
type Values map[string]string

// Operation is one read against the Canvas API that callers may invoke.
type Operation struct {
	Name        string
	Description string

	// Path is relative to the API root.  {name} segments are replaced with
	// the path-escaped parameter value.
	Path string

	Params    []Param
	Paginated bool

	// query returns the Canvas query string for validated values.
	query func(v Values) url.Values
}

// Request is a validated, ready to send Canvas call.
type Request struct {
	Operation string
	Path      string
	Query     url.Values
}

var (
	courseID = Param{Name: ParamCourseID, Kind: KindID, Required: true, Description: "Canvas course id"}

	includeConcluded = Param{Name: ParamIncludeConcluded, Kind: KindBool, Description: "Include concluded courses"}

	pagingParams = []Param{
		{Name: ParamPage, Kind: KindPage, Description: "Page number or bookmark"},
		{Name: ParamPerPage, Kind: KindPerPage, Description: "Page size (1-100)"},
	}
)

// operations is the allow-list of invocable operations.
var operations = map[string]*Operation{
	OpGetProfile: {
		Name:        OpGetProfile,
		Description: "Get the profile of the authenticated Canvas user",
		Path:        "/users/self",
	},
	OpListCourses: {
		Name:        OpListCourses,
		Description: "List your Canvas courses",
		Path:        "/courses",
		Params:      []Param{includeConcluded},
		Paginated:   true,
		query: func(v Values) url.Values {
			q := url.Values{"include[]": {"term", "teachers", "total_students"}}
			if v[ParamIncludeConcluded] == "true" {
				q["state[]"] = []string{"available", "completed"}
			}
			return q
		},
	},
	OpSearchCourses: {
		Name:        OpSearchCourses,
		Description: "Search your courses by name or code",
		Path:        "/courses",
		Params: []Param{
			{Name: ParamSearchTerm, Kind: KindText, Required: true, MinLength: 2, Description: "Search term for course name or code"},
		},
		Paginated: true,
		query: func(v Values) url.Values {
			return url.Values{
				"search_term": {v[ParamSearchTerm]},
				"include[]":   {"term"},
			}
		},
	},
	OpGetCourseDetails: {
		Name:        OpGetCourseDetails,
		Description: "Get details of a specific course",
		Path:        "/courses/{course_id}",
		Params:      []Param{courseID},
		query: func(Values) url.Values {
			return url.Values{"include[]": {"term", "teachers", "total_students"}}
		},
	},
	OpListAssignments: {
		Name:        OpListAssignments,
		Description: "List assignments of a course",
		Path:        "/courses/{course_id}/assignments",
		Params:      []Param{courseID, includeConcluded},
		Paginated:   true,
		query: func(v Values) url.Values {
			q := url.Values{"include[]": {"all_dates", "submission"}}
			if v[ParamIncludeConcluded] == "true" {
				q["state[]"] = []string{"available", "completed"}
			}
			return q
		},
	},
	OpGetAssignmentDetails: {
		Name:        OpGetAssignmentDetails,
		Description: "Get details of a specific assignment",
		Path:        "/courses/{course_id}/assignments/{assignment_id}",
		Params: []Param{
			courseID,
			{Name: ParamAssignmentID, Kind: KindID, Required: true, Description: "Canvas assignment id"},
		},
		query: func(Values) url.Values {
			return url.Values{"include[]": {"submission"}}
		},
	},
	OpListDiscussions: {
		Name:        OpListDiscussions,
		Description: "List discussion topics of a course",
		Path:        "/courses/{course_id}/discussion_topics",
		Params: []Param{
			courseID,
			{Name: ParamOnlyAnnouncement, Kind: KindBool, Description: "Only list announcements"},
		},
		Paginated: true,
		query: func(v Values) url.Values {
			q := url.Values{}
			if v[ParamOnlyAnnouncement] == "true" {
				q.Set("only_announcements", "true")
			}
			return q
		},
	},
	OpGetDiscussionDetails: {
		Name:        OpGetDiscussionDetails,
		Description: "Get details of a specific discussion topic",
		Path:        "/courses/{course_id}/discussion_topics/{discussion_id}",
		Params: []Param{
			courseID,
			{Name: ParamDiscussionID, Kind: KindID, Required: true, Description: "Canvas discussion topic id"},
		},
	},
	OpListAnnouncements: {
		Name:        OpListAnnouncements,
		Description: "List announcements of a course",
		Path:        "/courses/{course_id}/discussion_topics",
		Params:      []Param{courseID},
		Paginated:   true,
		query: func(Values) url.Values {
			return url.Values{"only_announcements": {"true"}}
		},
	},
	OpGetGrades: {
		Name:        OpGetGrades,
		Description: "Get student grades of a course",
		Path:        "/courses/{course_id}/enrollments",
		Params:      []Param{courseID},
		Paginated:   true,
		query: func(Values) url.Values {
			return url.Values{"type[]": {"StudentEnrollment"}}
		},
	},
	OpListCalendarEvents: {
		Name:        OpListCalendarEvents,
		Description: "List calendar events of a course",
		Path:        "/calendar_events",
		Params: []Param{
			courseID,
			{Name: ParamStartDate, Kind: KindDate, Description: "Start date (YYYY-MM-DD)"},
			{Name: ParamEndDate, Kind: KindDate, Description: "End date (YYYY-MM-DD)"},
		},
		Paginated: true,
		query: func(v Values) url.Values {
			q := url.Values{"context_codes[]": {"course_" + v[ParamCourseID]}}
			start, end := v[ParamStartDate], v[ParamEndDate]
			if start == "" && end == "" {
				q.Set("all_events", "true")
			}
			if start != "" {
				q.Set("start_date", start)
			}
			if end != "" {
				q.Set("end_date", end)
			}
			return q
		},
	},
}

// Lookup returns the operation registered under name.
func Lookup(name string) (*Operation, bool) {
	op, ok := operations[name]
	return op, ok
}

// Operations returns all operations sorted by name.
func Operations() []*Operation {
	ops := make([]*Operation, 0, len(operations))
	for _, op := range operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name < ops[j].Name
	})
	return ops
}

// AllParams returns the declared parameters followed by the paging ones.
func (op *Operation) AllParams() []Param {
	if !op.Paginated {
		return op.Params
	}
	all := make([]Param, 0, len(op.Params)+len(pagingParams))
	all = append(all, op.Params...)
	return append(all, pagingParams...)
}

// Build validates params against the operation's allow-list and returns the
// request to send.  Unknown parameters are rejected.
func (op *Operation) Build(params map[string]string) (*Request, error) {
	declared := op.AllParams()

	known := make(map[string]Param, len(declared))
	for _, p := range declared {
		known[p.Name] = p
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return nil, domainerrors.NewInvalidInputError(
				fmt.Sprintf("unknown parameter %s", truncate(SanitizeText(name), 64)),
				fmt.Sprintf("operation %s does not accept it", op.Name),
			)
		}
	}

	values := make(Values, len(declared))
	for _, p := range declared {
		raw, ok := params[p.Name]
		if !ok || raw == "" {
			if p.Required {
				return nil, domainerrors.NewInvalidInputError(fmt.Sprintf("missing parameter %s", p.Name), "")
			}
			continue
		}

		v, err := p.validate(raw)
		if err != nil {
			return nil, err
		}
		values[p.Name] = v
	}

	path, err := op.expand(values)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if op.query != nil {
		q = op.query(values)
	}
	if op.Paginated {
		q.Set(ParamPerPage, strconv.Itoa(DefaultPerPage))
		if v, ok := values[ParamPerPage]; ok {
			q.Set(ParamPerPage, v)
		}
		if v, ok := values[ParamPage]; ok {
			q.Set(ParamPage, v)
		}
	}

	return &Request{
		Operation: op.Name,
		Path:      path,
		Query:     q,
	}, nil
}

// expand fills the path template.
func (op *Operation) expand(values Values) (string, error) {
	segments := strings.Split(op.Path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}

		v := values[seg[1:len(seg)-1]]
		if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
			return "", domainerrors.NewInvalidInputError("invalid path parameter", seg)
		}
		segments[i] = url.PathEscape(v)
	}
	return strings.Join(segments, "/"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
