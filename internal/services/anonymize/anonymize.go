// Package anonymize replaces personally identifying fields of Canvas
// payloads with pseudonyms derived from the record id.
package anonymize

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// field describes how one identifying key is rewritten.  idKey names the
// sibling holding the id; empty means "id".
type field struct {
	format   string
	fallback string
	idKey    string
}

// fields maps identifying keys to their pseudonym format.  The %s verb
// receives the record id.
var fields = map[string]field{
	"name":           {format: "User_%s", fallback: "Unknown"},
	"display_name":   {format: "User_%s", fallback: "Unknown"},
	"sortable_name":  {format: "User_%s", fallback: "Unknown"},
	"short_name":     {format: "User_%s", fallback: "Unknown"},
	"user_name":      {format: "User_%s", fallback: "Unknown", idKey: "user_id"},
	"email":          {format: "user_%s@example.com", fallback: "unknown"},
	"primary_email":  {format: "user_%s@example.com", fallback: "unknown"},
	"login_id":       {format: "user_%s", fallback: "unknown"},
	"sis_login_id":   {format: "user_%s", fallback: "unknown"},
	"sis_user_id":    {format: "user_%s", fallback: "unknown"},
	"integration_id": {format: "user_%s", fallback: "unknown"},
	"course_code":    {format: "COURSE_%s", fallback: "Unknown"},
}

// Value returns a copy of v with every identifying field of every nested
// object replaced.  v is a decoded JSON value: map[string]any, []any or a
// scalar.  The input is not modified.  Value is idempotent.
func Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return object(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	default:
		return v
	}
}

// object anonymizes one JSON object.
func object(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		f, ok := fields[k]
		if !ok {
			out[k] = Value(v)
			continue
		}

		id, hasID := recordID(m["id"])
		if f.idKey != "" {
			if owner, ok := recordID(m[f.idKey]); ok {
				id, hasID = owner, true
			}
		}

		if hasID {
			out[k] = fmt.Sprintf(f.format, id)
		} else {
			out[k] = fmt.Sprintf(f.format, f.fallback)
		}
	}

	return out
}

// recordID renders a JSON id as a string.
func recordID(v any) (string, bool) {
	switch t := v.(type) {
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	default:
		return "", false
	}
}

// Name returns the pseudonym used for a person's display name.
func Name(id string) string {
	if id == "" {
		id = fields["name"].fallback
	}
	return fmt.Sprintf(fields["name"].format, id)
}
