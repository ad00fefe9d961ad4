package canvas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
)

// Kind is the validation class of an operation parameter.
type Kind int

// Parameter kinds.
const (
	// KindID is a Canvas numeric id.
	KindID Kind = iota
	// KindBool is "true" or "false".
	KindBool
	// KindDate is a calendar date in YYYY-MM-DD form.
	KindDate
	// KindText is free text, sanitized before it is forwarded.
	KindText
	// KindPage is a page number or a Canvas bookmark.
	KindPage
	// KindPerPage is a page size between 1 and MaxPerPage.
	KindPerPage
)

const (
	// MaxIDLength is the longest accepted id.
	MaxIDLength = 20

	// MaxTextLength is the longest accepted free text, in characters.
	MaxTextLength = 1000

	// MaxPerPage is the largest page size Canvas honors.
	MaxPerPage = 100

	// DefaultPerPage is the page size used when the caller sets none.
	DefaultPerPage = 100

	dateLayout = "2006-01-02"
)

var (
	idPattern       = regexp.MustCompile(`^[0-9]{1,20}$`)
	bookmarkPattern = regexp.MustCompile(`^bookmark:[A-Za-z0-9_=-]{1,200}$`)
)

// Param describes one accepted operation parameter.
type Param struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string

	// MinLength applies to KindText after sanitizing.
	MinLength int
}

// validate checks raw against the parameter kind and returns the value to
// forward.
func (p Param) validate(raw string) (string, error) {
	switch p.Kind {
	case KindID:
		if !idPattern.MatchString(raw) {
			return "", invalidParam(p.Name, fmt.Sprintf("must be a numeric id of at most %d digits", MaxIDLength))
		}
		return raw, nil
	case KindBool:
		switch strings.ToLower(raw) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", invalidParam(p.Name, "must be true or false")
	case KindDate:
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return "", invalidParam(p.Name, "must be a date in YYYY-MM-DD form")
		}
		return raw, nil
	case KindPage:
		if bookmarkPattern.MatchString(raw) {
			return raw, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", invalidParam(p.Name, "must be a positive page number")
		}
		return strconv.Itoa(n), nil
	case KindPerPage:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPerPage {
			return "", invalidParam(p.Name, fmt.Sprintf("must be between 1 and %d", MaxPerPage))
		}
		return strconv.Itoa(n), nil
	case KindText:
		if utf8.RuneCountInString(raw) > MaxTextLength {
			return "", invalidParam(p.Name, fmt.Sprintf("must be at most %d characters", MaxTextLength))
		}
		clean := SanitizeText(raw)
		if utf8.RuneCountInString(clean) < p.MinLength {
			return "", invalidParam(p.Name, fmt.Sprintf("must be at least %d characters", p.MinLength))
		}
		return clean, nil
	default:
		return "", invalidParam(p.Name, "is not supported")
	}
}

// SanitizeText strips markup characters, quotes and control characters from
// s and trims surrounding space.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '<', r == '>', r == '"', r == '\'':
			return -1
		case unicode.IsControl(r):
			return -1
		case r == utf8.RuneError:
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func invalidParam(name, reason string) error {
	return domainerrors.NewInvalidInputError(fmt.Sprintf("invalid parameter %s", name), fmt.Sprintf("%s %s", name, reason))
}
