// Package redact removes token-shaped substrings from text before it leaves
// the process in a log line or an error message.
package redact

import (
	"bytes"
	"io"
	"regexp"
	"strings"
)

// Placeholder replaces every redacted substring.
const Placeholder = "[REDACTED]"

var (
	// bearerPattern matches an Authorization scheme followed by its
	// credential. The credential stops at whitespace or a JSON/string
	// delimiter.
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[^\s"',;]+`)

	// longRunPattern matches alphanumeric runs long enough to be an API
	// token. Placeholder itself is shorter than the threshold.
	longRunPattern = regexp.MustCompile(`[A-Za-z0-9]{20,}`)
)

// String returns text with every bearer credential and every run of 20 or
// more alphanumeric characters replaced by Placeholder.  String is
// idempotent.
func String(text string) string {
	if text == "" {
		return text
	}
	text = bearerPattern.ReplaceAllString(text, "Bearer "+Placeholder)
	return longRunPattern.ReplaceAllString(text, Placeholder)
}

// Secret removes every literal occurrence of secret from text and then
// applies String.  Short secrets that the generic patterns would miss are
// still removed this way.
func Secret(text, secret string) string {
	if secret != "" {
		text = strings.ReplaceAll(text, secret, Placeholder)
	}
	return String(text)
}

// Bytes is the []byte form of String.
func Bytes(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	b = bearerPattern.ReplaceAll(b, []byte("Bearer "+Placeholder))
	return longRunPattern.ReplaceAll(b, []byte(Placeholder))
}

// Writer redacts every chunk written to it before passing it on.  zerolog
// emits one Write per event, so each chunk is a whole log line.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements io.Writer.  It reports len(p) on success so callers do not
// treat a shortened redacted line as a short write.
func (rw *Writer) Write(p []byte) (n int, err error) {
	out := Bytes(bytes.Clone(p))
	if _, err = rw.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
