// Package sanitize holds the structural checks every mutating request passes
// before it may touch storage: identifier shape, body size, deep markup
// stripping and schema decoding. Cheap checks come first.
package sanitize

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/microcosm-cc/bluemonday"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsUUID reports whether s is a canonical 8-4-4-4-12 hex UUID.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

func ValidateID(id string) error {
	if !IsUUID(id) {
		return apperrors.NewValidation("invalid identifier format").WithDetail("invalid_id", truncate(id, 64))
	}
	return nil
}

// ReadBody reads at most max bytes. A body of exactly max bytes is accepted.
func ReadBody(r io.Reader, max int64) ([]byte, error) {
	if r == nil {
		return nil, apperrors.NewValidation("request body is required")
	}
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrValidation, "request body could not be read", err)
	}
	if int64(len(body)) > max {
		return nil, apperrors.New(apperrors.ErrPayloadTooLarge, "request body too large", nil).WithDetail("max_bytes", max)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.NewValidation("request body is required")
	}
	return body, nil
}

// maxPasses bounds the fixed-point loop. Input still changing after that many
// passes is hostile and is dropped entirely.
const maxPasses = 16

var scriptScheme = regexp.MustCompile(`(?i)\b(javascript|vbscript)\s*:`)

// Sanitizer strips markup from string leaves of arbitrary JSON-like values.
// It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// String cleans one value and is idempotent: String(String(s)) == String(s).
func (s *Sanitizer) String(in string) string {
	out := in
	for i := 0; i < maxPasses; i++ {
		next := s.pass(out)
		if next == out {
			return out
		}
		out = next
	}
	return ""
}

func (s *Sanitizer) pass(in string) string {
	out := s.policy.Sanitize(in)
	// StrictPolicy escapes text; stored values are plain text, not HTML.
	out = html.UnescapeString(out)
	out = scriptScheme.ReplaceAllString(out, "")
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(out)
}

// Value walks maps and slices and returns a sanitized copy. Keys and slice
// order are kept verbatim; only string leaves change. Unknown keys are dropped
// later by schema decoding, never here.
func (s *Sanitizer) Value(v any) any {
	switch val := v.(type) {
	case string:
		return s.String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = s.Value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.Value(item)
		}
		return out
	default:
		return v
	}
}

// Map is Value specialised to the top-level JSON object.
func (s *Sanitizer) Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return s.Value(m).(map[string]any)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
