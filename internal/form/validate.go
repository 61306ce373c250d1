// internal/form/validate.go
//
// Forms subsystem: server-side validation and sanitization.
//
// Context
//   The renderer outputs HTML with a CSRF token, a render timestamp, and an
//   idempotency key.  When the browser posts, this file verifies the
//   submission: CSRF, timing, required fields, type constraints, regex
//   patterns, option values, and length limits.  It returns a clean map the
//   handlers can pass to the API.
//
//   Values are trimmed but not HTML-escaped; escaping happens once, when a
//   template renders them.  Passwords are passed through untouched.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var nowFunc = time.Now

// maxFormAge bounds how long a rendered form stays submittable.
const maxFormAge = 30 * time.Minute

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure.  An empty Name marks a
// form-level error.
type ErrorField struct {
	Name    string
	Message string
}

// validationError wraps []ErrorField so callers can tell user input errors
// from system failures via IsValidationError.
type validationError struct{ Fields []ErrorField }

func (ve validationError) Error() string { return "form validation failed" }

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ValidateForm validates posted values for formID.  For multi-step forms
// only the step named by `current_step` is checked.
func ValidateForm(formID string, posted url.Values) (map[string]any, []ErrorField) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return nil, []ErrorField{{Name: "", Message: "Unknown form."}}
	}

	if !verifyCSRF(posted.Get(FieldCSRF)) {
		return nil, []ErrorField{{"", "Security token invalid.  Please refresh and try again."}}
	}
	if msg := checkTiming(posted.Get(fieldRenderTS), fd.MinFillSeconds); msg != "" {
		return nil, []ErrorField{{"", msg}}
	}

	fields, _, err := selectFields(fd, posted.Get(fieldStep))
	if err != nil {
		return nil, []ErrorField{{"", "Unknown form step."}}
	}

	var errs []ErrorField
	clean := make(map[string]any)
	for _, f := range fields {
		raw, present := extractValue(posted, &f)

		if f.Required && (!present || strings.TrimSpace(raw) == "") {
			errs = append(errs, ErrorField{f.Name, requiredMsg(&f)})
			continue
		}
		if !present || raw == "" {
			continue
		}

		val, perr := validateAndSanitize(&f, raw)
		if perr != "" {
			errs = append(errs, ErrorField{f.Name, perr})
			continue
		}
		clean[f.Name] = val
	}
	return clean, errs
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

func verifyCSRF(token string) bool {
	return token != "" && VerifyToken(token)
}

// checkTiming rejects submissions faster than minFill seconds or older than
// maxFormAge.  Returns a user-visible message on failure.
func checkTiming(tsRaw string, minFill int) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	delta := nowFunc().Sub(time.UnixMicro(ts))
	switch {
	case minFill > 0 && delta < time.Duration(minFill)*time.Second:
		return "Form submitted too quickly.  Please enter the fields manually."
	case delta > maxFormAge:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

func extractValue(v url.Values, f *FieldDef) (string, bool) {
	raw, ok := v[f.Name]
	if !ok || len(raw) == 0 {
		return "", false
	}
	return raw[0], true
}

func validateAndSanitize(f *FieldDef, raw string) (any, string) {
	val := strings.TrimSpace(raw)

	switch f.Type {
	case "text", "textarea", "hidden":
		if msg := lengthCheck(f, val); msg != "" {
			return nil, msg
		}
		if f.Pattern != "" && !regexMatch(f.Pattern, val) {
			return nil, patternMsg(f)
		}
		return val, ""

	case "email":
		if msg := lengthCheck(f, val); msg != "" {
			return nil, msg
		}
		addr, err := mail.ParseAddress(val)
		if err != nil || addr.Address != val {
			return nil, invalidMsg(f)
		}
		return strings.ToLower(val), ""

	case "password":
		if msg := lengthCheck(f, raw); msg != "" {
			return nil, msg
		}
		if f.Pattern != "" && !regexMatch(f.Pattern, raw) {
			return nil, patternMsg(f)
		}
		return raw, ""

	case "number":
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return nil, invalidMsg(f)
		}
		return val, ""

	case "date":
		if _, err := time.Parse("2006-01-02", val); err != nil {
			return nil, invalidMsg(f)
		}
		return val, ""

	case "checkbox":
		return true, ""

	case "select", "radio":
		if !optionAllowed(f.Options, val) {
			return nil, invalidMsg(f)
		}
		return val, ""

	default:
		return nil, fmt.Sprintf("Unsupported field type %q.", f.Type)
	}
}

// lengthCheck counts characters, not bytes.
func lengthCheck(f *FieldDef, s string) string {
	n := utf8.RuneCountInString(s)
	if f.MinLength > 0 && f.MinLength == f.MaxLength && n != f.MinLength {
		return fmt.Sprintf("Must be exactly %d characters.", f.MinLength)
	}
	if f.MinLength > 0 && n < f.MinLength {
		return fmt.Sprintf("Must be at least %d characters.", f.MinLength)
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return fmt.Sprintf("Must be at most %d characters.", f.MaxLength)
	}
	return ""
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func regexMatch(pattern, s string) bool {
	patternMu.Lock()
	re, ok := patternCache[pattern]
	if !ok {
		re = regexp.MustCompile(`^(?:` + pattern + `)$`) // pre-validated at load
		patternCache[pattern] = re
	}
	patternMu.Unlock()
	return re.MatchString(s)
}

func optionAllowed(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

func requiredMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "This field is required."
}

func invalidMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Invalid input."
}

func patternMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Input does not match required format."
}
