// internal/form/submit.go
//
// Forms subsystem: consolidated submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, validates it, and
//   returns clean values or a validation error.  HandleSubmit does that so
//   component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/yanizio/recipebox/internal/idem"
)

// Values are the validated fields of one submission.
type Values map[string]any

// String returns the value of name as a string, or "".
func (v Values) String(name string) string {
	switch x := v[name].(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// IdempotencyKey returns the key the form was rendered with, if well formed.
func (v Values) IdempotencyKey() string { return v.String(FieldIdemKey) }

// Fingerprint hashes the submitted fields, meta fields excluded.  Two posts
// share a fingerprint only when every field value matches.
func (v Values) Fingerprint() string {
	names := make([]string, 0, len(v))
	for name := range v {
		if !reserved[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%q=%q\n", name, v.String(name))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// HandleSubmit parses r, validates against formID, and returns the clean
// values.  On validation failure it returns an error for which
// IsValidationError is true.
func HandleSubmit(formID string, r *http.Request) (Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	clean, errs := ValidateForm(formID, r.PostForm)
	if len(errs) > 0 {
		return nil, validationError{Fields: errs}
	}

	out := Values(clean)
	if key := r.PostForm.Get(FieldIdemKey); idem.Valid(key) {
		out[FieldIdemKey] = key
	}
	return out, nil
}

// IsValidationError reports whether err came from a failed ValidateForm.
func IsValidationError(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}

// FieldErrors returns the field errors carried by err.
func FieldErrors(err error) []ErrorField {
	var ve validationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// Resubmit builds the State for re-rendering a posted form: the posted
// values as prefill (passwords are dropped by the renderer) plus errs.
func Resubmit(r *http.Request, errs ...ErrorField) State {
	pre := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		if !reserved[k] {
			pre[k] = r.PostForm.Get(k)
		}
	}
	return State{Prefill: pre, Errors: errs, Step: r.PostForm.Get(fieldStep)}
}

// Fail is Resubmit with a single form-level message.
func Fail(r *http.Request, msg string) State {
	return Resubmit(r, ErrorField{Message: msg})
}
