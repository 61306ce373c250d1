// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Converts a registered FormDef into plain, accessible markup: one
//   <div class="form-field"> per field with its label, HTML5 validation
//   attributes, prefill, and inline error.  Form-level errors are listed
//   first.  Hidden meta inputs carry the CSRF token, the render timestamp,
//   the idempotency key, and the current step.  The surrounding <form> tag
//   belongs to the page template so it controls action and method.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/yanizio/recipebox/internal/idem"
)

// Hidden meta field names.
const (
	FieldCSRF     = "csrf_token"
	fieldRenderTS = "render_ts"
	fieldStep     = "current_step"
	FieldIdemKey  = idem.FieldName
)

var reserved = map[string]bool{FieldCSRF: true, fieldRenderTS: true, fieldStep: true, FieldIdemKey: true}

// State is what a page passes back into the renderer on re-render.
type State struct {
	// Prefill provides values keyed by field name.  Passwords are never
	// written back.
	Prefill map[string]string
	// Errors are shown inline; Name "" errors are shown above the fields.
	Errors []ErrorField
	// Step selects the step of a multi-step form; empty means the first.
	Step string
}

// RenderForm returns the markup for formID.
func RenderForm(formID string, st State) (template.HTML, error) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return "", fmt.Errorf("RenderForm: unknown form %q", formID)
	}

	fields, stepIndex, err := selectFields(fd, st.Step)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString(`<div class="app-form" data-form="` + html.EscapeString(fd.ID) + `">` + "\n")

	if general := errorsFor("", st.Errors); len(general) > 0 {
		buf.WriteString(`<ul class="form-errors" role="alert">` + "\n")
		for _, msg := range general {
			buf.WriteString(`<li>` + html.EscapeString(msg) + `</li>` + "\n")
		}
		buf.WriteString(`</ul>` + "\n")
	}

	for _, f := range fields {
		if err := writeField(&buf, &f, st.Prefill, errorsFor(f.Name, st.Errors)); err != nil {
			return "", err
		}
	}

	csrf, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("RenderForm: csrf token: %w", err)
	}
	writeHidden(&buf, FieldCSRF, csrf)
	writeHidden(&buf, fieldRenderTS, strconv.FormatInt(nowFunc().UnixMicro(), 10))
	writeHidden(&buf, FieldIdemKey, idem.NewKey())
	if stepIndex >= 0 {
		writeHidden(&buf, fieldStep, fd.Steps[stepIndex].ID)
	}

	if fd.Submit != "" {
		buf.WriteString(`<button type="submit">` + html.EscapeString(fd.Submit) + `</button>` + "\n")
	}
	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// selectFields returns the fields to render or validate for stepID.
func selectFields(fd *FormDef, stepID string) ([]FieldDef, int, error) {
	if len(fd.Steps) == 0 {
		return fd.Fields, -1, nil
	}
	if stepID == "" {
		return fd.Steps[0].Fields, 0, nil
	}
	for i, s := range fd.Steps {
		if s.ID == stepID {
			return s.Fields, i, nil
		}
	}
	return nil, -1, fmt.Errorf("RenderForm: step %q not found in form %q", stepID, fd.ID)
}

func errorsFor(name string, errs []ErrorField) []string {
	var out []string
	for _, e := range errs {
		if e.Name == name {
			out = append(out, e.Message)
		}
	}
	return out
}

func writeHidden(buf *bytes.Buffer, name, value string) {
	buf.WriteString(`<input type="hidden" name="` + html.EscapeString(name) + `" value="` + html.EscapeString(value) + `">` + "\n")
}

// writeField emits one field.
func writeField(buf *bytes.Buffer, f *FieldDef, prefill map[string]string, errs []string) error {
	val := prefill[f.Name]
	if f.Type == "password" {
		val = ""
	}

	if f.Type == "hidden" {
		buf.WriteString(`<input type="hidden" id="fld-` + html.EscapeString(f.Name) + `" name="` + html.EscapeString(f.Name) + `" value="` + html.EscapeString(val) + `">` + "\n")
		return nil
	}

	cls := "form-field"
	if len(errs) > 0 {
		cls += " has-error"
	}
	buf.WriteString(`<div class="` + cls + `">` + "\n")

	id := "fld-" + html.EscapeString(f.Name)
	idAttr := `id="` + id + `"`
	nameAttr := `name="` + html.EscapeString(f.Name) + `"`
	errAttr := ""
	if len(errs) > 0 {
		errAttr = ` aria-invalid="true" aria-describedby="` + id + `-err"`
	}

	if f.Type != "radio" {
		buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label) + `</label>` + "\n")
	} else {
		buf.WriteString(`<span class="label">` + html.EscapeString(f.Label) + `</span>` + "\n")
	}

	switch f.Type {
	case "text", "email", "password", "number", "date":
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="` + f.Type + `"` + errAttr)
		writeConstraints(buf, f)
		if f.Autocomplete != "" {
			buf.WriteString(` autocomplete="` + html.EscapeString(f.Autocomplete) + `"`)
		}
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case "textarea":
		buf.WriteString(`<textarea ` + idAttr + ` ` + nameAttr + errAttr)
		writeConstraints(buf, f)
		buf.WriteString(`>` + html.EscapeString(val) + `</textarea>` + "\n")

	case "select":
		buf.WriteString(`<select ` + idAttr + ` ` + nameAttr + errAttr)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")
		for _, opt := range f.Options {
			sel := ""
			if val == opt {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt) + `"` + sel + `>` + html.EscapeString(opt) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case "checkbox":
		checked := ""
		if val != "" && strings.ToLower(val) != "false" {
			checked = ` checked`
		}
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="checkbox"` + checked + errAttr)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")

	case "radio":
		for i, opt := range f.Options {
			radioID := fmt.Sprintf("%s-%d", id, i)
			checked := ""
			if val == opt {
				checked = ` checked`
			}
			buf.WriteString(`<div class="radio-option">` + "\n")
			buf.WriteString(`<input id="` + radioID + `" ` + nameAttr + ` type="radio" value="` + html.EscapeString(opt) + `"` + checked)
			if f.Required {
				buf.WriteString(` required`)
			}
			buf.WriteString(`>` + "\n")
			buf.WriteString(`<label for="` + radioID + `">` + html.EscapeString(opt) + `</label>` + "\n")
			buf.WriteString(`</div>` + "\n")
		}

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	buf.WriteString(`<span class="error" id="` + id + `-err" aria-live="polite">` + html.EscapeString(strings.Join(errs, " ")) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}

func writeConstraints(buf *bytes.Buffer, f *FieldDef) {
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.Required {
		buf.WriteString(` required`)
	}
	if f.MinLength > 0 {
		buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
	}
	if f.MaxLength > 0 {
		buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
	}
	if f.Pattern != "" {
		buf.WriteString(` pattern="` + html.EscapeString(f.Pattern) + `"`)
	}
}
