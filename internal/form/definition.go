// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file embedded in its component
//   (`components/<comp>/forms/*.yaml`).  At boot every component's forms are
//   parsed and stored in an in-memory registry.  The renderer and validator
//   fetch definitions from this registry by ID, so the markup the browser
//   sees and the rules the server enforces come from one source.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → StepDef → FieldDef.
//   •  ParseFormDef parses one document and validates structural rules.
//   •  RegisterFS walks a component's embedded filesystem and registers
//      every “*.yaml” it finds.
//   •  GetFormDef offers read-only access to a parsed form by ID.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// IDs are namespaced by component, e.g. “auth/login”.  A form is defined
// EITHER by a flat Fields list OR by a Steps list.
type FormDef struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Submit string     `yaml:"submit"` // Button label.
	Fields []FieldDef `yaml:"fields"`
	Steps  []StepDef  `yaml:"steps"`
	// MinFillSeconds rejects submissions faster than a human could type.
	// Zero disables the check.
	MinFillSeconds int `yaml:"min_fill_seconds"`
}

// FieldDef describes a single input control on the form.
type FieldDef struct {
	Name         string   `yaml:"name"`
	Label        string   `yaml:"label"`
	Type         string   `yaml:"type"` // text, email, password, number, date, textarea, select, radio, checkbox, hidden
	Placeholder  string   `yaml:"placeholder"`
	Autocomplete string   `yaml:"autocomplete"`
	Required     bool     `yaml:"required"`
	MinLength    int      `yaml:"minlength"`
	MaxLength    int      `yaml:"maxlength"`
	Pattern      string   `yaml:"pattern"`
	Options      []string `yaml:"options"`
	ErrorMsg     string   `yaml:"error"`
}

// StepDef groups fields into a wizard step.  Only one step is rendered and
// validated per request.
type StepDef struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Fields []FieldDef `yaml:"fields"`
}

var knownTypes = map[string]bool{
	"text": true, "email": true, "password": true, "number": true, "date": true,
	"textarea": true, "select": true, "radio": true, "checkbox": true, "hidden": true,
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns a parsed FormDef by ID.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

func register(fd *FormDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[fd.ID] = fd
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef parses one YAML document.  It never touches the registry.
func ParseFormDef(name string, raw []byte) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}
	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// RegisterYAML parses and registers one document.
func RegisterYAML(name string, raw []byte) error {
	fd, err := ParseFormDef(name, raw)
	if err != nil {
		return err
	}
	register(fd)
	return nil
}

// RegisterFS loads every “*.yaml” under fsys.  A nil fsys is a no-op.
func RegisterFS(fsys fs.FS) error {
	if fsys == nil {
		return nil
	}
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", path, err)
		}
		return RegisterYAML(path, raw)
	})
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

func validateFormDef(fd *FormDef, path string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", path)
	}
	if len(fd.Fields) > 0 && len(fd.Steps) > 0 {
		return fmt.Errorf("form definition %s: cannot have both 'fields' and 'steps'", path)
	}
	if len(fd.Fields) == 0 && len(fd.Steps) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields' or 'steps'", path)
	}
	if fd.MinFillSeconds < 0 {
		return fmt.Errorf("form definition %s: min_fill_seconds cannot be negative", path)
	}

	fieldNames := make(map[string]struct{})
	check := func(f *FieldDef) error {
		if err := validateField(f, path); err != nil {
			return err
		}
		if _, dup := fieldNames[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", path, f.Name)
		}
		fieldNames[f.Name] = struct{}{}
		return nil
	}

	for i := range fd.Fields {
		if err := check(&fd.Fields[i]); err != nil {
			return err
		}
	}
	for si := range fd.Steps {
		s := &fd.Steps[si]
		if s.ID == "" {
			s.ID = fmt.Sprintf("step%d", si+1)
		}
		for fi := range s.Fields {
			if err := check(&s.Fields[fi]); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateField(f *FieldDef, path string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", path)
	}
	if reserved[f.Name] {
		return fmt.Errorf("form %s: field name '%s' is reserved", path, f.Name)
	}
	if f.Type == "" {
		return fmt.Errorf("form %s: field '%s' missing 'type'", path, f.Name)
	}
	if !knownTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", path, f.Name, f.Type)
	}
	if f.Label == "" && f.Type != "hidden" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", path, f.Name)
	}
	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", path, f.Name, err)
		}
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", path, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", path, f.Name)
	}
	if (f.Type == "select" || f.Type == "radio") && len(f.Options) == 0 {
		return fmt.Errorf("form %s: field '%s' needs options", path, f.Name)
	}
	return nil
}
