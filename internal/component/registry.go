// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  The site router lets every
// component add its routes to the shared router, after Init has handed it
// the process-wide dependencies.  Components may also ship embedded
// templates and form definitions.

package component

import (
	"io/fs"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Routes registers page and JSON endpoints directly on r, e.g.
//
//	r.Get("/login", c.getLogin)
//	r.Post("/login", c.postLogin)
//
// Components must not Mount a sub-router at "/"; chi allows one mount per
// pattern.
type Component interface {
	Name() string
	Routes(r chi.Router)
}

// Initializer is optional.  Init runs once before Routes.
type Initializer interface {
	Init(*Deps) error
}

// TemplateProvider is optional.  The returned filesystem holds the
// component's page templates at its root.
type TemplateProvider interface {
	Templates() fs.FS
}

// FormProvider is optional.  Every “*.yaml” in the returned filesystem is
// registered as a form definition.
type FormProvider interface {
	Forms() fs.FS
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
