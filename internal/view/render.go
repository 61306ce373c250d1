// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed template sets.
//
// Lookup precedence (first hit wins):
//   1. <theme dir>/<comp>/<name>.html   (optional, on disk)
//   2. components/<comp>/templates/<name>.html   (embedded)
//
// Each page set is the shared layout cloned, plus the page file, plus any
// “_*.html” partials from the same source.  Page files define "content" and
// may define "title"; the layout executes "base".

package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/cache"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/requestinfo"
	"github.com/yanizio/recipebox/internal/session"
)

// ErrNotFound is returned when no source holds the requested page.
var ErrNotFound = errors.New("view: template not found")

// Flasher pops pending flash messages.
type Flasher interface {
	Flashes(w http.ResponseWriter, r *http.Request) []session.Flash
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Access  auth.Access
	Flashes []session.Flash
	Info    *requestinfo.RequestInfo
	// Form is the state of the page's primary form, if it has one.
	Form form.State
	Data any
}

// Options tune the engine.
type Options struct {
	// ThemeDir overrides embedded templates from disk when set.
	ThemeDir string
	// Capacity bounds the parsed-set LRU.  Zero means 256.
	Capacity int
	// NoCache reparses on every render (development).
	NoCache bool
}

type Engine struct {
	base    *template.Template
	flasher Flasher
	opts    Options
	sets    *cache.LRU[string, *template.Template]

	mu    sync.RWMutex
	comps map[string]fs.FS
}

// New parses the shared layout.
func New(flasher Flasher, opts Options) (*Engine, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = 256
	}
	base, err := template.New("base").Funcs(funcMap()).ParseFS(layoutFS, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse layouts: %w", err)
	}
	return &Engine{
		base:    base,
		flasher: flasher,
		opts:    opts,
		sets:    cache.New[string, *template.Template](opts.Capacity),
		comps:   map[string]fs.FS{},
	}, nil
}

// Register makes a component's templates available.  fsys holds the page
// files at its root.
func (e *Engine) Register(comp string, fsys fs.FS) {
	e.mu.Lock()
	e.comps[comp] = fsys
	e.mu.Unlock()
	e.sets.Purge()
}

// Render writes a 200 page.
func (e *Engine) Render(w http.ResponseWriter, r *http.Request, comp, name string, p Page) {
	e.RenderStatus(w, r, http.StatusOK, comp, name, p)
}

// RenderStatus executes comp/name into a buffer and writes it with status.
// Failures are logged and answered with a bare 500.
func (e *Engine) RenderStatus(w http.ResponseWriter, r *http.Request, status int, comp, name string, p Page) {
	p.Access = auth.AccessFrom(r.Context())
	p.Info = requestinfo.FromContext(r.Context())
	if e.flasher != nil {
		p.Flashes = e.flasher.Flashes(w, r)
	}

	var buf bytes.Buffer
	err := e.Execute(&buf, comp, name, p)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "comp", comp, "tpl", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Execute renders comp/name with p into buf.
func (e *Engine) Execute(buf *bytes.Buffer, comp, name string, p Page) error {
	t, err := e.load(comp, name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(buf, "base", p)
}

func (e *Engine) load(comp, name string) (*template.Template, error) {
	key := comp + "::" + name
	if !e.opts.NoCache {
		if t, ok := e.sets.Get(key); ok {
			return t, nil
		}
	}

	src, err := e.source(comp, name)
	if err != nil {
		return nil, err
	}

	t, err := e.base.Clone()
	if err != nil {
		return nil, err
	}
	if t, err = t.ParseFS(src, name+".html"); err != nil {
		return nil, fmt.Errorf("view: parse %s/%s: %w", comp, name, err)
	}
	if partials, _ := fs.Glob(src, "_*.html"); len(partials) > 0 {
		if t, err = t.ParseFS(src, partials...); err != nil {
			return nil, fmt.Errorf("view: parse %s partials: %w", comp, err)
		}
	}

	if !e.opts.NoCache {
		e.sets.Add(key, t)
	}
	return t, nil
}

// source returns the filesystem that holds comp/name, honouring the theme
// override.
func (e *Engine) source(comp, name string) (fs.FS, error) {
	if e.opts.ThemeDir != "" {
		dir := filepath.Join(e.opts.ThemeDir, comp)
		if _, err := os.Stat(filepath.Join(dir, name+".html")); err == nil {
			return os.DirFS(dir), nil
		}
	}

	e.mu.RLock()
	fsys, ok := e.comps[comp]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: component %q", ErrNotFound, comp)
	}
	if _, err := fs.Stat(fsys, name+".html"); err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, comp, name)
	}
	return fsys, nil
}
