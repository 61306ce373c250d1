// internal/site/site.go
//
// The site is the one http.Handler the server runs.
//
// The router is built once.  Middleware order matters:
//
//   RequestID → RealIP → requestinfo.Enrich → AccessLog → Recoverer →
//   Security → [ForceHTTPS] → Capture → Gate → RateLimit → routes
//
// Capture and Gate run before routing so unknown paths under a protected
// prefix redirect to login like known ones.  Every registered component
// adds its routes to the shared router.

package site

import (
	"embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/middleware"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/requestinfo"
	"github.com/yanizio/recipebox/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

const name = "site"

type Site struct {
	deps    *component.Deps
	capture *auth.Capture
	gate    *auth.Gate
	limiter *middleware.RateLimiter

	routerOnce sync.Once
	router     http.Handler
}

// New installs every registered component and builds the auth middleware.
func New(d *component.Deps) (*Site, error) {
	d.Views.Register(name, component.Sub(templateFS, "templates"))
	for _, c := range component.All() {
		if err := component.Install(c, d); err != nil {
			return nil, fmt.Errorf("site: install %s: %w", c.Name(), err)
		}
	}

	cfg := d.Config
	policy := auth.Policy{
		LoginPath:   cfg.Auth.LoginPath,
		LandingPath: cfg.Auth.LandingPath,
		Protected:   cfg.Auth.ProtectedPrefixes,
		Public:      cfg.Auth.PublicPaths,
	}
	onCapture := func(tok string) { d.Cache.Invalidate(querycache.Namespace(tok), querycache.KeyMe) }
	onClear := func(tok string) { d.Cache.Clear(querycache.Namespace(tok)) }

	return &Site{
		deps:    d,
		capture: auth.NewCapture(d.Sessions, policy, onCapture),
		gate:    auth.NewGate(policy, d.Sessions, onClear),
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}

// Router builds (once) and returns the handler.
func (s *Site) Router() http.Handler {
	s.routerOnce.Do(func() {
		cfg := s.deps.Config
		r := chi.NewRouter()

		r.Use(chimw.RequestID)
		r.Use(chimw.RealIP)
		r.Use(requestinfo.Enrich)
		r.Use(middleware.AccessLog(s.deps.Log))
		r.Use(chimw.Recoverer)
		r.Use(middleware.Security(cfg.IsProduction()))
		if cfg.HTTP.ForceHTTPS {
			r.Use(middleware.ForceHTTPS)
		}
		r.Use(s.capture.Middleware)
		r.Use(s.gate.Middleware)
		r.Use(s.limiter.Middleware)

		r.Handle("/metrics", promhttp.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("ok"))
		})
		r.Handle("/static/*", view.Static())

		for _, c := range component.All() {
			c.Routes(r)
		}

		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			s.deps.Views.RenderStatus(w, req, http.StatusNotFound, name, "notfound", view.Page{Title: "Not found"})
		})

		s.router = r
	})
	return s.router
}
