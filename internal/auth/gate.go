// internal/auth/gate.go
//
// Route gate: the single authorization enforcement point.
//
// Context
//   Every request passes through Gate.Middleware once.  The path is classed
//   as open, public, or protected.  Protected requests without a usable
//   session are redirected to the login page before any handler runs, so
//   nothing protected is ever rendered for an anonymous visitor.  All other
//   requests continue with an Access read-model in their context.
//
//   "Usable" means the cookie is present and its payload decodes with an
//   expiry in the future.  A cookie failing that test is cleared, along
//   with whatever the session had cached.
//
//------------------------------------------------------------------------------

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/metrics"
)

// TokenStore is the part of the session store the gate needs.
type TokenStore interface {
	Token(r *http.Request) (string, bool)
	Clear(w http.ResponseWriter)
}

// Policy lists which paths are public, protected, or open.
type Policy struct {
	LoginPath   string
	LandingPath string
	// Protected are path prefixes matched on segment boundaries.
	Protected []string
	// Public are path prefixes for the auth pages.
	Public []string
}

// DefaultProtected are the application areas behind login.
var DefaultProtected = []string{
	"/home", "/recipes", "/favorites", "/history", "/community",
	"/plans", "/checkout", "/profile", "/me", "/ws",
}

// DefaultPublic are the auth pages.
var DefaultPublic = []string{
	"/login", "/register", "/forgot-password", "/reset-password", "/auth",
}

// Classify returns the class of path.  Protected wins over public.
func (p Policy) Classify(path string) Class {
	if matchAny(path, p.Protected) {
		return ClassProtected
	}
	if path == p.LoginPath || matchAny(path, p.Public) {
		return ClassPublic
	}
	return ClassOpen
}

func matchAny(path string, prefixes []string) bool {
	for _, pre := range prefixes {
		if hasSegmentPrefix(path, pre) {
			return true
		}
	}
	return false
}

// hasSegmentPrefix matches "/recipes" against "/recipes" and "/recipes/1"
// but not "/recipesx".
func hasSegmentPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Gate enforces Policy.
type Gate struct {
	policy  Policy
	store   TokenStore
	onClear func(token string)
	now     func() time.Time
}

// NewGate builds a gate.  onClear, when set, runs with the discarded token
// whenever the gate clears an unusable cookie.
func NewGate(p Policy, store TokenStore, onClear func(token string)) *Gate {
	if len(p.Protected) == 0 {
		p.Protected = DefaultProtected
	}
	if len(p.Public) == 0 {
		p.Public = DefaultPublic
	}
	return &Gate{policy: p, store: store, onClear: onClear, now: time.Now}
}

func (g *Gate) Policy() Policy { return g.policy }

// Middleware is the chi-compatible gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := g.policy.Classify(r.URL.Path)
		acc := Access{Class: class}

		if class != ClassOpen || r.URL.Path == "/" {
			if tok, ok := g.store.Token(r); ok {
				hint, err := DecodeHint(tok, g.now())
				if err != nil {
					logger.FromContext(r.Context()).Infow("discarding unusable session", "err", err)
					g.store.Clear(w)
					if g.onClear != nil {
						g.onClear(tok)
					}
				} else {
					acc.Authenticated = true
					acc.Hint = hint
				}
			}
		}

		if r.URL.Path == "/" {
			dest := g.policy.LoginPath
			if acc.Authenticated {
				dest = g.policy.LandingPath
			}
			metrics.GateDecisionsTotal.WithLabelValues("root").Inc()
			http.Redirect(w, r, dest, http.StatusSeeOther)
			return
		}

		if class == ClassProtected && !acc.Authenticated {
			metrics.GateDecisionsTotal.WithLabelValues("redirect").Inc()
			http.Redirect(w, r, g.policy.LoginPath, http.StatusSeeOther)
			return
		}
		metrics.GateDecisionsTotal.WithLabelValues(class.String()).Inc()

		ctx := WithAccess(r.Context(), acc)
		if acc.Authenticated {
			ctx = WithUser(ctx, acc.Hint)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
