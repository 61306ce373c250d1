package auth

import (
	"net/http"
	"time"

	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/metrics"
	"github.com/yanizio/recipebox/internal/session"
)

// SessionWriter is the part of the session store token capture needs.
type SessionWriter interface {
	SetToken(w http.ResponseWriter, token string)
	AddFlash(w http.ResponseWriter, r *http.Request, f session.Flash) error
}

// Capture handles the OAuth callback: any request carrying `?token=` has the
// token decoded and, only if that succeeds, stored as the session.  The
// response is always a redirect, so the parameter never stays in the
// visible URL.
type Capture struct {
	store       SessionWriter
	onCapture   func(token string)
	landingPath string
	loginPath   string
	now         func() time.Time
}

// NewCapture builds the middleware.  onCapture runs after a token is stored,
// typically to invalidate the cached profile.
func NewCapture(store SessionWriter, p Policy, onCapture func(token string)) *Capture {
	return &Capture{
		store:       store,
		onCapture:   onCapture,
		landingPath: p.LandingPath,
		loginPath:   p.LoginPath,
		now:         time.Now,
	}
}

func (c *Capture) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("token") {
			next.ServeHTTP(w, r)
			return
		}
		tok := q.Get("token")
		log := logger.FromContext(r.Context())

		hint, err := DecodeHint(tok, c.now())
		if err != nil {
			metrics.AuthEventsTotal.WithLabelValues("capture", "rejected").Inc()
			log.Infow("token capture rejected", "err", err)
			_ = c.store.AddFlash(w, r, session.Error("Sign-in failed: the link was invalid or expired."))
			http.Redirect(w, r, c.loginPath, http.StatusSeeOther)
			return
		}

		c.store.SetToken(w, tok)
		if c.onCapture != nil {
			c.onCapture(tok)
		}
		metrics.AuthEventsTotal.WithLabelValues("capture", "ok").Inc()
		log.Infow("token captured", "user_id", hint.UserID)

		msg := "Signed in."
		if hint.Email != "" {
			msg = "Signed in as " + hint.Email + "."
		}
		_ = c.store.AddFlash(w, r, session.Success(msg))
		http.Redirect(w, r, c.landingPath, http.StatusSeeOther)
	})
}
