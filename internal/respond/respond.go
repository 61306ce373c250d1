// Package respond turns errors into user-facing responses.  It is the one
// place where a backend error becomes a flash message, and the one place a
// rejected session token ends the session.
package respond

import (
	"errors"
	"net/http"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/metrics"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/session"
)

// SessionExpiredMessage is flashed when the API rejects the session token.
const SessionExpiredMessage = "Your session has expired.  Please sign in again."

// Sessions is the part of the session store the responder needs.
type Sessions interface {
	Token(r *http.Request) (string, bool)
	Clear(w http.ResponseWriter)
	AddFlash(w http.ResponseWriter, r *http.Request, f session.Flash) error
}

// Namespaces drops a session's cached queries.
type Namespaces interface {
	Clear(ns string)
}

type Responder struct {
	sessions  Sessions
	cache     Namespaces
	loginPath string
}

func New(s Sessions, c Namespaces, loginPath string) *Responder {
	return &Responder{sessions: s, cache: c, loginPath: loginPath}
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	if msg, ok := backend.Message(err); ok {
		return msg
	}
	return fallback
}

// EndSession clears the cookie and the session's cached queries.
func (rs *Responder) EndSession(w http.ResponseWriter, r *http.Request) {
	if tok, ok := rs.sessions.Token(r); ok && rs.cache != nil {
		rs.cache.Clear(querycache.Namespace(tok))
	}
	rs.sessions.Clear(w)
}

// Unauthorized handles backend.ErrUnauthorized by ending the session and
// redirecting to login.  It reports whether it wrote a response.
func (rs *Responder) Unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	metrics.AuthEventsTotal.WithLabelValues("session", "expired").Inc()
	logger.FromContext(r.Context()).Infow("session rejected by backend", "path", r.URL.Path)
	rs.EndSession(w, r)
	_ = rs.sessions.AddFlash(w, r, session.Error(SessionExpiredMessage))
	http.Redirect(w, r, rs.loginPath, http.StatusSeeOther)
	return true
}

// Error flashes a message for err and redirects to back.  Unauthorized
// errors end the session instead.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, fallback, back string) {
	if rs.Unauthorized(w, r, err) {
		return
	}
	var ae *backend.APIError
	if !errors.As(err, &ae) {
		logger.FromContext(r.Context()).Errorw("request failed", "path", r.URL.Path, "err", err)
	}
	_ = rs.sessions.AddFlash(w, r, session.Error(Message(err, fallback)))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Success flashes msg and redirects to dest.
func (rs *Responder) Success(w http.ResponseWriter, r *http.Request, msg, dest string) {
	if msg != "" {
		_ = rs.sessions.AddFlash(w, r, session.Success(msg))
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
