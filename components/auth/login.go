package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/metrics"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/view"
)

const (
	formLogin    = "auth/login"
	formRegister = "auth/register"

	msgLoginFailed    = "Sign-in failed.  Check your email and password."
	msgRegisterFailed = "We could not create your account.  Please try again."
	msgRegistered     = "Account created.  Please sign in."
	msgSignedOut      = "You have been signed out."
)

var providerRe = regexp.MustCompile(`^[a-z]{2,20}$`)

/*──────────────────────────── login ────────────────────────────────────────*/

func (c *Component) getLogin(w http.ResponseWriter, r *http.Request) {
	c.d.Views.Render(w, r, c.Name(), "login", view.Page{Title: "Sign in"})
}

// postLogin stores the token and invalidates the cached profile exactly
// once per rendered form, however often the browser submits it.
func (c *Component) postLogin(w http.ResponseWriter, r *http.Request) {
	page := view.Page{Title: "Sign in"}
	v, err := form.HandleSubmit(formLogin, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "login", page, err)
		return
	}

	val, replayed, err := c.d.Once(r, formLogin, v, func() (any, error) {
		return c.d.Backend.Login(r.Context(), v.String("email"), v.String("password"), v.IdempotencyKey())
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "failed").Inc()
		logger.FromContext(r.Context()).Infow("login failed", "err", err)
		c.d.Reject(w, r, c.Name(), "login", page, respond.Message(err, msgLoginFailed))
		return
	}

	tok := val.(*backend.Session).BearerToken()
	c.d.Sessions.SetToken(w, tok)
	if !replayed {
		c.d.Cache.Invalidate(querycache.Namespace(tok), querycache.KeyMe)
		metrics.AuthEventsTotal.WithLabelValues("login", "ok").Inc()
		_ = c.d.Sessions.AddFlash(w, r, session.Success("Welcome back!"))
	}
	http.Redirect(w, r, c.d.Config.Auth.LandingPath, http.StatusSeeOther)
}

/*──────────────────────────── register ─────────────────────────────────────*/

func (c *Component) getRegister(w http.ResponseWriter, r *http.Request) {
	c.d.Views.Render(w, r, c.Name(), "register", view.Page{Title: "Create account"})
}

// postRegister never signs the user in; the API expects a separate login.
func (c *Component) postRegister(w http.ResponseWriter, r *http.Request) {
	page := view.Page{Title: "Create account"}
	v, err := form.HandleSubmit(formRegister, r)
	if err != nil {
		c.d.Invalid(w, r, c.Name(), "register", page, err)
		return
	}
	if v.String("password") != v.String("confirm_password") {
		page.Form = form.Resubmit(r, form.ErrorField{Name: "confirm_password", Message: "Passwords do not match."})
		c.d.Views.RenderStatus(w, r, http.StatusUnprocessableEntity, c.Name(), "register", page)
		return
	}

	_, replayed, err := c.d.Once(r, formRegister, v, func() (any, error) {
		return c.d.Backend.Register(r.Context(), backend.Registration{
			Name:     v.String("name"),
			Email:    v.String("email"),
			Password: v.String("password"),
		}, v.IdempotencyKey())
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("register", "failed").Inc()
		c.d.Reject(w, r, c.Name(), "register", page, respond.Message(err, msgRegisterFailed))
		return
	}
	if !replayed {
		metrics.AuthEventsTotal.WithLabelValues("register", "ok").Inc()
		_ = c.d.Sessions.AddFlash(w, r, session.Success(msgRegistered))
	}
	http.Redirect(w, r, c.d.Config.Auth.LoginPath, http.StatusSeeOther)
}

/*──────────────────────────── logout ───────────────────────────────────────*/

// postLogout ends the local session before telling the API, so a failing
// API never leaves the browser signed in.
func (c *Component) postLogout(w http.ResponseWriter, r *http.Request) {
	tok, had := c.d.Sessions.Token(r)
	c.d.Respond.EndSession(w, r)
	c.d.Sessions.ClearReset(w)
	c.d.Sessions.ClearPending(w)

	if had {
		if err := c.d.Backend.Logout(r.Context(), tok); err != nil {
			logger.FromContext(r.Context()).Warnw("backend logout failed", "err", err)
		}
	}
	metrics.AuthEventsTotal.WithLabelValues("logout", "ok").Inc()
	_ = c.d.Sessions.AddFlash(w, r, session.Info(msgSignedOut))
	http.Redirect(w, r, c.d.Config.Auth.LoginPath, http.StatusSeeOther)
}

/*──────────────────────────── OAuth ────────────────────────────────────────*/

// getOAuth hands the browser to the API's OAuth start URL.  The API calls
// back to a page with ?token=, which auth.Capture handles.
func (c *Component) getOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !providerRe.MatchString(provider) {
		http.NotFound(w, r)
		return
	}
	base := c.d.Config.Backend.OAuthURL
	if base == "" {
		base = c.d.Backend.BaseURL() + "/auth"
	}
	http.Redirect(w, r, strings.TrimRight(base, "/")+"/"+provider, http.StatusFound)
}

/*──────────────────────────── who am I ─────────────────────────────────────*/

type meResponse struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Plan  backend.Tier `json:"plan,omitempty"`
}

func (c *Component) getMe(w http.ResponseWriter, r *http.Request) {
	u, err := component.Cached(r, c.d, querycache.KeyMe, c.d.Backend.Me)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		c.d.Respond.EndSession(w, r)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": respond.SessionExpiredMessage})
		return
	case err != nil:
		logger.FromContext(r.Context()).Warnw("who-am-i failed", "err", err)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": respond.Message(err, "Profile unavailable.")})
		return
	}
	_ = json.NewEncoder(w).Encode(meResponse{ID: u.ID, Name: u.Name, Email: u.Email, Plan: u.Plan})
}
