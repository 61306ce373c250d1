// Package componenttest runs components behind the real site stack against
// a fake recipe API, with a cookie jar standing in for the browser.
package componenttest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/checkout"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/config"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/idem"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/realtime"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/site"
	"github.com/yanizio/recipebox/internal/view"
)

// PublishableKey is the provider key test environments are configured with.
const PublishableKey = "pk_test_recipebox"

// Env is one running site.
type Env struct {
	Deps    *component.Deps
	Handler http.Handler
	API     *httptest.Server

	mu  sync.Mutex
	jar map[string]*http.Cookie
}

// Option tweaks the environment before the site is built.
type Option func(*component.Deps)

// WithConfirmer replaces the provider confirmation used by checkout.
func WithConfirmer(c checkout.Confirmer) Option {
	return func(d *component.Deps) {
		d.Checkout = checkout.NewFlow(checkout.NewEmbeddedCard(PublishableKey, c), d.Backend, d.Hub, d.Log)
	}
}

// WithoutProvider leaves checkout without a publishable key.
func WithoutProvider() Option {
	return func(d *component.Deps) {
		d.Config.Stripe.PublishableKey = ""
		d.Checkout = checkout.NewFlow(checkout.NewEmbeddedCard("", nil), d.Backend, d.Hub, d.Log)
	}
}

// New starts api as the fake backend and builds the site around every
// registered component.
func New(t *testing.T, api http.Handler, opts ...Option) *Env {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	log := zap.NewNop().Sugar()
	store, err := session.New(session.Options{
		HashKey:  bytes.Repeat([]byte("h"), 32),
		BlockKey: bytes.Repeat([]byte("b"), 32),
	})
	require.NoError(t, err)
	views, err := view.New(store, view.Options{})
	require.NoError(t, err)

	cfg := &config.Config{
		Env:     "test",
		Backend: config.Backend{BaseURL: srv.URL, Timeout: 5 * time.Second},
		Auth:    config.Auth{LoginPath: "/login", LandingPath: "/home"},
		Stripe:  config.Stripe{PublishableKey: PublishableKey},
	}
	cache := querycache.New(256, time.Minute)
	client := backend.New(srv.URL, 5*time.Second, log)
	hub := realtime.NewHub(log)

	d := &component.Deps{
		Config:   cfg,
		Backend:  client,
		Sessions: store,
		Cache:    cache,
		Guard:    idem.New(256, time.Minute),
		Views:    views,
		Respond:  respond.New(store, cache, cfg.Auth.LoginPath),
		Hub:      hub,
		Log:      log,
	}
	d.Checkout = checkout.NewFlow(checkout.NewEmbeddedCard(PublishableKey, nil), client, hub, log)
	for _, o := range opts {
		o(d)
	}

	s, err := site.New(d)
	require.NoError(t, err)
	return &Env{Deps: d, Handler: s.Router(), API: srv, jar: map[string]*http.Cookie{}}
}

// Token signs a session token the gate accepts.
func Token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("api-secret"))
	require.NoError(t, err)
	return tok
}

// SignIn puts a fresh session token in the jar and returns it.
func (e *Env) SignIn(t *testing.T, email string) string {
	tok := Token(t, "u-1", email)
	e.SetCookie(&http.Cookie{Name: session.TokenCookie, Value: tok})
	return tok
}

// Browser returns a second client of the same site with an empty jar.
func (e *Env) Browser() *Env {
	return &Env{Deps: e.Deps, Handler: e.Handler, API: e.API, jar: map[string]*http.Cookie{}}
}

// SetCookie stores c as if the browser had received it.
func (e *Env) SetCookie(c *http.Cookie) {
	e.mu.Lock()
	e.jar[c.Name] = c
	e.mu.Unlock()
}

// Cookie returns the jar's value for name.
func (e *Env) Cookie(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.jar[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Do sends req with the jar's cookies and records the response's cookies.
func (e *Env) Do(req *http.Request) *httptest.ResponseRecorder {
	e.mu.Lock()
	for _, c := range e.jar {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	e.mu.Unlock()

	rec := httptest.NewRecorder()
	e.Handler.ServeHTTP(rec, req)

	e.mu.Lock()
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(e.jar, c.Name)
			continue
		}
		e.jar[c.Name] = c
	}
	e.mu.Unlock()
	return rec
}

func (e *Env) Get(target string) *httptest.ResponseRecorder {
	return e.Do(httptest.NewRequest(http.MethodGet, target, nil))
}

// Post submits values as a urlencoded form.
func (e *Env) Post(target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.Do(req)
}

var hiddenRe = regexp.MustCompile(`<input type="hidden" name="([a-z_]+)" value="([^"]*)">`)

// Fields renders formID the way a page would and returns its hidden meta
// fields merged with values.  The render time is backdated so forms with a
// minimum fill time accept the post.
func Fields(t *testing.T, formID string, values url.Values) url.Values {
	t.Helper()
	out, err := form.RenderForm(formID, form.State{})
	require.NoError(t, err)

	v := url.Values{}
	for _, m := range hiddenRe.FindAllStringSubmatch(string(out), -1) {
		v.Set(m[1], m[2])
	}
	v.Set("render_ts", strconv.FormatInt(time.Now().Add(-10*time.Second).UnixMicro(), 10))
	for k, vs := range values {
		v[k] = vs
	}
	return v
}

// Button returns values plus the CSRF token a one-button form carries.
func Button(t *testing.T, values url.Values) url.Values {
	t.Helper()
	tok, err := form.GenerateToken()
	require.NoError(t, err)
	out := url.Values{form.FieldCSRF: {tok}}
	for k, vs := range values {
		out[k] = vs
	}
	return out
}
