package site

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/config"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/view"
)

type probe struct{}

func (probe) Name() string { return "probe" }

func (probe) Routes(r chi.Router) {
	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("login page"))
	})
	r.Get("/home", func(w http.ResponseWriter, r *http.Request) {
		acc := auth.AccessFrom(r.Context())
		if acc.ShowHeader() {
			_, _ = w.Write([]byte("home with header"))
			return
		}
		_, _ = w.Write([]byte("home"))
	})
}

func init() { component.Register(probe{}) }

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u-1",
		"email":  "cook@example.com",
		"exp":    exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func newSite(t *testing.T) (http.Handler, *component.Deps) {
	t.Helper()
	store, err := session.New(session.Options{
		HashKey:  bytes.Repeat([]byte("h"), 32),
		BlockKey: bytes.Repeat([]byte("b"), 32),
	})
	require.NoError(t, err)
	views, err := view.New(store, view.Options{})
	require.NoError(t, err)

	d := &component.Deps{
		Config: &config.Config{
			Env: "test",
			Auth: config.Auth{
				LoginPath:   "/login",
				LandingPath: "/home",
			},
		},
		Sessions: store,
		Cache:    querycache.New(64, time.Minute),
		Views:    views,
		Log:      zap.NewNop().Sugar(),
	}
	s, err := New(d)
	require.NoError(t, err)
	return s.Router(), d
}

func get(h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jwtCookie(v string) *http.Cookie { return &http.Cookie{Name: session.TokenCookie, Value: v} }

func TestProtectedPathsRedirectWithoutSession(t *testing.T) {
	h, _ := newSite(t)
	for _, p := range auth.DefaultProtected {
		for _, path := range []string{p, p + "/anything"} {
			rec := get(h, path)
			assert.Equal(t, http.StatusSeeOther, rec.Code, path)
			assert.Equal(t, "/login", rec.Header().Get("Location"), path)
			assert.NotContains(t, rec.Body.String(), "home", path)
		}
	}
}

func TestRootRedirect(t *testing.T) {
	h, _ := newSite(t)
	assert.Equal(t, "/login", get(h, "/").Header().Get("Location"))
	assert.Equal(t, "/home", get(h, "/", jwtCookie(signed(t, time.Now().Add(time.Hour)))).Header().Get("Location"))
}

func TestProtectedWithSessionShowsHeader(t *testing.T) {
	h, _ := newSite(t)
	rec := get(h, "/home", jwtCookie(signed(t, time.Now().Add(time.Hour))))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home with header", rec.Body.String())
}

func TestExpiredCookieIsClearedAndRedirected(t *testing.T) {
	h, _ := newSite(t)
	rec := get(h, "/home", jwtCookie(signed(t, time.Now().Add(-time.Hour))))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.TokenCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestPublicPageRendersWithAndWithoutCookie(t *testing.T) {
	h, _ := newSite(t)
	assert.Equal(t, "login page", get(h, "/login").Body.String())
	assert.Equal(t, "login page", get(h, "/login", jwtCookie(signed(t, time.Now().Add(time.Hour)))).Body.String())
}

func TestTokenCaptureSetsCookieAndStripsParam(t *testing.T) {
	h, _ := newSite(t)
	tok := signed(t, time.Now().Add(time.Hour))
	rec := get(h, "/home?token="+tok)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))
	var got string
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.TokenCookie {
			got = c.Value
		}
	}
	assert.Equal(t, tok, got)
}

func TestMalformedTokenCaptureEndsOnLogin(t *testing.T) {
	h, _ := newSite(t)
	rec := get(h, "/home?token=not-a-jwt")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, session.TokenCookie, c.Name)
	}
}

func TestOpenEndpoints(t *testing.T) {
	h, _ := newSite(t)

	rec := get(h, "/healthz")
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(h, "/static/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestNotFoundRendersPage(t *testing.T) {
	h, _ := newSite(t)
	rec := get(h, "/no-such-page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
