package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/recipebox/internal/session"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-our-secret"))
	require.NoError(t, err)
	return tok
}

func validToken(t *testing.T) string {
	return mint(t, jwt.MapClaims{
		"userId": 42,
		"email":  "cook@example.com",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.New(session.Options{
		HashKey:  []byte("0123456789abcdef0123456789abcdef"),
		BlockKey: []byte("0123456789abcdef"),
	})
	require.NoError(t, err)
	return s
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func policy() Policy {
	return Policy{LoginPath: "/login", LandingPath: "/home"}
}

/*──────────────────────────── DecodeHint ──────────────────────────────────*/

func TestDecodeHintIgnoresSignature(t *testing.T) {
	h, err := DecodeHint(validToken(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "42", h.UserID)
	assert.Equal(t, "cook@example.com", h.Email)
	assert.False(t, h.ExpiresAt.IsZero())
}

func TestDecodeHintSubjectFallback(t *testing.T) {
	h, err := DecodeHint(mint(t, jwt.MapClaims{"sub": "u-7"}), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "u-7", h.UserID)
}

func TestDecodeHintRejects(t *testing.T) {
	_, err := DecodeHint("not.a.jwt", time.Now())
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = DecodeHint(mint(t, jwt.MapClaims{"role": "x"}), time.Now())
	assert.ErrorIs(t, err, ErrMalformedToken)

	expired := mint(t, jwt.MapClaims{"email": "a@b.co", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = DecodeHint(expired, time.Now())
	assert.ErrorIs(t, err, ErrExpiredToken)
}

/*──────────────────────────── Gate ────────────────────────────────────────*/

func serveGate(t *testing.T, g *Gate, path, token string) (*httptest.ResponseRecorder, *Access) {
	t.Helper()
	var seen *Access
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := AccessFrom(r.Context())
		seen = &acc
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestGateRedirectsEveryProtectedPrefixWithoutCookie(t *testing.T) {
	g := NewGate(policy(), newStore(t), nil)
	for _, pre := range DefaultProtected {
		for _, p := range []string{pre, pre + "/sub"} {
			rec, seen := serveGate(t, g, p, "")
			assert.Equal(t, http.StatusSeeOther, rec.Code, p)
			assert.Equal(t, "/login", rec.Header().Get("Location"), p)
			assert.Nil(t, seen, "handler must not run for %s", p)
		}
	}
}

func TestGateAdmitsProtectedWithToken(t *testing.T) {
	g := NewGate(policy(), newStore(t), nil)
	rec, seen := serveGate(t, g, "/recipes/1", validToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.True(t, seen.Authenticated)
	assert.True(t, seen.ShowHeader())
	assert.Equal(t, "cook@example.com", seen.Hint.Email)
}

func TestGatePublicPagesNeverShowHeader(t *testing.T) {
	g := NewGate(policy(), newStore(t), nil)
	for _, p := range []string{"/login", "/register", "/forgot-password", "/reset-password"} {
		for _, tok := range []string{"", validToken(t)} {
			rec, seen := serveGate(t, g, p, tok)
			require.Equal(t, http.StatusOK, rec.Code, p)
			assert.Equal(t, ClassPublic, seen.Class)
			assert.False(t, seen.ShowHeader(), p)
		}
	}
}

func TestGateClearsExpiredToken(t *testing.T) {
	var cleared string
	g := NewGate(policy(), newStore(t), func(tok string) { cleared = tok })
	expired := mint(t, jwt.MapClaims{"email": "a@b.co", "exp": time.Now().Add(-time.Hour).Unix()})

	rec, seen := serveGate(t, g, "/home", expired)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, seen)
	assert.Equal(t, expired, cleared)
	c := cookie(rec, session.TokenCookie)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestGateRoot(t *testing.T) {
	g := NewGate(policy(), newStore(t), nil)
	rec, _ := serveGate(t, g, "/", "")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	rec, _ = serveGate(t, g, "/", validToken(t))
	assert.Equal(t, "/home", rec.Header().Get("Location"))
}

func TestGateOpenPathsPassThrough(t *testing.T) {
	g := NewGate(policy(), newStore(t), nil)
	rec, seen := serveGate(t, g, "/static/app.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ClassOpen, seen.Class)
}

func TestClassifySegmentBoundary(t *testing.T) {
	p := NewGate(policy(), nil, nil).Policy()
	assert.Equal(t, ClassProtected, p.Classify("/recipes"))
	assert.Equal(t, ClassOpen, p.Classify("/recipesx"))
	assert.Equal(t, ClassPublic, p.Classify("/reset-password/code"))
}

/*──────────────────────────── Capture ─────────────────────────────────────*/

func serveCapture(t *testing.T, target string) (*httptest.ResponseRecorder, []string, bool) {
	t.Helper()
	var invalidated []string
	reached := false
	c := NewCapture(newStore(t), policy(), func(tok string) { invalidated = append(invalidated, tok) })
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec, invalidated, reached
}

func TestCaptureStoresValidTokenAndStripsParameter(t *testing.T) {
	tok := validToken(t)
	rec, invalidated, reached := serveCapture(t, "/recipes?token="+tok)

	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Header().Get("Location"), "token")
	c := cookie(rec, session.TokenCookie)
	require.NotNil(t, c)
	assert.Equal(t, tok, c.Value)
	assert.Equal(t, []string{tok}, invalidated)
}

func TestCaptureMalformedTokenSetsNoCookie(t *testing.T) {
	rec, invalidated, reached := serveCapture(t, "/home?token=garbage")

	assert.False(t, reached)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, cookie(rec, session.TokenCookie))
	assert.Empty(t, invalidated)
}

func TestCapturePassesThroughWithoutParameter(t *testing.T) {
	_, _, reached := serveCapture(t, "/home")
	assert.True(t, reached)
}

func TestUserContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := User(req.Context())
	assert.False(t, ok)

	ctx := WithUser(req.Context(), Hint{Email: "a@b.co"})
	h, ok := User(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@b.co", h.Email)
}
