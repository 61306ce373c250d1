package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/session"
)

type fakeSessions struct {
	token   string
	cleared bool
	flashes []session.Flash
}

func (f *fakeSessions) Token(*http.Request) (string, bool) { return f.token, f.token != "" }
func (f *fakeSessions) Clear(http.ResponseWriter)          { f.cleared = true }
func (f *fakeSessions) AddFlash(_ http.ResponseWriter, _ *http.Request, fl session.Flash) error {
	f.flashes = append(f.flashes, fl)
	return nil
}

type fakeCache struct{ cleared []string }

func (f *fakeCache) Clear(ns string) { f.cleared = append(f.cleared, ns) }

func TestUnauthorizedEndsSession(t *testing.T) {
	s := &fakeSessions{token: "tok"}
	c := &fakeCache{}
	rs := New(s, c, "/login")
	rec := httptest.NewRecorder()

	rs.Error(rec, httptest.NewRequest(http.MethodPost, "/favorites/1", nil), backend.ErrUnauthorized, "x", "/recipes")

	assert.True(t, s.cleared)
	assert.Equal(t, []string{querycache.Namespace("tok")}, c.cleared)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, SessionExpiredMessage, s.flashes[0].Message)
}

func TestBusinessErrorUsesServerMessage(t *testing.T) {
	s := &fakeSessions{token: "tok"}
	rs := New(s, &fakeCache{}, "/login")
	rec := httptest.NewRecorder()

	rs.Error(rec, httptest.NewRequest(http.MethodPost, "/plans/cancel", nil),
		&backend.APIError{Status: 409, Message: "No active subscription"}, "Could not cancel.", "/plans")

	assert.False(t, s.cleared)
	assert.Equal(t, "/plans", rec.Header().Get("Location"))
	assert.Equal(t, session.Error("No active subscription"), s.flashes[0])
}

func TestOtherErrorsUseFallback(t *testing.T) {
	s := &fakeSessions{}
	rs := New(s, &fakeCache{}, "/login")
	rec := httptest.NewRecorder()

	rs.Error(rec, httptest.NewRequest(http.MethodPost, "/x", nil), errors.New("dial tcp: refused"), "Something went wrong.", "/x")
	assert.Equal(t, "Something went wrong.", s.flashes[0].Message)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fb", Message(errors.New("x"), "fb"))
	assert.Equal(t, "srv", Message(&backend.APIError{Message: "srv"}, "fb"))
	assert.Equal(t, "fb", Message(&backend.APIError{Status: 500}, "fb"))
}
