package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/recipebox/internal/component/componenttest"
	"github.com/yanizio/recipebox/internal/requestinfo"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func api() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u-1", "name": "Cook", "email": "cook@example.com", "plan": "master"})
	})
	return mux
}

func TestProfilePage(t *testing.T) {
	env := componenttest.New(t, api())
	env.SignIn(t, "cook@example.com")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("User-Agent", chromeUA)
	rec := env.Do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<dd>Cook</dd>")
	assert.Contains(t, body, "<dd>master</dd>")
	assert.Contains(t, body, "Chrome")
}

func TestDeviceJSON(t *testing.T) {
	env := componenttest.New(t, api())
	env.SignIn(t, "cook@example.com")

	req := httptest.NewRequest(http.MethodGet, "/profile/device", nil)
	req.Header.Set("User-Agent", chromeUA)
	rec := env.Do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var ri requestinfo.RequestInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ri))
	assert.Equal(t, "Chrome", ri.UA.Browser)
	assert.False(t, ri.UA.IsBot)
}
