package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.112 Safari/537.36"
	googlebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestEnrichStoresInfo(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("User-Agent", chromeMac)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.RemoteAddr = "203.0.113.9:4711"
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Equal(t, "Desktop", got.UA.Device)
	assert.False(t, got.IsBot())
	assert.Equal(t, "en-us", got.UA.PrimaryLang)
	assert.Equal(t, "203.0.113.9", got.Geo.IP.String())
	assert.Empty(t, got.Geo.CountryISO)
}

func TestBotDetection(t *testing.T) {
	ua := ParseUA(googlebot, "")
	assert.True(t, ua.IsBot)
}

func TestNilInfoIsNotBot(t *testing.T) {
	var ri *RequestInfo
	assert.False(t, ri.IsBot())
	assert.Nil(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestInitGeoEmptyPathDisabled(t *testing.T) {
	require.NoError(t, InitGeo(""))
	assert.Error(t, InitGeo("/nonexistent/GeoLite2-City.mmdb"))
}

func TestPrimaryLang(t *testing.T) {
	assert.Equal(t, "", primaryLang(""))
	assert.Equal(t, "es", primaryLang("es;q=0.8, en"))
}
