package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/recipebox/internal/component/componenttest"
	"github.com/yanizio/recipebox/internal/realtime"
	"github.com/yanizio/recipebox/internal/session"
)

func TestSocketReceivesOwnEvents(t *testing.T) {
	env := componenttest.New(t, http.NotFoundHandler())
	srv := httptest.NewServer(env.Handler)
	t.Cleanup(srv.Close)

	tok := componenttest.Token(t, "u-1", "cook@example.com")
	hdr := http.Header{}
	hdr.Add("Cookie", (&http.Cookie{Name: session.TokenCookie, Value: tok}).String())
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/notifications", hdr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hub := env.Deps.Hub
	require.Eventually(t, func() bool { return hub.Connections("cook@example.com") == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish("cook@example.com", realtime.Event{Status: realtime.StatusSuccess, SubscriptionID: "sub_1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.StatusSuccess, ev.Status)
	assert.Equal(t, "sub_1", ev.SubscriptionID)
}

func TestSocketRequiresSession(t *testing.T) {
	env := componenttest.New(t, http.NotFoundHandler())

	rec := env.Get("/ws/notifications")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
