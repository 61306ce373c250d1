package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, hub *Hub, email string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, email)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(email) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestPublishReachesOnlyThatUser(t *testing.T) {
	hub := NewHub(nil)
	alice := dial(t, hub, "Alice@Example.com")
	bob := dial(t, hub, "bob@example.com")

	n := hub.Publish("alice@example.com", Event{Status: StatusSuccess, SubscriptionID: "sub_1"})
	assert.Equal(t, 1, n)

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	var ev Event
	require.NoError(t, alice.ReadJSON(&ev))
	assert.Equal(t, StatusSuccess, ev.Status)
	assert.Equal(t, "sub_1", ev.SubscriptionID)
	assert.Equal(t, "alice@example.com", ev.Email)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestCloseUnregisters(t *testing.T) {
	hub := NewHub(nil)
	conn := dial(t, hub, "a@b.co")
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Connections("a@b.co") == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Publish("a@b.co", Event{Status: StatusPending}))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(`{"email":"a@b.co","status":"REJECTED","message":"Card declined"}`)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, ev.Status)
	assert.Equal(t, "Card declined", ev.Message)

	_, err = decodeEvent(`{"email":"a@b.co","status":"DONE"}`)
	assert.Error(t, err)
	_, err = decodeEvent(`{"status":"SUCCESS"}`)
	assert.Error(t, err)
	_, err = decodeEvent(`not json`)
	assert.Error(t, err)
}

func TestRedisSourceHandlePublishes(t *testing.T) {
	hub := NewHub(nil)
	conn := dial(t, hub, "a@b.co")
	src := NewRedisSource(nil, "payments:*", hub, nil)

	require.NoError(t, src.handle(`{"email":"a@b.co","status":"PENDING"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, StatusPending, ev.Status)
}
