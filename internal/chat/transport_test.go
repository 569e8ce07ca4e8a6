// internal/chat/transport_test.go

package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer upgrades, records the auth header, and echoes every envelope
// back with the event name prefixed.
func echoServer(t *testing.T, gotAuth chan<- string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case gotAuth <- r.Header.Get("Authorization"):
		default:
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var envelope Envelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			envelope.Event = "echo_" + envelope.Event
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestDialRequiresToken(t *testing.T) {
	_, err := DialWS("ws://localhost:0/ws", "", nil)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestTransportRoundTrip(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := echoServer(t, gotAuth)
	defer srv.Close()

	tr, err := DialWS(wsURL(srv), "test-token", nil)
	require.NoError(t, err)
	defer tr.Close()

	received := make(chan Envelope, 8)
	tr.OnEvent(func(event string, data json.RawMessage) {
		received <- Envelope{Event: event, Data: data}
	})
	tr.Start()

	// bearer token carried on the upgrade request
	select {
	case auth := <-gotAuth:
		assert.Equal(t, "Bearer test-token", auth)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the upgrade request")
	}

	// synthetic connect event fires first
	select {
	case env := <-received:
		assert.Equal(t, EventConnect, env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no connect event")
	}

	require.NoError(t, tr.Emit("get_conversations", nil))

	select {
	case env := <-received:
		assert.Equal(t, "echo_get_conversations", env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestCloseSendsCloseFrame(t *testing.T) {
	closed := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- err
				return
			}
		}
	}))
	defer srv.Close()

	tr, err := DialWS(wsURL(srv), "test-token", nil)
	require.NoError(t, err)
	tr.Start()
	tr.Close()

	// the peer must see a close frame, not an abrupt connection drop
	select {
	case err := <-closed:
		assert.True(t,
			websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure),
			"expected a close frame, got: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the shutdown")
	}
}

func TestEmitAfterCloseFails(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := echoServer(t, gotAuth)
	defer srv.Close()

	tr, err := DialWS(wsURL(srv), "test-token", nil)
	require.NoError(t, err)
	tr.Start()
	tr.Close()

	assert.Error(t, tr.Emit("typing", map[string]any{"isTyping": true}))
}
