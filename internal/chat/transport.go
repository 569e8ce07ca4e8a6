// internal/chat/transport.go

package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Maximum number of queued outbound events
	maxQueuedEvents = 256
)

// ErrMissingToken is returned when a connection is attempted without a
// bearer credential. The credential is a hard precondition: there is no
// anonymous session.
var ErrMissingToken = errors.New("chat: bearer token is required to connect")

// EventConnect is the synthetic event delivered once the transport is
// live, before any server-originated event.
const EventConnect = "connect"

// Envelope is the wire framing for every transport event in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventHandler receives inbound events from a transport.
type EventHandler func(event string, data json.RawMessage)

// Transport is the bidirectional real-time channel the Router drives.
// Implementations deliver inbound events to the registered handler and
// carry outbound emissions to the server.
type Transport interface {
	OnEvent(h EventHandler)
	Emit(event string, data any) error
	Close() error
}

// WSTransport is the gorilla/websocket Transport implementation.
type WSTransport struct {
	conn *websocket.Conn
	send chan Envelope
	log  *zap.SugaredLogger

	handlerMu sync.RWMutex
	handler   EventHandler

	started   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// DialWS connects to the chat server. The bearer token is carried in the
// Authorization header of the upgrade request and its absence fails the
// dial outright.
func DialWS(url, token string, log *zap.SugaredLogger) (*WSTransport, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}

	return &WSTransport{
		conn: conn,
		send: make(chan Envelope, maxQueuedEvents),
		log:  log,
		done: make(chan struct{}),
	}, nil
}

// OnEvent registers the inbound handler. Must be called before Start.
func (t *WSTransport) OnEvent(h EventHandler) {
	t.handlerMu.Lock()
	t.handler = h
	t.handlerMu.Unlock()
}

// Start launches the read and write pumps and delivers the synthetic
// connect event. Once started, the write pump owns the connection: it
// writes the close frame on shutdown and closes the conn when it exits.
func (t *WSTransport) Start() {
	t.started.Store(true)
	go t.writePump()
	go t.readPump()
	t.dispatch(EventConnect, nil)
}

// Emit queues an outbound event. Returns an error when the transport is
// closed or the outbound queue is full.
func (t *WSTransport) Emit(event string, data any) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}

	select {
	case <-t.done:
		return errors.New("chat: transport closed")
	default:
	}

	select {
	case t.send <- Envelope{Event: event, Data: raw}:
		return nil
	default:
		return errors.New("chat: outbound queue full")
	}
}

func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		// without pumps nobody else will release the conn
		if !t.started.Load() {
			t.conn.Close()
		}
	})
	return nil
}

func (t *WSTransport) dispatch(event string, data json.RawMessage) {
	t.handlerMu.RLock()
	h := t.handler
	t.handlerMu.RUnlock()
	if h != nil {
		h(event, data)
	}
}

func (t *WSTransport) readPump() {
	defer t.Close()

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				t.log.Warnw("websocket read failed", "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			t.log.Warnw("dropping malformed frame", "error", err)
			continue
		}
		if envelope.Event == "" {
			continue
		}
		t.dispatch(envelope.Event, envelope.Data)
	}
}

func (t *WSTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.Close()
		t.conn.Close()
	}()

	for {
		select {
		case envelope := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(envelope); err != nil {
				t.log.Warnw("websocket write failed", "event", envelope.Event, "error", err)
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
