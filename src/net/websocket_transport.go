package net

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const closeGracePeriod = time.Second

// WebsocketTransport is a Transport over a gorilla/websocket client
// connection. Every Dial replaces the previous connection; events from a
// replaced connection are discarded.
type WebsocketTransport struct {
	dialer   websocket.Dialer
	consumer chan Event
	state    StateManager
	logger   *logrus.Entry

	connLock sync.Mutex
	conn     *websocket.Conn

	writeLock sync.Mutex

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewWebsocketTransport creates a websocket transport. consumerSize bounds
// the number of undelivered events before the reader blocks.
func NewWebsocketTransport(
	handshakeTimeout time.Duration,
	consumerSize int,
	logger *logrus.Entry,
) *WebsocketTransport {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &WebsocketTransport{
		dialer: websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		consumer:   make(chan Event, consumerSize),
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Dial implements the Transport interface.
func (t *WebsocketTransport) Dial(ctx context.Context, address, subprotocol string) error {
	if t.isShutdown() {
		return ErrTransportShutdown
	}

	t.release()

	t.state.Set(Connecting)

	dialer := t.dialer
	if subprotocol != "" {
		dialer.Subprotocols = []string{subprotocol}
	}

	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		t.state.Set(Closed)
		return err
	}

	t.connLock.Lock()
	t.conn = conn
	t.connLock.Unlock()

	t.state.Set(Open)

	t.logger.WithFields(logrus.Fields{
		"address":     address,
		"subprotocol": conn.Subprotocol(),
	}).Debug("Websocket open")

	go t.readLoop(conn)

	return nil
}

// Send implements the Transport interface.
func (t *WebsocketTransport) Send(data []byte) error {
	if t.state.Get() != Open {
		return ErrNotOpen
	}

	t.connLock.Lock()
	conn := t.conn
	t.connLock.Unlock()

	if conn == nil {
		return ErrNotOpen
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}

// Consumer implements the Transport interface.
func (t *WebsocketTransport) Consumer() <-chan Event {
	return t.consumer
}

// State implements the Transport interface.
func (t *WebsocketTransport) State() State {
	return t.state.Get()
}

// Close implements the Transport interface. It sends a normal close frame
// and lets the read loop observe the runtime's answer. The underlying
// connection is torn down after a grace period regardless.
func (t *WebsocketTransport) Close() error {
	state := t.state.Get()
	if state != Open && state != Connecting {
		return nil
	}

	t.state.Set(Closing)

	t.connLock.Lock()
	conn := t.conn
	t.connLock.Unlock()

	if conn == nil {
		t.state.Set(Closed)
		return nil
	}

	t.writeLock.Lock()
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	t.writeLock.Unlock()

	time.AfterFunc(closeGracePeriod, func() { conn.Close() })

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}

// Shutdown implements the Transport interface.
func (t *WebsocketTransport) Shutdown() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if t.shutdown {
		return nil
	}

	close(t.shutdownCh)
	t.shutdown = true

	t.release()
	t.state.Set(Closed)

	return nil
}

func (t *WebsocketTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code := CloseAbnormal
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
			}
			closing := t.state.Get() == Closing
			if closing {
				code = CloseNormal
			}

			if !t.current(conn) {
				return
			}

			// no close frame from the runtime: the connection itself failed
			if !closing && code == CloseAbnormal {
				t.emit(Event{Kind: ErrorEvent, Err: err})
			}

			conn.Close()

			t.connLock.Lock()
			t.conn = nil
			t.connLock.Unlock()

			t.state.Set(Closed)

			t.logger.WithFields(logrus.Fields{
				"code":  code,
				"error": err,
			}).Debug("Websocket closed")

			t.emit(Event{Kind: CloseEvent, Code: code, Err: err})
			return
		}

		if !t.current(conn) {
			return
		}

		t.emit(Event{Kind: MessageEvent, Data: data})
	}
}

// release drops the current connection without reporting its closure.
func (t *WebsocketTransport) release() {
	t.connLock.Lock()
	conn := t.conn
	t.conn = nil
	t.connLock.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (t *WebsocketTransport) current(conn *websocket.Conn) bool {
	t.connLock.Lock()
	defer t.connLock.Unlock()
	return t.conn == conn
}

func (t *WebsocketTransport) emit(ev Event) {
	select {
	case t.consumer <- ev:
	case <-t.shutdownCh:
	}
}

func (t *WebsocketTransport) isShutdown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}
