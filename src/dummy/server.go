package dummy

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/sirupsen/logrus"
)

// DefaultWorkspace is used when a client does not request a subprotocol.
const DefaultWorkspace = "default"

const writeWait = 10 * time.Second

// Server is a dummy FBP runtime reachable over websockets. Every workspace,
// selected by the websocket subprotocol, keeps its flow across connections.
type Server struct {
	bindAddress string
	catalogue   *Catalogue
	upgrader    websocket.Upgrader
	server      *http.Server

	mu     sync.Mutex
	states map[string]*State
	conns  map[*websocket.Conn]struct{}
	wg     sync.WaitGroup

	logger *logrus.Entry
}

// NewServer creates a dummy runtime serving catalogue on bindAddress.
func NewServer(bindAddress string, catalogue *Catalogue, logger *logrus.Entry) *Server {
	s := &Server{
		bindAddress: bindAddress,
		catalogue:   catalogue,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		states: make(map[string]*State),
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)

	s.server = &http.Server{
		Addr:    bindAddress,
		Handler: mux,
	}

	return s
}

// Handler returns the http handler upgrading requests to websockets.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Serve listens on the bind address. It blocks until Shutdown.
func (s *Server) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Info("Serving dummy runtime")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and closes the open ones with a
// going-away close frame.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	s.closeAll(func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "runtime shutting down")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
	})

	s.wg.Wait()
	return err
}

// DropConnections closes every open connection without a close frame, as a
// crashed runtime would.
func (s *Server) DropConnections() {
	s.closeAll(func(conn *websocket.Conn) {
		conn.Close()
	})
}

func (s *Server) closeAll(fn func(*websocket.Conn)) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		fn(c)
	}
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Document returns the flow currently held for workspace.
func (s *Server) Document(workspace string) (graph.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[workspace]
	if !ok {
		return graph.Document{}, false
	}
	return st.Document(), true
}

func (s *Server) state(workspace string) *State {
	st, ok := s.states[workspace]
	if !ok {
		st = NewState(workspace, s.catalogue, s.logger.WithField("workspace", workspace))
		s.states[workspace] = st
	}
	return st
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	workspace := DefaultWorkspace
	var header http.Header
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		workspace = protocols[0]
		header = http.Header{"Sec-Websocket-Protocol": {workspace}}
	}

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.WithError(err).Warn("Upgrading connection")
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	doc := s.state(workspace).Document()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"workspace": workspace,
		"remote":    r.RemoteAddr,
	}).Debug("Client connected")

	s.wg.Add(1)
	go s.handleClient(conn, workspace, []Message{{
		Protocol: protocol.Flow,
		Command:  protocol.FlowCmd,
		Payload:  doc,
	}})
}

func (s *Server) handleClient(conn *websocket.Conn, workspace string, greeting []Message) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	if err := s.write(conn, greeting); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.WithError(err).Debug("Client disconnected")
			return
		}

		var replies []Message
		env, err := protocol.Decode(data)
		if err != nil {
			replies = []Message{{
				Protocol: protocol.Network,
				Command:  protocol.Error,
				Payload:  outputPayload{Message: err.Error()},
			}}
		} else {
			s.mu.Lock()
			replies = s.state(workspace).Handle(env)
			s.mu.Unlock()
		}

		if err := s.write(conn, replies); err != nil {
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, msgs []Message) error {
	for _, m := range msgs {
		data, err := protocol.Encode(m.Protocol, m.Command, m.Payload)
		if err != nil {
			s.logger.WithError(err).Error("Encoding reply")
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.WithError(err).Debug("Writing reply")
			return err
		}
	}
	return nil
}
