package session

import (
	"time"

	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/net"
	"github.com/sirupsen/logrus"
)

// Session is the state of one workspace connection. It is not safe for
// concurrent use: the connection manager's loop is its only writer and
// reader.
type Session struct {
	Workspace string

	SocketState net.State
	Connected   bool

	LastStartTime time.Time
	LastStopTime  time.Time

	ComponentsReceived bool
	FlowReceived       bool
	ViewReady          bool

	Flow    *graph.Flow
	Library *graph.Library

	// FileNodes is the flat file tree last sent by fileexplorer:updatenodes.
	FileNodes []interface{}

	statuses map[string]*events.Status

	readyFired bool
	readyCh    chan struct{}

	sink   events.Sink
	logger *logrus.Entry
}

// New creates a Session for workspace publishing its notifications to sink.
// A nil sink leaves the ready gate closed until SetSink is called.
func New(workspace string, sink events.Sink, logger *logrus.Entry) *Session {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	s := &Session{
		sink:   sink,
		logger: logger,
	}
	s.reset(workspace)
	return s
}

func (s *Session) reset(workspace string) {
	s.Workspace = workspace
	s.SocketState = net.Closed
	s.Connected = false
	s.LastStartTime = time.Time{}
	s.LastStopTime = time.Time{}
	s.ComponentsReceived = false
	s.FlowReceived = false
	s.ViewReady = false
	s.Flow = nil
	s.Library = graph.NewLibrary()
	s.FileNodes = nil
	s.statuses = make(map[string]*events.Status)
	s.readyFired = false
	s.readyCh = make(chan struct{})
}

// Connect starts the lifecycle of a connection to workspace: networks are
// considered stopped and the session connected.
func (s *Session) Connect(workspace string) {
	if workspace != "" {
		s.Workspace = workspace
	}
	for _, st := range s.statuses {
		st.Running = false
	}
	s.SetConnected(true)
}

// Clear tears the session down. Everything received from the runtime is
// forgotten and the ready gate is armed again. The view keeps its ready
// signal and its sink.
func (s *Session) Clear() {
	s.logger.WithField("workspace", s.Workspace).Debug("Clear session")
	viewReady := s.ViewReady
	s.reset(s.Workspace)
	s.ViewReady = viewReady
}

// SetSink attaches the view layer's notification sink.
func (s *Session) SetSink(sink events.Sink) {
	s.sink = sink
	s.checkReady()
}

// Notify publishes n on the sink, stamped with the workspace.
func (s *Session) Notify(n events.Notification) {
	if s.sink == nil {
		return
	}
	n.Workspace = s.Workspace
	s.sink.Notify(n)
}

// SetSocketState records the transport state and broadcasts it.
func (s *Session) SetSocketState(state net.State) {
	if s.SocketState == state {
		return
	}
	s.SocketState = state
	s.notifyConnection()
}

// SetConnected records whether the session is connected and broadcasts
// changes.
func (s *Session) SetConnected(connected bool) {
	if s.Connected == connected {
		return
	}
	s.Connected = connected
	s.notifyConnection()
}

func (s *Session) notifyConnection() {
	s.Notify(events.Notification{
		Kind:      events.ConnectionStatus,
		Connected: s.Connected,
		State:     s.SocketState.String(),
	})
}

// Status returns the last known status of a network, creating a stopped one
// if none was reported yet.
func (s *Session) Status(graphID string) *events.Status {
	st, ok := s.statuses[graphID]
	if !ok {
		st = &events.Status{Graph: graphID}
		s.statuses[graphID] = st
	}
	return st
}

// Statuses returns a copy of every known network status, by graph.
func (s *Session) Statuses() map[string]events.Status {
	res := make(map[string]events.Status, len(s.statuses))
	for g, st := range s.statuses {
		res[g] = *st
	}
	return res
}

// Running reports whether the network of graphID is running.
func (s *Session) Running(graphID string) bool {
	st, ok := s.statuses[graphID]
	return ok && st.Running
}

// SetComponentsReceived marks the component list as complete.
func (s *Session) SetComponentsReceived() {
	s.ComponentsReceived = true
	s.checkReady()
}

// SetFlowReceived marks the flow document as received.
func (s *Session) SetFlowReceived() {
	s.FlowReceived = true
	s.checkReady()
}

// SetViewReady marks the view layer as listening.
func (s *Session) SetViewReady() {
	s.ViewReady = true
	s.checkReady()
}

// EnsureFlow returns the session's Flow, creating an empty one for graphID
// if none exists yet.
func (s *Session) EnsureFlow(graphID string) *graph.Flow {
	if s.Flow == nil {
		if graphID == "" {
			graphID = s.Workspace
		}
		s.Flow = graph.NewFlow(graphID)
	}
	return s.Flow
}

// LoadFlow installs f as the session's Flow. If a Flow already exists, f is
// merged into it so local entries with the same ids are kept.
func (s *Session) LoadFlow(f *graph.Flow) *graph.Flow {
	if s.Flow == nil {
		s.Flow = f
	} else {
		s.Flow.Merge(f)
	}
	s.checkReady()
	return s.Flow
}

// Ready returns a channel closed when the session becomes ready.
func (s *Session) Ready() <-chan struct{} {
	return s.readyCh
}

// IsReady reports whether the ready notification was sent.
func (s *Session) IsReady() bool {
	return s.readyFired
}

// checkReady opens the ready gate, once, when a view listens, a flow is
// loaded and both the components and the flow were received.
func (s *Session) checkReady() {
	if s.readyFired {
		return
	}
	if !s.ViewReady || s.sink == nil || s.Flow == nil ||
		!s.ComponentsReceived || !s.FlowReceived {
		return
	}

	s.readyFired = true
	close(s.readyCh)

	s.logger.WithFields(logrus.Fields{
		"workspace":  s.Workspace,
		"nodes":      len(s.Flow.Nodes),
		"edges":      len(s.Flow.Edges),
		"components": s.Library.Len(),
	}).Info("Flow and components set up")

	s.Notify(events.Notification{
		Kind:    events.Ready,
		Graph:   s.Flow.Graph,
		Message: "Flow and components set up",
	})
}

// View is a copy of the session state, safe to hand to other goroutines.
type View struct {
	Workspace          string                   `json:"workspace"`
	SocketState        string                   `json:"socketState"`
	Connected          bool                     `json:"connected"`
	Ready              bool                     `json:"ready"`
	ComponentsReceived bool                     `json:"componentsReceived"`
	FlowReceived       bool                     `json:"flowReceived"`
	Networks           map[string]events.Status `json:"networks"`
	LastStartTime      time.Time                `json:"lastStartTime"`
	LastStopTime       time.Time                `json:"lastStopTime"`
	Components         int                      `json:"components"`
	Nodes              int                      `json:"nodes"`
	Edges              int                      `json:"edges"`
}

// View returns a copy of the session state.
func (s *Session) View() View {
	v := View{
		Workspace:          s.Workspace,
		SocketState:        s.SocketState.String(),
		Connected:          s.Connected,
		Ready:              s.readyFired,
		ComponentsReceived: s.ComponentsReceived,
		FlowReceived:       s.FlowReceived,
		Networks:           s.Statuses(),
		LastStartTime:      s.LastStartTime,
		LastStopTime:       s.LastStopTime,
		Components:         s.Library.Len(),
	}
	if s.Flow != nil {
		v.Nodes = len(s.Flow.Nodes)
		v.Edges = len(s.Flow.Edges)
	}
	return v
}
