package dummy

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/sirupsen/logrus"
)

// Message is a reply of the dummy runtime.
type Message struct {
	Protocol protocol.Protocol
	Command  string
	Payload  interface{}
}

type statusPayload struct {
	Graph   string  `json:"graph"`
	Running bool    `json:"running"`
	Started bool    `json:"started"`
	Uptime  float64 `json:"uptime"`
	Time    string  `json:"time,omitempty"`
}

type outputPayload struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Graph   string `json:"graph,omitempty"`
}

type nodeRefPayload struct {
	ID    string `json:"id"`
	Graph string `json:"graph"`
}

type tracebackPayload struct {
	Node      string   `json:"node"`
	Traceback []string `json:"traceback"`
}

// State is the flow of one workspace as held by the dummy runtime. It
// accepts every consistent graph mutation and echoes it back, the way a real
// runtime acknowledges changes.
type State struct {
	catalogue *Catalogue
	library   *graph.Library
	flow      *graph.Flow

	running   bool
	started   bool
	startTime time.Time

	now    func() time.Time
	logger *logrus.Entry
}

// NewState creates the state of workspace with an empty flow.
func NewState(workspace string, catalogue *Catalogue, logger *logrus.Entry) *State {
	state := &State{
		catalogue: catalogue,
		library:   catalogue.Library(),
		flow:      graph.NewFlow(workspace),
		now:       time.Now,
		logger:    logger,
	}

	logger.WithField("workspace", workspace).Info("Init Dummy State")

	return state
}

// Document returns the current flow, as sent in flow:flow.
func (s *State) Document() graph.Document {
	return s.flow.Document()
}

// Handle applies env and returns the replies of the runtime.
func (s *State) Handle(env *protocol.Envelope) []Message {
	s.logger.WithField("message", env.String()).Debug("Dummy runtime received")

	switch env.Protocol {
	case protocol.Graph:
		return s.handleGraph(env)
	case protocol.Network:
		return s.handleNetwork(env)
	case protocol.Component:
		return s.handleComponent(env)
	case protocol.FileExplorer:
		return s.handleFileExplorer(env)
	default:
		return s.fail("unsupported protocol %s", env.Protocol)
	}
}

func (s *State) fail(format string, args ...interface{}) []Message {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn(msg)
	return []Message{{
		Protocol: protocol.Network,
		Command:  protocol.Error,
		Payload:  outputPayload{Message: msg, Graph: s.flow.Graph},
	}}
}

func reply(p protocol.Protocol, command string, payload interface{}) []Message {
	return []Message{{Protocol: p, Command: command, Payload: payload}}
}

func (s *State) handleGraph(env *protocol.Envelope) []Message {
	switch env.Command {
	case protocol.AddNode, protocol.RemoveNode, protocol.ChangeNode:
		var p graph.NodePayload
		if err := env.DecodePayload(&p); err != nil {
			return s.fail("%s: %v", env.Command, err)
		}
		if p.Graph == "" {
			p.Graph = s.flow.Graph
		}
		return s.node(env.Command, p)
	case protocol.AddEdge, protocol.RemoveEdge, protocol.ChangeEdge:
		var p graph.EdgePayload
		if err := env.DecodePayload(&p); err != nil {
			return s.fail("%s: %v", env.Command, err)
		}
		if p.Graph == "" {
			p.Graph = s.flow.Graph
		}
		return s.edge(env.Command, p)
	case protocol.RenameGroup:
		var p graph.RenameGroupPayload
		if err := env.DecodePayload(&p); err != nil {
			return s.fail("%s: %v", env.Command, err)
		}
		g := s.findGroup(p.From)
		if g == nil {
			return s.fail("renamegroup: unknown group %s", p.From)
		}
		g.Name = p.To
		return reply(protocol.Graph, protocol.RenameGroup, p)
	case protocol.AddGroup, protocol.RemoveGroup, protocol.ChangeGroup:
		var p graph.GroupPayload
		if err := env.DecodePayload(&p); err != nil {
			return s.fail("%s: %v", env.Command, err)
		}
		if p.Graph == "" {
			p.Graph = s.flow.Graph
		}
		return s.group(env.Command, p)
	default:
		return s.fail("unknown graph command %s", env.Command)
	}
}

func (s *State) node(command string, p graph.NodePayload) []Message {
	switch command {
	case protocol.AddNode:
		if s.catalogue.Component(p.Component) == nil {
			return s.fail("addnode: unknown component %s", p.Component)
		}
		n := graph.NewNode(p, s.library)
		if !s.flow.AddNode(n) {
			return s.fail("addnode: node %s already exists", p.ID)
		}
		return reply(protocol.Graph, protocol.AddNode, nodePayload(n))

	case protocol.RemoveNode:
		if s.flow.Node(p.ID) == nil {
			return s.fail("removenode: unknown node %s", p.ID)
		}
		var res []Message
		for _, e := range s.flow.EdgesOf(p.ID) {
			s.flow.RemoveEdge(e.ID)
			res = append(res, reply(protocol.Graph, protocol.RemoveEdge, graph.BuildPayloadForEdge(e))...)
		}
		n, _ := s.flow.RemoveNode(p.ID)
		return append(res, reply(protocol.Graph, protocol.RemoveNode, n.Payload())...)

	default:
		n, ok := s.flow.ChangeNode(p.ID, p.Metadata)
		if !ok {
			return s.fail("changenode: unknown node %s", p.ID)
		}
		return reply(protocol.Graph, protocol.ChangeNode, n.Payload())
	}
}

// nodePayload returns the payload of n with a copy of its port signature.
func nodePayload(n *graph.Node) graph.NodePayload {
	p := n.Payload()
	for _, port := range n.InPorts {
		p.InPorts = append(p.InPorts, &graph.Port{ID: port.ID, Kind: graph.In, Node: n.ID})
	}
	for _, port := range n.OutPorts {
		p.OutPorts = append(p.OutPorts, &graph.Port{ID: port.ID, Kind: graph.Out, Node: n.ID})
	}
	return p
}

func (s *State) checkEndpoint(ep *graph.Endpoint, kind graph.PortKind) error {
	if !ep.Valid() {
		return fmt.Errorf("missing %s endpoint", kind)
	}
	if s.flow.Node(ep.Node) == nil {
		return fmt.Errorf("unknown node %s", ep.Node)
	}
	if s.flow.Port(ep, kind) == nil {
		return fmt.Errorf("unknown port %s", ep)
	}
	return nil
}

func (s *State) edge(command string, p graph.EdgePayload) []Message {
	switch command {
	case protocol.AddEdge:
		e, err := graph.EdgeFromPayload(p)
		if err != nil {
			return s.fail("addedge: %v", err)
		}
		if err := s.checkEndpoint(e.Src, graph.Out); err != nil {
			return s.fail("addedge: %v", err)
		}
		if err := s.checkEndpoint(e.Tgt, graph.In); err != nil {
			return s.fail("addedge: %v", err)
		}
		if e.SelfLoop() {
			return s.fail("addedge: node %s cannot be connected to itself", e.Src.Node)
		}
		if !s.flow.AddEdge(e) {
			return s.fail("addedge: edge %s already exists", e)
		}
		return reply(protocol.Graph, protocol.AddEdge, graph.BuildPayloadForEdge(e))

	case protocol.RemoveEdge:
		id := p.ID
		if id == "" && p.Src.Valid() && p.Tgt.Valid() {
			if e := s.flow.FindEdge(p.Src, p.Tgt); e != nil {
				id = e.ID
			}
		}
		e, ok := s.flow.RemoveEdge(id)
		if !ok {
			return s.fail("removeedge: unknown edge %s", id)
		}
		return reply(protocol.Graph, protocol.RemoveEdge, graph.BuildPayloadForEdge(e))

	default:
		if err := s.checkEndpoint(p.Src, graph.Out); err != nil {
			return s.fail("changeedge: %v", err)
		}
		if err := s.checkEndpoint(p.Tgt, graph.In); err != nil {
			return s.fail("changeedge: %v", err)
		}
		e, ok := s.flow.ChangeEdge(p.ID, p.Src, p.Tgt, p.Metadata)
		if !ok {
			return s.fail("changeedge: unknown edge %s", p.ID)
		}
		return reply(protocol.Graph, protocol.ChangeEdge, graph.BuildPayloadForEdge(e))
	}
}

func (s *State) findGroup(key string) *graph.Group {
	if g := s.flow.Group(key); g != nil {
		return g
	}
	for _, g := range s.flow.Groups {
		if key != "" && g.Name == key {
			return g
		}
	}
	return nil
}

func (s *State) group(command string, p graph.GroupPayload) []Message {
	switch command {
	case protocol.AddGroup:
		g := graph.NewGroup(p)
		if !s.flow.AddGroup(g) {
			return s.fail("addgroup: group %s already exists", g.ID)
		}
		return reply(protocol.Graph, protocol.AddGroup, g.Payload())

	case protocol.RemoveGroup:
		g := s.findGroup(p.ID)
		if g == nil {
			g = s.findGroup(p.Name)
		}
		if g == nil {
			return s.fail("removegroup: unknown group %s", p.Name)
		}
		s.flow.RemoveGroup(g.ID)
		return reply(protocol.Graph, protocol.RemoveGroup, g.Payload())

	default:
		g := s.findGroup(p.ID)
		if g == nil {
			g = s.findGroup(p.Name)
		}
		if g == nil {
			return s.fail("changegroup: unknown group %s", p.Name)
		}
		g.Metadata = p.Metadata.Clone()
		return reply(protocol.Graph, protocol.ChangeGroup, g.Payload())
	}
}

func (s *State) status() statusPayload {
	st := statusPayload{
		Graph:   s.flow.Graph,
		Running: s.running,
		Started: s.started,
	}
	if s.running {
		st.Uptime = s.now().Sub(s.startTime).Seconds()
	}
	return st
}

func (s *State) handleNetwork(env *protocol.Envelope) []Message {
	switch env.Command {
	case protocol.GetStatus:
		return reply(protocol.Network, protocol.Status, s.status())

	case protocol.Start:
		s.running = true
		s.started = true
		s.startTime = s.now()
		st := s.status()
		st.Time = s.startTime.Format(time.RFC3339)
		return append(reply(protocol.Network, protocol.Started, st), s.execute()...)

	case protocol.Stop:
		s.running = false
		st := s.status()
		st.Time = s.now().Format(time.RFC3339)
		return reply(protocol.Network, protocol.Stopped, st)

	case protocol.Persist:
		return reply(protocol.Network, protocol.Persist, map[string]interface{}{"graph": s.flow.Graph})

	default:
		return s.fail("unknown network command %s", env.Command)
	}
}

// execute runs every node once, in flow order. Nodes of a component with a
// traceback fail.
func (s *State) execute() []Message {
	var res []Message
	for _, n := range s.flow.Nodes {
		ref := nodeRefPayload{ID: n.ID, Graph: n.Graph}
		res = append(res, reply(protocol.Network, protocol.StartNode, ref)...)

		if c := s.catalogue.Component(n.Component); c != nil && len(c.Traceback) > 0 {
			res = append(res, reply(protocol.Trace, protocol.NodeTraceback, tracebackPayload{
				Node:      n.ID,
				Traceback: c.Traceback,
			})...)
		}

		res = append(res, reply(protocol.Network, protocol.FinishNode, ref)...)
	}
	return append(res, reply(protocol.Network, protocol.Output, outputPayload{
		Type:    "message",
		Message: fmt.Sprintf("executed %d nodes", len(s.flow.Nodes)),
		Graph:   s.flow.Graph,
	})...)
}

func (s *State) handleComponent(env *protocol.Envelope) []Message {
	if env.Command != protocol.List {
		return s.fail("unknown component command %s", env.Command)
	}

	payloads, err := s.catalogue.Payloads()
	if err != nil {
		return s.fail("component list: %v", err)
	}

	res := make([]Message, 0, len(payloads)+1)
	for _, p := range payloads {
		res = append(res, reply(protocol.Component, protocol.ComponentCmd, p)...)
	}
	return append(res, reply(protocol.Component, protocol.ComponentsReady, len(payloads))...)
}

func (s *State) handleFileExplorer(env *protocol.Envelope) []Message {
	if env.Command != protocol.GetNodes {
		return s.fail("unknown fileexplorer command %s", env.Command)
	}
	files := s.catalogue.Files
	if files == nil {
		files = []File{}
	}
	return reply(protocol.FileExplorer, protocol.UpdateNodes, map[string]interface{}{"nodes": files})
}
