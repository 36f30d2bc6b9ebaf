package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// GraphHandler applies graph subprotocol mutations to the session's Flow.
type GraphHandler struct {
	session    *session.Session
	reconciler Reconciler
	logger     *logrus.Entry
}

// NewGraphHandler returns a GraphHandler. reconciler may be nil.
func NewGraphHandler(sess *session.Session, reconciler Reconciler, logger *logrus.Entry) *GraphHandler {
	return &GraphHandler{
		session:    sess,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle implements Handler.
func (h *GraphHandler) Handle(env *protocol.Envelope) {
	switch env.Command {
	case protocol.AddNode:
		h.addNode(env)
	case protocol.RemoveNode:
		h.removeNode(env)
	case protocol.ChangeNode:
		h.changeNode(env)
	case protocol.AddEdge:
		h.addEdge(env)
	case protocol.RemoveEdge:
		h.removeEdge(env)
	case protocol.ChangeEdge:
		h.changeEdge(env)
	case protocol.AddGroup:
		h.addGroup(env)
	case protocol.RemoveGroup:
		h.removeGroup(env)
	case protocol.RenameGroup:
		h.renameGroup(env)
	case protocol.ChangeGroup:
		h.changeGroup(env)
	default:
		unknownCommand(h.logger, env)
	}
}

func (h *GraphHandler) addNode(env *protocol.Envelope) {
	var p graph.NodePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	f := h.session.EnsureFlow(p.Graph)
	if p.Graph == "" {
		p.Graph = f.Graph
	}

	n := graph.NewNode(p, h.session.Library)
	if !f.AddNode(n) {
		h.logger.WithField("node", p.ID).Debug("addnode: already present")
		return
	}

	h.session.Notify(events.Notification{
		Kind:  events.NodeAdded,
		Graph: n.Graph,
		Node:  n,
	})
}

func (h *GraphHandler) removeNode(env *protocol.Envelope) {
	var p graph.NodePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if h.session.Flow == nil {
		h.dangling(env, p.ID)
		return
	}

	n, ok := h.session.Flow.RemoveNode(p.ID)
	if !ok {
		h.dangling(env, p.ID)
		return
	}

	h.session.Notify(events.Notification{
		Kind:   events.NodeRemoved,
		Graph:  n.Graph,
		Node:   n,
		NodeID: n.ID,
	})
}

func (h *GraphHandler) changeNode(env *protocol.Envelope) {
	var p graph.NodePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if h.session.Flow == nil {
		h.dangling(env, p.ID)
		return
	}

	n := h.session.Flow.Node(p.ID)
	if n == nil {
		h.dangling(env, p.ID)
		return
	}

	oldName := n.Name()
	n.SetMetadata(p.Metadata)

	h.session.Notify(events.Notification{
		Kind:  events.NodeChanged,
		Graph: n.Graph,
		Node:  n,
	})

	if n.Name() != oldName {
		h.session.Notify(events.Notification{
			Kind:    events.BlockNameChanged,
			Graph:   n.Graph,
			Node:    n,
			Message: n.Name(),
		})
	}
}

func (h *GraphHandler) addEdge(env *protocol.Envelope) {
	var p graph.EdgePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	f := h.session.EnsureFlow(p.Graph)
	if p.Graph == "" {
		p.Graph = f.Graph
	}

	e, err := graph.EdgeFromPayload(p)
	if err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if h.reconciler != nil && !h.reconciler.EdgeAcknowledged(e) {
		return
	}

	if !f.AddEdge(e) {
		h.logger.WithField("edge", e.String()).Debug("addedge: already present")
		return
	}

	h.session.Notify(events.Notification{
		Kind:  events.EdgeAdded,
		Graph: e.Graph,
		Edge:  e,
	})
}

func (h *GraphHandler) removeEdge(env *protocol.Envelope) {
	var p graph.EdgePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if h.session.Flow == nil {
		h.dangling(env, p.ID)
		return
	}

	e, ok := h.session.Flow.RemoveEdge(p.ID)
	if !ok {
		h.dangling(env, p.ID)
		return
	}

	h.session.Notify(events.Notification{
		Kind:  events.EdgeRemoved,
		Graph: e.Graph,
		Edge:  e,
	})
}

func (h *GraphHandler) changeEdge(env *protocol.Envelope) {
	var p graph.EdgePayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if h.session.Flow == nil {
		h.dangling(env, p.ID)
		return
	}

	e, ok := h.session.Flow.ChangeEdge(p.ID, p.Src, p.Tgt, p.Metadata)
	if !ok {
		h.dangling(env, p.ID)
		return
	}

	h.session.Notify(events.Notification{
		Kind:  events.EdgeUpdated,
		Graph: e.Graph,
		Edge:  e,
	})
}

func (h *GraphHandler) addGroup(env *protocol.Envelope) {
	var p graph.GroupPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	f := h.session.EnsureFlow(p.Graph)
	if p.Graph == "" {
		p.Graph = f.Graph
	}

	g := graph.NewGroup(p)
	if !f.AddGroup(g) {
		return
	}

	h.session.Notify(events.Notification{
		Kind:  events.GroupAdded,
		Graph: g.Graph,
		Group: g,
	})
}

func (h *GraphHandler) removeGroup(env *protocol.Envelope) {
	var p graph.GroupPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	g := h.findGroup(p.ID, p.Name)
	if g == nil {
		h.dangling(env, p.Name)
		return
	}
	h.session.Flow.RemoveGroup(g.ID)

	h.session.Notify(events.Notification{
		Kind:  events.GroupRemoved,
		Graph: g.Graph,
		Group: g,
	})
}

func (h *GraphHandler) renameGroup(env *protocol.Envelope) {
	var p graph.RenameGroupPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	g := h.findGroup(p.From, p.From)
	if g == nil {
		h.dangling(env, p.From)
		return
	}
	g.Name = p.To

	h.session.Notify(events.Notification{
		Kind:  events.GroupChanged,
		Graph: g.Graph,
		Group: g,
	})
}

func (h *GraphHandler) changeGroup(env *protocol.Envelope) {
	var p graph.GroupPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	g := h.findGroup(p.ID, p.Name)
	if g == nil {
		h.dangling(env, p.Name)
		return
	}
	g.Metadata = p.Metadata.Clone()

	h.session.Notify(events.Notification{
		Kind:  events.GroupChanged,
		Graph: g.Graph,
		Group: g,
	})
}

func (h *GraphHandler) findGroup(id, name string) *graph.Group {
	f := h.session.Flow
	if f == nil {
		return nil
	}
	if id != "" {
		if g := f.Group(id); g != nil {
			return g
		}
	}
	if name == "" {
		return nil
	}
	for _, g := range f.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (h *GraphHandler) dangling(env *protocol.Envelope, id string) {
	h.logger.WithFields(logrus.Fields{
		"message": env.String(),
		"id":      id,
	}).Debug("Dangling reference")
}
