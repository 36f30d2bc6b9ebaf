package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

type tracebackPayload struct {
	Node      string   `json:"node"`
	Traceback []string `json:"traceback"`
}

// TraceHandler attaches execution tracebacks to nodes.
type TraceHandler struct {
	session *session.Session
	logger  *logrus.Entry
}

// NewTraceHandler returns a TraceHandler.
func NewTraceHandler(sess *session.Session, logger *logrus.Entry) *TraceHandler {
	return &TraceHandler{
		session: sess,
		logger:  logger,
	}
}

// Handle implements Handler.
func (h *TraceHandler) Handle(env *protocol.Envelope) {
	if env.Command != protocol.NodeTraceback {
		unknownCommand(h.logger, env)
		return
	}

	var p tracebackPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	var n *graph.Node
	if h.session.Flow != nil {
		n = h.session.Flow.Node(p.Node)
	}
	if n == nil {
		h.logger.WithField("node", p.Node).Debug("Traceback for unknown node")
		return
	}

	n.Set(graph.MetaTraceback, p.Traceback)

	h.session.Notify(events.Notification{
		Kind:    events.Traceback,
		Graph:   n.Graph,
		Node:    n,
		NodeID:  n.ID,
		Data:    p.Traceback,
		Message: lastLine(p.Traceback),
	})
}

func lastLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
