package dispatch

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

type statusPayload struct {
	Graph   string  `json:"graph"`
	Running bool    `json:"running"`
	Started bool    `json:"started"`
	Debug   bool    `json:"debug"`
	Uptime  float64 `json:"uptime"`
	Time    string  `json:"time"`
}

type outputPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack"`
	Graph   string `json:"graph"`
}

type nodeRefPayload struct {
	ID    string `json:"id"`
	Node  string `json:"node"`
	Graph string `json:"graph"`
}

// NetworkHandler tracks the running state of networks and surfaces what the
// runtime reports about their execution.
type NetworkHandler struct {
	session *session.Session
	saver   Saver
	logger  *logrus.Entry

	// Now is used to timestamp start and stop events that carry no time.
	Now func() time.Time
}

// NewNetworkHandler returns a NetworkHandler. saver may be nil.
func NewNetworkHandler(sess *session.Session, saver Saver, logger *logrus.Entry) *NetworkHandler {
	return &NetworkHandler{
		session: sess,
		saver:   saver,
		logger:  logger,
		Now:     time.Now,
	}
}

// Handle implements Handler.
func (h *NetworkHandler) Handle(env *protocol.Envelope) {
	switch env.Command {
	case protocol.Status, protocol.Started, protocol.Stopped:
		h.status(env)
	case protocol.Output:
		h.output(env)
	case protocol.Error:
		h.runtimeError(env)
	case protocol.Persist:
		h.persist(env)
	case protocol.StartNode, protocol.FinishNode:
		h.nodeActivity(env)
	default:
		unknownCommand(h.logger, env)
	}
}

func (h *NetworkHandler) status(env *protocol.Envelope) {
	var p statusPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}
	if p.Graph == "" && h.session.Flow != nil {
		p.Graph = h.session.Flow.Graph
	}

	st := h.session.Status(p.Graph)
	st.Running = p.Running
	st.Started = p.Started
	st.Debug = p.Debug
	st.Uptime = p.Uptime

	kind := events.NetworkStatus
	switch env.Command {
	case protocol.Started:
		kind = events.NetworkStarted
		h.session.LastStartTime = h.timestamp(p.Time)
	case protocol.Stopped:
		kind = events.NetworkStopped
		st.Running = false
		h.session.LastStopTime = h.timestamp(p.Time)
	}

	status := *st
	n := events.Notification{
		Kind:   kind,
		Graph:  p.Graph,
		Status: &status,
	}
	if kind == events.NetworkStopped {
		n.Message = "Simulation stopped"
	}
	h.session.Notify(n)
}

func (h *NetworkHandler) output(env *protocol.Envelope) {
	var p outputPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"type":    p.Type,
		"message": p.Message,
	}).Info("Runtime output")

	h.session.Notify(events.Notification{
		Kind:    events.RuntimeOutput,
		Graph:   p.Graph,
		Message: p.Message,
		Data:    p.Type,
	})
}

func (h *NetworkHandler) runtimeError(env *protocol.Envelope) {
	var p outputPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"message": p.Message,
		"stack":   p.Stack,
	}).Error("Runtime error")

	h.session.Notify(events.Notification{
		Kind:     events.RuntimeError,
		Graph:    p.Graph,
		Message:  p.Message,
		Blocking: true,
		Err:      fmt.Errorf("runtime error: %s", p.Message),
		Data:     p.Stack,
	})
}

func (h *NetworkHandler) persist(env *protocol.Envelope) {
	f := h.session.Flow
	if f != nil && h.saver != nil {
		if err := h.saver.Save(h.session.Workspace, f.Document()); err != nil {
			h.logger.WithError(err).Error("Saving flow snapshot")
		}
	}

	n := events.Notification{
		Kind:    events.Persisted,
		Message: "Flow persisted",
	}
	if f != nil {
		n.Graph = f.Graph
	}
	h.session.Notify(n)
}

func (h *NetworkHandler) nodeActivity(env *protocol.Envelope) {
	var p nodeRefPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}
	id := p.ID
	if id == "" {
		id = p.Node
	}

	kind := events.NodeStarted
	if env.Command == protocol.FinishNode {
		kind = events.NodeFinished
	}

	n := events.Notification{
		Kind:   kind,
		Graph:  p.Graph,
		NodeID: id,
	}
	if h.session.Flow != nil {
		n.Node = h.session.Flow.Node(id)
	}
	h.session.Notify(n)
}

func (h *NetworkHandler) timestamp(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return h.Now()
}
