package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// ComponentHandler fills the session's component Library.
type ComponentHandler struct {
	session *session.Session
	logger  *logrus.Entry
}

// NewComponentHandler returns a ComponentHandler.
func NewComponentHandler(sess *session.Session, logger *logrus.Entry) *ComponentHandler {
	return &ComponentHandler{
		session: sess,
		logger:  logger,
	}
}

// Handle implements Handler.
func (h *ComponentHandler) Handle(env *protocol.Envelope) {
	switch env.Command {
	case protocol.ComponentCmd:
		h.component(env)
	case protocol.ComponentsReady:
		h.session.SetComponentsReceived()
		h.session.Notify(events.Notification{
			Kind: events.ComponentsReady,
		})
	default:
		unknownCommand(h.logger, env)
	}
}

func (h *ComponentHandler) component(env *protocol.Envelope) {
	var p graph.ComponentPayload
	if err := env.DecodePayload(&p); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	c, err := graph.ComponentFromPayload(p)
	if err != nil {
		badPayload(h.logger, env, err)
		return
	}

	if !h.session.Library.Register(c) {
		return
	}

	h.session.Notify(events.Notification{
		Kind:      events.ComponentAdded,
		Component: c,
	})
}
