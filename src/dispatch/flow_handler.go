package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// FlowHandler loads the flow:flow document into the session.
type FlowHandler struct {
	session *session.Session
	saver   Saver
	logger  *logrus.Entry
}

// NewFlowHandler returns a FlowHandler. saver may be nil.
func NewFlowHandler(sess *session.Session, saver Saver, logger *logrus.Entry) *FlowHandler {
	return &FlowHandler{
		session: sess,
		saver:   saver,
		logger:  logger,
	}
}

// Handle implements Handler.
func (h *FlowHandler) Handle(env *protocol.Envelope) {
	if env.Command != protocol.FlowCmd {
		unknownCommand(h.logger, env)
		return
	}

	var doc graph.Document
	if err := env.DecodePayload(&doc); err != nil {
		badPayload(h.logger, env, err)
		return
	}

	incoming, err := graph.FromDocument(doc, h.session.Library)
	if err != nil {
		// the rest of the document is still usable
		badPayload(h.logger, env, err)
	}

	f := h.session.LoadFlow(incoming)

	if drift := f.CheckPortRefs(); len(drift) > 0 {
		h.logger.WithField("drift", drift).Warn("Port references out of sync")
	}
	if err := f.Validate(); err != nil {
		h.logger.WithError(err).Warn("Flow references missing nodes or ports")
	}

	if h.saver != nil {
		if err := h.saver.Save(h.session.Workspace, f.Document()); err != nil {
			h.logger.WithError(err).Error("Saving flow snapshot")
		}
	}

	h.session.Notify(events.Notification{
		Kind:  events.FlowLoaded,
		Graph: f.Graph,
	})

	h.session.SetFlowReceived()
}
