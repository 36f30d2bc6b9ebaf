package dispatch

import (
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// Handler processes the messages of one subprotocol.
type Handler interface {
	Handle(env *protocol.Envelope)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(env *protocol.Envelope)

// Handle implements Handler.
func (f HandlerFunc) Handle(env *protocol.Envelope) {
	f(env)
}

// Reconciler matches inbound graph mutations with state created locally
// ahead of the runtime's confirmation.
type Reconciler interface {
	// EdgeAcknowledged is called before an inbound addedge is applied. It
	// returns false when the edge must not be inserted.
	EdgeAcknowledged(e *graph.Edge) bool
}

// Saver persists snapshots of the flow document.
type Saver interface {
	Save(workspace string, doc graph.Document) error
}

// Dispatcher routes envelopes to the handler registered for their protocol.
type Dispatcher struct {
	handlers map[protocol.Protocol]Handler
	logger   *logrus.Entry
}

// NewDispatcher returns a Dispatcher without handlers.
func NewDispatcher(logger *logrus.Entry) *Dispatcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Dispatcher{
		handlers: make(map[protocol.Protocol]Handler),
		logger:   logger,
	}
}

// NewDefault returns a Dispatcher with the graph, network, component,
// trace, fileexplorer and flow handlers operating on sess. reconciler and
// saver may be nil.
func NewDefault(sess *session.Session, reconciler Reconciler, saver Saver, logger *logrus.Entry) *Dispatcher {
	d := NewDispatcher(logger)
	d.Register(protocol.Graph, NewGraphHandler(sess, reconciler, logger))
	d.Register(protocol.Network, NewNetworkHandler(sess, saver, logger))
	d.Register(protocol.Component, NewComponentHandler(sess, logger))
	d.Register(protocol.Trace, NewTraceHandler(sess, logger))
	d.Register(protocol.FileExplorer, NewFileExplorerHandler(sess, logger))
	d.Register(protocol.Flow, NewFlowHandler(sess, saver, logger))
	return d
}

// Register sets the handler of a protocol, replacing any previous one.
func (d *Dispatcher) Register(p protocol.Protocol, h Handler) {
	d.handlers[p] = h
}

// Route hands env to the handler of its protocol. Envelopes of unknown
// protocols are logged and dropped.
func (d *Dispatcher) Route(env *protocol.Envelope) {
	h, ok := d.handlers[env.Protocol]
	if !ok {
		d.logger.WithFields(logrus.Fields{
			"protocol": env.Protocol,
			"command":  env.Command,
			"known":    env.Protocol.Known(),
		}).Warn("No handler for protocol")
		return
	}

	d.logger.WithField("message", env.String()).Debug("Route")

	h.Handle(env)
}

func unknownCommand(logger *logrus.Entry, env *protocol.Envelope) {
	logger.WithField("message", env.String()).Warn("Unknown command")
}

func badPayload(logger *logrus.Entry, env *protocol.Envelope, err error) {
	logger.WithFields(logrus.Fields{
		"message": env.String(),
		"error":   err,
	}).Error("Invalid payload")
}
