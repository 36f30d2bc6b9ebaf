package controller

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSelfLoop is returned when an edge would connect a port to itself.
	ErrSelfLoop = errors.New("edge connects a port to itself")

	// ErrDuplicateEdge is returned when an edge with the same endpoints
	// already exists or was already requested.
	ErrDuplicateEdge = errors.New("edge already exists")

	// ErrHalfOpen is returned when an edge without both endpoints is
	// submitted for creation.
	ErrHalfOpen = errors.New("edge is half-open")

	// ErrUnknownComponent is returned by AddNode for components missing from
	// the library.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownNode is returned for operations on nodes missing from the
	// Flow.
	ErrUnknownNode = errors.New("unknown node")
)

// Default quiet periods.
const (
	DefaultNameDebounce = 200 * time.Millisecond
	DefaultCodeDebounce = 1000 * time.Millisecond
)

// Sender transmits outbound messages. Sends never fail from the caller's
// point of view; transport problems are the sender's concern.
type Sender interface {
	Send(p protocol.Protocol, command string, payload interface{})
}

// Config configures a Controller.
type Config struct {
	NameDebounce time.Duration
	CodeDebounce time.Duration

	// Clock drives the debounce timers. Defaults to the real clock.
	Clock common.Clock

	// Post runs debounced sends on the owner's goroutine. Defaults to
	// running them on the timer goroutine.
	Post func(func())

	// NewID generates ids for nodes created locally.
	NewID func() string
}

// Controller is the graph synchronization controller. It must only be used
// from the goroutine that owns the session.
type Controller struct {
	session *session.Session
	sender  Sender
	conf    Config
	logger  *logrus.Entry

	waitingForSource map[string]*graph.Edge
	waitingForTarget map[string]*graph.Edge

	// pending holds edges sent with addedge and not acknowledged yet.
	// cancelled holds those removed by the user before their ack.
	pending   []*graph.Edge
	cancelled map[string]*graph.Edge

	nameTimers map[string]*common.Deferred
	codeTimers map[string]*common.Deferred
}

// New returns a Controller sending through sender.
func New(sess *session.Session, sender Sender, conf Config, logger *logrus.Entry) *Controller {
	if conf.NameDebounce == 0 {
		conf.NameDebounce = DefaultNameDebounce
	}
	if conf.CodeDebounce == 0 {
		conf.CodeDebounce = DefaultCodeDebounce
	}
	if conf.Clock == nil {
		conf.Clock = common.RealClock{}
	}
	if conf.NewID == nil {
		conf.NewID = func() string { return uuid.New().String() }
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Controller{
		session:          sess,
		sender:           sender,
		conf:             conf,
		logger:           logger,
		waitingForSource: make(map[string]*graph.Edge),
		waitingForTarget: make(map[string]*graph.Edge),
		cancelled:        make(map[string]*graph.Edge),
		nameTimers:       make(map[string]*common.Deferred),
		codeTimers:       make(map[string]*common.Deferred),
	}
}

// Handle applies one user intent.
func (c *Controller) Handle(in events.Intent) {
	switch i := in.(type) {
	case events.LinkAddPartial:
		c.LinkAdded(i.LinkID, i.Src, i.Tgt)
	case events.LinkResolveSource:
		c.SourceResolved(i.LinkID, i.Src)
	case events.LinkResolveTarget:
		c.TargetResolved(i.LinkID, i.Tgt)
	case events.LinkRemove:
		c.LinkRemoved(i.LinkID)
	case events.NodeAdd:
		if _, err := c.AddNode(i.Component, i.Metadata); err != nil {
			c.logger.WithError(err).Warn("Add node")
		}
	case events.NodeRemove:
		c.RemovedNode(i.NodeID)
	case events.NodeRename:
		if err := c.SetName(i.NodeID, i.Name); err != nil {
			c.logger.WithError(err).Debug("Rename")
		}
	case events.NodeCodeEdit:
		if err := c.SetCode(i.NodeID, i.Code); err != nil {
			c.logger.WithError(err).Debug("Code edit")
		}
	case events.NodeMetadataChange:
		c.ChangeMetadata(i.NodeID, i.Metadata)
	case events.ViewReady:
		c.session.SetViewReady()
	default:
		c.logger.WithField("intent", in).Warn("Unknown intent")
	}
}

func (c *Controller) flow() *graph.Flow {
	return c.session.EnsureFlow("")
}

func (c *Controller) send(command string, payload interface{}) {
	c.sender.Send(protocol.Graph, command, payload)
}
