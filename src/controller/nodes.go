package controller

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
)

// AddNode instantiates a component as a new node, inserts it in the Flow
// and requests it from the runtime. The runtime's echo is deduplicated by
// id.
func (c *Controller) AddNode(component string, metadata graph.Metadata) (*graph.Node, error) {
	if c.session.Library.Get(component) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}

	f := c.flow()
	n := graph.NewNode(graph.NodePayload{
		ID:        c.conf.NewID(),
		Component: component,
		Metadata:  metadata,
		Graph:     f.Graph,
	}, c.session.Library)
	f.AddNode(n)

	c.session.Notify(events.Notification{
		Kind:  events.NodeAdded,
		Graph: n.Graph,
		Node:  n,
	})

	c.send(protocol.AddNode, n.Payload())
	return n, nil
}

// RemovedNode removes a node and requests its removal. Edges are removed by
// the view separately.
func (c *Controller) RemovedNode(nodeID string) {
	n, ok := c.flow().RemoveNode(nodeID)
	if !ok {
		c.logger.WithField("node", nodeID).Debug("Remove unknown node")
		return
	}
	c.cancelTimers(nodeID)

	c.send(protocol.RemoveNode, graph.NodePayload{
		ID:    n.ID,
		Graph: n.Graph,
	})
}

// NodeChanged sends the current metadata of a node.
func (c *Controller) NodeChanged(nodeID string) {
	n := c.flow().Node(nodeID)
	if n == nil {
		c.logger.WithField("node", nodeID).Debug("Change unknown node")
		return
	}
	c.send(protocol.ChangeNode, graph.NodePayload{
		ID:       n.ID,
		Metadata: n.Metadata.Clone(),
		Graph:    n.Graph,
	})
}

// ChangeMetadata replaces the metadata of a node and sends it at once.
func (c *Controller) ChangeMetadata(nodeID string, m graph.Metadata) {
	n, ok := c.flow().ChangeNode(nodeID, m)
	if !ok {
		c.logger.WithField("node", nodeID).Debug("Change unknown node")
		return
	}
	c.cancelTimers(nodeID)

	c.session.Notify(events.Notification{
		Kind:  events.NodeChanged,
		Graph: n.Graph,
		Node:  n,
	})
	c.NodeChanged(nodeID)
}

// SetName renames a node locally and sends the change once no other rename
// of the node happened for the name quiet period.
func (c *Controller) SetName(nodeID, name string) error {
	n := c.flow().Node(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	n.Set(graph.MetaName, name)

	c.session.Notify(events.Notification{
		Kind:    events.BlockNameChanged,
		Graph:   n.Graph,
		Node:    n,
		Message: name,
	})

	c.timer(c.nameTimers, nodeID, c.conf.NameDebounce).Schedule(func() {
		c.NodeChanged(nodeID)
	})
	return nil
}

// SetCode updates the code of a node locally and sends the change once the
// code quiet period elapsed without further edits.
func (c *Controller) SetCode(nodeID, code string) error {
	n := c.flow().Node(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	n.Set(graph.MetaCode, code)

	c.timer(c.codeTimers, nodeID, c.conf.CodeDebounce).Schedule(func() {
		c.NodeChanged(nodeID)
	})
	return nil
}

func (c *Controller) timer(timers map[string]*common.Deferred, nodeID string, delay time.Duration) *common.Deferred {
	d, ok := timers[nodeID]
	if !ok {
		d = common.NewDeferred(c.conf.Clock, delay, c.conf.Post)
		timers[nodeID] = d
	}
	return d
}

func (c *Controller) cancelTimers(nodeID string) {
	if d, ok := c.nameTimers[nodeID]; ok {
		d.Cancel()
	}
	if d, ok := c.codeTimers[nodeID]; ok {
		d.Cancel()
	}
}
