package controller

import (
	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/sirupsen/logrus"
)

// LinkAdded registers a new visual link. A link with a single known end
// waits for the other one; a link with both ends is an existing edge being
// reconnected.
func (c *Controller) LinkAdded(linkID string, src, tgt *graph.Endpoint) {
	switch {
	case src.Valid() && tgt.Valid():
		if c.waiting(linkID) {
			c.complete(linkID, src, tgt)
			return
		}
		c.EdgeChanged(linkID, src, tgt)
	case tgt.Valid():
		c.waitingForSource[linkID] = graph.NewEdge(linkID, c.flow().Graph, nil, tgt, nil)
		c.logger.WithField("link", linkID).Debug("Waiting for source")
	case src.Valid():
		c.waitingForTarget[linkID] = graph.NewEdge(linkID, c.flow().Graph, src, nil, nil)
		c.logger.WithField("link", linkID).Debug("Waiting for target")
	default:
		c.logger.WithField("link", linkID).Warn("Link without endpoints")
	}
}

// SourceResolved reports the source end of a link being dropped on a port.
func (c *Controller) SourceResolved(linkID string, src *graph.Endpoint) {
	if d, ok := c.waitingForSource[linkID]; ok {
		delete(c.waitingForTarget, linkID)
		c.complete(linkID, src, d.Tgt)
		return
	}
	if d, ok := c.waitingForTarget[linkID]; ok {
		// the known end was moved, the link still waits for its target
		d.Src = src.Clone()
		return
	}
	c.reconnect(linkID, src, nil)
}

// TargetResolved reports the target end of a link being dropped on a port.
func (c *Controller) TargetResolved(linkID string, tgt *graph.Endpoint) {
	if d, ok := c.waitingForSource[linkID]; ok {
		// source resolution has priority; a stale target entry is dropped
		delete(c.waitingForTarget, linkID)
		d.Tgt = tgt.Clone()
		return
	}
	if d, ok := c.waitingForTarget[linkID]; ok {
		c.complete(linkID, d.Src, tgt)
		return
	}
	c.reconnect(linkID, nil, tgt)
}

// complete closes a waiting link and requests it from the runtime. Closing
// a link onto its own port cancels it.
func (c *Controller) complete(linkID string, src, tgt *graph.Endpoint) {
	delete(c.waitingForSource, linkID)
	delete(c.waitingForTarget, linkID)

	e := graph.NewEdge(linkID, c.flow().Graph, src, tgt, nil)
	if e.SelfLoop() {
		c.logger.WithField("link", e.String()).Debug("Link closed onto itself, cancelled")
		c.reject(e, ErrSelfLoop)
		return
	}
	if !e.Closed() {
		c.logger.WithField("link", e.String()).Warn("Link resolved to an invalid port")
		c.reject(e, ErrHalfOpen)
		return
	}

	if err := c.CreateEdge(e); err != nil {
		c.logger.WithFields(logrus.Fields{
			"link":  e.String(),
			"error": err,
		}).Debug("Edge rejected")
	}
}

// reconnect handles an endpoint move on an edge that is not waiting.
func (c *Controller) reconnect(linkID string, src, tgt *graph.Endpoint) {
	f := c.flow()
	e := f.Edge(linkID)
	if e == nil {
		c.logger.WithField("link", linkID).Debug("Endpoint moved on unknown link")
		return
	}
	if src == nil {
		src = e.Src
	}
	if tgt == nil {
		tgt = e.Tgt
	}
	c.EdgeChanged(linkID, src, tgt)
}

// CreateEdge requests a closed edge from the runtime. Self-loops and edges
// duplicating an existing or requested one are rejected without any
// transmission, and an EdgeRejected notification tells the view to discard
// its link.
func (c *Controller) CreateEdge(e *graph.Edge) error {
	if !e.Closed() {
		c.reject(e, ErrHalfOpen)
		return ErrHalfOpen
	}
	if e.SelfLoop() {
		c.reject(e, ErrSelfLoop)
		return ErrSelfLoop
	}

	f := c.flow()
	if f.EdgeExists(e.Src, e.Tgt) || c.pendingWithEnds(e) != nil || c.pendingWithID(e.ID) != nil {
		c.reject(e, ErrDuplicateEdge)
		return ErrDuplicateEdge
	}
	if e.Graph == "" {
		e.Graph = f.Graph
	}

	c.pending = append(c.pending, e)
	f.BindCell(e)
	f.AttachEndpoint(e.ID, e.Src, graph.Out)
	f.AttachEndpoint(e.ID, e.Tgt, graph.In)

	c.send(protocol.AddEdge, graph.BuildPayloadForEdge(e))
	return nil
}

func (c *Controller) reject(e *graph.Edge, err error) {
	c.session.Notify(events.Notification{
		Kind:  events.EdgeRejected,
		Graph: e.Graph,
		Edge:  e,
		Err:   err,
	})
}

// EdgeAcknowledged matches an inbound addedge with a pending request. It
// returns false when the acknowledged edge was removed by the user in the
// meantime, in which case its removal is requested instead.
func (c *Controller) EdgeAcknowledged(e *graph.Edge) bool {
	p := c.pendingWithID(e.ID)
	if p == nil {
		if cancelled := c.cancelledFor(e); cancelled != nil {
			delete(c.cancelled, cancelled.ID)
			c.logger.WithField("edge", e.String()).Debug("Acknowledged edge was removed, removing")
			c.send(protocol.RemoveEdge, graph.BuildPayloadForEdge(e))
			return false
		}
		p = c.pendingWithEnds(e)
	}
	if p == nil {
		return true
	}
	c.dropPending(p)

	if p.ID != e.ID {
		f := c.flow()
		f.DetachEdge(p)
		f.UnbindCell(p.ID)
	}
	return true
}

// LinkRemoved reports a visual link being deleted.
func (c *Controller) LinkRemoved(linkID string) {
	_, ws := c.waitingForSource[linkID]
	_, wt := c.waitingForTarget[linkID]
	if ws || wt {
		delete(c.waitingForSource, linkID)
		delete(c.waitingForTarget, linkID)
		return
	}

	if p := c.pendingWithID(linkID); p != nil {
		c.dropPending(p)
		c.cancelled[p.ID] = p
		f := c.flow()
		f.DetachEdge(p)
		f.UnbindCell(p.ID)
		return
	}

	c.RemovedEdge(linkID)
}

// RemovedEdge removes an acknowledged edge and requests its removal.
func (c *Controller) RemovedEdge(edgeID string) {
	e, ok := c.flow().RemoveEdge(edgeID)
	if !ok {
		c.logger.WithField("edge", edgeID).Debug("Remove unknown edge")
		return
	}
	c.send(protocol.RemoveEdge, graph.BuildPayloadForEdge(e))
}

// EdgeChanged moves the endpoints of an edge and requests the change.
func (c *Controller) EdgeChanged(edgeID string, src, tgt *graph.Endpoint) {
	f := c.flow()
	e, ok := f.ChangeEdge(edgeID, src, tgt, metadataOf(f.Edge(edgeID)))
	if !ok {
		e = graph.NewEdge(edgeID, f.Graph, src, tgt, nil)
	}
	c.send(protocol.ChangeEdge, graph.BuildPayloadForEdge(e))
}

func metadataOf(e *graph.Edge) graph.Metadata {
	if e == nil {
		return nil
	}
	return e.Metadata
}

// Pending returns the edges requested and not yet acknowledged.
func (c *Controller) Pending() []*graph.Edge {
	res := make([]*graph.Edge, len(c.pending))
	copy(res, c.pending)
	return res
}

// Waiting returns the number of half-open links waiting for their source
// and for their target.
func (c *Controller) Waiting() (forSource, forTarget int) {
	return len(c.waitingForSource), len(c.waitingForTarget)
}

// Reset forgets every half-open link and pending request, and cancels
// debounced sends. Half-open state never survives a reconnection.
func (c *Controller) Reset() {
	if f := c.session.Flow; f != nil {
		for _, p := range c.pending {
			f.DetachEdge(p)
			f.UnbindCell(p.ID)
		}
	}
	c.waitingForSource = make(map[string]*graph.Edge)
	c.waitingForTarget = make(map[string]*graph.Edge)
	c.pending = nil
	c.cancelled = make(map[string]*graph.Edge)
	for _, d := range c.nameTimers {
		d.Cancel()
	}
	for _, d := range c.codeTimers {
		d.Cancel()
	}
	c.nameTimers = make(map[string]*common.Deferred)
	c.codeTimers = make(map[string]*common.Deferred)
}

func (c *Controller) waiting(linkID string) bool {
	_, ws := c.waitingForSource[linkID]
	_, wt := c.waitingForTarget[linkID]
	return ws || wt
}

func (c *Controller) pendingWithID(id string) *graph.Edge {
	for _, p := range c.pending {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (c *Controller) pendingWithEnds(e *graph.Edge) *graph.Edge {
	for _, p := range c.pending {
		if p.SameEnds(e) {
			return p
		}
	}
	return nil
}

// cancelledFor returns the cancelled request an ack refers to, by id first
// and then by endpoints.
func (c *Controller) cancelledFor(e *graph.Edge) *graph.Edge {
	if p, ok := c.cancelled[e.ID]; ok {
		return p
	}
	if c.pendingWithEnds(e) != nil {
		return nil
	}
	for _, p := range c.cancelled {
		if p.SameEnds(e) {
			return p
		}
	}
	return nil
}

func (c *Controller) dropPending(e *graph.Edge) {
	for i, p := range c.pending {
		if p == e {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}
