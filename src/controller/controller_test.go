package controller

import (
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	protocol protocol.Protocol
	command  string
	payload  interface{}
}

type recordingSender struct {
	messages []sent
}

func (s *recordingSender) Send(p protocol.Protocol, command string, payload interface{}) {
	s.messages = append(s.messages, sent{p, command, payload})
}

func (s *recordingSender) of(command string) []sent {
	var res []sent
	for _, m := range s.messages {
		if m.command == command {
			res = append(res, m)
		}
	}
	return res
}

type fixture struct {
	session    *session.Session
	recorder   *events.Recorder
	sender     *recordingSender
	clock      *common.ManualClock
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	rec := &events.Recorder{}
	sess := session.New("ws-1", rec, common.NewTestEntry(t, "session"))
	sess.Library.Register(&graph.Component{
		Name:     "Repeat",
		InPorts:  []*graph.Port{{ID: "in1"}},
		OutPorts: []*graph.Port{{ID: "out1"}},
	})

	f := sess.EnsureFlow("main")
	for _, id := range []string{"A", "B", "C"} {
		f.AddNode(graph.NewNode(graph.NodePayload{ID: id, Component: "Repeat", Graph: "main"}, sess.Library))
	}

	fx := &fixture{
		session:  sess,
		recorder: rec,
		sender:   &recordingSender{},
		clock:    common.NewManualClock(),
	}
	ids := 0
	fx.controller = New(sess, fx.sender, Config{
		Clock: fx.clock,
		NewID: func() string {
			ids++
			return "n" + string(rune('0'+ids))
		},
	}, common.NewTestEntry(t, "controller"))
	return fx
}

func ep(node, port string) *graph.Endpoint {
	return &graph.Endpoint{Node: node, Port: port}
}

func edgePayload(t *testing.T, m sent) graph.EdgePayload {
	p, ok := m.payload.(graph.EdgePayload)
	require.True(t, ok, "payload is %T", m.payload)
	return p
}

func TestHalfOpenSourceCompletion(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Tgt: ep("A", "in1")})
	assert.Empty(t, fx.sender.messages)
	ws, wt := c.Waiting()
	assert.Equal(t, 1, ws)
	assert.Equal(t, 0, wt)

	c.Handle(events.LinkResolveSource{LinkID: "l1", Src: ep("B", "out1")})

	adds := fx.sender.of(protocol.AddEdge)
	require.Len(t, adds, 1)
	assert.Len(t, fx.sender.messages, 1)
	assert.Equal(t, protocol.Graph, adds[0].protocol)

	p := edgePayload(t, adds[0])
	assert.Equal(t, "l1", p.ID)
	assert.Equal(t, "main", p.Graph)
	assert.Equal(t, ep("B", "out1"), p.Src)
	assert.Equal(t, ep("A", "in1"), p.Tgt)

	ws, wt = c.Waiting()
	assert.Equal(t, 0, ws+wt)
	require.Len(t, c.Pending(), 1)

	f := fx.session.Flow
	assert.NotNil(t, f.Cell("l1"))
	assert.Nil(t, f.Edge("l1"))
	assert.Equal(t, []string{"l1"}, f.Node("B").OutPort("out1").ConnectedEdgeIDs)
}

func TestHalfOpenTargetCompletion(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Src: ep("B", "out1")})
	assert.Empty(t, fx.sender.messages)

	c.Handle(events.LinkResolveTarget{LinkID: "l1", Tgt: ep("A", "in1")})

	adds := fx.sender.of(protocol.AddEdge)
	require.Len(t, adds, 1)
	p := edgePayload(t, adds[0])
	assert.Equal(t, ep("B", "out1"), p.Src)
	assert.Equal(t, ep("A", "in1"), p.Tgt)
}

func TestSelfLoopRejected(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Tgt: ep("A", "in1")})
	c.Handle(events.LinkResolveSource{LinkID: "l1", Src: ep("A", "in1")})

	assert.Empty(t, fx.sender.messages)
	ws, wt := c.Waiting()
	assert.Equal(t, 0, ws+wt)
	assert.Empty(t, c.Pending())

	rejected := fx.recorder.Of(events.EdgeRejected)
	require.Len(t, rejected, 1)
	assert.True(t, errors.Is(rejected[0].Err, ErrSelfLoop))

	// resolving again finds nothing to complete
	c.Handle(events.LinkResolveSource{LinkID: "l1", Src: ep("B", "out1")})
	assert.Empty(t, fx.sender.messages)
}

func TestDuplicateEdgeSuppressed(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	require.NoError(t, c.CreateEdge(graph.NewEdge("e1", "main", ep("B", "out1"), ep("A", "in1"), nil)))
	err := c.CreateEdge(graph.NewEdge("e2", "main", ep("B", "out1"), ep("A", "in1"), nil))
	assert.ErrorIs(t, err, ErrDuplicateEdge)

	assert.Len(t, fx.sender.of(protocol.AddEdge), 1)
	assert.Equal(t, 1, fx.recorder.Count(events.EdgeRejected))

	// still a duplicate once acknowledged
	ack := graph.NewEdge("e1", "main", ep("B", "out1"), ep("A", "in1"), nil)
	require.True(t, c.EdgeAcknowledged(ack))
	require.True(t, fx.session.Flow.AddEdge(ack))
	assert.Empty(t, c.Pending())

	err = c.CreateEdge(graph.NewEdge("e3", "main", ep("B", "out1"), ep("A", "in1"), nil))
	assert.ErrorIs(t, err, ErrDuplicateEdge)
	assert.Len(t, fx.sender.of(protocol.AddEdge), 1)
	assert.Empty(t, fx.session.Flow.CheckPortRefs())
}

func TestCreateEdgeChecks(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	assert.ErrorIs(t, c.CreateEdge(graph.NewEdge("e1", "main", ep("A", "in1"), ep("A", "in1"), nil)), ErrSelfLoop)
	assert.ErrorIs(t, c.CreateEdge(graph.NewEdge("e2", "main", ep("A", "out1"), nil, nil)), ErrHalfOpen)
	assert.Empty(t, fx.sender.messages)
	assert.Equal(t, 2, fx.recorder.Count(events.EdgeRejected))
}

func TestRemoveWaitingLinkSendsNothing(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Tgt: ep("A", "in1")})
	c.Handle(events.LinkRemove{LinkID: "l1"})

	ws, wt := c.Waiting()
	assert.Equal(t, 0, ws+wt)
	assert.Empty(t, fx.sender.messages)
}

func TestRemovePendingEdgeBeforeAck(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Src: ep("B", "out1")})
	c.Handle(events.LinkResolveTarget{LinkID: "l1", Tgt: ep("A", "in1")})
	c.Handle(events.LinkRemove{LinkID: "l1"})

	// nothing to remove on the runtime yet
	assert.Empty(t, fx.sender.of(protocol.RemoveEdge))
	assert.Nil(t, fx.session.Flow.Cell("l1"))
	assert.Empty(t, fx.session.Flow.Node("B").OutPort("out1").ConnectedEdgeIDs)

	ack := graph.NewEdge("l1", "main", ep("B", "out1"), ep("A", "in1"), nil)
	assert.False(t, c.EdgeAcknowledged(ack))

	removes := fx.sender.of(protocol.RemoveEdge)
	require.Len(t, removes, 1)
	assert.Equal(t, "l1", edgePayload(t, removes[0]).ID)
	assert.Empty(t, c.Pending())
}

func TestRedrawPendingEdgeBeforeAck(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Src: ep("B", "out1")})
	c.Handle(events.LinkResolveTarget{LinkID: "l1", Tgt: ep("A", "in1")})
	c.Handle(events.LinkRemove{LinkID: "l1"})
	c.Handle(events.LinkAddPartial{LinkID: "l2", Src: ep("B", "out1")})
	c.Handle(events.LinkResolveTarget{LinkID: "l2", Tgt: ep("A", "in1")})

	adds := fx.sender.of(protocol.AddEdge)
	require.Len(t, adds, 2)
	assert.Equal(t, "l2", edgePayload(t, adds[1]).ID)
	assert.Equal(t, 0, fx.recorder.Count(events.EdgeRejected))
	require.Len(t, c.Pending(), 1)
	assert.Equal(t, "l2", c.Pending()[0].ID)

	// the first ack removes the cancelled edge only
	assert.False(t, c.EdgeAcknowledged(graph.NewEdge("l1", "main", ep("B", "out1"), ep("A", "in1"), nil)))
	removes := fx.sender.of(protocol.RemoveEdge)
	require.Len(t, removes, 1)
	assert.Equal(t, "l1", edgePayload(t, removes[0]).ID)

	ack := graph.NewEdge("l2", "main", ep("B", "out1"), ep("A", "in1"), nil)
	require.True(t, c.EdgeAcknowledged(ack))
	f := fx.session.Flow
	require.True(t, f.AddEdge(ack))
	assert.Empty(t, c.Pending())
	assert.Equal(t, []string{"l2"}, f.Node("A").InPort("in1").ConnectedEdgeIDs)
	assert.Empty(t, f.CheckPortRefs())
}

func TestRemoveAcknowledgedEdge(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	e := graph.NewEdge("e1", "main", ep("B", "out1"), ep("A", "in1"), nil)
	fx.session.Flow.AddEdge(e)

	c.Handle(events.LinkRemove{LinkID: "e1"})

	removes := fx.sender.of(protocol.RemoveEdge)
	require.Len(t, removes, 1)
	p := edgePayload(t, removes[0])
	assert.Equal(t, ep("B", "out1"), p.Src)
	assert.Nil(t, fx.session.Flow.Edge("e1"))

	c.Handle(events.LinkRemove{LinkID: "e1"})
	assert.Len(t, fx.sender.of(protocol.RemoveEdge), 1)
}

func TestCompleteLinkIsReconnection(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	fx.session.Flow.AddEdge(graph.NewEdge("e1", "main", ep("B", "out1"), ep("A", "in1"), graph.Metadata{"route": 1}))

	c.Handle(events.LinkAddPartial{LinkID: "e1", Src: ep("C", "out1"), Tgt: ep("A", "in1")})

	assert.Empty(t, fx.sender.of(protocol.AddEdge))
	changes := fx.sender.of(protocol.ChangeEdge)
	require.Len(t, changes, 1)
	p := edgePayload(t, changes[0])
	assert.Equal(t, ep("C", "out1"), p.Src)
	assert.Equal(t, 1, p.Metadata["route"])

	f := fx.session.Flow
	assert.Empty(t, f.Node("B").OutPort("out1").ConnectedEdgeIDs)
	assert.Equal(t, []string{"e1"}, f.Node("C").OutPort("out1").ConnectedEdgeIDs)

	// moving one end of a settled edge is a change too
	c.Handle(events.LinkResolveTarget{LinkID: "e1", Tgt: ep("B", "in1")})
	changes = fx.sender.of(protocol.ChangeEdge)
	require.Len(t, changes, 2)
	p = edgePayload(t, changes[1])
	assert.Equal(t, ep("C", "out1"), p.Src)
	assert.Equal(t, ep("B", "in1"), p.Tgt)
}

func TestSourcePriorityTieBreak(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.LinkAdded("l1", nil, ep("A", "in1"))
	c.LinkAdded("l1", ep("C", "out1"), nil)
	ws, wt := c.Waiting()
	require.Equal(t, 1, ws)
	require.Equal(t, 1, wt)

	c.TargetResolved("l1", ep("B", "in1"))
	assert.Empty(t, fx.sender.messages)
	ws, wt = c.Waiting()
	assert.Equal(t, 1, ws)
	assert.Equal(t, 0, wt)

	c.SourceResolved("l1", ep("C", "out1"))
	adds := fx.sender.of(protocol.AddEdge)
	require.Len(t, adds, 1)
	p := edgePayload(t, adds[0])
	assert.Equal(t, ep("C", "out1"), p.Src)
	assert.Equal(t, ep("B", "in1"), p.Tgt)
}

func TestAckWithDifferentID(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	require.NoError(t, c.CreateEdge(graph.NewEdge("local", "main", ep("B", "out1"), ep("A", "in1"), nil)))

	ack := graph.NewEdge("remote", "main", ep("B", "out1"), ep("A", "in1"), nil)
	require.True(t, c.EdgeAcknowledged(ack))
	f := fx.session.Flow
	require.True(t, f.AddEdge(ack))

	assert.Nil(t, f.Cell("local"))
	assert.Equal(t, []string{"remote"}, f.Node("A").InPort("in1").ConnectedEdgeIDs)
	assert.Empty(t, f.CheckPortRefs())

	// an unrelated edge is accepted as is
	assert.True(t, c.EdgeAcknowledged(graph.NewEdge("other", "main", ep("C", "out1"), ep("A", "in1"), nil)))
}

func TestNameDebounce(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	for _, name := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		c.Handle(events.NodeRename{NodeID: "A", Name: name})
		fx.clock.Advance(50 * time.Millisecond)
	}
	assert.Empty(t, fx.sender.messages)
	assert.Equal(t, "abcde", fx.session.Flow.Node("A").Name())
	assert.Equal(t, 5, fx.recorder.Count(events.BlockNameChanged))

	fx.clock.Advance(150 * time.Millisecond)

	changes := fx.sender.of(protocol.ChangeNode)
	require.Len(t, changes, 1)
	p, ok := changes[0].payload.(graph.NodePayload)
	require.True(t, ok)
	assert.Equal(t, "A", p.ID)
	assert.Equal(t, "main", p.Graph)
	assert.Equal(t, "abcde", p.Metadata[graph.MetaName])

	fx.clock.Advance(time.Second)
	assert.Len(t, fx.sender.of(protocol.ChangeNode), 1)
}

func TestCodeDebounce(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	require.NoError(t, c.SetCode("A", "x"))
	fx.clock.Advance(900 * time.Millisecond)
	require.NoError(t, c.SetCode("A", "x = 1"))
	fx.clock.Advance(900 * time.Millisecond)
	assert.Empty(t, fx.sender.messages)

	fx.clock.Advance(100 * time.Millisecond)
	changes := fx.sender.of(protocol.ChangeNode)
	require.Len(t, changes, 1)
	assert.Equal(t, "x = 1", changes[0].payload.(graph.NodePayload).Metadata[graph.MetaCode])

	assert.ErrorIs(t, c.SetCode("ghost", "x"), ErrUnknownNode)
}

func TestDebounceIsPerNode(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	require.NoError(t, c.SetName("A", "first"))
	require.NoError(t, c.SetName("B", "second"))
	fx.clock.Advance(200 * time.Millisecond)

	assert.Len(t, fx.sender.of(protocol.ChangeNode), 2)
}

func TestRemovedNodeCancelsDebounce(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	require.NoError(t, c.SetName("A", "gone"))
	c.Handle(events.NodeRemove{NodeID: "A"})
	fx.clock.Advance(time.Second)

	assert.Empty(t, fx.sender.of(protocol.ChangeNode))
	removes := fx.sender.of(protocol.RemoveNode)
	require.Len(t, removes, 1)
	assert.Equal(t, "A", removes[0].payload.(graph.NodePayload).ID)
	assert.Nil(t, fx.session.Flow.Node("A"))

	c.Handle(events.NodeRemove{NodeID: "A"})
	assert.Len(t, fx.sender.of(protocol.RemoveNode), 1)
}

func TestAddNode(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	n, err := c.AddNode("core/Repeat", graph.Metadata{"name": "repeat"})
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.NotNil(t, n.InPort("in1"))
	assert.Same(t, n, fx.session.Flow.Node("n1"))

	adds := fx.sender.of(protocol.AddNode)
	require.Len(t, adds, 1)
	p := adds[0].payload.(graph.NodePayload)
	assert.Equal(t, "n1", p.ID)
	assert.Equal(t, "core/Repeat", p.Component)
	assert.Equal(t, "repeat", p.Metadata["name"])

	_, err = c.AddNode("Missing", nil)
	assert.ErrorIs(t, err, ErrUnknownComponent)
	assert.Len(t, fx.sender.of(protocol.AddNode), 1)
}

func TestChangeMetadataIsImmediate(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.NodeMetadataChange{NodeID: "A", Metadata: graph.Metadata{"x": 10}})
	changes := fx.sender.of(protocol.ChangeNode)
	require.Len(t, changes, 1)
	assert.Equal(t, 10, changes[0].payload.(graph.NodePayload).Metadata["x"])
	assert.Equal(t, 1, fx.recorder.Count(events.NodeChanged))
}

func TestResetDropsHalfOpenState(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.LinkAdded("l1", nil, ep("A", "in1"))
	require.NoError(t, c.CreateEdge(graph.NewEdge("e1", "main", ep("B", "out1"), ep("A", "in1"), nil)))
	require.NoError(t, c.SetName("A", "x"))

	c.Reset()
	fx.clock.Advance(time.Second)

	ws, wt := c.Waiting()
	assert.Equal(t, 0, ws+wt)
	assert.Empty(t, c.Pending())
	assert.Empty(t, fx.sender.of(protocol.ChangeNode))
}

func TestResetReleasesPendingPorts(t *testing.T) {
	fx := newFixture(t)
	c := fx.controller

	c.Handle(events.LinkAddPartial{LinkID: "l1", Src: ep("B", "out1")})
	c.Handle(events.LinkResolveTarget{LinkID: "l1", Tgt: ep("A", "in1")})
	require.Len(t, c.Pending(), 1)

	c.Reset()

	f := fx.session.Flow
	assert.Nil(t, f.Cell("l1"))
	assert.Empty(t, f.Node("B").OutPort("out1").ConnectedEdgeIDs)
	assert.Empty(t, f.Node("A").InPort("in1").ConnectedEdgeIDs)
	assert.Empty(t, f.CheckPortRefs())

	// the same link can be drawn again after the reconnection
	c.Handle(events.LinkAddPartial{LinkID: "l1", Src: ep("B", "out1")})
	c.Handle(events.LinkResolveTarget{LinkID: "l1", Tgt: ep("A", "in1")})
	assert.Len(t, fx.sender.of(protocol.AddEdge), 2)
}

func TestViewReadyIntent(t *testing.T) {
	fx := newFixture(t)
	fx.controller.Handle(events.ViewReady{})
	assert.True(t, fx.session.ViewReady)
}
