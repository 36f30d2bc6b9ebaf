package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowAddNodeIdempotent(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")

	assert.True(t, f.AddNode(node("a", "core/Repeat", lib)))
	assert.False(t, f.AddNode(node("a", "core/Repeat", lib)))

	require.Len(t, f.Nodes, 1)
	assert.Equal(t, 0, f.IndexOfNode("a"))
	assert.Equal(t, -1, f.IndexOfNode("b"))
	assert.NotNil(t, f.Node("a").InPort("in"))
}

func TestFlowRemoveNodeIdempotent(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	f.AddNode(node("a", "Repeat", lib))

	_, ok := f.RemoveNode("a")
	assert.True(t, ok)
	_, ok = f.RemoveNode("a")
	assert.False(t, ok)
	assert.Empty(t, f.Nodes)
}

func TestFlowChangeNodeReplacesMetadata(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	n := node("a", "Repeat", lib)
	n.Set(MetaName, "first")
	n.Set(MetaCode, "print(1)")
	f.AddNode(n)

	_, ok := f.ChangeNode("a", Metadata{MetaName: "second"})
	require.True(t, ok)
	assert.Equal(t, "second", f.Node("a").Name())
	_, hasCode := f.Node("a").Metadata[MetaCode]
	assert.False(t, hasCode)

	_, ok = f.ChangeNode("missing", Metadata{})
	assert.False(t, ok)
}

func TestFlowAddEdgeDeduplicates(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	f.AddNode(node("a", "Repeat", lib))
	f.AddNode(node("b", "Repeat", lib))

	e1 := NewEdge("e1", "main", ep("a", "out"), ep("b", "in"), nil)
	assert.True(t, f.AddEdge(e1))
	assert.False(t, f.AddEdge(e1.Clone()), "same id")

	parallel := NewEdge("e2", "main", ep("a", "out"), ep("b", "in"), nil)
	assert.False(t, f.AddEdge(parallel), "same endpoints")

	require.Len(t, f.Edges, 1)
	assert.True(t, f.EdgeExists(ep("a", "out"), ep("b", "in")))
	assert.False(t, f.EdgeExists(ep("b", "out"), ep("a", "in")))
	assert.Equal(t, e1, f.Cell("e1"))
}

func TestFlowPortRefsFollowEdges(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	f.AddNode(node("a", "Repeat", lib))
	f.AddNode(node("b", "Merge", lib))

	f.AddEdge(NewEdge("e1", "main", ep("a", "out"), ep("b", "in1"), nil))
	f.AddEdge(NewEdge("e2", "main", ep("a", "out"), ep("b", "in2"), nil))

	assert.Equal(t, []string{"e1", "e2"}, f.Node("a").OutPort("out").ConnectedEdgeIDs)
	assert.Equal(t, []string{"e1"}, f.Node("b").InPort("in1").ConnectedEdgeIDs)
	assert.Empty(t, f.CheckPortRefs())

	_, ok := f.ChangeEdge("e1", ep("a", "out"), ep("b", "in2"), Metadata{"route": 1})
	require.True(t, ok)
	assert.Empty(t, f.Node("b").InPort("in1").ConnectedEdgeIDs)
	assert.ElementsMatch(t, []string{"e1", "e2"}, f.Node("b").InPort("in2").ConnectedEdgeIDs)
	assert.Empty(t, f.CheckPortRefs())

	_, ok = f.RemoveEdge("e2")
	require.True(t, ok)
	assert.Equal(t, []string{"e1"}, f.Node("a").OutPort("out").ConnectedEdgeIDs)
	assert.Nil(t, f.Cell("e2"))
	assert.Empty(t, f.CheckPortRefs())

	_, ok = f.RemoveEdge("e2")
	assert.False(t, ok)
}

func TestFlowLateNodeAttachesExistingEdges(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	f.AddNode(node("a", "Repeat", lib))
	f.AddEdge(NewEdge("e1", "main", ep("a", "out"), ep("b", "in"), nil))

	assert.ErrorIs(t, f.Validate(), ErrDanglingReference)

	f.AddNode(node("b", "Repeat", lib))
	assert.Equal(t, []string{"e1"}, f.Node("b").InPort("in").ConnectedEdgeIDs)
	assert.NoError(t, f.Validate())
	assert.Empty(t, f.CheckPortRefs())
}

func TestFlowValidateUnknownPort(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	f.AddNode(node("a", "Repeat", lib))
	f.AddNode(node("b", "Repeat", lib))
	f.AddEdge(NewEdge("e1", "main", ep("a", "out"), ep("b", "nope"), nil))

	err := f.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingReference))
}

func TestFlowPreviousAndNextNodes(t *testing.T) {
	lib := testLibrary()
	f := NewFlow("main")
	for _, id := range []string{"a", "b", "c"} {
		f.AddNode(node(id, "Merge", lib))
	}
	f.AddEdge(NewEdge("e1", "main", ep("a", "out"), ep("c", "in1"), nil))
	f.AddEdge(NewEdge("e2", "main", ep("b", "out"), ep("c", "in2"), nil))

	prev := f.PreviousNodes("c")
	require.Len(t, prev, 2)
	assert.Equal(t, "a", prev[0].ID)
	assert.Equal(t, "b", prev[1].ID)

	next := f.NextNodes("a")
	require.Len(t, next, 1)
	assert.Equal(t, "c", next[0].ID)
	assert.Empty(t, f.PreviousNodes("a"))
}

func TestFlowMergeKeepsLocalEntries(t *testing.T) {
	lib := testLibrary()
	local := NewFlow("main")
	a := node("a", "Repeat", lib)
	a.Set(MetaName, "local")
	local.AddNode(a)

	remote := NewFlow("main")
	remote.Name = "Main graph"
	ra := node("a", "Repeat", lib)
	ra.Set(MetaName, "remote")
	remote.AddNode(ra)
	remote.AddNode(node("b", "Repeat", lib))
	remote.AddEdge(NewEdge("e1", "main", ep("a", "out"), ep("b", "in"), nil))

	local.Merge(remote)

	assert.Equal(t, "Main graph", local.Name)
	require.Len(t, local.Nodes, 2)
	assert.Equal(t, "local", local.Node("a").Name())
	require.Len(t, local.Edges, 1)
	assert.Equal(t, []string{"e1"}, local.Node("a").OutPort("out").ConnectedEdgeIDs)
}

func TestFlowDocumentRoundTrip(t *testing.T) {
	lib := testLibrary()
	doc := Document{
		ID:      "main",
		Name:    "Main",
		Library: "core",
		Nodes: []*NodePayload{
			{ID: "a", Component: "Repeat", Metadata: Metadata{MetaName: "A"}},
			{ID: "b", Component: "Repeat"},
		},
		Edges: []*EdgePayload{
			{ID: "e1", Src: ep("a", "out"), Tgt: ep("b", "in")},
			{ID: "broken"},
		},
		Groups: []*GroupPayload{
			{Name: "g", Nodes: []string{"a", "b"}},
		},
	}

	f, err := FromDocument(doc, lib)
	require.ErrorIs(t, err, ErrInvalidEdge)
	require.Len(t, f.Nodes, 2)
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "main", f.Edges[0].Graph)
	require.NotNil(t, f.Group("g"))
	assert.True(t, f.Group("g").Contains("b"))

	again, err := FromDocument(f.Document(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Main", again.Name)
	assert.Equal(t, "core", again.Library)
	require.Len(t, again.Nodes, 2)
	assert.NotNil(t, again.Node("a").OutPort("out"))
	require.Len(t, again.Edges, 1)
	assert.Equal(t, []string{"e1"}, again.Node("b").InPort("in").ConnectedEdgeIDs)
}

func TestFlowGroups(t *testing.T) {
	f := NewFlow("main")
	g := NewGroup(GroupPayload{Name: "sel", Nodes: []string{"a"}})
	assert.True(t, f.AddGroup(g))
	assert.False(t, f.AddGroup(NewGroup(GroupPayload{Name: "sel"})))

	_, ok := f.RemoveGroup("sel")
	assert.True(t, ok)
	_, ok = f.RemoveGroup("sel")
	assert.False(t, ok)
}
