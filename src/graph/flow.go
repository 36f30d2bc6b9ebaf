package graph

import "fmt"

// Flow is the graph document of one workspace. It exclusively owns its nodes,
// edges and groups.
type Flow struct {
	ID      string
	Name    string
	Graph   string
	Library string
	Nodes   []*Node
	Edges   []*Edge
	Groups  []*Group

	// cells indexes every edge known to the editor by id, including edges
	// sent to the runtime but not yet acknowledged.
	cells map[string]*Edge
}

// NewFlow returns an empty Flow for graph id.
func NewFlow(id string) *Flow {
	return &Flow{
		ID:    id,
		Graph: id,
		cells: make(map[string]*Edge),
	}
}

// FromDocument builds a Flow from a flow:flow document. Node ports missing
// from the document are resolved through lib. Edges without any endpoint are
// skipped and reported in the returned error, the rest of the document is
// still loaded.
func FromDocument(doc Document, lib *Library) (*Flow, error) {
	f := NewFlow(doc.ID)
	f.Name = doc.Name
	f.Library = doc.Library
	if doc.Graph != "" {
		f.Graph = doc.Graph
	}

	for _, np := range doc.Nodes {
		if np == nil {
			continue
		}
		if np.Graph == "" {
			np.Graph = f.Graph
		}
		f.AddNode(NewNode(*np, lib))
	}

	var firstErr error
	for _, ep := range doc.Edges {
		if ep == nil {
			continue
		}
		if ep.Graph == "" {
			ep.Graph = f.Graph
		}
		e, err := EdgeFromPayload(*ep)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		f.AddEdge(e)
	}

	for _, gp := range doc.Groups {
		if gp == nil {
			continue
		}
		if gp.Graph == "" {
			gp.Graph = f.Graph
		}
		f.AddGroup(NewGroup(*gp))
	}

	return f, firstErr
}

// Document returns the closed part of the flow as a flow:flow document.
// Half-open and unacknowledged edges are never part of it.
func (f *Flow) Document() Document {
	doc := Document{
		ID:      f.ID,
		Name:    f.Name,
		Graph:   f.Graph,
		Library: f.Library,
		Nodes:   make([]*NodePayload, 0, len(f.Nodes)),
		Edges:   make([]*EdgePayload, 0, len(f.Edges)),
		Groups:  make([]*GroupPayload, 0, len(f.Groups)),
	}
	for _, n := range f.Nodes {
		p := n.Payload()
		p.InPorts = instantiatePorts(n.InPorts, n.ID, In)
		p.OutPorts = instantiatePorts(n.OutPorts, n.ID, Out)
		doc.Nodes = append(doc.Nodes, &p)
	}
	for _, e := range f.Edges {
		if !e.Closed() {
			continue
		}
		p := BuildPayloadForEdge(e)
		doc.Edges = append(doc.Edges, &p)
	}
	for _, g := range f.Groups {
		p := g.Payload()
		doc.Groups = append(doc.Groups, &p)
	}
	return doc
}

// IndexOfNode returns the position of the node with the given id, or -1.
func (f *Flow) IndexOfNode(id string) int {
	for i, n := range f.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// IndexOfEdge returns the position of the edge with the given id, or -1.
func (f *Flow) IndexOfEdge(id string) int {
	for i, e := range f.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// IndexOfGroup returns the position of the group with the given id, or -1.
func (f *Flow) IndexOfGroup(id string) int {
	for i, g := range f.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with the given id, or nil.
func (f *Flow) Node(id string) *Node {
	if i := f.IndexOfNode(id); i >= 0 {
		return f.Nodes[i]
	}
	return nil
}

// Edge returns the confirmed edge with the given id, or nil.
func (f *Flow) Edge(id string) *Edge {
	if i := f.IndexOfEdge(id); i >= 0 {
		return f.Edges[i]
	}
	return nil
}

// Group returns the group with the given id, or nil.
func (f *Flow) Group(id string) *Group {
	if i := f.IndexOfGroup(id); i >= 0 {
		return f.Groups[i]
	}
	return nil
}

// AddNode inserts n if no node shares its id, and reports whether it did.
// Edges that already reference n are attached to its ports.
func (f *Flow) AddNode(n *Node) bool {
	if f.IndexOfNode(n.ID) >= 0 {
		return false
	}
	f.Nodes = append(f.Nodes, n)
	for _, e := range f.Edges {
		if (e.Src != nil && e.Src.Node == n.ID) || (e.Tgt != nil && e.Tgt.Node == n.ID) {
			f.attach(e)
		}
	}
	return true
}

// RemoveNode removes the node with the given id. Edges referencing it are
// left in place.
func (f *Flow) RemoveNode(id string) (*Node, bool) {
	i := f.IndexOfNode(id)
	if i < 0 {
		return nil, false
	}
	n := f.Nodes[i]
	f.Nodes = append(f.Nodes[:i], f.Nodes[i+1:]...)
	return n, true
}

// ChangeNode replaces the metadata of the node with the given id.
func (f *Flow) ChangeNode(id string, m Metadata) (*Node, bool) {
	n := f.Node(id)
	if n == nil {
		return nil, false
	}
	n.SetMetadata(m)
	return n, true
}

// AddEdge inserts e unless an edge with the same id, or a closed edge with the
// same endpoints, is already present. It reports whether e was inserted.
func (f *Flow) AddEdge(e *Edge) bool {
	if f.IndexOfEdge(e.ID) >= 0 {
		return false
	}
	if e.Closed() && f.FindEdge(e.Src, e.Tgt) != nil {
		return false
	}
	f.Edges = append(f.Edges, e)
	f.BindCell(e)
	f.attach(e)
	return true
}

// RemoveEdge removes the edge with the given id and its port references.
func (f *Flow) RemoveEdge(id string) (*Edge, bool) {
	i := f.IndexOfEdge(id)
	if i < 0 {
		return nil, false
	}
	e := f.Edges[i]
	f.detach(e)
	f.Edges = append(f.Edges[:i], f.Edges[i+1:]...)
	f.UnbindCell(id)
	return e, true
}

// ChangeEdge overwrites the endpoints and metadata of the edge with the
// given id.
func (f *Flow) ChangeEdge(id string, src, tgt *Endpoint, m Metadata) (*Edge, bool) {
	e := f.Edge(id)
	if e == nil {
		return nil, false
	}
	f.detach(e)
	e.Src = src.Clone()
	e.Tgt = tgt.Clone()
	e.Metadata = m.Clone()
	f.attach(e)
	return e, true
}

// FindEdge returns the confirmed edge connecting src to tgt, or nil.
func (f *Flow) FindEdge(src, tgt *Endpoint) *Edge {
	for _, e := range f.Edges {
		if e.Src.Equal(src) && e.Tgt.Equal(tgt) {
			return e
		}
	}
	return nil
}

// EdgeExists reports whether a confirmed edge connects src to tgt.
func (f *Flow) EdgeExists(src, tgt *Endpoint) bool {
	return f.FindEdge(src, tgt) != nil
}

// AddGroup inserts g if no group shares its id.
func (f *Flow) AddGroup(g *Group) bool {
	if f.IndexOfGroup(g.ID) >= 0 {
		return false
	}
	f.Groups = append(f.Groups, g)
	return true
}

// RemoveGroup removes the group with the given id.
func (f *Flow) RemoveGroup(id string) (*Group, bool) {
	i := f.IndexOfGroup(id)
	if i < 0 {
		return nil, false
	}
	g := f.Groups[i]
	f.Groups = append(f.Groups[:i], f.Groups[i+1:]...)
	return g, true
}

// BindCell records e in the cell index under its id.
func (f *Flow) BindCell(e *Edge) {
	if f.cells == nil {
		f.cells = make(map[string]*Edge)
	}
	f.cells[e.ID] = e
}

// UnbindCell removes id from the cell index.
func (f *Flow) UnbindCell(id string) {
	delete(f.cells, id)
}

// Cell returns the edge indexed under id, acknowledged or not.
func (f *Flow) Cell(id string) *Edge {
	return f.cells[id]
}

// Port resolves an endpoint to a port of the given kind.
func (f *Flow) Port(ep *Endpoint, kind PortKind) *Port {
	if !ep.Valid() {
		return nil
	}
	n := f.Node(ep.Node)
	if n == nil {
		return nil
	}
	return n.Port(kind, ep.Port)
}

// AttachEndpoint records edgeID on the port designated by ep.
func (f *Flow) AttachEndpoint(edgeID string, ep *Endpoint, kind PortKind) {
	if p := f.Port(ep, kind); p != nil {
		p.attach(edgeID)
	}
}

func (f *Flow) attach(e *Edge) {
	f.AttachEndpoint(e.ID, e.Src, Out)
	f.AttachEndpoint(e.ID, e.Tgt, In)
}

// DetachEdge removes the port references held for e.
func (f *Flow) DetachEdge(e *Edge) {
	f.detach(e)
}

func (f *Flow) detach(e *Edge) {
	if p := f.Port(e.Src, Out); p != nil {
		p.detach(e.ID)
	}
	if p := f.Port(e.Tgt, In); p != nil {
		p.detach(e.ID)
	}
}

// EdgesOf returns the confirmed edges touching the node.
func (f *Flow) EdgesOf(nodeID string) []*Edge {
	var res []*Edge
	for _, e := range f.Edges {
		if (e.Src != nil && e.Src.Node == nodeID) || (e.Tgt != nil && e.Tgt.Node == nodeID) {
			res = append(res, e)
		}
	}
	return res
}

// PreviousNodes returns the nodes feeding into nodeID.
func (f *Flow) PreviousNodes(nodeID string) []*Node {
	var res []*Node
	for _, e := range f.Edges {
		if !e.Closed() || e.Tgt.Node != nodeID {
			continue
		}
		if n := f.Node(e.Src.Node); n != nil && !containsNode(res, n.ID) {
			res = append(res, n)
		}
	}
	return res
}

// NextNodes returns the nodes fed by nodeID.
func (f *Flow) NextNodes(nodeID string) []*Node {
	var res []*Node
	for _, e := range f.Edges {
		if !e.Closed() || e.Src.Node != nodeID {
			continue
		}
		if n := f.Node(e.Tgt.Node); n != nil && !containsNode(res, n.ID) {
			res = append(res, n)
		}
	}
	return res
}

// Merge folds other into f. Scalar fields are taken from other when set;
// nodes, edges and groups are added only when their id is not already
// present, so local state survives a refresh.
func (f *Flow) Merge(other *Flow) {
	if other.ID != "" {
		f.ID = other.ID
	}
	if other.Name != "" {
		f.Name = other.Name
	}
	if other.Graph != "" {
		f.Graph = other.Graph
	}
	if other.Library != "" {
		f.Library = other.Library
	}
	for _, n := range other.Nodes {
		f.AddNode(n)
	}
	for _, e := range other.Edges {
		f.AddEdge(e)
	}
	for _, g := range other.Groups {
		f.AddGroup(g)
	}
}

// CheckPortRefs compares every port's edge references with the edges that
// actually terminate on it and describes each mismatch.
func (f *Flow) CheckPortRefs() []string {
	expected := make(map[*Port][]string)
	for _, e := range f.Edges {
		if p := f.Port(e.Src, Out); p != nil {
			expected[p] = append(expected[p], e.ID)
		}
		if p := f.Port(e.Tgt, In); p != nil {
			expected[p] = append(expected[p], e.ID)
		}
	}

	var drift []string
	for _, n := range f.Nodes {
		for _, p := range append(append([]*Port{}, n.InPorts...), n.OutPorts...) {
			want := expected[p]
			if !sameIDs(want, p.ConnectedEdgeIDs) {
				drift = append(drift, fmt.Sprintf("%s.%s(%s): have %v, want %v",
					n.ID, p.ID, p.Kind, p.ConnectedEdgeIDs, want))
			}
		}
	}
	return drift
}

// Validate checks that every closed edge references existing nodes, and
// existing ports on nodes whose ports are known.
func (f *Flow) Validate() error {
	for _, e := range f.Edges {
		if !e.Closed() {
			continue
		}
		if err := f.checkEndpoint(e, e.Src, Out); err != nil {
			return err
		}
		if err := f.checkEndpoint(e, e.Tgt, In); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) checkEndpoint(e *Edge, ep *Endpoint, kind PortKind) error {
	n := f.Node(ep.Node)
	if n == nil {
		return fmt.Errorf("edge %s: node %s: %w", e.ID, ep.Node, ErrDanglingReference)
	}
	if n.HasPorts() && n.Port(kind, ep.Port) == nil {
		return fmt.Errorf("edge %s: %s port %s: %w", e.ID, kind, ep, ErrDanglingReference)
	}
	return nil
}

func containsNode(nodes []*Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}
