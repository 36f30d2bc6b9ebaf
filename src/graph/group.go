package graph

// Group is a named selection of nodes. Members are referenced by node id.
type Group struct {
	ID       string
	Name     string
	Metadata Metadata
	Graph    string
	Nodes    []string
}

// NewGroup builds a group from a payload. The name doubles as id when the
// payload carries none.
func NewGroup(p GroupPayload) *Group {
	id := p.ID
	if id == "" {
		id = p.Name
	}
	nodes := make([]string, len(p.Nodes))
	copy(nodes, p.Nodes)
	return &Group{
		ID:       id,
		Name:     p.Name,
		Metadata: p.Metadata.Clone(),
		Graph:    p.Graph,
		Nodes:    nodes,
	}
}

// Contains reports whether the node belongs to the group.
func (g *Group) Contains(nodeID string) bool {
	for _, id := range g.Nodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

// Payload returns the public fields of the group.
func (g *Group) Payload() GroupPayload {
	nodes := make([]string, len(g.Nodes))
	copy(nodes, g.Nodes)
	return GroupPayload{
		ID:       g.ID,
		Name:     g.Name,
		Nodes:    nodes,
		Metadata: g.Metadata.Clone(),
		Graph:    g.Graph,
	}
}
