package graph

// PortKind tells input ports from output ports.
type PortKind string

// Port kinds.
const (
	In  PortKind = "in"
	Out PortKind = "out"
)

// Port is a named connection point on a node. It does not own edges; it keeps
// the ids of the edges currently terminating on it.
type Port struct {
	ID               string   `json:"id"`
	PublicName       string   `json:"publicName,omitempty"`
	Kind             PortKind `json:"kind,omitempty"`
	Description      string   `json:"description,omitempty"`
	Node             string   `json:"node,omitempty"`
	Metadata         Metadata `json:"metadata,omitempty"`
	ConnectedEdgeIDs []string `json:"edges,omitempty"`
}

// Name returns the public name of the port, falling back to its id.
func (p *Port) Name() string {
	if p.PublicName != "" {
		return p.PublicName
	}
	return p.ID
}

// Connected reports whether edgeID terminates on this port.
func (p *Port) Connected(edgeID string) bool {
	for _, id := range p.ConnectedEdgeIDs {
		if id == edgeID {
			return true
		}
	}
	return false
}

// attach records edgeID, keeping insertion order and ignoring duplicates.
func (p *Port) attach(edgeID string) {
	if !p.Connected(edgeID) {
		p.ConnectedEdgeIDs = append(p.ConnectedEdgeIDs, edgeID)
	}
}

func (p *Port) detach(edgeID string) {
	for i, id := range p.ConnectedEdgeIDs {
		if id == edgeID {
			p.ConnectedEdgeIDs = append(p.ConnectedEdgeIDs[:i], p.ConnectedEdgeIDs[i+1:]...)
			return
		}
	}
}

// instantiate copies a template port onto the node identified by nodeID.
// Edge back-references are not copied.
func (p *Port) instantiate(nodeID string, kind PortKind) *Port {
	return &Port{
		ID:          p.ID,
		PublicName:  p.PublicName,
		Kind:        kind,
		Description: p.Description,
		Node:        nodeID,
		Metadata:    p.Metadata.Clone(),
	}
}

func instantiatePorts(ports []*Port, nodeID string, kind PortKind) []*Port {
	res := make([]*Port, 0, len(ports))
	for _, p := range ports {
		if p == nil {
			continue
		}
		res = append(res, p.instantiate(nodeID, kind))
	}
	return res
}
