package graph

// Well-known metadata keys.
const (
	MetaName      = "name"
	MetaCode      = "code"
	MetaLanguage  = "language"
	MetaResult    = "result"
	MetaTraceback = "traceback"
)

// Node is one instantiated component within a graph.
type Node struct {
	ID        string
	Component string
	Graph     string
	Metadata  Metadata
	InPorts   []*Port
	OutPorts  []*Port
}

// NewNode builds a node from a payload. Ports come from the payload when it
// carries any, otherwise they are copied from the component template found in
// lib. lib may be nil.
func NewNode(p NodePayload, lib *Library) *Node {
	n := &Node{
		ID:        p.ID,
		Component: p.Component,
		Graph:     p.Graph,
		Metadata:  p.Metadata.Clone(),
	}

	if len(p.InPorts) > 0 || len(p.OutPorts) > 0 {
		n.InPorts = instantiatePorts(p.InPorts, n.ID, In)
		n.OutPorts = instantiatePorts(p.OutPorts, n.ID, Out)
		return n
	}

	if c := lib.Get(p.Component); c != nil {
		n.InPorts = instantiatePorts(c.InPorts, n.ID, In)
		n.OutPorts = instantiatePorts(c.OutPorts, n.ID, Out)
	}

	return n
}

// Name returns the display name stored in metadata.
func (n *Node) Name() string {
	return n.Metadata.String(MetaName)
}

// SetMetadata replaces the metadata wholesale.
func (n *Node) SetMetadata(m Metadata) {
	n.Metadata = m.Clone()
}

// Set changes a single metadata entry.
func (n *Node) Set(key string, value interface{}) {
	if n.Metadata == nil {
		n.Metadata = Metadata{}
	}
	n.Metadata[key] = value
}

// Result returns the cached output data of the named output, if any.
func (n *Node) Result(output string) (interface{}, bool) {
	res, ok := n.Metadata[MetaResult].(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := res[output]
	return v, ok
}

// Traceback returns the last traceback reported by the runtime.
func (n *Node) Traceback() []string {
	switch tb := n.Metadata[MetaTraceback].(type) {
	case []string:
		return tb
	case []interface{}:
		res := make([]string, 0, len(tb))
		for _, l := range tb {
			if s, ok := l.(string); ok {
				res = append(res, s)
			}
		}
		return res
	default:
		return nil
	}
}

// InPort returns the input port with the given id.
func (n *Node) InPort(id string) *Port {
	return findPort(n.InPorts, id)
}

// OutPort returns the output port with the given id.
func (n *Node) OutPort(id string) *Port {
	return findPort(n.OutPorts, id)
}

// Port returns the port of the given kind and id.
func (n *Node) Port(kind PortKind, id string) *Port {
	if kind == Out {
		return n.OutPort(id)
	}
	return n.InPort(id)
}

// HasPorts reports whether the node's port signature is known.
func (n *Node) HasPorts() bool {
	return len(n.InPorts) > 0 || len(n.OutPorts) > 0
}

// Payload returns the public fields sent with graph node commands.
func (n *Node) Payload() NodePayload {
	return NodePayload{
		ID:        n.ID,
		Component: n.Component,
		Metadata:  n.Metadata.Clone(),
		Graph:     n.Graph,
	}
}

func findPort(ports []*Port, id string) *Port {
	for _, p := range ports {
		if p.ID == id {
			return p
		}
	}
	return nil
}
