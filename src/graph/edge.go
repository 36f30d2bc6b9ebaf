package graph

import "fmt"

// Endpoint designates one port of one node.
type Endpoint struct {
	Node string `json:"node"`
	Port string `json:"port"`
}

// Valid reports whether both node and port are set.
func (e *Endpoint) Valid() bool {
	return e != nil && e.Node != "" && e.Port != ""
}

// Equal compares two endpoints by value. Two nil endpoints are equal.
func (e *Endpoint) Equal(o *Endpoint) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Node == o.Node && e.Port == o.Port
}

// String returns node.port.
func (e *Endpoint) String() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s.%s", e.Node, e.Port)
}

// Clone returns a copy of e, or nil when e is not valid.
func (e *Endpoint) Clone() *Endpoint {
	if !e.Valid() {
		return nil
	}
	c := *e
	return &c
}

// Edge is a directed connection from an output port to an input port. Either
// endpoint may be missing while the edge is half-open.
type Edge struct {
	ID       string
	Graph    string
	Metadata Metadata
	Src      *Endpoint
	Tgt      *Endpoint
}

// NewEdge builds an edge. Invalid endpoints are treated as missing.
func NewEdge(id, graph string, src, tgt *Endpoint, metadata Metadata) *Edge {
	return &Edge{
		ID:       id,
		Graph:    graph,
		Metadata: metadata.Clone(),
		Src:      src.Clone(),
		Tgt:      tgt.Clone(),
	}
}

// EdgeFromPayload builds an edge from a graph edge command payload. It fails
// with ErrInvalidEdge when both endpoints are missing, which is a contract
// violation by the runtime.
func EdgeFromPayload(p EdgePayload) (*Edge, error) {
	e := NewEdge(p.ID, p.Graph, p.Src, p.Tgt, p.Metadata)
	if e.Src == nil && e.Tgt == nil {
		return nil, fmt.Errorf("edge %q: %w", p.ID, ErrInvalidEdge)
	}
	return e, nil
}

// BuildPayloadForEdge packages the public fields of an edge.
func BuildPayloadForEdge(e *Edge) EdgePayload {
	return EdgePayload{
		ID:       e.ID,
		Graph:    e.Graph,
		Metadata: e.Metadata.Clone(),
		Src:      e.Src.Clone(),
		Tgt:      e.Tgt.Clone(),
	}
}

// HalfOpen reports whether exactly one endpoint is known.
func (e *Edge) HalfOpen() bool {
	return (e.Src == nil) != (e.Tgt == nil)
}

// Closed reports whether both endpoints are known.
func (e *Edge) Closed() bool {
	return e.Src != nil && e.Tgt != nil
}

// SelfLoop reports whether the edge starts and ends on the same node and
// port.
func (e *Edge) SelfLoop() bool {
	return e.Closed() && e.Src.Node == e.Tgt.Node && e.Src.Port == e.Tgt.Port
}

// SameEnds reports whether both edges connect the same endpoints.
func (e *Edge) SameEnds(o *Edge) bool {
	return e.Closed() && o.Closed() && e.Src.Equal(o.Src) && e.Tgt.Equal(o.Tgt)
}

// Clone returns a copy sharing nothing with e.
func (e *Edge) Clone() *Edge {
	return NewEdge(e.ID, e.Graph, e.Src, e.Tgt, e.Metadata)
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s(%s -> %s)", e.ID, e.Src, e.Tgt)
}
