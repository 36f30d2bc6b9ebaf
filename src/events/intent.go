package events

import (
	"github.com/mosaicnetworks/flowsync/src/graph"
)

// Intent is something the user did in the editor.
type Intent interface {
	intent()
}

// LinkAddPartial reports a new visual link. While the user is still
// dragging, only one of Src and Tgt is set. A link arriving with both
// endpoints set is an existing edge being reconnected.
type LinkAddPartial struct {
	LinkID string
	Src    *graph.Endpoint
	Tgt    *graph.Endpoint
}

// LinkResolveSource reports that the source end of a link was dropped on a
// port.
type LinkResolveSource struct {
	LinkID string
	Src    *graph.Endpoint
}

// LinkResolveTarget reports that the target end of a link was dropped on a
// port.
type LinkResolveTarget struct {
	LinkID string
	Tgt    *graph.Endpoint
}

// LinkRemove reports that a visual link was deleted.
type LinkRemove struct {
	LinkID string
}

// NodeAdd asks for a new node instantiated from a component.
type NodeAdd struct {
	Component string
	Metadata  graph.Metadata
}

// NodeRemove reports that a block was deleted.
type NodeRemove struct {
	NodeID string
}

// NodeRename is one keystroke in a block's name field.
type NodeRename struct {
	NodeID string
	Name   string
}

// NodeCodeEdit is one keystroke in a block's code editor.
type NodeCodeEdit struct {
	NodeID string
	Code   string
}

// NodeMetadataChange replaces a node's metadata immediately.
type NodeMetadataChange struct {
	NodeID   string
	Metadata graph.Metadata
}

// ViewReady reports that the view layer finished mounting and listens.
type ViewReady struct{}

func (LinkAddPartial) intent()     {}
func (LinkResolveSource) intent()  {}
func (LinkResolveTarget) intent()  {}
func (LinkRemove) intent()         {}
func (NodeAdd) intent()            {}
func (NodeRemove) intent()         {}
func (NodeRename) intent()         {}
func (NodeCodeEdit) intent()       {}
func (NodeMetadataChange) intent() {}
func (ViewReady) intent()          {}
