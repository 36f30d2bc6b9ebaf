package events

import (
	"github.com/mosaicnetworks/flowsync/src/graph"
)

// Kind enumerates notifications.
type Kind uint8

// Notification kinds.
const (
	NodeAdded Kind = iota + 1
	NodeRemoved
	NodeChanged
	EdgeAdded
	EdgeRemoved
	EdgeUpdated
	EdgeRejected
	BlockNameChanged
	GroupAdded
	GroupRemoved
	GroupChanged
	FlowLoaded
	ComponentAdded
	ComponentsReady
	Ready
	NetworkStatus
	NetworkStarted
	NetworkStopped
	NodeStarted
	NodeFinished
	RuntimeOutput
	RuntimeError
	Persisted
	Traceback
	FileTree
	ConnectionStatus
)

var kindNames = map[Kind]string{
	NodeAdded:        "NodeAdded",
	NodeRemoved:      "NodeRemoved",
	NodeChanged:      "NodeChanged",
	EdgeAdded:        "EdgeAdded",
	EdgeRemoved:      "EdgeRemoved",
	EdgeUpdated:      "EdgeUpdated",
	EdgeRejected:     "EdgeRejected",
	BlockNameChanged: "BlockNameChanged",
	GroupAdded:       "GroupAdded",
	GroupRemoved:     "GroupRemoved",
	GroupChanged:     "GroupChanged",
	FlowLoaded:       "FlowLoaded",
	ComponentAdded:   "ComponentAdded",
	ComponentsReady:  "ComponentsReady",
	Ready:            "Ready",
	NetworkStatus:    "NetworkStatus",
	NetworkStarted:   "NetworkStarted",
	NetworkStopped:   "NetworkStopped",
	NodeStarted:      "NodeStarted",
	NodeFinished:     "NodeFinished",
	RuntimeOutput:    "RuntimeOutput",
	RuntimeError:     "RuntimeError",
	Persisted:        "Persisted",
	Traceback:        "Traceback",
	FileTree:         "FileTree",
	ConnectionStatus: "ConnectionStatus",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Status is the running state of one network as reported by the runtime.
type Status struct {
	Graph   string  `json:"graph"`
	Running bool    `json:"running"`
	Started bool    `json:"started"`
	Debug   bool    `json:"debug"`
	Uptime  float64 `json:"uptime,omitempty"`
}

// Notification is one change reported to the view layer. Only the fields
// relevant to Kind are set.
type Notification struct {
	Kind      Kind
	Workspace string
	Graph     string

	Node      *graph.Node
	Edge      *graph.Edge
	Group     *graph.Group
	Component *graph.Component

	// NodeID designates the node of NodeStarted, NodeFinished and
	// NodeRemoved when the node itself is unknown.
	NodeID string

	Status *Status

	// Message carries user-visible text. Blocking marks messages that must
	// be acknowledged by the user.
	Message  string
	Blocking bool
	Err      error

	Connected bool
	State     string

	Data interface{}
}

// Sink consumes notifications.
type Sink interface {
	Notify(n Notification)
}
