package protocol

// Protocol identifies an FBP-NP subprotocol.
type Protocol string

// Subprotocols understood by the client.
const (
	Graph        Protocol = "graph"
	Network      Protocol = "network"
	Component    Protocol = "component"
	Trace        Protocol = "trace"
	FileExplorer Protocol = "fileexplorer"
	Runtime      Protocol = "runtime"
	Flow         Protocol = "flow"
)

// Known reports whether p belongs to the enumerated set of subprotocols.
func (p Protocol) Known() bool {
	switch p {
	case Graph, Network, Component, Trace, FileExplorer, Runtime, Flow:
		return true
	default:
		return false
	}
}

// Commands of the graph subprotocol.
const (
	AddNode     = "addnode"
	RemoveNode  = "removenode"
	ChangeNode  = "changenode"
	AddEdge     = "addedge"
	RemoveEdge  = "removeedge"
	ChangeEdge  = "changeedge"
	AddGroup    = "addgroup"
	RemoveGroup = "removegroup"
	RenameGroup = "renamegroup"
	ChangeGroup = "changegroup"
)

// Commands of the network subprotocol.
const (
	GetStatus  = "getstatus"
	Status     = "status"
	Start      = "start"
	Started    = "started"
	Stop       = "stop"
	Stopped    = "stopped"
	Output     = "output"
	Error      = "error"
	Persist    = "persist"
	StartNode  = "startnode"
	FinishNode = "finishnode"
)

// Commands of the component subprotocol.
const (
	List            = "list"
	ComponentCmd    = "component"
	ComponentsReady = "componentsready"
)

// Commands of the trace, fileexplorer and flow subprotocols.
const (
	NodeTraceback = "nodetraceback"
	GetNodes      = "getnodes"
	UpdateNodes   = "updatenodes"
	FlowCmd       = "flow"
)
