package graph

// NodePayload is the payload of graph:addnode, graph:removenode and
// graph:changenode.
type NodePayload struct {
	ID        string   `json:"id"`
	Component string   `json:"component,omitempty"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Graph     string   `json:"graph"`
	InPorts   []*Port  `json:"inPorts,omitempty"`
	OutPorts  []*Port  `json:"outPorts,omitempty"`
}

// EdgePayload is the payload of graph:addedge, graph:removeedge and
// graph:changeedge.
type EdgePayload struct {
	ID       string    `json:"id"`
	Graph    string    `json:"graph"`
	Metadata Metadata  `json:"metadata"`
	Src      *Endpoint `json:"src,omitempty"`
	Tgt      *Endpoint `json:"tgt,omitempty"`
}

// GroupPayload is the payload of graph:addgroup, graph:removegroup and
// graph:changegroup.
type GroupPayload struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Nodes    []string `json:"nodes,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
	Graph    string   `json:"graph"`
}

// RenameGroupPayload is the payload of graph:renamegroup.
type RenameGroupPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Graph string `json:"graph"`
}

// ComponentPayload is the payload of component:component. Port lists arrive
// as JSON-encoded strings.
type ComponentPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subgraph    bool   `json:"subgraph"`
	InPorts     string `json:"inPorts"`
	OutPorts    string `json:"outPorts"`
}

// Document is the full graph carried by flow:flow.
type Document struct {
	ID      string          `json:"id"`
	Name    string          `json:"name,omitempty"`
	Graph   string          `json:"graph,omitempty"`
	Library string          `json:"library,omitempty"`
	Nodes   []*NodePayload  `json:"nodes"`
	Edges   []*EdgePayload  `json:"edges"`
	Groups  []*GroupPayload `json:"groups"`
}
