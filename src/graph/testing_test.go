package graph

func testLibrary() *Library {
	lib := NewLibrary()
	lib.Register(&Component{
		Name:     "Repeat",
		InPorts:  []*Port{{ID: "in", Kind: In}},
		OutPorts: []*Port{{ID: "out", Kind: Out}},
	})
	lib.Register(&Component{
		Name:     "Merge",
		InPorts:  []*Port{{ID: "in1", Kind: In}, {ID: "in2", Kind: In}},
		OutPorts: []*Port{{ID: "out", Kind: Out}},
	})
	return lib
}

func node(id, component string, lib *Library) *Node {
	return NewNode(NodePayload{ID: id, Component: component, Graph: "main"}, lib)
}

func ep(node, port string) *Endpoint {
	return &Endpoint{Node: node, Port: port}
}
