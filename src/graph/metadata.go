package graph

// Metadata is the free-form mutation surface of nodes, edges and groups.
type Metadata map[string]interface{}

// Clone returns a shallow copy. Cloning a nil Metadata yields an empty one.
func (m Metadata) Clone() Metadata {
	res := make(Metadata, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

// String returns the value under key if it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}
