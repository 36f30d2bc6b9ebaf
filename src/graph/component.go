package graph

import (
	"fmt"
	"strings"

	"github.com/mosaicnetworks/flowsync/src/protocol"
)

// Component is a reusable node template with a fixed port signature.
type Component struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Subgraph    bool    `json:"subgraph"`
	InPorts     []*Port `json:"inPorts"`
	OutPorts    []*Port `json:"outPorts"`
}

// ComponentName strips a library prefix such as "core/" from a component
// name.
func ComponentName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ComponentFromPayload parses a component:component payload. The port lists
// are JSON documents embedded as strings; an empty string means no ports.
func ComponentFromPayload(p ComponentPayload) (*Component, error) {
	c := &Component{
		Name:        ComponentName(p.Name),
		Description: p.Description,
		Subgraph:    p.Subgraph,
	}

	var err error
	if c.InPorts, err = parsePorts(p.InPorts, In); err != nil {
		return nil, fmt.Errorf("component %s inPorts: %v", c.Name, err)
	}
	if c.OutPorts, err = parsePorts(p.OutPorts, Out); err != nil {
		return nil, fmt.Errorf("component %s outPorts: %v", c.Name, err)
	}

	return c, nil
}

func parsePorts(raw string, kind PortKind) ([]*Port, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ports []*Port
	if err := protocol.Unmarshal([]byte(raw), &ports); err != nil {
		return nil, err
	}
	res := ports[:0]
	for _, p := range ports {
		if p == nil {
			continue
		}
		p.Kind = kind
		res = append(res, p)
	}
	return res, nil
}

// Library is the name -> Component registry announced by the runtime.
type Library struct {
	components map[string]*Component
	names      []string
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{
		components: make(map[string]*Component),
	}
}

// Register adds c unless a component with the same name is already known.
// It reports whether c was added.
func (l *Library) Register(c *Component) bool {
	name := ComponentName(c.Name)
	if _, ok := l.components[name]; ok {
		return false
	}
	l.components[name] = c
	l.names = append(l.names, name)
	return true
}

// Get returns the component registered under name, prefix ignored. It is safe
// to call on a nil Library.
func (l *Library) Get(name string) *Component {
	if l == nil {
		return nil
	}
	return l.components[ComponentName(name)]
}

// Len returns the number of registered components.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// List returns the components in registration order.
func (l *Library) List() []*Component {
	if l == nil {
		return nil
	}
	res := make([]*Component, 0, len(l.names))
	for _, n := range l.names {
		res = append(res, l.components[n])
	}
	return res
}
