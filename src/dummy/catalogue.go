package dummy

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// CatalogueComponent describes a component offered by the dummy runtime.
// Nodes of a component with a Traceback fail when the network runs.
type CatalogueComponent struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Subgraph    bool     `yaml:"subgraph"`
	InPorts     []string `yaml:"inports"`
	OutPorts    []string `yaml:"outports"`
	Traceback   []string `yaml:"traceback"`
}

// File is one entry of the flat file tree returned by fileexplorer:getnodes.
type File struct {
	Name   string `yaml:"name" json:"name"`
	Path   string `yaml:"path" json:"path"`
	Type   string `yaml:"type" json:"type"`
	Parent string `yaml:"parent" json:"parent,omitempty"`
}

// Catalogue is the static content of the dummy runtime.
type Catalogue struct {
	Components []CatalogueComponent `yaml:"components"`
	Files      []File               `yaml:"files"`
}

// DefaultCatalogue returns the built-in catalogue.
func DefaultCatalogue() *Catalogue {
	c, err := ParseCatalogue(defaultCatalogue)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalogue reads a YAML catalogue from path.
func LoadCatalogue(path string) (*Catalogue, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogue(buf)
}

// ParseCatalogue parses a YAML catalogue. Component names must be unique.
func ParseCatalogue(buf []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, comp := range c.Components {
		if comp.Name == "" {
			return nil, fmt.Errorf("catalogue: component without a name")
		}
		name := graph.ComponentName(comp.Name)
		if seen[name] {
			return nil, fmt.Errorf("catalogue: duplicate component %s", name)
		}
		seen[name] = true
	}

	return &c, nil
}

// Component returns the catalogue entry for name, with or without its
// library prefix.
func (c *Catalogue) Component(name string) *CatalogueComponent {
	name = graph.ComponentName(name)
	for i := range c.Components {
		if graph.ComponentName(c.Components[i].Name) == name {
			return &c.Components[i]
		}
	}
	return nil
}

// Library returns the components of the catalogue as a graph Library.
func (c *Catalogue) Library() *graph.Library {
	lib := graph.NewLibrary()
	for _, comp := range c.Components {
		lib.Register(&graph.Component{
			Name:        graph.ComponentName(comp.Name),
			Description: comp.Description,
			Subgraph:    comp.Subgraph,
			InPorts:     ports(comp.InPorts, graph.In),
			OutPorts:    ports(comp.OutPorts, graph.Out),
		})
	}
	return lib
}

// Payloads returns the component:component payloads of the catalogue, with
// port lists encoded as JSON strings.
func (c *Catalogue) Payloads() ([]graph.ComponentPayload, error) {
	res := make([]graph.ComponentPayload, 0, len(c.Components))
	for _, comp := range c.Components {
		in, err := protocol.Marshal(ports(comp.InPorts, ""))
		if err != nil {
			return nil, err
		}
		out, err := protocol.Marshal(ports(comp.OutPorts, ""))
		if err != nil {
			return nil, err
		}
		res = append(res, graph.ComponentPayload{
			Name:        comp.Name,
			Description: comp.Description,
			Subgraph:    comp.Subgraph,
			InPorts:     string(in),
			OutPorts:    string(out),
		})
	}
	return res, nil
}

func ports(names []string, kind graph.PortKind) []*graph.Port {
	res := make([]*graph.Port, 0, len(names))
	for _, n := range names {
		res = append(res, &graph.Port{ID: n, Kind: kind})
	}
	return res
}
