package graph

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const jsonLibraryPath = "components.json"

// JSONLibrary persists a component Library to a JSON file so that an editor
// can be populated before the runtime has announced its components.
type JSONLibrary struct {
	l    sync.Mutex
	path string
}

// NewJSONLibrary creates a JSONLibrary with reference to a base directory
// where the JSON file resides.
func NewJSONLibrary(base string) *JSONLibrary {
	return &JSONLibrary{
		path: filepath.Join(base, jsonLibraryPath),
	}
}

// Library parses the underlying JSON file and returns the corresponding
// Library.
func (j *JSONLibrary) Library() (*Library, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	lib := NewLibrary()

	if len(buf) == 0 {
		return lib, nil
	}

	var components []*Component
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&components); err != nil {
		return nil, err
	}

	for _, c := range components {
		for _, p := range c.InPorts {
			p.Kind = In
		}
		for _, p := range c.OutPorts {
			p.Kind = Out
		}
		lib.Register(c)
	}

	return lib, nil
}

// Write persists a Library to the JSON file.
func (j *JSONLibrary) Write(lib *Library) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(lib.List()); err != nil {
		return err
	}

	return os.WriteFile(j.path, buf.Bytes(), 0644)
}
