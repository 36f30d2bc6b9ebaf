package store

import (
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
)

// InmemStore implements the FlowStore interface with an in-memory map.
// Snapshots are kept encoded so that callers never share memory with the
// store.
type InmemStore struct {
	mu     sync.RWMutex
	flows  map[string][]byte
	closed bool
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		flows: make(map[string][]byte),
	}
}

// Save implements FlowStore.
func (s *InmemStore) Save(workspace string, doc graph.Document) error {
	data, err := protocol.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cm.NewStoreErr("Flow", cm.Closed, workspace)
	}
	s.flows[workspace] = data
	return nil
}

// Load implements FlowStore.
func (s *InmemStore) Load(workspace string) (graph.Document, error) {
	s.mu.RLock()
	data, ok := s.flows[workspace]
	s.mu.RUnlock()

	var doc graph.Document
	if !ok {
		return doc, cm.NewStoreErr("Flow", cm.KeyNotFound, workspace)
	}
	err := protocol.Unmarshal(data, &doc)
	return doc, err
}

// Workspaces implements FlowStore.
func (s *InmemStore) Workspaces() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]string, 0, len(s.flows))
	for w := range s.flows {
		res = append(res, w)
	}
	sort.Strings(res)
	return res, nil
}

// Close implements FlowStore.
func (s *InmemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// StorePath implements FlowStore.
func (s *InmemStore) StorePath() string {
	return ""
}
