package store

import (
	"github.com/mosaicnetworks/flowsync/src/graph"
)

// FlowStore keeps the last saved snapshot of each workspace's flow. Only the
// closed part of a flow is ever saved.
type FlowStore interface {
	Save(workspace string, doc graph.Document) error
	Load(workspace string) (graph.Document, error)
	Workspaces() ([]string, error)
	Close() error
	StorePath() string
}
