package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/sirupsen/logrus"
)

const flowPrefix = "flow"

// BadgerStore implements the FlowStore interface with a Badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens, or creates, the database at path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	if logger != nil {
		opts.Logger = logger
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

//==============================================================================
//Keys

func flowKey(workspace string) []byte {
	return []byte(fmt.Sprintf("%s_%s", flowPrefix, workspace))
}

func workspaceFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), flowPrefix+"_")
}

//==============================================================================
//Implement the FlowStore interface

// Save implements FlowStore.
func (s *BadgerStore) Save(workspace string, doc graph.Document) error {
	val, err := protocol.Marshal(doc)
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(flowKey(workspace), val); err != nil {
		return err
	}

	return tx.Commit()
}

// Load implements FlowStore.
func (s *BadgerStore) Load(workspace string) (graph.Document, error) {
	var doc graph.Document
	var val []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(flowKey(workspace))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if isDBKeyNotFound(err) {
			return doc, cm.NewStoreErr("Flow", cm.KeyNotFound, workspace)
		}
		return doc, err
	}

	err = protocol.Unmarshal(val, &doc)
	return doc, err
}

// Workspaces implements FlowStore.
func (s *BadgerStore) Workspaces() ([]string, error) {
	var res []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(flowPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			res = append(res, workspaceFromKey(it.Item().KeyCopy(nil)))
		}
		return nil
	})

	return res, err
}

// Close implements FlowStore.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements FlowStore.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}
