// Package store persists snapshots of flow documents.
//
// A snapshot is taken when the runtime sends its flow document and when it
// acknowledges a persist request. Snapshots never contain half-open or
// unacknowledged edges. InmemStore keeps them in memory; BadgerStore keeps
// them in a Badger database, keyed by workspace.
package store
