// Package session holds the state of one workspace connection.
//
// A Session is created explicitly and handed to the connection manager, the
// protocol dispatcher and the graph controller; there is no global instance.
// Connect starts a connection lifecycle and Clear tears it down.
//
// The session owns the ready gate: once a view listens, a Flow is loaded and
// the runtime has sent both its component list and its flow document, a
// single Ready notification is published and the channel returned by Ready
// is closed. The gate fires exactly once until the session is cleared,
// whatever the order in which the conditions become true.
package session
