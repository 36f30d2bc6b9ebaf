// Package conn implements the connection manager.
//
// The Manager owns the transport of one workspace session and runs the only
// goroutine that touches the session. Transport events, user intents and
// timer firings are funnelled into its loop, so the Flow and the controller's
// waiting maps need no locking.
//
// Connecting negotiates the workspace id as the transport subprotocol. Once
// the connection is open the manager requests the component list and the
// file tree, then flushes whatever was sent while the connection was not
// open.
//
// An abnormal closure (close code 1006) triggers reconnection. Each attempt
// is followed by a fixed wait, after which the transport state is checked
// again; after MaxReconnectAttempts failed attempts the manager gives up and
// marks the session disconnected. Any other close code, and transport
// errors, never trigger reconnection.
package conn
