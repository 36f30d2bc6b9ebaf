// Package dispatch routes decoded FBP-NP messages to subprotocol handlers.
//
// Routing happens at two levels. The Dispatcher selects a Handler by the
// envelope's protocol, and each Handler switches on the command. Neither
// level treats unrecognised input as an error: unknown protocols and
// commands are logged and ignored so that the connection survives runtimes
// that speak a newer dialect. Handlers likewise absorb dangling references
// and invalid payloads; nothing raised while handling a message reaches the
// connection manager.
//
// Handlers mutate the session's Flow, Library and status, and publish one
// notification per affected entity so the view can update incrementally.
package dispatch
