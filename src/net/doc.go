// Package net implements the transports used to talk to an FBP runtime.
//
// A Transport carries whole text messages over a single full-duplex
// connection. Incoming traffic is not returned from a blocking call; it is
// published on the Consumer channel as Events (a message, a transport error,
// or the closure of the connection together with its close code), so that
// the connection manager can multiplex it with everything else it reacts to
// in a single loop.
//
// There are two implementations:
//
// - Websocket: the production transport, based on gorilla/websocket. The
// workspace id is negotiated as the websocket subprotocol.
//
// - Inmem: a scripted transport used for testing. It records what is sent,
// lets tests inject messages and close codes, and can be told to fail dials.
//
// # Close codes
//
// Close codes follow RFC 6455. Only CloseAbnormal (1006, the connection was
// dropped without a close frame) is considered a reason to reconnect; a
// closure requested locally is always reported as CloseNormal.
package net
