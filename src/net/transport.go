package net

import (
	"context"
	"errors"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrNotOpen is returned by Send when there is no open connection.
	ErrNotOpen = errors.New("transport not open")
)

// Close codes.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseAbnormal  = 1006
)

// EventKind tells transport events apart.
type EventKind uint8

// Transport event kinds.
const (
	MessageEvent EventKind = iota + 1
	ErrorEvent
	CloseEvent
)

// Event is something that happened on the connection.
type Event struct {
	Kind EventKind
	Data []byte
	Code int
	Err  error
}

// Transport provides an interface for message transports to allow the
// client to communicate with a runtime.
type Transport interface {

	// Dial opens a connection to address, negotiating subprotocol. A
	// previous connection, if any, is released first.
	Dial(ctx context.Context, address, subprotocol string) error

	// Send transmits one message. It fails with ErrNotOpen when the
	// connection is not open.
	Send(data []byte) error

	// Consumer returns the channel on which incoming events are published.
	Consumer() <-chan Event

	// State returns the state of the current connection.
	State() State

	// Close requests the closure of the current connection. The transport
	// can be dialled again afterwards.
	Close() error

	// Shutdown permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Shutdown() error
}
