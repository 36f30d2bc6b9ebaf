package net

import "sync/atomic"

// State captures the state of a transport connection: Closed, Connecting,
// Open or Closing.
type State uint32

const (
	// Closed is the initial state, and the state after the connection was
	// lost or closed.
	Closed State = iota

	// Connecting is the state during the opening handshake.
	Connecting

	// Open is the state in which messages can be sent and received.
	Open

	// Closing is the state after a local close request, until the
	// connection is torn down.
	Closing
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Connecting:
		return "Connecting"
	case Open:
		return "Open"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// StateManager wraps a State with atomic get and set methods.
type StateManager struct {
	state State
}

// Get returns the current state.
func (b *StateManager) Get() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// Set sets the state.
func (b *StateManager) Set(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Swap sets the state to s if it is currently old, and reports whether it
// did.
func (b *StateManager) Swap(old, s State) bool {
	stateAddr := (*uint32)(&b.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(old), uint32(s))
}
