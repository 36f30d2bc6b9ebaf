package net

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NewInmemAddr returns a new in-memory address with a randomly generated
// UUID.
func NewInmemAddr() string {
	return "inmem://" + uuid.New().String()
}

// Responder computes the messages a fake runtime answers to an outgoing
// message.
type Responder func(data []byte) [][]byte

// InmemTransport implements the Transport interface, to allow the client to
// be tested in-memory without going over a network. Tests drive the remote
// side with Deliver, Drop and Fail.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan Event
	state      StateManager
	addr       string

	dials        int
	dialErrors   []error
	subprotocols []string
	sent         [][]byte
	responder    Responder

	shutdown   bool
	shutdownCh chan struct{}
}

// NewInmemTransport is used to initialize a new transport and generates a
// random address if none is specified.
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan Event, 1024),
		addr:       addr,
		shutdownCh: make(chan struct{}),
	}
	return addr, trans
}

// FailDials makes the next len(errs) dials fail with the given errors, in
// order.
func (i *InmemTransport) FailDials(errs ...error) {
	i.Lock()
	defer i.Unlock()
	i.dialErrors = append(i.dialErrors, errs...)
}

// SetResponder installs a function producing the answers to every sent
// message.
func (i *InmemTransport) SetResponder(r Responder) {
	i.Lock()
	defer i.Unlock()
	i.responder = r
}

// Dials returns the number of dial attempts so far.
func (i *InmemTransport) Dials() int {
	i.RLock()
	defer i.RUnlock()
	return i.dials
}

// Subprotocols returns the subprotocol requested by every dial.
func (i *InmemTransport) Subprotocols() []string {
	i.RLock()
	defer i.RUnlock()
	return append([]string(nil), i.subprotocols...)
}

// Sent returns a copy of all the messages sent so far.
func (i *InmemTransport) Sent() [][]byte {
	i.RLock()
	defer i.RUnlock()
	res := make([][]byte, len(i.sent))
	copy(res, i.sent)
	return res
}

// ResetSent forgets the messages sent so far.
func (i *InmemTransport) ResetSent() {
	i.Lock()
	defer i.Unlock()
	i.sent = nil
}

// Dial implements the Transport interface.
func (i *InmemTransport) Dial(ctx context.Context, address, subprotocol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.Lock()
	if i.shutdown {
		i.Unlock()
		return ErrTransportShutdown
	}
	i.dials++
	i.subprotocols = append(i.subprotocols, subprotocol)
	var err error
	if len(i.dialErrors) > 0 {
		err = i.dialErrors[0]
		i.dialErrors = i.dialErrors[1:]
	}
	i.Unlock()

	if err != nil {
		i.state.Set(Closed)
		return err
	}

	i.state.Set(Open)
	return nil
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(data []byte) error {
	if i.state.Get() != Open {
		return ErrNotOpen
	}

	i.Lock()
	i.sent = append(i.sent, append([]byte(nil), data...))
	responder := i.responder
	i.Unlock()

	if responder != nil {
		for _, r := range responder(data) {
			i.emit(Event{Kind: MessageEvent, Data: r})
		}
	}

	return nil
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan Event {
	return i.consumerCh
}

// State implements the Transport interface.
func (i *InmemTransport) State() State {
	return i.state.Get()
}

// Close implements the Transport interface. The closure is reported with a
// normal close code.
func (i *InmemTransport) Close() error {
	if !i.state.Swap(Open, Closed) && !i.state.Swap(Connecting, Closed) {
		return nil
	}
	i.emit(Event{Kind: CloseEvent, Code: CloseNormal})
	return nil
}

// Shutdown implements the Transport interface.
func (i *InmemTransport) Shutdown() error {
	i.Lock()
	defer i.Unlock()
	if i.shutdown {
		return nil
	}
	i.shutdown = true
	close(i.shutdownCh)
	i.state.Set(Closed)
	return nil
}

// Deliver injects a message from the remote side.
func (i *InmemTransport) Deliver(data []byte) {
	i.emit(Event{Kind: MessageEvent, Data: data})
}

// Drop simulates the remote side closing the connection with code.
func (i *InmemTransport) Drop(code int) {
	i.state.Set(Closed)
	i.emit(Event{Kind: CloseEvent, Code: code})
}

// Fail reports a transport error without closing the connection.
func (i *InmemTransport) Fail(err error) {
	i.emit(Event{Kind: ErrorEvent, Err: err})
}

func (i *InmemTransport) emit(ev Event) {
	select {
	case i.consumerCh <- ev:
	case <-i.shutdownCh:
	}
}
