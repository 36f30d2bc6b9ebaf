package conn

import (
	"context"
	"errors"
	"time"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/controller"
	"github.com/mosaicnetworks/flowsync/src/dispatch"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/net"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/sirupsen/logrus"
)

// ErrShutdown is returned by Do once the manager has stopped.
var ErrShutdown = errors.New("connection manager shut down")

// Config configures a Manager.
type Config struct {
	// Address is the runtime's websocket URL.
	Address string

	// MaxReconnectAttempts bounds the reconnection attempts after an
	// abnormal closure.
	MaxReconnectAttempts int

	// ReconnectInterval is the wait after each reconnection attempt before
	// the transport state is checked again.
	ReconnectInterval time.Duration

	// HandshakeTimeout bounds every dial.
	HandshakeTimeout time.Duration

	// SendQueueSize bounds the messages queued while the transport is not
	// open. The oldest message is dropped when it overflows.
	SendQueueSize int

	NameDebounce time.Duration
	CodeDebounce time.Duration

	// Clock drives reconnection waits and debounce timers.
	Clock common.Clock

	// NewID generates ids for nodes created locally.
	NewID func() string
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 5,
		ReconnectInterval:    time.Second,
		HandshakeTimeout:     10 * time.Second,
		SendQueueSize:        1024,
		NameDebounce:         controller.DefaultNameDebounce,
		CodeDebounce:         controller.DefaultCodeDebounce,
	}
}

// Manager owns the transport of one workspace session. A single goroutine,
// Run, performs every mutation of the session: transport events, user
// intents and timer firings are all funnelled into it.
type Manager struct {
	conf      Config
	transport net.Transport
	clock     common.Clock

	session    *session.Session
	dispatcher *dispatch.Dispatcher
	controller *controller.Controller
	metrics    *Metrics

	tasks  *taskQueue
	outbox [][]byte

	ctx       context.Context
	workspace string

	reconnecting bool
	attempt      int
	reconnectGen int

	// closing is set by an explicit Close until the transport reports it.
	closing bool

	doneCh chan struct{}
	logger *logrus.Entry
}

// NewManager wires a session, a dispatcher and a controller around
// transport. saver and metrics may be nil.
func NewManager(
	conf Config,
	transport net.Transport,
	sess *session.Session,
	saver dispatch.Saver,
	metrics *Metrics,
	logger *logrus.Entry,
) *Manager {
	def := DefaultConfig()
	if conf.MaxReconnectAttempts <= 0 {
		conf.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if conf.ReconnectInterval <= 0 {
		conf.ReconnectInterval = def.ReconnectInterval
	}
	if conf.HandshakeTimeout <= 0 {
		conf.HandshakeTimeout = def.HandshakeTimeout
	}
	if conf.SendQueueSize <= 0 {
		conf.SendQueueSize = def.SendQueueSize
	}
	if conf.Clock == nil {
		conf.Clock = common.RealClock{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}

	m := &Manager{
		conf:      conf,
		transport: transport,
		clock:     conf.Clock,
		session:   sess,
		metrics:   metrics,
		tasks:     newTaskQueue(),
		ctx:       context.Background(),
		workspace: sess.Workspace,
		doneCh:    make(chan struct{}),
		logger:    logger,
	}

	m.controller = controller.New(sess, m, controller.Config{
		NameDebounce: conf.NameDebounce,
		CodeDebounce: conf.CodeDebounce,
		Clock:        conf.Clock,
		Post:         m.Post,
		NewID:        conf.NewID,
	}, logger.WithField("component", "controller"))

	m.dispatcher = dispatch.NewDefault(sess, m.controller, saver,
		logger.WithField("component", "dispatch"))

	return m
}

// Session returns the managed session. It must only be accessed from the
// loop, through Do or Post.
func (m *Manager) Session() *session.Session {
	return m.session
}

// Controller returns the graph controller.
func (m *Manager) Controller() *controller.Controller {
	return m.controller
}

// Run processes transport events and posted tasks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.ctx = ctx
	defer close(m.doneCh)
	defer m.tasks.close()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Connection manager stopping")
			if err := m.transport.Close(); err != nil {
				m.logger.WithError(err).Debug("Closing transport")
			}
			return ctx.Err()
		case ev := <-m.transport.Consumer():
			m.handleEvent(ev)
		case <-m.tasks.signal:
			m.processTasks()
		}
	}
}

// Post schedules fn on the loop. It is safe for concurrent use.
func (m *Manager) Post(fn func()) {
	if !m.tasks.push(fn) {
		m.logger.Debug("Task posted after shutdown")
	}
}

// Do runs fn on the loop and waits for it to complete.
func (m *Manager) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !m.tasks.push(func() {
		fn()
		close(done)
	}) {
		return ErrShutdown
	}

	select {
	case <-done:
		return nil
	case <-m.doneCh:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) processTasks() {
	for _, task := range m.tasks.drain() {
		task()
	}
}

// Connect opens the connection to address, negotiating workspace as the
// subprotocol.
func (m *Manager) Connect(address, workspace string) {
	m.Post(func() { m.connect(address, workspace) })
}

// Close closes the connection if it is open or opening.
func (m *Manager) Close() {
	m.Post(m.close)
}

// Intent forwards a user intent to the controller.
func (m *Manager) Intent(in events.Intent) {
	m.Post(func() { m.controller.Handle(in) })
}

// NetworkGetStatus asks for the status of the network of graphID.
func (m *Manager) NetworkGetStatus(graphID string) {
	m.Post(func() { m.Send(protocol.Network, protocol.GetStatus, graphPayload(graphID)) })
}

// NetworkStart asks the runtime to start the network of graphID.
func (m *Manager) NetworkStart(graphID string) {
	m.Post(func() { m.Send(protocol.Network, protocol.Start, graphPayload(graphID)) })
}

// NetworkStop asks the runtime to stop the network of graphID.
func (m *Manager) NetworkStop(graphID string) {
	m.Post(func() { m.Send(protocol.Network, protocol.Stop, graphPayload(graphID)) })
}

// NetworkPersist asks the runtime to save the flow.
func (m *Manager) NetworkPersist() {
	m.Post(func() { m.Send(protocol.Network, protocol.Persist, "") })
}

func graphPayload(graphID string) map[string]interface{} {
	return map[string]interface{}{"graph": graphID}
}

func (m *Manager) connect(address, workspace string) {
	if address != "" {
		m.conf.Address = address
	}
	if workspace != "" {
		m.workspace = workspace
	}

	m.cancelReconnect()
	m.closing = false

	m.logger.WithFields(logrus.Fields{
		"address":   m.conf.Address,
		"workspace": m.workspace,
	}).Info("Connecting")

	if err := m.dial(); err != nil {
		m.startReconnect()
	}
}

func (m *Manager) close() {
	m.cancelReconnect()

	state := m.transport.State()
	if state != net.Open && state != net.Connecting {
		return
	}

	m.logger.Info("Closing connection")
	m.closing = true
	m.setSocketState(net.Closing)
	if err := m.transport.Close(); err != nil {
		m.logger.WithError(err).Warn("Closing transport")
	}
}

func (m *Manager) dial() error {
	m.setSocketState(net.Connecting)

	ctx, cancel := context.WithTimeout(m.ctx, m.conf.HandshakeTimeout)
	defer cancel()

	if err := m.transport.Dial(ctx, m.conf.Address, m.workspace); err != nil {
		m.logger.WithError(err).Warn("Dial failed")
		m.setSocketState(net.Closed)
		return err
	}

	m.opened()
	return nil
}

// opened bootstraps the session and flushes what was queued while the
// transport was not open.
func (m *Manager) opened() {
	m.setSocketState(net.Open)
	m.session.Connect(m.workspace)

	m.logger.WithField("workspace", m.workspace).Info("Connection open")

	m.transmit(protocol.Component, protocol.List, nil)
	m.transmit(protocol.FileExplorer, protocol.GetNodes, nil)

	outbox := m.outbox
	m.outbox = nil
	m.metrics.queued.Set(0)
	for _, data := range outbox {
		if err := m.transport.Send(data); err != nil {
			m.logger.WithError(err).Warn("Flushing queued message")
		}
	}
}

// Send implements controller.Sender. Messages sent while the transport is
// not open are queued until it opens.
func (m *Manager) Send(p protocol.Protocol, command string, payload interface{}) {
	data, err := protocol.Encode(p, command, payload)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"protocol": p,
			"command":  command,
			"error":    err,
		}).Error("Encoding message")
		return
	}

	m.metrics.messagesOut.WithLabelValues(string(p)).Inc()

	if m.transport.State() != net.Open {
		m.enqueue(data)
		return
	}

	if err := m.transport.Send(data); err != nil {
		m.logger.WithError(err).Warn("Send failed, queueing")
		m.enqueue(data)
	}
}

// transmit sends at once when open; bootstrap messages are never queued
// behind older traffic.
func (m *Manager) transmit(p protocol.Protocol, command string, payload interface{}) {
	data, err := protocol.Encode(p, command, payload)
	if err != nil {
		m.logger.WithError(err).Error("Encoding message")
		return
	}
	m.metrics.messagesOut.WithLabelValues(string(p)).Inc()
	if err := m.transport.Send(data); err != nil {
		m.logger.WithError(err).Warn("Send failed")
	}
}

func (m *Manager) enqueue(data []byte) {
	if len(m.outbox) >= m.conf.SendQueueSize {
		m.outbox = m.outbox[1:]
		m.metrics.dropped.Inc()
		m.logger.Warn("Send queue full, dropping oldest message")
	}
	m.outbox = append(m.outbox, data)
	m.metrics.queued.Set(float64(len(m.outbox)))
}

// Queued returns the number of messages waiting for the connection. Loop
// only.
func (m *Manager) Queued() int {
	return len(m.outbox)
}

func (m *Manager) handleEvent(ev net.Event) {
	switch ev.Kind {
	case net.MessageEvent:
		m.handleMessage(ev.Data)
	case net.ErrorEvent:
		m.logger.WithError(ev.Err).Error("Transport error")
	case net.CloseEvent:
		m.handleClose(ev.Code)
	}
}

func (m *Manager) handleMessage(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		m.metrics.malformed.Inc()
		m.logger.WithFields(logrus.Fields{
			"error": err,
			"data":  string(data),
		}).Warn("Discarding message")
		return
	}

	m.metrics.messagesIn.WithLabelValues(string(env.Protocol)).Inc()
	m.dispatcher.Route(env)
}

func (m *Manager) handleClose(code int) {
	m.setSocketState(net.Closed)

	// half-open links do not survive the connection
	m.controller.Reset()

	m.logger.WithField("code", code).Info("Connection closed")

	if m.closing {
		m.closing = false
		m.cancelReconnect()
		m.session.SetConnected(false)
		m.session.Clear()
		return
	}

	if code != net.CloseAbnormal {
		m.cancelReconnect()
		m.session.SetConnected(false)
		return
	}

	if m.reconnecting {
		return
	}
	m.startReconnect()
}

func (m *Manager) startReconnect() {
	m.reconnecting = true
	m.attempt = 0
	m.reconnectGen++
	m.reconnect(m.reconnectGen)
}

func (m *Manager) cancelReconnect() {
	m.reconnecting = false
	m.reconnectGen++
}

// reconnect makes one attempt and checks the transport again after the
// reconnect interval. It gives up after MaxReconnectAttempts.
func (m *Manager) reconnect(gen int) {
	if gen != m.reconnectGen {
		return
	}

	if m.attempt >= m.conf.MaxReconnectAttempts {
		m.logger.WithField("attempts", m.attempt).Warn("Giving up reconnecting")
		m.reconnecting = false
		m.session.SetConnected(false)
		return
	}

	m.attempt++
	m.metrics.reconnects.Inc()
	m.logger.WithField("attempt", m.attempt).Info("Reconnecting")

	if err := m.dial(); err != nil {
		m.logger.WithError(err).Debug("Reconnection attempt failed")
	}

	m.clock.AfterFunc(m.conf.ReconnectInterval, func() {
		m.Post(func() { m.checkReconnect(gen) })
	})
}

func (m *Manager) checkReconnect(gen int) {
	if gen != m.reconnectGen {
		return
	}
	if m.transport.State() == net.Open {
		m.reconnecting = false
		m.attempt = 0
		return
	}
	m.reconnect(gen)
}

func (m *Manager) setSocketState(s net.State) {
	m.metrics.socketState.Set(float64(s))
	m.session.SetSocketState(s)
}
