package flowsync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mosaicnetworks/flowsync/src/config"
	"github.com/mosaicnetworks/flowsync/src/conn"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/net"
	"github.com/mosaicnetworks/flowsync/src/service"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/mosaicnetworks/flowsync/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// consumerSize bounds the transport events not yet consumed by the manager.
const consumerSize = 1024

// Flowsync is a headless flowsync client. It wires a transport, a store, a
// connection manager and the HTTP service together.
type Flowsync struct {
	Config    *config.Config
	Transport net.Transport
	Store     store.FlowStore
	Library   *graph.JSONLibrary
	Registry  *prometheus.Registry
	Metrics   *conn.Metrics
	Bus       *events.Bus
	Manager   *conn.Manager
	Service   *service.Service

	logger *logrus.Entry
}

// NewFlowsync is a factory method to produce a Flowsync instance. Fields
// left nil, such as Transport or Store, are created by Init.
func NewFlowsync(c *config.Config) *Flowsync {
	return &Flowsync{
		Config: c,
		Bus:    events.NewBus(),
		logger: c.Logger(),
	}
}

// ManagerConfig converts c into the connection manager's configuration.
func ManagerConfig(c *config.Config) conn.Config {
	return conn.Config{
		Address:              c.RuntimeAddr,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		ReconnectInterval:    c.ReconnectInterval,
		HandshakeTimeout:     c.HandshakeTimeout,
		SendQueueSize:        c.SendQueueSize,
		NameDebounce:         c.NameDebounce,
		CodeDebounce:         c.CodeDebounce,
	}
}

func (f *Flowsync) initTransport() error {
	if f.Transport != nil {
		return nil
	}

	f.Transport = net.NewWebsocketTransport(
		f.Config.HandshakeTimeout,
		consumerSize,
		f.logger.WithField("component", "transport"),
	)

	return nil
}

func (f *Flowsync) initStore() error {
	if f.Store != nil {
		return nil
	}

	if !f.Config.Store {
		f.Store = store.NewInmemStore()
		f.logger.Debug("created new in-mem store")
		return nil
	}

	f.logger.WithField("path", f.Config.DatabaseDir).Debug("Attempting to load or create database")

	s, err := store.NewBadgerStore(f.Config.DatabaseDir, f.logger.WithField("component", "store"))
	if err != nil {
		return err
	}
	f.Store = s

	return nil
}

func (f *Flowsync) initMetrics() error {
	if f.Registry == nil {
		f.Registry = prometheus.NewRegistry()
	}

	metrics, err := conn.NewMetrics(f.Registry)
	if err != nil {
		return err
	}
	f.Metrics = metrics

	return nil
}

func (f *Flowsync) initManager() error {
	sess := session.New(
		f.Config.WorkspaceID(),
		f.Bus,
		f.logger.WithField("component", "session"),
	)

	f.Manager = conn.NewManager(
		ManagerConfig(f.Config),
		f.Transport,
		sess,
		f.Store,
		f.Metrics,
		f.logger.WithField("component", "conn"),
	)

	f.Library = graph.NewJSONLibrary(f.Config.DataDir)

	// Listeners run on the manager loop, so reading the session is safe.
	f.Bus.Subscribe(func(n events.Notification) {
		if n.Kind != events.ComponentsReady {
			return
		}
		if err := f.Library.Write(sess.Library); err != nil {
			f.logger.WithError(err).Warn("Caching component library")
		}
	})

	return nil
}

func (f *Flowsync) initService() error {
	if !f.Config.NoService {
		f.Service = service.NewService(
			f.Config.ServiceAddr,
			f.Manager,
			f.Registry,
			f.logger.WithField("component", "service"),
		)
	}

	return nil
}

// Init initializes all the components of the client.
func (f *Flowsync) Init() error {
	if err := f.initStore(); err != nil {
		return err
	}

	if err := f.initTransport(); err != nil {
		return err
	}

	if err := f.initMetrics(); err != nil {
		return err
	}

	if err := f.initManager(); err != nil {
		return err
	}

	if err := f.initService(); err != nil {
		return err
	}

	return nil
}

// Run connects to the runtime and blocks until ctx is cancelled or a
// component fails. Cancellation is a clean exit.
func (f *Flowsync) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return f.Manager.Run(ctx)
	})

	f.Manager.Connect(f.Config.RuntimeAddr, f.Config.WorkspaceID())

	// Without an editor attached the client is its own view.
	f.Manager.Intent(events.ViewReady{})

	if f.Service != nil {
		g.Go(func() error {
			err := f.Service.Serve()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return f.Service.Shutdown(sctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown releases the transport and the store. It must be called after
// Run has returned.
func (f *Flowsync) Shutdown() error {
	var errs []error

	if f.Transport != nil {
		if err := f.Transport.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	if f.Store != nil {
		if err := f.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
