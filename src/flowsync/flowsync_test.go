package flowsync

import (
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/flowsync/src/config"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/net"
	"github.com/mosaicnetworks/flowsync/src/protocol"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/mosaicnetworks/flowsync/src/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, p protocol.Protocol, command string, payload interface{}) []byte {
	data, err := protocol.Encode(p, command, payload)
	require.NoError(t, err)
	return data
}

// runtime answers component:list with one component and the flow of graph
// "main".
func runtime(t *testing.T) net.Responder {
	return func(data []byte) [][]byte {
		env, err := protocol.Decode(data)
		if err != nil {
			return nil
		}
		if env.Protocol != protocol.Component || env.Command != protocol.List {
			return nil
		}
		return [][]byte{
			mustEncode(t, protocol.Component, protocol.ComponentCmd, graph.ComponentPayload{
				Name:     "core/Add",
				InPorts:  `[{"id":"a"},{"id":"b"}]`,
				OutPorts: `[{"id":"sum"}]`,
			}),
			mustEncode(t, protocol.Component, protocol.ComponentsReady, nil),
			mustEncode(t, protocol.Flow, protocol.FlowCmd, graph.Document{
				ID:    "main",
				Graph: "main",
				Nodes: []*graph.NodePayload{{ID: "n1", Component: "Add", Graph: "main"}},
			}),
		}
	}
}

func newTestFlowsync(t *testing.T) (*Flowsync, *net.InmemTransport) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.SetDataDir(t.TempDir())
	conf.RuntimeAddr = "ws://runtime"
	conf.Workspace = "ws-1"
	conf.NoService = true

	_, trans := net.NewInmemTransport("")
	trans.SetResponder(runtime(t))

	fs := NewFlowsync(conf)
	fs.Transport = trans

	require.NoError(t, fs.Init())
	return fs, trans
}

func TestInitDefaults(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.SetDataDir(t.TempDir())
	conf.NoService = true

	fs := NewFlowsync(conf)
	require.NoError(t, fs.Init())
	defer fs.Shutdown()

	assert.IsType(t, &net.WebsocketTransport{}, fs.Transport)
	assert.IsType(t, &store.InmemStore{}, fs.Store)
	assert.Nil(t, fs.Service)
	assert.NotNil(t, fs.Metrics)
}

func TestInitBadgerStore(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.SetDataDir(t.TempDir())
	conf.Store = true

	fs := NewFlowsync(conf)
	require.NoError(t, fs.Init())
	defer fs.Shutdown()

	assert.IsType(t, &store.BadgerStore{}, fs.Store)
	assert.Equal(t, conf.DatabaseDir, fs.Store.StorePath())
	assert.NotNil(t, fs.Service)
}

func TestRunReachesReady(t *testing.T) {
	fs, trans := newTestFlowsync(t)

	ready := make(chan events.Notification, 1)
	fs.Bus.Subscribe(func(n events.Notification) {
		if n.Kind == events.Ready {
			ready <- n
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- fs.Run(ctx) }()

	select {
	case n := <-ready:
		assert.Equal(t, "ws-1", n.Workspace)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the session to be ready")
	}

	assert.Equal(t, []string{"ws-1"}, trans.Subprotocols())

	var view session.View
	require.NoError(t, fs.Manager.Do(ctx, func() { view = fs.Manager.Session().View() }))
	assert.True(t, view.Connected)
	assert.Equal(t, 1, view.Components)
	assert.Equal(t, 1, view.Nodes)

	lib, err := fs.Library.Library()
	require.NoError(t, err)
	require.NotNil(t, lib.Get("Add"))
	assert.Len(t, lib.Get("Add").InPorts, 2)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Run to return")
	}

	assert.NoError(t, fs.Shutdown())
}

func TestManagerConfig(t *testing.T) {
	conf := config.NewDefaultConfig()
	conf.RuntimeAddr = "ws://elsewhere"
	conf.MaxReconnectAttempts = 3

	mc := ManagerConfig(conf)
	assert.Equal(t, "ws://elsewhere", mc.Address)
	assert.Equal(t, 3, mc.MaxReconnectAttempts)
	assert.Equal(t, config.DefaultReconnectInterval, mc.ReconnectInterval)
	assert.Equal(t, config.DefaultCodeDebounce, mc.CodeDebounce)
}
