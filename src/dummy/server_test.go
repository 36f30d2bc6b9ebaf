package dummy

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/conn"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/net"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/mosaicnetworks/flowsync/src/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

type endToEnd struct {
	server   *Server
	url      string
	manager  *conn.Manager
	recorder *events.Recorder
	cancel   context.CancelFunc
	done     chan error
}

// discardEntry is used by components whose goroutines may outlive the test.
func discardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

func newEndToEnd(t *testing.T, workspace string) *endToEnd {
	srv := NewServer("", DefaultCatalogue(), common.NewTestEntry(t, "dummy"))
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	url := "ws" + strings.TrimPrefix(hs.URL, "http")

	bus := events.NewBus()
	recorder := &events.Recorder{}
	bus.Subscribe(recorder.Notify)

	sess := session.New(workspace, bus, common.NewTestEntry(t, "session"))

	var ids int32
	conf := conn.DefaultConfig()
	conf.Address = url
	conf.ReconnectInterval = 100 * time.Millisecond
	conf.NewID = func() string {
		return fmt.Sprintf("n%d", atomic.AddInt32(&ids, 1))
	}

	manager := conn.NewManager(
		conf,
		net.NewWebsocketTransport(time.Second, 64, discardEntry()),
		sess,
		store.NewInmemStore(),
		nil,
		common.NewTestEntry(t, "conn"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	fx := &endToEnd{
		server:   srv,
		url:      url,
		manager:  manager,
		recorder: recorder,
		cancel:   cancel,
		done:     done,
	}

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Shutdown(context.Background())
	})

	return fx
}

func (fx *endToEnd) query(t *testing.T, fn func(sess *session.Session)) {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, fx.manager.Do(ctx, func() { fn(fx.manager.Session()) }))
}

func (fx *endToEnd) openCount() int {
	count := 0
	for _, n := range fx.recorder.Of(events.ConnectionStatus) {
		if n.State == net.Open.String() {
			count++
		}
	}
	return count
}

func TestClientReachesReady(t *testing.T) {
	fx := newEndToEnd(t, "ws-ready")

	fx.manager.Connect(fx.url, "ws-ready")
	fx.manager.Intent(events.ViewReady{})

	require.Eventually(t, func() bool {
		return fx.recorder.Count(events.Ready) == 1
	}, waitFor, tick)

	fx.query(t, func(sess *session.Session) {
		assert.True(t, sess.Connected)
		assert.Equal(t, len(DefaultCatalogue().Components), sess.Library.Len())
		assert.Len(t, sess.FileNodes, len(DefaultCatalogue().Files))
		require.NotNil(t, sess.Flow)
		assert.Equal(t, "ws-ready", sess.Flow.Graph)
	})
}

func TestClientBuildsFlow(t *testing.T) {
	fx := newEndToEnd(t, "ws-build")

	fx.manager.Connect(fx.url, "ws-build")
	fx.manager.Intent(events.ViewReady{})
	require.Eventually(t, func() bool {
		return fx.recorder.Count(events.Ready) == 1
	}, waitFor, tick)

	fx.manager.Intent(events.NodeAdd{Component: "Constant"})
	fx.manager.Intent(events.NodeAdd{Component: "Print"})

	require.Eventually(t, func() bool {
		doc, ok := fx.server.Document("ws-build")
		return ok && len(doc.Nodes) == 2
	}, waitFor, tick)

	fx.manager.Intent(events.LinkAddPartial{LinkID: "l1", Src: &graph.Endpoint{Node: "n1", Port: "out"}})
	fx.manager.Intent(events.LinkResolveTarget{LinkID: "l1", Tgt: &graph.Endpoint{Node: "n2", Port: "in"}})

	require.Eventually(t, func() bool {
		acked := false
		fx.query(t, func(sess *session.Session) {
			acked = sess.Flow.Edge("l1") != nil
		})
		return acked
	}, waitFor, tick)

	doc, _ := fx.server.Document("ws-build")
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "n1", doc.Edges[0].Src.Node)
	assert.Equal(t, "n2", doc.Edges[0].Tgt.Node)

	fx.manager.NetworkStart("ws-build")
	require.Eventually(t, func() bool {
		return fx.recorder.Count(events.NodeFinished) == 2
	}, waitFor, tick)
	assert.Equal(t, 1, fx.recorder.Count(events.NetworkStarted))
	assert.Equal(t, 1, fx.recorder.Count(events.RuntimeOutput))
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	fx := newEndToEnd(t, "ws-drop")

	fx.manager.Connect(fx.url, "ws-drop")
	require.Eventually(t, func() bool {
		return fx.openCount() >= 1 && fx.server.Connections() == 1
	}, waitFor, tick)

	fx.server.DropConnections()

	require.Eventually(t, func() bool {
		return fx.openCount() >= 2
	}, waitFor, tick)

	fx.query(t, func(sess *session.Session) {
		assert.True(t, sess.Connected)
		assert.Equal(t, net.Open, sess.SocketState)
	})
}

func TestShutdownClosesClients(t *testing.T) {
	fx := newEndToEnd(t, "ws-shutdown")

	fx.manager.Connect(fx.url, "ws-shutdown")
	require.Eventually(t, func() bool {
		return fx.server.Connections() == 1
	}, waitFor, tick)

	require.NoError(t, fx.server.Shutdown(context.Background()))

	require.Eventually(t, func() bool {
		connected := true
		fx.query(t, func(sess *session.Session) {
			connected = sess.Connected
		})
		return !connected
	}, waitFor, tick)
}
