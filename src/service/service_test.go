package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/events"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	sess     *session.Session
	commands []string
	err      error
}

func (b *fakeBackend) Do(ctx context.Context, fn func()) error {
	if b.err != nil {
		return b.err
	}
	fn()
	return nil
}

func (b *fakeBackend) Session() *session.Session {
	return b.sess
}

func (b *fakeBackend) NetworkGetStatus(graph string) {
	b.commands = append(b.commands, "getstatus:"+graph)
}

func (b *fakeBackend) NetworkStart(graph string) {
	b.commands = append(b.commands, "start:"+graph)
}

func (b *fakeBackend) NetworkStop(graph string) {
	b.commands = append(b.commands, "stop:"+graph)
}

func (b *fakeBackend) NetworkPersist() {
	b.commands = append(b.commands, "persist")
}

func newTestService(t *testing.T) (*fakeBackend, *httptest.Server) {
	sess := session.New("ws-1", &events.Recorder{}, common.NewTestEntry(t, "session"))
	backend := &fakeBackend{sess: sess}

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flowsync_test_total",
		Help: "Test counter.",
	})
	reg.MustRegister(counter)
	counter.Inc()

	s := NewService("", backend, reg, common.NewTestEntry(t, "service"))
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)

	return backend, server
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestGetSession(t *testing.T) {
	backend, server := newTestService(t)
	backend.sess.Connect("ws-1")

	var view session.View
	resp := getJSON(t, server.URL+"/session", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ws-1", view.Workspace)
	assert.True(t, view.Connected)
	assert.False(t, view.Ready)
}

func TestGetFlow(t *testing.T) {
	backend, server := newTestService(t)

	resp := getJSON(t, server.URL+"/flow", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	flow := backend.sess.EnsureFlow("main")
	flow.AddNode(graph.NewNode(graph.NodePayload{ID: "n1", Component: "Add", Graph: "main"}, nil))

	var doc graph.Document
	resp = getJSON(t, server.URL+"/flow", &doc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "n1", doc.Nodes[0].ID)
}

func TestGetComponents(t *testing.T) {
	backend, server := newTestService(t)

	var components []*graph.Component
	getJSON(t, server.URL+"/components", &components)
	assert.Empty(t, components)

	backend.sess.Library.Register(&graph.Component{Name: "Add"})
	getJSON(t, server.URL+"/components", &components)
	require.Len(t, components, 1)
	assert.Equal(t, "Add", components[0].Name)
}

func TestQueryFailure(t *testing.T) {
	backend, server := newTestService(t)
	backend.err = context.DeadlineExceeded

	resp := getJSON(t, server.URL+"/session", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPostNetwork(t *testing.T) {
	backend, server := newTestService(t)

	for _, cmd := range []string{"start", "stop", "getstatus"} {
		resp, err := http.Post(server.URL+"/network/"+cmd+"?graph=main", "text/plain", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	resp, err := http.Post(server.URL+"/network/persist", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(server.URL+"/network/explode", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, server.URL+"/network/start", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	assert.Equal(t, []string{"start:main", "stop:main", "getstatus:main", "persist"}, backend.commands)
}

func TestMetrics(t *testing.T) {
	_, server := newTestService(t)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flowsync_test_total 1")
}
