package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// requestTimeout bounds the wait for the connection loop to answer a query.
const requestTimeout = 5 * time.Second

// Backend is the part of the connection manager the service relies on.
// Session must only be read from functions passed to Do.
type Backend interface {
	Do(ctx context.Context, fn func()) error
	Session() *session.Session
	NetworkGetStatus(graphID string)
	NetworkStart(graphID string)
	NetworkStop(graphID string)
	NetworkPersist()
}

// Service exposes the state of a flowsync session over HTTP.
type Service struct {
	bindAddress string
	backend     Backend
	gatherer    prometheus.Gatherer
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, backend Backend, gatherer prometheus.Gatherer, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		backend:     backend,
		gatherer:    gatherer,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering flowsync API handlers")
	s.mux.HandleFunc("/session", s.makeHandler(s.GetSession))
	s.mux.HandleFunc("/flow", s.makeHandler(s.GetFlow))
	s.mux.HandleFunc("/components", s.makeHandler(s.GetComponents))
	s.mux.HandleFunc("/network/", s.makeHandler(s.PostNetwork))
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the service's request multiplexer.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call which returns
// http.ErrServerClosed after Shutdown.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving flowsync API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
	return err
}

// Shutdown gracefully stops the server. Serve returns immediately if it is
// called after Shutdown.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// query runs fn on the connection loop and reports failures to the client.
func (s *Service) query(w http.ResponseWriter, r *http.Request, fn func(sess *session.Session)) bool {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := s.backend.Do(ctx, func() { fn(s.backend.Session()) })
	if err != nil {
		s.logger.WithError(err).Error("Querying session")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// GetSession returns a view of the session state.
func (s *Service) GetSession(w http.ResponseWriter, r *http.Request) {
	var view session.View
	if !s.query(w, r, func(sess *session.Session) { view = sess.View() }) {
		return
	}
	writeJSON(w, view)
}

// GetFlow returns the current flow as a document, or 404 before the runtime
// has sent one.
func (s *Service) GetFlow(w http.ResponseWriter, r *http.Request) {
	var doc *graph.Document
	if !s.query(w, r, func(sess *session.Session) {
		if sess.Flow != nil {
			d := sess.Flow.Document()
			doc = &d
		}
	}) {
		return
	}
	if doc == nil {
		http.Error(w, "no flow received", http.StatusNotFound)
		return
	}
	writeJSON(w, doc)
}

// GetComponents returns the component library.
func (s *Service) GetComponents(w http.ResponseWriter, r *http.Request) {
	var components []*graph.Component
	if !s.query(w, r, func(sess *session.Session) { components = sess.Library.List() }) {
		return
	}
	if components == nil {
		components = []*graph.Component{}
	}
	writeJSON(w, components)
}

// PostNetwork forwards a network command for the graph given as the "graph"
// query parameter: /network/start, /network/stop, /network/getstatus and
// /network/persist.
func (s *Service) PostNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	graphID := r.URL.Query().Get("graph")
	command := r.URL.Path[len("/network/"):]

	switch command {
	case "start":
		s.backend.NetworkStart(graphID)
	case "stop":
		s.backend.NetworkStop(graphID)
	case "getstatus":
		s.backend.NetworkGetStatus(graphID)
	case "persist":
		s.backend.NetworkPersist()
	default:
		http.Error(w, "unknown network command "+command, http.StatusNotFound)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"command": command,
		"graph":   graphID,
	}).Debug("Network command")

	w.WriteHeader(http.StatusAccepted)
}
