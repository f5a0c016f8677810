package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"latencywatch/internal/history"
	"latencywatch/internal/metrics"
	"latencywatch/internal/models"
	"latencywatch/internal/storage"
)

const maxTimelinePoints = 500

// RosterFunc reads the configured endpoint roster.
type RosterFunc func() ([]models.Endpoint, error)

// Options configures optional collaborators of the server.
type Options struct {
	// Interval is the delta cadence of stream channels.
	Interval time.Duration
	// Roster backs /servers. When nil the store roster is served.
	Roster RosterFunc
	// Recorder exposes /metrics and counts subscribers when set.
	Recorder *metrics.Recorder
	// Rounds reports completed polling rounds for /healthz.
	Rounds func() int64
}

// Server wraps HTTP serving of the latency API and stream channels.
type Server struct {
	httpServer *http.Server
	store      *storage.Store
	interval   time.Duration
	roster     RosterFunc
	recorder   *metrics.Recorder
	rounds     func() int64

	streams  atomic.Int64
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a configured HTTP server for the store.
func New(addr string, store *storage.Store, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	s := &Server{
		store:    store,
		interval: opts.Interval,
		roster:   opts.Roster,
		recorder: opts.Recorder,
		rounds:   opts.Rounds,
		quit:     make(chan struct{}),
	}
	if s.roster == nil {
		s.roster = func() ([]models.Endpoint, error) { return store.Endpoints(), nil }
	}

	r := mux.NewRouter()
	s.registerRoutes(r)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ActiveStreams returns the number of open stream channels.
func (s *Server) ActiveStreams() int64 { return s.streams.Load() }

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown ends open stream channels and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/latency", s.handleLatency).Methods(http.MethodGet)
	r.HandleFunc("/latency/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/latency/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/latency/ws", s.handleStreamWS).Methods(http.MethodGet)
	r.HandleFunc("/latency/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/latency/history/timeline", s.handleTimeline).Methods(http.MethodGet)
	r.HandleFunc("/latency/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/servers", s.handleServers).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.recorder != nil {
		r.Handle("/metrics", s.recorder.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) handleLatency(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, models.LatencyResponse{
		Servers: snap.Endpoints,
		Latest:  snap.Latest,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotEvent())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, window, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{
		ServerID: id,
		History:  history.Query(s.store, id, window),
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id, window, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	points, err := parsePoints(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	samples := history.Query(s.store, id, window)
	end := models.Now()
	if window.To != nil {
		end = *window.To
	}
	start := end.Add(-time.Hour)
	switch {
	case window.From != nil:
		start = *window.From
	case len(samples) > 0:
		start = samples[0].Timestamp
	}
	writeJSON(w, http.StatusOK, models.EndpointTimeline{
		ServerID: id,
		Start:    start,
		End:      end,
		Points:   history.BuildTimeline(samples, start, end, points),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, metrics.ComputeOverview(snap.Endpoints, snap.Latest, s.store.History))
}

func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	servers, err := s.roster()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ServersResponse{Servers: servers})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var rounds int64
	if s.rounds != nil {
		rounds = s.rounds()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rounds": rounds,
	})
}

func (s *Server) snapshotEvent() models.StreamEvent {
	snap := s.store.Snapshot()
	return models.StreamEvent{
		Timestamp: models.Now(),
		Latest:    snap.Latest,
		Servers:   snap.Endpoints,
	}
}

func (s *Server) deltaEvent() models.StreamEvent {
	return models.StreamEvent{
		Timestamp: models.Now(),
		Latest:    s.store.LatestAll(),
	}
}

func parseHistoryQuery(r *http.Request) (string, history.Window, error) {
	q := r.URL.Query()
	id := q.Get("serverId")
	if id == "" {
		return "", history.Window{}, errors.New("serverId required")
	}
	from, err := parseTime(q.Get("from"))
	if err != nil {
		return "", history.Window{}, errors.New("invalid from: " + err.Error())
	}
	to, err := parseTime(q.Get("to"))
	if err != nil {
		return "", history.Window{}, errors.New("invalid to: " + err.Error())
	}
	return id, history.Window{From: from, To: to}, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func parsePoints(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("points")
	if raw == "" {
		return history.DefaultTimelinePoints, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, errors.New("points must be a positive integer")
	}
	if value > maxTimelinePoints {
		value = maxTimelinePoints
	}
	return value, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
