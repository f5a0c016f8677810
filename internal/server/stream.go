package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"latencywatch/internal/models"
)

const (
	transportSSE = "sse"
	transportWS  = "ws"
)

// handleStream serves a Server-Sent-Events channel: one snapshot, then a
// delta every interval until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	s.openStream(transportSSE)
	defer s.closeStream(transportSSE)

	if err := writeEvent(w, s.snapshotEvent()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writeEvent(w, s.deltaEvent()); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-s.quit:
			return
		}
	}
}

// writeEvent frames payload as a single SSE data event.
func writeEvent(w io.Writer, payload models.StreamEvent) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func (s *Server) openStream(transport string) {
	s.streams.Add(1)
	if s.recorder != nil {
		s.recorder.SubscriberOpened(transport)
	}
}

func (s *Server) closeStream(transport string) {
	s.streams.Add(-1)
	if s.recorder != nil {
		s.recorder.SubscriberClosed(transport)
	}
}
