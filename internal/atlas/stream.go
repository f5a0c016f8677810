// Package atlas merges latency results from the RIPE Atlas streaming API.
package atlas

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"latencywatch/internal/models"
	"latencywatch/internal/storage"
)

const (
	minBackoff     = time.Second
	maxBackoff     = 60 * time.Second
	handshakeLimit = 10 * time.Second
	writeTimeout   = 5 * time.Second
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	URL    string
	APIKey string
	// MinBackoff and MaxBackoff bound the reconnect delay. Zero values use
	// the package defaults.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Stream subscribes to Atlas results and commits the ones that resolve to a
// roster endpoint.
type Stream struct {
	cfg       StreamConfig
	resolver  *Resolver
	committer storage.Committer
	dialer    *websocket.Dialer
	now       func() time.Time

	connects  atomic.Int64
	committed atomic.Int64
}

// NewStream creates a stream adapter for the roster.
func NewStream(cfg StreamConfig, endpoints []models.Endpoint, committer storage.Committer) *Stream {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = minBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = maxBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	return &Stream{
		cfg:       cfg,
		resolver:  NewResolver(endpoints),
		committer: committer,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeLimit,
		},
		now: models.Now,
	}
}

// Connects returns how many sessions have been established.
func (s *Stream) Connects() int64 { return s.connects.Load() }

// Committed returns how many samples were merged into the store.
func (s *Stream) Committed() int64 { return s.committed.Load() }

// Run keeps a subscription open until ctx is cancelled, reconnecting with
// exponential backoff after failures.
func (s *Stream) Run(ctx context.Context) {
	backoff := s.cfg.MinBackoff
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		log.Printf("atlas stream: %v (reconnecting in %v)", err, backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// session runs a single connection and returns once it fails.
func (s *Stream) session(ctx context.Context) (bool, error) {
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Key "+s.cfg.APIKey)
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	s.connects.Add(1)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	subscribe := []any{"atlas_subscribe", map[string]string{"streamType": "result"}}
	if err := conn.WriteJSON(subscribe); err != nil {
		return true, fmt.Errorf("subscribe: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, errors.New("closed by server")
			}
			return true, fmt.Errorf("read: %w", err)
		}
		s.HandleMessage(data)
	}
}

// HandleMessage converts one stream frame into a sample and commits it.
// Frames that are not results, fail to parse or do not resolve to a known
// endpoint are dropped and report false.
func (s *Stream) HandleMessage(data []byte) bool {
	r, err := decodeMessage(data)
	if err != nil {
		return false
	}
	endpoint, ok := s.resolver.Resolve(r.target())
	if !ok {
		return false
	}

	var sample models.Sample
	if rtt, ok := r.rtt(); ok {
		sample = models.NewSample(endpoint, s.now(), models.StatusOK, int64(math.Round(rtt)))
	} else {
		sample = models.NewSample(endpoint, s.now(), models.StatusError, 0)
	}
	if err := s.committer.Commit(sample); err != nil {
		log.Printf("atlas commit %s: %v", endpoint.ID, err)
		return false
	}
	s.committed.Add(1)
	return true
}
