package storage

import (
	"errors"
	"fmt"
	"sync"

	"latencywatch/internal/models"
)

// DefaultHistoryCapacity bounds the retained samples per endpoint.
const DefaultHistoryCapacity = 2000

// ErrUnknownEndpoint is returned when a sample references an id outside the roster.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Committer accepts finished samples. The scheduler and the external feed
// both write through it.
type Committer interface {
	Commit(sample models.Sample) error
}

// Store holds the endpoint roster, the latest sample per endpoint and a
// bounded history ring per endpoint. All state is in memory.
type Store struct {
	endpoints []models.Endpoint
	index     map[string]int
	capacity  int

	mu      sync.RWMutex
	latest  map[string]models.Sample
	history map[string]*ring
}

// NewStore creates a store for a fixed roster. A non-positive capacity falls
// back to DefaultHistoryCapacity.
func NewStore(endpoints []models.Endpoint, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	s := &Store{
		endpoints: make([]models.Endpoint, len(endpoints)),
		index:     make(map[string]int, len(endpoints)),
		capacity:  capacity,
		latest:    make(map[string]models.Sample, len(endpoints)),
		history:   make(map[string]*ring, len(endpoints)),
	}
	copy(s.endpoints, endpoints)
	for i, e := range s.endpoints {
		s.index[e.ID] = i
	}
	return s
}

// Endpoints returns a copy of the roster in configuration order.
func (s *Store) Endpoints() []models.Endpoint {
	out := make([]models.Endpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}

// Endpoint looks up an endpoint by id.
func (s *Store) Endpoint(id string) (models.Endpoint, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.Endpoint{}, false
	}
	return s.endpoints[i], true
}

// Capacity returns the per-endpoint history bound.
func (s *Store) Capacity() int { return s.capacity }

// Commit records the sample as latest and appends it to the endpoint
// history in one critical section, evicting the oldest entry when full.
func (s *Store) Commit(sample models.Sample) error {
	if _, ok := s.index[sample.EndpointID]; !ok {
		return fmt.Errorf("commit %q: %w", sample.EndpointID, ErrUnknownEndpoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[sample.EndpointID]
	if h == nil {
		h = newRing(s.capacity)
		s.history[sample.EndpointID] = h
	}
	h.push(sample)
	s.latest[sample.EndpointID] = sample
	return nil
}

// Latest returns the most recent sample for id, if any was committed.
func (s *Store) Latest(id string) (models.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.latest[id]
	return sample, ok
}

// LatestAll returns a copy of the latest-sample map.
func (s *Store) LatestAll() map[string]models.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Sample, len(s.latest))
	for id, sample := range s.latest {
		out[id] = sample
	}
	return out
}

// History returns a copy of the retained samples for id, oldest first.
// Unknown ids yield nil.
func (s *Store) History(id string) []models.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[id]
	if h == nil {
		return nil
	}
	return h.slice()
}

// HistoryLen returns the number of retained samples for id.
func (s *Store) HistoryLen(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h := s.history[id]; h != nil {
		return h.len()
	}
	return 0
}

// Snapshot is a consistent point-in-time copy of the roster and latest map.
type Snapshot struct {
	Endpoints []models.Endpoint
	Latest    map[string]models.Sample
}

// Snapshot copies the roster and the latest map.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Endpoints: s.Endpoints(),
		Latest:    s.LatestAll(),
	}
}
