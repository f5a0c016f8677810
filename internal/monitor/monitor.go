package monitor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"latencywatch/internal/models"
	"latencywatch/internal/probe"
	"latencywatch/internal/storage"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 5 * time.Second

// Measurer performs one latency measurement. *probe.Prober satisfies it.
type Measurer interface {
	Measure(ctx context.Context, host string, port int, timeout time.Duration) (int64, error)
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithProbeTimeout sets the per-probe deadline.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(m *Monitor) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithClock overrides the clock used for round timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor periodically probes every endpoint and commits the results.
type Monitor struct {
	interval  time.Duration
	timeout   time.Duration
	endpoints []models.Endpoint
	prober    Measurer
	committer storage.Committer
	now       func() time.Time

	mu      sync.Mutex
	running bool
	rounds  atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a monitor for the given endpoints and interval.
func New(interval time.Duration, endpoints []models.Endpoint, prober Measurer, committer storage.Committer, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		interval:  interval,
		timeout:   probe.DefaultTimeout,
		endpoints: endpoints,
		prober:    prober,
		committer: committer,
		now:       models.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the polling period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Rounds returns the number of completed measurement rounds.
func (m *Monitor) Rounds() int64 { return m.rounds.Load() }

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start runs one round synchronously and then launches the polling loop.
// Calling Start on a running monitor does nothing.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.stopCh, m.doneCh = stopCh, doneCh
	m.mu.Unlock()

	ticker := time.NewTicker(m.interval)
	m.RunOnce(context.Background())
	go m.run(ticker, stopCh, doneCh)
}

// Stop requests loop termination and waits until it is done.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// RunOnce probes all endpoints concurrently, commits one sample per endpoint
// and returns them in roster order. Every sample shares the round timestamp.
func (m *Monitor) RunOnce(ctx context.Context) []models.Sample {
	ts := m.now()
	samples := make([]models.Sample, len(m.endpoints))

	var wg sync.WaitGroup
	for i, e := range m.endpoints {
		wg.Add(1)
		go func(i int, e models.Endpoint) {
			defer wg.Done()
			rtt, err := m.prober.Measure(ctx, e.Host, e.Port, m.timeout)
			samples[i] = models.NewSample(e, ts, probe.StatusOf(err), rtt)
		}(i, e)
	}
	wg.Wait()

	var ok, timeouts, failed int
	for _, s := range samples {
		switch s.Status {
		case models.StatusOK:
			ok++
		case models.StatusTimeout:
			timeouts++
		default:
			failed++
		}
		if err := m.committer.Commit(s); err != nil {
			log.Printf("monitor commit %s: %v", s.EndpointID, err)
		}
	}
	m.rounds.Add(1)
	if timeouts > 0 || failed > 0 {
		log.Printf("monitor round: %d ok, %d timeout, %d error", ok, timeouts, failed)
	}
	return samples
}

func (m *Monitor) run(ticker *time.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunOnce(context.Background())
		case <-stopCh:
			return
		}
	}
}
