package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"latencywatch/internal/models"
	"latencywatch/internal/storage"
)

// Recorder exports sample and subscriber metrics. It decorates a Committer
// so that every producer is counted the same way.
type Recorder struct {
	registry    *prometheus.Registry
	samples     *prometheus.CounterVec
	rtt         *prometheus.HistogramVec
	lastRTT     *prometheus.GaugeVec
	subscribers *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "latencywatch_samples_total",
			Help: "Samples committed, by endpoint, producer and status.",
		}, []string{"endpoint", "source", "status"}),
		rtt: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "latencywatch_rtt_milliseconds",
			Help:    "Measured round-trip time of successful samples.",
			Buckets: []float64{5, 10, 25, 50, 100, 150, 250, 500, 1000, 2000, 4000},
		}, []string{"endpoint"}),
		lastRTT: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "latencywatch_last_rtt_milliseconds",
			Help: "Round-trip time of the latest successful sample.",
		}, []string{"endpoint"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "latencywatch_stream_subscribers",
			Help: "Open stream channels by transport.",
		}, []string{"transport"}),
	}
	r.registry.MustRegister(
		r.samples,
		r.rtt,
		r.lastRTT,
		r.subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one committed sample.
func (r *Recorder) Observe(source string, s models.Sample) {
	r.samples.WithLabelValues(s.EndpointID, source, string(s.Status)).Inc()
	if s.OK() {
		v := float64(*s.RTTMs)
		r.rtt.WithLabelValues(s.EndpointID).Observe(v)
		r.lastRTT.WithLabelValues(s.EndpointID).Set(v)
	}
}

// SubscriberOpened and SubscriberClosed track stream channels.
func (r *Recorder) SubscriberOpened(transport string) {
	r.subscribers.WithLabelValues(transport).Inc()
}

func (r *Recorder) SubscriberClosed(transport string) {
	r.subscribers.WithLabelValues(transport).Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Committer wraps next so that successful commits are observed under source.
func (r *Recorder) Committer(source string, next storage.Committer) storage.Committer {
	return &instrumented{source: source, next: next, recorder: r}
}

type instrumented struct {
	source   string
	next     storage.Committer
	recorder *Recorder
}

func (c *instrumented) Commit(s models.Sample) error {
	if err := c.next.Commit(s); err != nil {
		return err
	}
	c.recorder.Observe(c.source, s)
	return nil
}
