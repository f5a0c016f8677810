package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"latencywatch/internal/models"
	"latencywatch/internal/storage"
)

var endpoint = models.Endpoint{ID: "a", Host: "a.example", Port: 443, Exchange: "Binance"}

func samples(rtts ...int64) []models.Sample {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Sample, 0, len(rtts))
	for i, v := range rtts {
		ts := base.Add(time.Duration(i) * time.Second)
		switch {
		case v < 0:
			out = append(out, models.NewSample(endpoint, ts, models.StatusTimeout, 0))
		case v == 0:
			out = append(out, models.NewSample(endpoint, ts, models.StatusError, 0))
		default:
			out = append(out, models.NewSample(endpoint, ts, models.StatusOK, v))
		}
	}
	return out
}

func TestComputeEndpointSummary(t *testing.T) {
	got := ComputeEndpointSummary("a", samples(10, 20, 30, 40, -1, 0, 50, 60, 70, 80, 90, 100))
	if got.Samples != 12 || got.Passing != 10 || got.Timeouts != 1 || got.Errors != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.UptimePercent != 83.33 {
		t.Fatalf("expected uptime 83.33, got %v", got.UptimePercent)
	}
	if *got.MinMs != 10 || *got.MaxMs != 100 || *got.MeanMs != 55 {
		t.Fatalf("unexpected min/max/mean %v/%v/%v", *got.MinMs, *got.MaxMs, *got.MeanMs)
	}
	if *got.P50Ms != 50 {
		t.Fatalf("expected p50 50, got %v", *got.P50Ms)
	}
	if *got.P95Ms != 100 {
		t.Fatalf("expected p95 100, got %v", *got.P95Ms)
	}
	if got.LastStatus != "ok" {
		t.Fatalf("expected last status ok, got %q", got.LastStatus)
	}
}

func TestComputeEndpointSummaryWithoutSuccess(t *testing.T) {
	got := ComputeEndpointSummary("a", samples(-1, 0))
	if got.MeanMs != nil || got.P50Ms != nil {
		t.Fatal("latency figures must be nil without successful samples")
	}
	if got.UptimePercent != 0 {
		t.Fatalf("expected 0 uptime, got %v", got.UptimePercent)
	}
	if empty := ComputeEndpointSummary("b", nil); empty.Samples != 0 || empty.LastStatus != "" {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestComputeOverview(t *testing.T) {
	endpoints := []models.Endpoint{endpoint, {ID: "b", Host: "b.example", Port: 443}, {ID: "c", Host: "c.example", Port: 443}}
	hist := map[string][]models.Sample{"a": samples(20, 40)}
	latest := map[string]models.Sample{
		"a": hist["a"][1],
		"b": models.NewSample(endpoints[1], time.Now(), models.StatusTimeout, 0),
	}
	got := ComputeOverview(endpoints, latest, func(id string) []models.Sample { return hist[id] })
	if got.TotalServers != 3 || got.ActiveConnections != 1 || got.AvgLatencyMs != 40 {
		t.Fatalf("unexpected overview %+v", got)
	}
	if got.FailureRate != 33.33 {
		t.Fatalf("expected failure rate 33.33, got %v", got.FailureRate)
	}
	if len(got.Servers) != 3 || got.Servers[0].Exchange != "Binance" || got.Servers[0].Samples != 2 {
		t.Fatalf("unexpected server summaries %+v", got.Servers)
	}
}

func TestRecorderCommitterObservesSamples(t *testing.T) {
	store := storage.NewStore([]models.Endpoint{endpoint}, 0)
	rec := NewRecorder()
	c := rec.Committer("scheduler", store)

	for _, s := range samples(12, -1) {
		if err := c.Commit(s); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	if err := c.Commit(models.Sample{EndpointID: "nope"}); err == nil {
		t.Fatal("expected store error to propagate")
	}
	rec.SubscriberOpened("sse")

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	text := string(body)
	for _, want := range []string{
		`latencywatch_samples_total{endpoint="a",source="scheduler",status="ok"} 1`,
		`latencywatch_samples_total{endpoint="a",source="scheduler",status="timeout"} 1`,
		`latencywatch_last_rtt_milliseconds{endpoint="a"} 12`,
		`latencywatch_stream_subscribers{transport="sse"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
	if strings.Contains(text, `endpoint="nope"`) {
		t.Fatal("rejected samples must not be counted")
	}
}
