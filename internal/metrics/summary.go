package metrics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"latencywatch/internal/models"
)

// EndpointSummary summarises retained history of one endpoint.
type EndpointSummary struct {
	ID            string   `json:"id"`
	Exchange      string   `json:"exchange,omitempty"`
	Samples       int      `json:"samples"`
	Passing       int      `json:"passing"`
	Timeouts      int      `json:"timeouts"`
	Errors        int      `json:"errors"`
	UptimePercent float64  `json:"uptimePercent"`
	MinMs         *float64 `json:"minMs"`
	MaxMs         *float64 `json:"maxMs"`
	MeanMs        *float64 `json:"meanMs"`
	StdDevMs      *float64 `json:"stdDevMs"`
	P50Ms         *float64 `json:"p50Ms"`
	P95Ms         *float64 `json:"p95Ms"`
	LastStatus    string   `json:"lastStatus,omitempty"`
	LastUpdated   string   `json:"lastUpdated,omitempty"`
}

// Overview aggregates the latest sample of every endpoint.
type Overview struct {
	TotalServers      int               `json:"totalServers"`
	ActiveConnections int               `json:"activeConnections"`
	AvgLatencyMs      float64           `json:"avgLatencyMs"`
	FailureRate       float64           `json:"failureRate"`
	GeneratedAt       time.Time         `json:"generatedAt"`
	Servers           []EndpointSummary `json:"servers"`
}

// ComputeOverview builds fleet-wide figures from the latest map, as shown by
// the dashboard panel, plus per-endpoint summaries from history.
func ComputeOverview(endpoints []models.Endpoint, latest map[string]models.Sample, history func(id string) []models.Sample) Overview {
	out := Overview{
		TotalServers: len(endpoints),
		GeneratedAt:  models.Now(),
		Servers:      make([]EndpointSummary, 0, len(endpoints)),
	}

	var sum int64
	var failed int
	for _, s := range latest {
		switch {
		case s.OK():
			out.ActiveConnections++
			sum += *s.RTTMs
		case s.Status == models.StatusError || s.Status == models.StatusTimeout:
			failed++
		}
	}
	if out.ActiveConnections > 0 {
		out.AvgLatencyMs = math.Round(float64(sum) / float64(out.ActiveConnections))
	}
	if out.TotalServers > 0 {
		out.FailureRate = round2(float64(failed) / float64(out.TotalServers) * 100)
	}

	for _, e := range endpoints {
		summary := ComputeEndpointSummary(e.ID, history(e.ID))
		summary.Exchange = e.Exchange
		out.Servers = append(out.Servers, summary)
	}
	return out
}

// ComputeEndpointSummary aggregates availability and latency statistics for
// one endpoint's samples.
func ComputeEndpointSummary(id string, samples []models.Sample) EndpointSummary {
	result := EndpointSummary{ID: id, Samples: len(samples)}
	if len(samples) == 0 {
		return result
	}

	rtts := make([]float64, 0, len(samples))
	for _, s := range samples {
		switch s.Status {
		case models.StatusOK:
			result.Passing++
			if s.RTTMs != nil {
				rtts = append(rtts, float64(*s.RTTMs))
			}
		case models.StatusTimeout:
			result.Timeouts++
		default:
			result.Errors++
		}
	}
	last := samples[len(samples)-1]
	result.LastStatus = string(last.Status)
	result.LastUpdated = last.Timestamp.UTC().Format(time.RFC3339)
	result.UptimePercent = round2(float64(result.Passing) / float64(len(samples)) * 100)

	if len(rtts) == 0 {
		return result
	}
	sort.Float64s(rtts)
	mean, std := stat.MeanStdDev(rtts, nil)
	if len(rtts) < 2 {
		std = 0
	}
	result.MinMs = ptr(rtts[0])
	result.MaxMs = ptr(rtts[len(rtts)-1])
	result.MeanMs = ptr(round2(mean))
	result.StdDevMs = ptr(round2(std))
	result.P50Ms = ptr(stat.Quantile(0.5, stat.Empirical, rtts, nil))
	result.P95Ms = ptr(stat.Quantile(0.95, stat.Empirical, rtts, nil))
	return result
}

func ptr(v float64) *float64 { return &v }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
