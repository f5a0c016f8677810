package models

import "time"

// TimelinePoint represents one bucket of an endpoint latency timeline.
type TimelinePoint struct {
	ClassName string    `json:"className"`
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Samples   int       `json:"samples"`
	Passing   int       `json:"passing"`
	MeanRTTMs *float64  `json:"meanRttMs,omitempty"`
	MinRTTMs  *int64    `json:"minRttMs,omitempty"`
	MaxRTTMs  *int64    `json:"maxRttMs,omitempty"`
}

// EndpointTimeline aggregates timeline points for a single endpoint.
type EndpointTimeline struct {
	ServerID string          `json:"serverId"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Points   []TimelinePoint `json:"points"`
}
