package models

import "time"

// LatencyResponse is returned by /latency.
type LatencyResponse struct {
	Servers []Endpoint        `json:"servers"`
	Latest  map[string]Sample `json:"latest"`
}

// StreamEvent is the payload of snapshots and deltas pushed to subscribers.
// Servers is set on the initial snapshot only.
type StreamEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Latest    map[string]Sample `json:"latest"`
	Servers   []Endpoint        `json:"servers,omitempty"`
}

// HistoryResponse is returned by /latency/history.
type HistoryResponse struct {
	ServerID string   `json:"serverId"`
	History  []Sample `json:"history"`
}

// ServersResponse is returned by /servers.
type ServersResponse struct {
	Servers []Endpoint `json:"servers"`
}
