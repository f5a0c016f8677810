package models

import (
	"net"
	"strconv"
	"time"
)

// Endpoint describes a monitored exchange server.
type Endpoint struct {
	ID         string  `yaml:"id" json:"id"`
	Host       string  `yaml:"host" json:"host"`
	Port       int     `yaml:"port" json:"port"`
	Exchange   string  `yaml:"exchange" json:"exchange"`
	Provider   string  `yaml:"provider" json:"provider"`
	RegionCode string  `yaml:"regionCode" json:"regionCode"`
	Lat        float64 `yaml:"lat" json:"lat"`
	Lng        float64 `yaml:"lng" json:"lng"`
}

// Address returns the host:port pair dialled by the prober.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Status is the outcome tag of a sample.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Sample captures one latency measurement for an endpoint.
type Sample struct {
	EndpointID string    `json:"id"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Timestamp  time.Time `json:"timestamp"`
	RTTMs      *int64    `json:"rttMs"`
	Status     Status    `json:"status"`
}

// NewSample builds a sample for the endpoint. The RTT is kept only for
// StatusOK so that failed samples always carry a null rttMs.
func NewSample(e Endpoint, ts time.Time, status Status, rttMs int64) Sample {
	s := Sample{
		EndpointID: e.ID,
		Host:       e.Host,
		Port:       e.Port,
		Timestamp:  ts,
		Status:     status,
	}
	if status == StatusOK {
		rtt := rttMs
		s.RTTMs = &rtt
	}
	return s
}

// OK reports whether the sample carries a measured RTT.
func (s Sample) OK() bool {
	return s.Status == StatusOK && s.RTTMs != nil
}

// Now returns the wall clock truncated to the millisecond precision used for
// sample timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
