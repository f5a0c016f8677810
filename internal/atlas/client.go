package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// Client talks to the Atlas REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a REST client. baseURL is the API root, for example
// https://atlas.ripe.net/api/v2/.
func NewClient(baseURL, apiKey string) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		apiKey:  apiKey,
		http:    &http.Client{Transport: transport, Timeout: requestTimeout},
	}
}

type measurementDefinition struct {
	Target      string `json:"target"`
	Description string `json:"description"`
	Type        string `json:"type"`
	AF          int    `json:"af"`
}

type probeRequest struct {
	Requested int    `json:"requested"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type measurementRequest struct {
	Definitions []measurementDefinition `json:"definitions"`
	Probes      []probeRequest          `json:"probes"`
	IsOneOff    bool                    `json:"is_oneoff"`
	Interval    int                     `json:"interval"`
}

// MeasurementResponse lists the ids of created measurements.
type MeasurementResponse struct {
	Measurements []int `json:"measurements"`
}

// CreatePingMeasurement requests a recurring ping measurement towards
// target from two worldwide probes.
func (c *Client) CreatePingMeasurement(ctx context.Context, target string) (MeasurementResponse, error) {
	body := measurementRequest{
		Definitions: []measurementDefinition{{
			Target:      target,
			Description: "ping to " + target + " (created by latencywatch)",
			Type:        "ping",
			AF:          4,
		}},
		Probes:   []probeRequest{{Requested: 2, Type: "area", Value: "WW"}},
		IsOneOff: false,
		Interval: 60,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return MeasurementResponse{}, fmt.Errorf("encode measurement: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"measurements/", bytes.NewReader(payload))
	if err != nil {
		return MeasurementResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return MeasurementResponse{}, fmt.Errorf("create measurement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return MeasurementResponse{}, fmt.Errorf("create measurement: http %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	var out MeasurementResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return MeasurementResponse{}, fmt.Errorf("decode measurement: %w", err)
	}
	return out, nil
}
