package atlas

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"latencywatch/internal/models"
)

const messageTypeResult = "result"

var errNotResult = errors.New("not a result message")

// result is the subset of an Atlas measurement result used here.
type result struct {
	MeasurementID int             `json:"msm_id"`
	Target        string          `json:"target"`
	DstName       string          `json:"dst_name"`
	DstAddr       string          `json:"dst_addr"`
	Avg           *float64        `json:"avg"`
	Result        json.RawMessage `json:"result"`
}

type hop struct {
	RTT *float64 `json:"rtt"`
}

// decodeMessage unpacks a ["type", payload] stream frame.
func decodeMessage(data []byte) (result, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return result{}, err
	}
	if len(frame) < 2 {
		return result{}, errNotResult
	}
	var typ string
	if err := json.Unmarshal(frame[0], &typ); err != nil {
		return result{}, err
	}
	if typ != messageTypeResult {
		return result{}, errNotResult
	}
	var r result
	if err := json.Unmarshal(frame[1], &r); err != nil {
		return result{}, err
	}
	return r, nil
}

// target returns the first non-empty destination identifier.
func (r result) target() string {
	for _, v := range []string{r.Target, r.DstName, r.DstAddr} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// rtt extracts a round-trip time in milliseconds. result may be a single
// object or a list of replies; the first numeric rtt wins. A non-negative
// avg is used when no reply carries one.
func (r result) rtt() (float64, bool) {
	raw := bytes.TrimSpace(r.Result)
	if len(raw) > 0 {
		switch raw[0] {
		case '{':
			var h hop
			if json.Unmarshal(raw, &h) == nil && validRTT(h.RTT) {
				return *h.RTT, true
			}
		case '[':
			var hops []json.RawMessage
			if json.Unmarshal(raw, &hops) == nil {
				for _, item := range hops {
					var h hop
					if json.Unmarshal(item, &h) == nil && validRTT(h.RTT) {
						return *h.RTT, true
					}
				}
			}
		}
	}
	if validRTT(r.Avg) {
		return *r.Avg, true
	}
	return 0, false
}

func validRTT(v *float64) bool {
	return v != nil && *v >= 0 && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Resolver maps foreign targets onto roster endpoints.
type Resolver struct {
	endpoints []models.Endpoint
}

// NewResolver builds a resolver over the roster, preserving its order.
func NewResolver(endpoints []models.Endpoint) *Resolver {
	out := make([]models.Endpoint, len(endpoints))
	copy(out, endpoints)
	return &Resolver{endpoints: out}
}

// Resolve returns the first endpoint whose host appears in target.
func (r *Resolver) Resolve(target string) (models.Endpoint, bool) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return models.Endpoint{}, false
	}
	for _, e := range r.endpoints {
		host := strings.ToLower(e.Host)
		if host != "" && strings.Contains(target, host) {
			return e, true
		}
	}
	return models.Endpoint{}, false
}
