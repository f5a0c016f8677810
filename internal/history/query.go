package history

import (
	"time"

	"latencywatch/internal/models"
)

// Source provides a consistent copy of an endpoint's retained samples.
type Source interface {
	History(id string) []models.Sample
}

// Window is an inclusive time range. A nil bound is unbounded on that side.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	if w.From != nil && ts.Before(*w.From) {
		return false
	}
	if w.To != nil && ts.After(*w.To) {
		return false
	}
	return true
}

// Query returns, in append order, the samples for id whose timestamp lies in
// the window. Unknown ids yield an empty, non-nil slice.
func Query(src Source, id string, w Window) []models.Sample {
	samples := src.History(id)
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if w.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out
}
