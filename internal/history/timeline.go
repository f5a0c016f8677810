package history

import (
	"time"

	"latencywatch/internal/models"
)

// DefaultTimelinePoints controls how many buckets we generate per endpoint.
const DefaultTimelinePoints = 60

const (
	classMissing = "state-missing"
	classSuccess = "state-success"
	classWarning = "state-warning"
	classError   = "state-error"
)

// BuildTimeline reduces samples into points equal-width buckets spanning
// [start, end]. Samples are expected in append order, which is close to but
// not strictly time order, so every sample is placed by its own timestamp.
func BuildTimeline(samples []models.Sample, start, end time.Time, points int) []models.TimelinePoint {
	if points <= 0 {
		points = DefaultTimelinePoints
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	bucketDuration := end.Sub(start) / time.Duration(points)
	if bucketDuration <= 0 {
		bucketDuration = time.Millisecond
	}

	type acc struct {
		count, passing int
		sum            int64
		min, max       int64
	}
	buckets := make([]acc, points)
	for _, s := range samples {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		idx := int(s.Timestamp.Sub(start) / bucketDuration)
		if idx >= points {
			idx = points - 1
		}
		b := &buckets[idx]
		b.count++
		if !s.OK() {
			continue
		}
		rtt := *s.RTTMs
		if b.passing == 0 || rtt < b.min {
			b.min = rtt
		}
		if b.passing == 0 || rtt > b.max {
			b.max = rtt
		}
		b.passing++
		b.sum += rtt
	}

	output := make([]models.TimelinePoint, 0, points)
	for i, b := range buckets {
		bucketStart := start.Add(time.Duration(i) * bucketDuration)
		bucketEnd := bucketStart.Add(bucketDuration)
		if i == points-1 {
			bucketEnd = end
		}
		point := models.TimelinePoint{
			Start:   bucketStart,
			End:     bucketEnd,
			Samples: b.count,
			Passing: b.passing,
		}
		point.ClassName, point.Label = evaluateBucket(b.count, b.passing)
		if b.passing > 0 {
			mean := float64(b.sum) / float64(b.passing)
			minRTT, maxRTT := b.min, b.max
			point.MeanRTTMs = &mean
			point.MinRTTMs = &minRTT
			point.MaxRTTMs = &maxRTT
		}
		output = append(output, point)
	}
	return output
}

func evaluateBucket(count, passing int) (className, label string) {
	switch {
	case count == 0:
		return classMissing, "No data"
	case passing == count:
		return classSuccess, "Operational"
	case passing == 0:
		return classError, "Unavailable"
	default:
		return classWarning, "Degraded"
	}
}
