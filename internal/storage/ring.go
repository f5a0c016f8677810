package storage

import "latencywatch/internal/models"

// ring is a fixed-capacity FIFO of samples. Pushing onto a full ring
// overwrites the oldest entry.
type ring struct {
	buf   []models.Sample
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.Sample, capacity)}
}

func (r *ring) push(s models.Sample) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int { return r.size }

// slice copies the ring contents, oldest first.
func (r *ring) slice() []models.Sample {
	out := make([]models.Sample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) last() (models.Sample, bool) {
	if r.size == 0 {
		return models.Sample{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}
