// Package history keeps a bounded window of recent metric samples.
package history

import "time"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 60

// Sample is a single timestamped reading.
type Sample struct {
	At    time.Time
	Value float64
}

// Ring is a fixed-capacity FIFO of samples. When full, Push evicts the oldest
// sample. The zero value is not usable; construct with New.
type Ring struct {
	buf   []Sample
	next  int
	count int
}

// New returns an empty ring holding at most capacity samples.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Push appends a sample, evicting the oldest one when the ring is full.
func (r *Ring) Push(s Sample) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len reports the number of stored samples.
func (r *Ring) Len() int { return r.count }

// Cap reports the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Values returns the stored samples ordered oldest to newest.
func (r *Ring) Values() []Sample {
	if r.count == 0 {
		return nil
	}
	out := make([]Sample, r.count)
	if r.count == len(r.buf) {
		for i := 0; i < r.count; i++ {
			out[i] = r.buf[(r.next+i)%len(r.buf)]
		}
		return out
	}
	copy(out, r.buf[:r.count])
	return out
}

// Last returns the newest sample.
func (r *Ring) Last() (Sample, bool) {
	if r.count == 0 {
		return Sample{}, false
	}
	idx := (r.next - 1 + len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Reset drops every sample.
func (r *Ring) Reset() {
	r.next = 0
	r.count = 0
}
