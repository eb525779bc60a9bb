package chat

import "sort"

// DefaultWindowSeconds is the fixed bucket width used by the analysis
// pipeline when no override is configured.
const DefaultWindowSeconds = 30

// Accumulator deposits scored messages into fixed-width time buckets keyed by
// floor(offsetSeconds/windowSec)*windowSec. It is not safe for concurrent
// writers; the analysis pipeline drives it from a single goroutine per video.
type Accumulator struct {
	windowSec int
	buckets   map[int]*Bucket
}

// NewAccumulator builds an Accumulator with the given bucket width in
// seconds. A non-positive windowSec falls back to DefaultWindowSeconds.
func NewAccumulator(windowSec int) *Accumulator {
	if windowSec <= 0 {
		windowSec = DefaultWindowSeconds
	}
	return &Accumulator{
		windowSec: windowSec,
		buckets:   make(map[int]*Bucket),
	}
}

// WindowSeconds returns the accumulator's bucket width.
func (a *Accumulator) WindowSeconds() int {
	return a.windowSec
}

// AddMessage scores m and deposits it into the bucket for its offset.
// Negative offsets are clamped to bucket 0; ScoreMessage is idempotent, so
// re-adding the same message twice double-counts it deliberately rather than
// silently deduping, which is the caller's responsibility upstream.
func (a *Accumulator) AddMessage(m Message) {
	offset := m.OffsetSeconds
	if offset < 0 {
		offset = 0
	}
	key := (offset / a.windowSec) * a.windowSec

	b, ok := a.buckets[key]
	if !ok {
		b = &Bucket{StartSec: key}
		a.buckets[key] = b
	}
	b.deposit(offset, m.Text(), ScoreMessage(m))
}

// GetBuckets returns all non-empty buckets sorted by StartSec ascending.
func (a *Accumulator) GetBuckets() []*Bucket {
	out := make([]*Bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartSec < out[j].StartSec })
	return out
}
