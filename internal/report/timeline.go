// Package report turns playback runs and capture datasets into charts:
// go-echarts HTML for the live server and gonum/plot PNGs for offline review.
package report

import (
	"sync"

	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/playback"
)

// DefaultTimelineCapacity bounds the samples a Timeline keeps.
const DefaultTimelineCapacity = 10000

// Sample is one recorded playback step.
type Sample struct {
	Seq         uint64
	FrameIndex  int
	Timestamp   float64
	Forward     bool
	Orientation orientation.ScreenOrientation
}

// Timeline records driver steps as a bounded ring of samples.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	samples  []Sample
	dropped  uint64
}

// NewTimeline returns a Timeline keeping at most capacity samples;
// capacity <= 0 selects DefaultTimelineCapacity.
func NewTimeline(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = DefaultTimelineCapacity
	}
	return &Timeline{capacity: capacity}
}

// ObserveStep implements playback.StepObserver.
func (t *Timeline) ObserveStep(s playback.Step) {
	t.Add(Sample{
		Seq:         s.Seq,
		FrameIndex:  s.FrameIndex,
		Timestamp:   s.Timestamp,
		Forward:     s.Forward,
		Orientation: s.Orientation,
	})
}

// Add appends a sample, evicting the oldest once full.
func (t *Timeline) Add(s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == t.capacity {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:len(t.samples)-1]
		t.dropped++
	}
	t.samples = append(t.samples, s)
}

// Samples returns a copy of the recorded samples, oldest first.
func (t *Timeline) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

// Dropped reports how many samples were evicted.
func (t *Timeline) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = nil
	t.dropped = 0
}
