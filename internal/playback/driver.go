package playback

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/timeutil"
)

// MaxRate bounds the playback speed multiplier.
const MaxRate = 16.0

const defaultFrameRate = 30

// Step describes one applied cursor move.
type Step struct {
	Seq         uint64 // 1-based count of moves since the driver was created
	FrameIndex  int
	Timestamp   float64 // exposed timestamp, loop offset applied
	Forward     bool
	Orientation orientation.ScreenOrientation
	At          time.Time
}

// StepObserver receives every applied step in order. It is called with the
// driver lock held and must not call back into the Driver.
type StepObserver interface {
	ObserveStep(Step)
}

// Status is a point-in-time snapshot of a driven reader.
type Status struct {
	State               string  `json:"state"`
	FrameIndex          int     `json:"frame_index"`
	StartFrame          int     `json:"start_frame"`
	EndFrame            int     `json:"end_frame"`
	FrameCount          int     `json:"frame_count"`
	Finished            bool    `json:"finished"`
	GoingForward        bool    `json:"going_forward"`
	Loop                bool    `json:"loop"`
	Paused              bool    `json:"paused"`
	ManualStepping      bool    `json:"manual_stepping"`
	Rate                float64 `json:"rate"`
	Timestamp           float64 `json:"timestamp"`
	TimestampLoopOffset float64 `json:"timestamp_loop_offset"`
	Orientation         string  `json:"orientation"`
	Steps               uint64  `json:"steps"`
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	Clock          timeutil.Clock // defaults to timeutil.RealClock
	ManualStepping bool           // step only on Step/StepBack
	Rate           float64        // speed multiplier, defaults to 1
	Paused         bool
	ExitOnFinish   bool // Run returns once the reader finishes
	Observers      []StepObserver
}

// Driver paces a Reader. In automatic mode Run moves to the next frame on
// every tick of a ticker at the dataset frame rate scaled by Rate; in manual
// mode frames move only through Step and StepBack.
type Driver struct {
	clock        timeutil.Clock
	manual       bool
	exitOnFinish bool

	mu        sync.Mutex
	reader    *Reader
	rate      float64
	paused    bool
	steps     uint64
	lastIndex int
	ticker    timeutil.Ticker
	observers []StepObserver
	watchers  map[int]chan Status
	nextWatch int

	finished chan struct{}
}

// NewDriver returns a Driver owning r. r must not be used directly
// afterwards except through WithReader.
func NewDriver(r *Reader, opts DriverOptions) (*Driver, error) {
	if r == nil {
		return nil, fmt.Errorf("driver: nil reader")
	}
	rate := opts.Rate
	if rate == 0 {
		rate = 1
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	d := &Driver{
		clock:        clock,
		manual:       opts.ManualStepping,
		exitOnFinish: opts.ExitOnFinish,
		reader:       r,
		rate:         rate,
		paused:       opts.Paused,
		observers:    append([]StepObserver(nil), opts.Observers...),
		watchers:     make(map[int]chan Status),
		finished:     make(chan struct{}, 1),
		lastIndex:    r.CurrentFrameIndex(),
	}
	r.OnFrameChanged(d.frameChanged)
	return d, nil
}

func validateRate(rate float64) error {
	if rate <= 0 || rate > MaxRate {
		return fmt.Errorf("rate %v must be in (0, %v]", rate, MaxRate)
	}
	return nil
}

// frameChanged runs inside a reader move, so d.mu is already held.
func (d *Driver) frameChanged() {
	d.steps++
	idx := d.reader.CurrentFrameIndex()
	s := Step{
		Seq:         d.steps,
		FrameIndex:  idx,
		Timestamp:   d.reader.CurrentTimestamp(),
		Forward:     idx > d.lastIndex,
		Orientation: d.reader.CurrentOrientation(),
		At:          d.clock.Now(),
	}
	d.lastIndex = idx
	for _, o := range d.observers {
		o.ObserveStep(s)
	}
	d.broadcastLocked()
}

func (d *Driver) broadcastLocked() {
	st := d.statusLocked()
	for _, ch := range d.watchers {
		// Keep only the newest status for slow watchers.
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// move applies one composite move and signals Run when the reader finishes.
func (d *Driver) move(next bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	var moved bool
	if next {
		moved = d.reader.TryMoveToNextFrame()
	} else {
		moved = d.reader.TryMoveToPreviousFrame()
	}
	if !moved && d.reader.IsFinished() {
		select {
		case d.finished <- struct{}{}:
		default:
		}
	}
	return moved
}

// Step moves to the next frame in the current playback direction.
func (d *Driver) Step() bool { return d.move(true) }

// StepBack moves against the current playback direction.
func (d *Driver) StepBack() bool { return d.move(false) }

// Reset rewinds the reader to before its start frame.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reader.Reset()
	d.lastIndex = d.reader.CurrentFrameIndex()
	d.broadcastLocked()
}

// SetPaused stops or resumes automatic ticking.
func (d *Driver) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
}

// SetRate changes the speed multiplier, restarting the ticker if running.
func (d *Driver) SetRate(rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = rate
	if d.ticker != nil {
		d.ticker.Reset(d.intervalLocked())
	}
	return nil
}

// TickInterval returns the current automatic step period.
func (d *Driver) TickInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intervalLocked()
}

func (d *Driver) intervalLocked() time.Duration {
	fps := d.reader.FrameRate()
	if fps <= 0 {
		fps = defaultFrameRate
	}
	return time.Duration(float64(time.Second) / (float64(fps) * d.rate))
}

// AddObserver registers o for subsequent steps.
func (d *Driver) AddObserver(o StepObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Watch returns a channel carrying the latest status after every step or
// reset, and a func that stops the watch.
func (d *Driver) Watch() (<-chan Status, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextWatch
	d.nextWatch++
	ch := make(chan Status, 1)
	d.watchers[id] = ch
	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.watchers, id)
	}
}

// WithReader runs fn with exclusive access to the reader. Moves made by fn
// are reported to observers like any other step.
func (d *Driver) WithReader(fn func(*Reader)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.reader)
	d.lastIndex = d.reader.CurrentFrameIndex()
}

// Snapshot returns the current status.
func (d *Driver) Snapshot() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked()
}

func (d *Driver) statusLocked() Status {
	r := d.reader
	return Status{
		State:               r.State().String(),
		FrameIndex:          r.CurrentFrameIndex(),
		StartFrame:          r.StartFrame(),
		EndFrame:            r.EndFrame(),
		FrameCount:          r.FrameCount(),
		Finished:            r.IsFinished(),
		GoingForward:        r.GoingForward(),
		Loop:                r.LoopInfinitely(),
		Paused:              d.paused,
		ManualStepping:      d.manual,
		Rate:                d.rate,
		Timestamp:           r.CurrentTimestamp(),
		TimestampLoopOffset: r.TimestampLoopOffset(),
		Orientation:         r.CurrentOrientation().String(),
		Steps:               d.steps,
	}
}

// Run paces the reader until ctx is cancelled, or until the reader finishes
// when ExitOnFinish is set. In manual mode it only waits.
func (d *Driver) Run(ctx context.Context) error {
	if d.manual {
		return d.waitManual(ctx)
	}

	d.mu.Lock()
	ticker := d.clock.NewTicker(d.intervalLocked())
	d.ticker = ticker
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.ticker = nil
		d.mu.Unlock()
		ticker.Stop()
	}()

	log.Printf("[driver] playing %d frames at %v per frame", d.Snapshot().FrameCount, d.TickInterval())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if d.isPaused() {
				continue
			}
			if !d.Step() && d.exitOnFinish && d.isFinished() {
				log.Printf("[driver] playback finished")
				return nil
			}
		}
	}
}

func (d *Driver) waitManual(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.finished:
			if d.exitOnFinish && d.isFinished() {
				log.Printf("[driver] playback finished")
				return nil
			}
		}
	}
}

func (d *Driver) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *Driver) isFinished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader.IsFinished()
}
