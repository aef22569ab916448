package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/testutil"
	"github.com/banshee-data/arplayback/internal/timeutil"
)

type recordingObserver struct {
	steps []Step
}

func (o *recordingObserver) ObserveStep(s Step) { o.steps = append(o.steps, s) }

func newDriver(t *testing.T, n int, ropts ReaderOptions, dopts DriverOptions) *Driver {
	t.Helper()
	d, err := NewDriver(newReader(t, n, ropts), dopts)
	require.NoError(t, err)
	return d
}

func startDriver(t *testing.T, d *Driver, clock *timeutil.MockClock) (cancel func(), errCh <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- d.Run(ctx) }()
	if clock != nil {
		require.Eventually(t, func() bool { return clock.TickerCount() == 1 }, time.Second, time.Millisecond)
	}
	t.Cleanup(cancelFn)
	return cancelFn, ch
}

func tick(t *testing.T, d *Driver, clock *timeutil.MockClock, wantSteps uint64) {
	t.Helper()
	clock.Advance(d.TickInterval())
	require.Eventually(t, func() bool { return d.Snapshot().Steps == wantSteps }, time.Second, time.Millisecond)
}

func TestNewDriver_Validation(t *testing.T) {
	_, err := NewDriver(nil, DriverOptions{})
	assert.Error(t, err)

	r := newReader(t, 3, ReaderOptions{})
	for _, rate := range []float64{-1, MaxRate + 1} {
		_, err := NewDriver(r, DriverOptions{Rate: rate})
		assert.Error(t, err, "rate %v", rate)
	}

	d, err := NewDriver(r, DriverOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Snapshot().Rate)
	assert.Equal(t, time.Second/30, d.TickInterval())
}

func TestDriver_TicksOnMockClock(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	d := newDriver(t, 5, ReaderOptions{}, DriverOptions{Clock: clock})
	startDriver(t, d, clock)

	for i := 1; i <= 3; i++ {
		tick(t, d, clock, uint64(i))
	}
	st := d.Snapshot()
	assert.Equal(t, 2, st.FrameIndex)
	assert.Equal(t, "playing", st.State)
}

func TestDriver_ExitOnFinish(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := newDriver(t, 3, ReaderOptions{}, DriverOptions{Clock: clock, ExitOnFinish: true})
	_, errCh := startDriver(t, d, clock)

	for i := 1; i <= 3; i++ {
		tick(t, d, clock, uint64(i))
	}
	clock.Advance(d.TickInterval())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the reader finished")
	}
	assert.True(t, d.Snapshot().Finished)
	assert.Equal(t, 0, clock.TickerCount(), "ticker should be stopped")
}

func TestDriver_CancelStopsRun(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := newDriver(t, 3, ReaderOptions{}, DriverOptions{Clock: clock})
	cancel, errCh := startDriver(t, d, clock)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDriver_PausedIgnoresTicks(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := newDriver(t, 5, ReaderOptions{}, DriverOptions{Clock: clock, Paused: true})
	startDriver(t, d, clock)

	var tk *timeutil.MockTicker
	d.mu.Lock()
	tk = d.ticker.(*timeutil.MockTicker)
	d.mu.Unlock()

	clock.Advance(d.TickInterval())
	require.Eventually(t, func() bool { return len(tk.C()) == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	st := d.Snapshot()
	assert.True(t, st.Paused)
	assert.Zero(t, st.Steps)
	assert.Equal(t, -1, st.FrameIndex)
}

func TestDriver_SetRate(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	d := newDriver(t, 5, ReaderOptions{}, DriverOptions{Clock: clock})
	startDriver(t, d, clock)

	require.NoError(t, d.SetRate(2))
	assert.Equal(t, time.Second/60, d.TickInterval())
	d.mu.Lock()
	interval := d.ticker.(*timeutil.MockTicker).Interval()
	d.mu.Unlock()
	assert.Equal(t, time.Second/60, interval)

	assert.Error(t, d.SetRate(0))
	assert.Equal(t, 2.0, d.Snapshot().Rate)

	tick(t, d, clock, 1)
}

func TestDriver_ManualStepping(t *testing.T) {
	obs := &recordingObserver{}
	clock := timeutil.NewMockClock(time.Unix(50, 0))
	d := newDriver(t, 3, ReaderOptions{LoopInfinitely: true}, DriverOptions{
		Clock:          clock,
		ManualStepping: true,
		Observers:      []StepObserver{obs},
	})
	startDriver(t, d, nil)
	assert.Equal(t, 0, clock.TickerCount(), "manual mode must not tick")

	for i := 0; i < 4; i++ {
		require.True(t, d.Step())
	}
	require.True(t, d.StepBack())

	var indices []int
	var forward []bool
	for _, s := range obs.steps {
		indices = append(indices, s.FrameIndex)
		forward = append(forward, s.Forward)
	}
	assert.Equal(t, []int{0, 1, 2, 1, 2}, indices)
	assert.Equal(t, []bool{true, true, true, false, true}, forward)
	assert.Equal(t, uint64(5), obs.steps[4].Seq)
	assert.Equal(t, time.Unix(50, 0), obs.steps[0].At)
	assert.Equal(t, orientation.LandscapeLeft, obs.steps[0].Orientation)

	for i := 1; i < len(obs.steps); i++ {
		assert.Greater(t, obs.steps[i].Timestamp, obs.steps[i-1].Timestamp)
	}
	assert.True(t, d.Snapshot().ManualStepping)
}

func TestDriver_ManualExitOnFinish(t *testing.T) {
	d := newDriver(t, 2, ReaderOptions{}, DriverOptions{ManualStepping: true, ExitOnFinish: true})
	_, errCh := startDriver(t, d, nil)

	assert.True(t, d.Step())
	assert.True(t, d.Step())
	assert.False(t, d.Step())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the reader finished")
	}
}

func TestDriver_WatchAndReset(t *testing.T) {
	d := newDriver(t, 4, ReaderOptions{}, DriverOptions{ManualStepping: true})
	ch, stop := d.Watch()
	defer stop()

	d.Step()
	d.Step()
	st := <-ch
	assert.Equal(t, 1, st.FrameIndex, "watchers keep only the newest status")
	assert.Equal(t, uint64(2), st.Steps)

	d.Reset()
	st = <-ch
	assert.Equal(t, "before_start", st.State)
	assert.Equal(t, -1, st.FrameIndex)

	stop()
	d.Step()
	select {
	case <-ch:
		t.Error("stopped watch received a status")
	default:
	}
}

func TestDriver_WithReaderMovesAreObserved(t *testing.T) {
	obs := &recordingObserver{}
	d := newDriver(t, 4, ReaderOptions{}, DriverOptions{ManualStepping: true})
	d.AddObserver(obs)

	d.WithReader(func(r *Reader) {
		r.TryMoveToNextFrame()
		r.TryMoveToNextFrame()
	})
	require.Len(t, obs.steps, 2)
	assert.Equal(t, 1, obs.steps[1].FrameIndex)

	d.WithReader(func(r *Reader) { r.Reset() })
	d.Step()
	assert.True(t, obs.steps[2].Forward)
	assert.Equal(t, 0, obs.steps[2].FrameIndex)
}

func TestDriver_StatusFields(t *testing.T) {
	d := newDriver(t, 6, ReaderOptions{StartFrame: testutil.IntPtr(1), EndFrame: testutil.IntPtr(4), LoopInfinitely: true},
		DriverOptions{ManualStepping: true, Rate: 0.5})
	st := d.Snapshot()
	assert.Equal(t, Status{
		State:          "before_start",
		FrameIndex:     0,
		StartFrame:     1,
		EndFrame:       4,
		FrameCount:     6,
		GoingForward:   true,
		Loop:           true,
		ManualStepping: true,
		Rate:           0.5,
		Orientation:    "unknown",
	}, st)
}
