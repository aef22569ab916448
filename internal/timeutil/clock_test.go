package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, before %v", now, before)
	}
	if d := clock.Since(time.Now().Add(-time.Second)); d < time.Second {
		t.Errorf("Since() = %v, want >= 1s", d)
	}

	ticker := clock.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("real ticker did not fire")
	}
}

func TestMockClock_NowSetSince(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", clock.Now(), start)
	}
	clock.Set(start.Add(time.Minute))
	if got := clock.Since(start); got != time.Minute {
		t.Errorf("Since() = %v, want 1m", got)
	}
}

func TestMockTicker_Advance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	tk := clock.NewTicker(100 * time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired before its deadline")
	default:
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
	default:
		t.Fatal("ticker did not fire at its deadline")
	}

	tk.Stop()
	clock.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
	if n := clock.TickerCount(); n != 0 {
		t.Errorf("TickerCount() = %d after Stop, want 0", n)
	}
}

func TestMockTicker_Reset(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	tk := clock.NewTicker(time.Second).(*MockTicker)

	tk.Reset(10 * time.Millisecond)
	if tk.Interval() != 10*time.Millisecond {
		t.Errorf("Interval() = %v after Reset", tk.Interval())
	}
	clock.Advance(10 * time.Millisecond)
	select {
	case <-tk.C():
	default:
		t.Fatal("ticker did not fire on the reset period")
	}
}

func TestMockTicker_TriggerDropsWhenPending(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	tk := clock.NewTicker(time.Hour).(*MockTicker)

	tk.Trigger(time.Unix(1, 0))
	tk.Trigger(time.Unix(2, 0))

	got := <-tk.C()
	if !got.Equal(time.Unix(1, 0)) {
		t.Errorf("first tick = %v, want %v", got, time.Unix(1, 0))
	}
	select {
	case <-tk.C():
		t.Error("second Trigger should have been dropped")
	default:
	}
}
