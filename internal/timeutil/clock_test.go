package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
	if now.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", now.Location())
	}
	if d := clock.Since(time.Now().Add(-time.Second)); d < time.Second {
		t.Errorf("Since() = %v, expected >= 1s", d)
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2021, 9, 16, 10, 50, 21, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() moved without Step: %v", got)
	}

	clock.Advance(1500 * time.Millisecond)
	if got := clock.Since(start); got != 1500*time.Millisecond {
		t.Errorf("Since() = %v after Advance", got)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("Now() = %v after Set", got)
	}
}

func TestSteppingClock(t *testing.T) {
	start := time.Date(2021, 9, 16, 0, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(start, time.Second)

	first := clock.Now()
	second := clock.Now()
	if !first.Equal(start) || second.Sub(first) != time.Second {
		t.Errorf("Now() sequence = %v, %v", first, second)
	}
	if got := clock.Since(start); got != 2*time.Second {
		t.Errorf("Since() = %v, want 2s", got)
	}
	if got := clock.Since(start); got != 2*time.Second {
		t.Errorf("Since() must not step, got %v", got)
	}
}
