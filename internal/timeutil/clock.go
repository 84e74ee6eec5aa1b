// Package timeutil provides the wall clock used to stamp report runs, and
// a controllable clock for tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the source of run start and finish times.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock. Times are UTC so ledger rows compare
// across hosts.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually controlled clock. When Step is non-zero every
// call to Now advances the clock by Step after reading it.
type MockClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// NewSteppingClock returns a MockClock that advances by step on every Now.
func NewSteppingClock(t time.Time, step time.Duration) *MockClock {
	return &MockClock{now: t, step: step}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Since measures against the current time without stepping.
func (c *MockClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
