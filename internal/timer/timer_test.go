package timer

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestElapsedSeconds(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	a := New(clock)
	a.StartSession()

	if got := a.ElapsedSeconds(); got != 0 {
		t.Fatalf("elapsed at baseline = %d, want 0", got)
	}

	clock.advance(42 * time.Second)
	if got := a.ElapsedSeconds(); got != 42 {
		t.Fatalf("elapsed = %d, want 42", got)
	}

	a.ResetForQuestion()
	if got := a.ElapsedSeconds(); got != 0 {
		t.Fatalf("elapsed after reset = %d, want 0", got)
	}

	clock.advance(7 * time.Second)
	if got := a.ElapsedSeconds(); got != 7 {
		t.Fatalf("elapsed after reset+7s = %d, want 7", got)
	}
	if got := a.SessionElapsedSeconds(); got != 49 {
		t.Fatalf("session elapsed = %d, want 49", got)
	}
}

func TestElapsedNeverNegative(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	a := New(clock)
	a.StartSession()

	// Simulate a wall-clock step backwards.
	clock.advance(-time.Hour)
	if got := a.ElapsedSeconds(); got != 0 {
		t.Fatalf("elapsed = %d, want 0 after backwards clock step", got)
	}
	if got := a.SessionElapsedSeconds(); got != 0 {
		t.Fatalf("session elapsed = %d, want 0 after backwards clock step", got)
	}
}

func TestUnstartedAuthority(t *testing.T) {
	a := New(nil)
	if got := a.ElapsedSeconds(); got != 0 {
		t.Fatalf("elapsed without baseline = %d, want 0", got)
	}
}
