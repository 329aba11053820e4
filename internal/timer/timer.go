// Package timer tracks per-question elapsed time and the overall session
// deadline. time.Now carries a monotonic clock reading on every supported
// platform, so elapsed deltas are unaffected by wall-clock adjustments.
package timer

import "time"

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// Authority owns the question-timer baseline and the session start
// instant. There is no pause/resume: once a question is current its timer
// runs until the cursor moves.
type Authority struct {
	clock     Clock
	sessionAt time.Time
	baseline  time.Time
}

// New creates an Authority using the given clock (nil means SystemClock).
func New(clock Clock) *Authority {
	if clock == nil {
		clock = SystemClock
	}
	return &Authority{clock: clock}
}

// StartSession records the session start instant and arms the first
// question timer.
func (a *Authority) StartSession() {
	now := a.clock.Now()
	a.sessionAt = now
	a.baseline = now
}

// ResetForQuestion re-arms the question timer. Called exactly on cursor
// change and on initial load.
func (a *Authority) ResetForQuestion() {
	a.baseline = a.clock.Now()
}

// ElapsedSeconds returns whole seconds since the question baseline,
// never negative.
func (a *Authority) ElapsedSeconds() int {
	if a.baseline.IsZero() {
		return 0
	}
	d := a.clock.Now().Sub(a.baseline)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// SessionElapsedSeconds returns whole seconds since StartSession.
func (a *Authority) SessionElapsedSeconds() int {
	if a.sessionAt.IsZero() {
		return 0
	}
	d := a.clock.Now().Sub(a.sessionAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// StartedAt returns the session start instant.
func (a *Authority) StartedAt() time.Time { return a.sessionAt }
