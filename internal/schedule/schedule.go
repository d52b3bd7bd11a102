// Package schedule provides the clock the lending engine uses to defer
// transitions. Production code runs on the wall clock; tests drive a Manual
// clock forward explicitly.
package schedule

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler reports the current time and runs callbacks after a delay.
// There is no way to cancel a scheduled callback.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type clockScheduler struct {
	clock clock.Clock
}

// FromClock adapts a benbjohnson clock to a Scheduler.
func FromClock(c clock.Clock) Scheduler {
	return &clockScheduler{clock: c}
}

// Real returns a Scheduler backed by the wall clock.
func Real() Scheduler {
	return FromClock(clock.New())
}

func (s *clockScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *clockScheduler) AfterFunc(d time.Duration, f func()) {
	s.clock.AfterFunc(d, f)
}
