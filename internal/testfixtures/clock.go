// Package testfixtures holds shared fixtures for time-dependent tests.
package testfixtures

import "time"

var tokyo = time.FixedZone("JST", 9*60*60)

// ReferenceTime returns the canonical instant used across tests: Thursday
// 2026-01-15 09:30 JST. A Thursday morning exercises both the same-day and
// the wrap-around weekday resolution paths.
func ReferenceTime() time.Time {
	return time.Date(2026, time.January, 15, 9, 30, 0, 0, tokyo)
}

// Clock is a frozen time source injected where production code takes a
// now function.
type Clock struct {
	now time.Time
}

// NewClock freezes the clock at the supplied instant. The zero value selects
// ReferenceTime.
func NewClock(at time.Time) *Clock {
	if at.IsZero() {
		at = ReferenceTime()
	}
	return &Clock{now: at}
}

// Now returns the frozen instant.
func (c *Clock) Now() time.Time {
	return c.now
}

// NowFunc adapts the clock to the now-function shape services are built with.
// A nil clock falls through to the real time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}
