// Package scheduler holds the interval arithmetic behind booking conflicts and
// utilisation reports. It has no storage or transport dependencies.
package scheduler

import "time"

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Duration returns the length of the interval, or zero when it is empty.
func (i Interval) Duration() time.Duration {
	if !i.Valid() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether a and b share at least one instant. Intervals that
// merely touch (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Intersection returns the shared part of a and b. The result is empty
// (Valid() == false) when they do not overlap.
func Intersection(a, b Interval) Interval {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !start.Before(end) {
		return Interval{Start: start, End: start}
	}
	return Interval{Start: start, End: end}
}

// Booking is an event interval committed to a resource.
type Booking struct {
	EventID string
	Interval
}
