package scheduler

import (
	"math"
	"sort"
	"time"
)

// Usage accumulates how much of a reporting window a resource is booked for,
// and which of its bookings start after the window closes.
type Usage struct {
	Window   Interval
	Utilized time.Duration
	Upcoming []Booking
}

// NewUsage returns an empty accumulator for window.
func NewUsage(window Interval) *Usage {
	return &Usage{Window: window}
}

// Add folds a booking into the usage. Only the part of the booking inside the
// window counts; bookings starting strictly after the window end are recorded
// as upcoming.
func (u *Usage) Add(b Booking) {
	u.Utilized += Intersection(b.Interval, u.Window).Duration()
	if b.Start.After(u.Window.End) {
		u.Upcoming = append(u.Upcoming, b)
	}
}

// SortedUpcoming returns the upcoming bookings ordered by start, then event ID.
func (u *Usage) SortedUpcoming() []Booking {
	out := make([]Booking, len(u.Upcoming))
	copy(out, u.Upcoming)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

// Hours converts d to hours rounded to two decimal places.
func Hours(d time.Duration) float64 {
	return round2(d.Hours())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
