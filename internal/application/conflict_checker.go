package application

import (
	"context"

	"github.com/example/resource-scheduler/internal/scheduler"
)

// ConflictChecker decides whether a resource is free for a candidate interval.
type ConflictChecker struct{}

// NewConflictChecker returns a ConflictChecker.
func NewConflictChecker() *ConflictChecker {
	return &ConflictChecker{}
}

// FindConflict walks the resource's allocations in storage order and returns
// the first booking whose event overlaps candidate. Events are resolved one at
// a time so the walk stops at the first hit. Allocations whose event no
// longer exists occupy no time and are skipped.
func (c *ConflictChecker) FindConflict(ctx context.Context, reader BookingReader, resourceID string, candidate scheduler.Interval) (scheduler.Booking, bool, error) {
	allocations, err := reader.ListAllocationsForResource(ctx, resourceID)
	if err != nil {
		return scheduler.Booking{}, false, err
	}

	for _, allocation := range allocations {
		event, err := reader.GetEvent(ctx, allocation.EventID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return scheduler.Booking{}, false, err
		}
		if scheduler.Overlaps(event.Interval(), candidate) {
			return scheduler.Booking{EventID: event.ID, Interval: event.Interval()}, true, nil
		}
	}
	return scheduler.Booking{}, false, nil
}
