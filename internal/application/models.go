package application

import (
	"time"

	"github.com/example/resource-scheduler/internal/scheduler"
)

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Event represents a persisted event.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// Interval returns the half-open time range occupied by the event.
func (e Event) Interval() scheduler.Interval {
	return scheduler.Interval{Start: e.Start, End: e.End}
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name string
	Type string
}

// Resource represents a bookable room or piece of equipment.
type Resource struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
}

// Allocation binds a resource to an event for the event's full duration.
type Allocation struct {
	ID         string
	EventID    string
	ResourceID string
	CreatedAt  time.Time
}

// BatchAllocateParams wraps the data required to allocate resources to an event.
type BatchAllocateParams struct {
	EventID     string
	ResourceIDs []string
}

// AvailabilityParams describes a prospective booking to probe for conflicts.
type AvailabilityParams struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}

// ReportParams bounds a utilisation report. WindowStart must precede WindowEnd.
type ReportParams struct {
	WindowStart time.Time
	WindowEnd   time.Time
}

// ResourceUtilization is one row of a utilisation report.
type ResourceUtilization struct {
	ResourceID   string
	ResourceName string
	ResourceType string
	// Utilized is the exact booked time inside the window.
	Utilized time.Duration
	// TotalHours is Utilized in hours, rounded to two decimal places.
	TotalHours     float64
	UpcomingEvents []Event
}
