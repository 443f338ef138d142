package persistence

import "time"

// Event represents a scheduled occurrence stored in persistence.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	Description *string
	CreatedAt   time.Time
}

// Resource represents a bookable room or piece of equipment.
type Resource struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
}

// Allocation binds a resource to an event for the event's full duration.
// Allocations are never updated once written.
type Allocation struct {
	ID         string
	EventID    string
	ResourceID string
	CreatedAt  time.Time
}
