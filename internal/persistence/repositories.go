package persistence

import "context"

// EventRepository exposes CRUD operations for events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	// DeleteEvent removes the event together with its allocations.
	DeleteEvent(ctx context.Context, id string) error
}

// ResourceRepository exposes CRUD operations for resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	// ListResources returns resources in creation order.
	ListResources(ctx context.Context) ([]Resource, error)
	// DeleteResource removes the resource together with its allocations.
	DeleteResource(ctx context.Context, id string) error
}

// AllocationQueries is the set of reads and writes available inside an
// allocation transaction.
type AllocationQueries interface {
	GetEvent(ctx context.Context, id string) (Event, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	ListAllocationsForResource(ctx context.Context, resourceID string) ([]Allocation, error)
	CreateAllocation(ctx context.Context, allocation Allocation) error
}

// AllocationRepository stores resource allocations.
type AllocationRepository interface {
	ListAllocationsForResource(ctx context.Context, resourceID string) ([]Allocation, error)
	ListAllocationsForEvent(ctx context.Context, eventID string) ([]Allocation, error)
	DeleteAllocation(ctx context.Context, id string) error
	// WithinAllocationTx runs fn inside one write transaction. Any error
	// returned by fn discards every write made through the supplied queries.
	WithinAllocationTx(ctx context.Context, fn func(AllocationQueries) error) error
}
