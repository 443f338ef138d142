package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/resource-scheduler/internal/persistence"
	"github.com/example/resource-scheduler/internal/scheduler"
)

// AllocationTx is the view of the store available inside an allocation
// transaction.
type AllocationTx interface {
	BookingReader
	GetResource(ctx context.Context, id string) (Resource, error)
	CreateAllocation(ctx context.Context, allocation Allocation) (Allocation, error)
}

// AllocationStore runs allocation work atomically. When fn returns an error
// none of the allocations created through the AllocationTx may persist.
type AllocationStore interface {
	WithinAllocationTx(ctx context.Context, fn func(AllocationTx) error) error
}

// AllocationService books resources for events without ever double-booking a
// resource.
type AllocationService struct {
	store       AllocationStore
	checker     *ConflictChecker
	locks       *resourceLocks
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAllocationService constructs an allocation service with the provided dependencies.
func NewAllocationService(store AllocationStore, idGenerator func() string, now func() time.Time) *AllocationService {
	return NewAllocationServiceWithLogger(store, idGenerator, now, nil)
}

// NewAllocationServiceWithLogger constructs an allocation service with a specified logger.
func NewAllocationServiceWithLogger(store AllocationStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AllocationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AllocationService{
		store:       store,
		checker:     NewConflictChecker(),
		locks:       newResourceLocks(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AllocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AllocationService", operation, attrs...)
}

// BatchAllocate books every requested resource for the event, or none of
// them. Resources are checked in input order; the first missing resource or
// conflicting booking aborts the whole batch. A resource listed twice, or one
// already allocated to the event, conflicts with the event itself.
func (s *AllocationService) BatchAllocate(ctx context.Context, params BatchAllocateParams) (allocations []Allocation, err error) {
	if s == nil {
		err = fmt.Errorf("AllocationService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("allocation store not configured")
		return
	}

	eventID := strings.TrimSpace(params.EventID)
	logger := s.loggerWith(ctx, "BatchAllocate",
		"event_id", eventID,
		"resource_count", len(params.ResourceIDs),
	)
	defer func() {
		if err != nil {
			attrs := []any{"error", err, "error_kind", ErrorKind(err)}
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				attrs = append(attrs, "resource_id", conflict.ResourceID, "conflicting_event_id", conflict.ConflictingEventID)
			}
			logger.ErrorContext(ctx, "failed to allocate resources", attrs...)
			return
		}
		logger.With("allocation_count", len(allocations)).InfoContext(ctx, "resources allocated")
	}()

	resourceIDs, vErr := validateBatchAllocate(eventID, params.ResourceIDs)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	unlock := s.locks.lock(resourceIDs)
	defer unlock()

	err = s.store.WithinAllocationTx(ctx, func(tx AllocationTx) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return mapEventRepoError(err, eventID)
		}
		candidate := event.Interval()

		staged := make([]Allocation, 0, len(resourceIDs))
		stagedResources := make(map[string]struct{}, len(resourceIDs))

		for _, resourceID := range resourceIDs {
			resource, err := tx.GetResource(ctx, resourceID)
			if err != nil {
				return mapResourceRepoError(err, resourceID)
			}

			if _, dup := stagedResources[resourceID]; dup {
				return &ConflictError{
					ResourceID:         resource.ID,
					ResourceName:       resource.Name,
					EventID:            event.ID,
					ConflictingEventID: event.ID,
				}
			}

			booking, found, err := s.checker.FindConflict(ctx, tx, resourceID, candidate)
			if err != nil {
				return err
			}
			if found {
				return &ConflictError{
					ResourceID:         resource.ID,
					ResourceName:       resource.Name,
					EventID:            event.ID,
					ConflictingEventID: booking.EventID,
				}
			}

			stagedResources[resourceID] = struct{}{}
			staged = append(staged, Allocation{
				ID:         s.idGenerator(),
				EventID:    event.ID,
				ResourceID: resource.ID,
				CreatedAt:  s.now(),
			})
		}

		created := make([]Allocation, 0, len(staged))
		for _, allocation := range staged {
			persisted, err := tx.CreateAllocation(ctx, allocation)
			if err != nil {
				return mapAllocationRepoError(err, allocation)
			}
			created = append(created, persisted)
		}
		allocations = created
		return nil
	})
	if err != nil {
		allocations = nil
	}
	return
}

// CheckAvailability reports whether the resource is free for the given
// interval. A busy resource yields a *ConflictError naming the first
// blocking event; EventID is empty because the candidate is not stored.
func (s *AllocationService) CheckAvailability(ctx context.Context, params AvailabilityParams) (err error) {
	if s == nil {
		return fmt.Errorf("AllocationService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("allocation store not configured")
	}

	resourceID := strings.TrimSpace(params.ResourceID)
	logger := s.loggerWith(ctx, "CheckAvailability", "resource_id", resourceID)
	defer func() {
		switch {
		case err == nil:
			logger.DebugContext(ctx, "resource available")
		case errors.Is(err, ErrConflict):
			logger.DebugContext(ctx, "resource busy", "error", err)
		default:
			logger.ErrorContext(ctx, "failed to check availability", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	vErr := &ValidationError{}
	if resourceID == "" {
		vErr.add("resource_id", "resource_id is required")
	}
	vErr.merge("", validateWindow(params.Start, params.End))
	if vErr.HasErrors() {
		return vErr
	}

	candidate := scheduler.Interval{Start: params.Start, End: params.End}
	return s.store.WithinAllocationTx(ctx, func(tx AllocationTx) error {
		resource, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return mapResourceRepoError(err, resourceID)
		}
		booking, found, err := s.checker.FindConflict(ctx, tx, resourceID, candidate)
		if err != nil {
			return err
		}
		if found {
			return &ConflictError{
				ResourceID:         resource.ID,
				ResourceName:       resource.Name,
				ConflictingEventID: booking.EventID,
			}
		}
		return nil
	})
}

func validateBatchAllocate(eventID string, resourceIDs []string) ([]string, *ValidationError) {
	vErr := &ValidationError{}

	if eventID == "" {
		vErr.add("event_id", "event_id is required")
	}
	if len(resourceIDs) == 0 {
		vErr.add("resource_ids", "at least one resource is required")
	}

	trimmed := make([]string, 0, len(resourceIDs))
	for i, id := range resourceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			vErr.add(fmt.Sprintf("resource_ids[%d]", i), "resource id must not be blank")
			continue
		}
		trimmed = append(trimmed, id)
	}

	return trimmed, vErr
}

func validateWindow(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}

	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("end", "end must be after start")
	}

	return vErr
}

func mapAllocationRepoError(err error, allocation Allocation) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrDuplicate):
		return &ConflictError{
			ResourceID:         allocation.ResourceID,
			EventID:            allocation.EventID,
			ConflictingEventID: allocation.EventID,
		}
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return &NotFoundError{Entity: EntityResource, ID: allocation.ResourceID}
	}
	return err
}
