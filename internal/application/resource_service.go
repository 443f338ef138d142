package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/resource-scheduler/internal/persistence"
)

// ResourceRepository captures the persistence operations needed by the service.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	// ListResources returns resources in creation order.
	ListResources(ctx context.Context) ([]Resource, error)
	// DeleteResource must remove the resource's allocations in the same transaction.
	DeleteResource(ctx context.Context, id string) error
}

// BookingReader resolves the events booked on a resource.
type BookingReader interface {
	ListAllocationsForResource(ctx context.Context, resourceID string) ([]Allocation, error)
	GetEvent(ctx context.Context, id string) (Event, error)
}

// ResourceService orchestrates validation and persistence for resources.
type ResourceService struct {
	resources   ResourceRepository
	bookings    BookingReader
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources ResourceRepository, bookings BookingReader, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, bookings, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, bookings BookingReader, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and persists a new resource.
func (s *ResourceService) CreateResource(ctx context.Context, input ResourceInput) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID, "resource_type", resource.Type).InfoContext(ctx, "resource created")
	}()

	if vErr := validateResourceInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	resource = Resource{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Type:      strings.TrimSpace(input.Type),
		CreatedAt: s.now(),
	}

	var persisted Resource
	persisted, err = s.resources.CreateResource(ctx, resource)
	if err != nil {
		err = mapResourceRepoError(err, resource.ID)
		return
	}

	resource = persisted
	return
}

// GetResource returns a single resource.
func (s *ResourceService) GetResource(ctx context.Context, resourceID string) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}

	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		err = mapResourceRepoError(err, resourceID)
		s.loggerWith(ctx, "GetResource", "resource_id", resourceID).
			ErrorContext(ctx, "failed to get resource", "error", err, "error_kind", ErrorKind(err))
		return Resource{}, err
	}
	return resource, nil
}

// ListResources returns all resources in creation order.
func (s *ResourceService) ListResources(ctx context.Context) (resources []Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListResources")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).DebugContext(ctx, "resources listed")
	}()

	resources, err = s.resources.ListResources(ctx)
	return
}

// DeleteResource removes a resource together with its allocations.
func (s *ResourceService) DeleteResource(ctx context.Context, resourceID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteResource", "resource_id", resourceID)

	if err := s.resources.DeleteResource(ctx, resourceID); err != nil {
		err = mapResourceRepoError(err, resourceID)
		logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "resource deleted")
	return nil
}

// ResourceBookings returns the resource together with the events booked on
// it, ordered by start time.
func (s *ResourceService) ResourceBookings(ctx context.Context, resourceID string) (resource Resource, events []Event, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil || s.bookings == nil {
		err = fmt.Errorf("resource repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResourceBookings", "resource_id", resourceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load resource bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).DebugContext(ctx, "resource bookings loaded")
	}()

	resource, err = s.resources.GetResource(ctx, resourceID)
	if err != nil {
		err = mapResourceRepoError(err, resourceID)
		return
	}

	var allocations []Allocation
	allocations, err = s.bookings.ListAllocationsForResource(ctx, resourceID)
	if err != nil {
		return
	}

	events = make([]Event, 0, len(allocations))
	for _, allocation := range allocations {
		var event Event
		event, err = s.bookings.GetEvent(ctx, allocation.EventID)
		if err != nil {
			if isNotFound(err) {
				err = nil
				continue
			}
			return
		}
		events = append(events, event)
	}

	sortEvents(events)
	return
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Type) == "" {
		vErr.add("type", "type is required")
	}

	return vErr
}

func mapResourceRepoError(err error, resourceID string) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return &NotFoundError{Entity: EntityResource, ID: resourceID}
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("resource", "resource violates a storage constraint")
		return vErr
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

// sortEvents orders events by start time, then ID.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
