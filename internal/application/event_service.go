package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/resource-scheduler/internal/persistence"
)

// EventRepository captures the persistence operations needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	// DeleteEvent must remove the event's allocations in the same transaction.
	DeleteEvent(ctx context.Context, id string) error
}

// EventAllocationLister lists the allocations held by an event.
type EventAllocationLister interface {
	ListAllocationsForEvent(ctx context.Context, eventID string) ([]Allocation, error)
}

// EventService orchestrates validation and persistence for events.
type EventService struct {
	events      EventRepository
	allocations EventAllocationLister
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRepository, allocations EventAllocationLister, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, allocations, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, allocations EventAllocationLister, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		allocations: allocations,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates input and persists a new event. Events whose start is
// not strictly before their end are rejected.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.create(ctx, input)
	return
}

// ImportEvents creates a batch of events. Every input is validated before the
// first one is stored; validation failures are reported per index.
func (s *EventService) ImportEvents(ctx context.Context, inputs []EventInput) (events []Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ImportEvents", "input_count", len(inputs))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import events",
				"error", err,
				"error_kind", ErrorKind(err),
				"imported_count", len(events),
			)
			return
		}
		logger.With("imported_count", len(events)).InfoContext(ctx, "events imported")
	}()

	vErr := &ValidationError{}
	if len(inputs) == 0 {
		vErr.add("events", "at least one event is required")
	}
	for i, input := range inputs {
		vErr.merge(fmt.Sprintf("events[%d].", i), validateEventInput(input))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	events = make([]Event, 0, len(inputs))
	for _, input := range inputs {
		var event Event
		event, err = s.create(ctx, input)
		if err != nil {
			return
		}
		events = append(events, event)
	}
	return
}

func (s *EventService) create(ctx context.Context, input EventInput) (Event, error) {
	event := Event{
		ID:          s.idGenerator(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Start:       input.Start,
		End:         input.End,
		CreatedAt:   s.now(),
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, mapEventRepoError(err, event.ID)
	}
	return persisted, nil
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err, eventID)
		s.loggerWith(ctx, "GetEvent", "event_id", eventID).
			ErrorContext(ctx, "failed to get event", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}
	return event, nil
}

// ListEvents returns all events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context) (events []Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListEvents")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).DebugContext(ctx, "events listed")
	}()

	events, err = s.events.ListEvents(ctx)
	return
}

// DeleteEvent removes an event together with its allocations.
func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "event_id", eventID)

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err, eventID)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// ListEventAllocations returns the allocations held by an existing event.
func (s *EventService) ListEventAllocations(ctx context.Context, eventID string) (allocations []Allocation, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil || s.allocations == nil {
		err = fmt.Errorf("event repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListEventAllocations", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list event allocations", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if _, err = s.events.GetEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err, eventID)
		return
	}

	allocations, err = s.allocations.ListAllocationsForEvent(ctx, eventID)
	return
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("end", "end must be after start")
	}

	return vErr
}

func mapEventRepoError(err error, eventID string) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return &NotFoundError{Entity: EntityEvent, ID: eventID}
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("end", "end must be after start")
		return vErr
	}
	return err
}
