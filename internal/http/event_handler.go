package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/resource-scheduler/internal/application"
	"github.com/example/resource-scheduler/internal/calendar"
)

// maxImportBytes bounds iCalendar uploads.
const maxImportBytes = 4 << 20

type eventService interface {
	CreateEvent(ctx context.Context, input application.EventInput) (application.Event, error)
	ImportEvents(ctx context.Context, inputs []application.EventInput) ([]application.Event, error)
	GetEvent(ctx context.Context, eventID string) (application.Event, error)
	ListEvents(ctx context.Context) ([]application.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListEventAllocations(ctx context.Context, eventID string) ([]application.Allocation, error)
}

type allocationService interface {
	BatchAllocate(ctx context.Context, params application.BatchAllocateParams) ([]application.Allocation, error)
	CheckAvailability(ctx context.Context, params application.AvailabilityParams) error
}

type EventHandler struct {
	events      eventService
	allocations allocationService
	responder   responder
	logger      *slog.Logger
}

func NewEventHandler(events eventService, allocations allocationService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{events: events, allocations: allocations, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	input, vErr := req.toInput()
	if vErr.HasErrors() {
		logger.ErrorContext(r.Context(), "event request has malformed timestamps", "error", vErr, "error_kind", application.ErrorKind(vErr))
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Import")

	inputs, err := calendar.ParseEvents(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to parse calendar", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCalendar)
		return
	}

	events, err := h.events.ImportEvents(r.Context(), inputs)
	if err != nil {
		logger.ErrorContext(r.Context(), "event import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(events)).InfoContext(r.Context(), "events imported")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r, "Get")
	if !ok {
		return
	}

	event, err := h.events.GetEvent(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "event lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(events)).InfoContext(r.Context(), "events listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r, "Delete")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Delete", "event_id", eventID)
	if err := h.events.DeleteEvent(r.Context(), eventID); err != nil {
		logger.ErrorContext(r.Context(), "event delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r, "ListAllocations")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "ListAllocations", "event_id", eventID)
	allocations, err := h.events.ListEventAllocations(r.Context(), eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "allocation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, allocationsResponse{Allocations: toAllocationDTOs(allocations)})
}

func (h *EventHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.allocations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := h.eventID(w, r, "Allocate")
	if !ok {
		return
	}

	var req allocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Allocate", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode allocation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Allocate", "event_id", eventID, "resource_ids", req.ResourceIDs)

	allocations, err := h.allocations.BatchAllocate(r.Context(), application.BatchAllocateParams{
		EventID:     eventID,
		ResourceIDs: req.ResourceIDs,
	})
	if err != nil {
		attrs := []any{"error", err, "error_kind", application.ErrorKind(err)}
		var conflict *application.ConflictError
		if errors.As(err, &conflict) {
			attrs = append(attrs, "conflicting_event_id", conflict.ConflictingEventID)
		}
		logger.ErrorContext(r.Context(), "batch allocation failed", attrs...)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("allocation_count", len(allocations)).InfoContext(r.Context(), "resources allocated")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, allocationsResponse{Allocations: toAllocationDTOs(allocations)})
}

func (h *EventHandler) eventID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return "", false
	}
	return eventID, true
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func (r eventRequest) toInput() (application.EventInput, *application.ValidationError) {
	vErr := &application.ValidationError{}
	start := parseTimeField(vErr, "start", r.Start)
	end := parseTimeField(vErr, "end", r.End)
	return application.EventInput{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Start:       start,
		End:         end,
	}, vErr
}

type allocationRequest struct {
	ResourceIDs []string `json:"resource_ids"`
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type allocationsResponse struct {
	Allocations []allocationDTO `json:"allocations"`
}

type eventDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	CreatedAt   string `json:"created_at"`
}

type allocationDTO struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	ResourceID string `json:"resource_id"`
	CreatedAt  string `json:"created_at"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Start:       formatTime(event.Start),
		End:         formatTime(event.End),
		CreatedAt:   formatTime(event.CreatedAt),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

func toAllocationDTOs(allocations []application.Allocation) []allocationDTO {
	out := make([]allocationDTO, 0, len(allocations))
	for _, allocation := range allocations {
		out = append(out, allocationDTO{
			ID:         allocation.ID,
			EventID:    allocation.EventID,
			ResourceID: allocation.ResourceID,
			CreatedAt:  formatTime(allocation.CreatedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimeField parses an RFC 3339 value. Blank values yield the zero time so
// the services can report them as required; malformed values are recorded on
// vErr.
func parseTimeField(vErr *application.ValidationError, field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		if vErr.FieldErrors == nil {
			vErr.FieldErrors = make(map[string]string)
		}
		vErr.FieldErrors[field] = "must be an RFC 3339 timestamp"
		return time.Time{}
	}
	return ts
}
