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

type resourceService interface {
	CreateResource(ctx context.Context, input application.ResourceInput) (application.Resource, error)
	GetResource(ctx context.Context, resourceID string) (application.Resource, error)
	ListResources(ctx context.Context) ([]application.Resource, error)
	DeleteResource(ctx context.Context, resourceID string) error
	ResourceBookings(ctx context.Context, resourceID string) (application.Resource, []application.Event, error)
}

type ResourceHandler struct {
	resources   resourceService
	allocations allocationService
	now         func() time.Time
	responder   responder
	logger      *slog.Logger
}

func NewResourceHandler(resources resourceService, allocations allocationService, now func() time.Time, logger *slog.Logger) *ResourceHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &ResourceHandler{resources: resources, allocations: allocations, now: now, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode resource request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	resource, err := h.resources.CreateResource(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "resource creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("resource_id", resource.ID).InfoContext(r.Context(), "resource created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Get")
	if !ok {
		return
	}

	resource, err := h.resources.GetResource(r.Context(), resourceID)
	if err != nil {
		h.log(r.Context(), "Get", "resource_id", resourceID).ErrorContext(r.Context(), "resource lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	resources, err := h.resources.ListResources(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "resource list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(resources)).InfoContext(r.Context(), "resources listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Delete")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Delete", "resource_id", resourceID)
	if err := h.resources.DeleteResource(r.Context(), resourceID); err != nil {
		logger.ErrorContext(r.Context(), "resource delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Calendar writes the events booked on the resource as text/calendar.
func (h *ResourceHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resources == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Calendar")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Calendar", "resource_id", resourceID)
	resource, events, err := h.resources.ResourceBookings(r.Context(), resourceID)
	if err != nil {
		logger.ErrorContext(r.Context(), "resource bookings lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+resource.ID+`.ics"`)
	if err := calendar.WriteResourceCalendar(w, resource, events, h.now()); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar", "error", err)
		return
	}
	logger.With("event_count", len(events)).InfoContext(r.Context(), "calendar exported")
}

// Availability reports whether the resource is free for ?start=&end=.
func (h *ResourceHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.allocations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Availability")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Availability", "resource_id", resourceID)

	vErr := &application.ValidationError{}
	query := r.URL.Query()
	start := parseTimeField(vErr, "start", query.Get("start"))
	end := parseTimeField(vErr, "end", query.Get("end"))
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	err := h.allocations.CheckAvailability(r.Context(), application.AvailabilityParams{
		ResourceID: resourceID,
		Start:      start,
		End:        end,
	})

	var conflict *application.ConflictError
	switch {
	case err == nil:
		h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Available: true})
	case errors.As(err, &conflict):
		h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Available: false, Conflict: toConflictDTO(conflict)})
	default:
		logger.ErrorContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
	}
}

func (h *ResourceHandler) resourceID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing resource id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return "", false
	}
	return resourceID, true
}

type resourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (r resourceRequest) toInput() application.ResourceInput {
	return application.ResourceInput{
		Name: strings.TrimSpace(r.Name),
		Type: strings.TrimSpace(r.Type),
	}
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type availabilityResponse struct {
	Available bool         `json:"available"`
	Conflict  *conflictDTO `json:"conflict,omitempty"`
}

type resourceDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	return resourceDTO{
		ID:        resource.ID,
		Name:      resource.Name,
		Type:      resource.Type,
		CreatedAt: formatTime(resource.CreatedAt),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}
