package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/resource-scheduler/internal/application"
)

type reportService interface {
	GetUtilizationReport(ctx context.Context, params application.ReportParams) ([]application.ResourceUtilization, error)
}

type ReportHandler struct {
	reports   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(reports reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{reports: reports, responder: newResponder(base), logger: base}
}

// Utilization serves GET /reports/utilization?start=&end=.
func (h *ReportHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	logger := handlerLogger(r.Context(), h.logger, "ReportHandler", "Utilization",
		"window_start", query.Get("start"),
		"window_end", query.Get("end"),
	)

	vErr := &application.ValidationError{}
	params := application.ReportParams{
		WindowStart: parseTimeField(vErr, "start", query.Get("start")),
		WindowEnd:   parseTimeField(vErr, "end", query.Get("end")),
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	rows, err := h.reports.GetUtilizationReport(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "utilization report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("resource_count", len(rows)).InfoContext(r.Context(), "utilization report served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, utilizationResponse{
		WindowStart: formatTime(params.WindowStart),
		WindowEnd:   formatTime(params.WindowEnd),
		Resources:   toUtilizationDTOs(rows),
	})
}

type utilizationResponse struct {
	WindowStart string           `json:"window_start"`
	WindowEnd   string           `json:"window_end"`
	Resources   []utilizationDTO `json:"resources"`
}

type utilizationDTO struct {
	ResourceID      string     `json:"resource_id"`
	ResourceName    string     `json:"resource_name"`
	ResourceType    string     `json:"resource_type"`
	TotalHours      float64    `json:"total_hours"`
	UtilizedSeconds int64      `json:"utilized_seconds"`
	UpcomingEvents  []eventDTO `json:"upcoming_events"`
}

func toUtilizationDTOs(rows []application.ResourceUtilization) []utilizationDTO {
	out := make([]utilizationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, utilizationDTO{
			ResourceID:      row.ResourceID,
			ResourceName:    row.ResourceName,
			ResourceType:    row.ResourceType,
			TotalHours:      row.TotalHours,
			UtilizedSeconds: int64(row.Utilized.Seconds()),
			UpcomingEvents:  toEventDTOs(row.UpcomingEvents),
		})
	}
	return out
}
