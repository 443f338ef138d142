package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/resource-scheduler/internal/scheduler"
)

// ReportReader supplies the committed state a utilisation report is built from.
type ReportReader interface {
	BookingReader
	// ListResources returns resources in creation order.
	ListResources(ctx context.Context) ([]Resource, error)
}

// ReportService aggregates resource utilisation over a reporting window.
type ReportService struct {
	reader ReportReader
	logger *slog.Logger
}

// NewReportService constructs a report service.
func NewReportService(reader ReportReader) *ReportService {
	return NewReportServiceWithLogger(reader, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(reader ReportReader, logger *slog.Logger) *ReportService {
	return &ReportService{reader: reader, logger: defaultLogger(logger)}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// GetUtilizationReport returns one row per resource, in resource creation
// order, including resources with no allocations. Each row sums the part of
// every booked event that falls inside [WindowStart, WindowEnd) and lists the
// booked events that start strictly after WindowEnd.
func (s *ReportService) GetUtilizationReport(ctx context.Context, params ReportParams) (report []ResourceUtilization, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}
	if s.reader == nil {
		err = fmt.Errorf("report reader not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetUtilizationReport",
		"window_start", params.WindowStart,
		"window_end", params.WindowEnd,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build utilization report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_count", len(report)).InfoContext(ctx, "utilization report built")
	}()

	if vErr := validateWindow(params.WindowStart, params.WindowEnd); vErr.HasErrors() {
		err = vErr
		return
	}
	window := scheduler.Interval{Start: params.WindowStart, End: params.WindowEnd}

	var resources []Resource
	resources, err = s.reader.ListResources(ctx)
	if err != nil {
		return
	}

	events := make(map[string]Event)
	report = make([]ResourceUtilization, 0, len(resources))

	for _, resource := range resources {
		var row ResourceUtilization
		row, err = s.resourceRow(ctx, resource, window, events)
		if err != nil {
			report = nil
			return
		}
		report = append(report, row)
	}
	return
}

func (s *ReportService) resourceRow(ctx context.Context, resource Resource, window scheduler.Interval, events map[string]Event) (ResourceUtilization, error) {
	allocations, err := s.reader.ListAllocationsForResource(ctx, resource.ID)
	if err != nil {
		return ResourceUtilization{}, err
	}

	usage := scheduler.NewUsage(window)
	for _, allocation := range allocations {
		event, ok := events[allocation.EventID]
		if !ok {
			event, err = s.reader.GetEvent(ctx, allocation.EventID)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return ResourceUtilization{}, err
			}
			events[event.ID] = event
		}
		usage.Add(scheduler.Booking{EventID: event.ID, Interval: event.Interval()})
	}

	upcoming := make([]Event, 0, len(usage.Upcoming))
	for _, booking := range usage.SortedUpcoming() {
		upcoming = append(upcoming, events[booking.EventID])
	}

	return ResourceUtilization{
		ResourceID:     resource.ID,
		ResourceName:   resource.Name,
		ResourceType:   resource.Type,
		Utilized:       usage.Utilized,
		TotalHours:     scheduler.Hours(usage.Utilized),
		UpcomingEvents: upcoming,
	}, nil
}
