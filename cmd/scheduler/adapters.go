package main

import (
	"context"
	"strings"

	"github.com/example/resource-scheduler/internal/application"
	"github.com/example/resource-scheduler/internal/persistence"
)

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type resourceRepositoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceRepositoryAdapter(repo persistence.ResourceRepository) *resourceRepositoryAdapter {
	return &resourceRepositoryAdapter{repo: repo}
}

func (a *resourceRepositoryAdapter) CreateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.CreateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	stored, err := a.repo.GetResource(ctx, resource.ID)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) ListResources(ctx context.Context) ([]application.Resource, error) {
	return listResources(ctx, a.repo)
}

func (a *resourceRepositoryAdapter) DeleteResource(ctx context.Context, id string) error {
	return a.repo.DeleteResource(ctx, id)
}

// bookingReaderAdapter serves the read paths that walk allocations to their
// events: resource bookings, event allocations and utilisation reports.
type bookingReaderAdapter struct {
	allocations persistence.AllocationRepository
	events      persistence.EventRepository
	resources   persistence.ResourceRepository
}

func newBookingReaderAdapter(allocations persistence.AllocationRepository, events persistence.EventRepository, resources persistence.ResourceRepository) *bookingReaderAdapter {
	return &bookingReaderAdapter{allocations: allocations, events: events, resources: resources}
}

func (a *bookingReaderAdapter) ListAllocationsForResource(ctx context.Context, resourceID string) ([]application.Allocation, error) {
	models, err := a.allocations.ListAllocationsForResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return toApplicationAllocations(models), nil
}

func (a *bookingReaderAdapter) ListAllocationsForEvent(ctx context.Context, eventID string) ([]application.Allocation, error) {
	models, err := a.allocations.ListAllocationsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toApplicationAllocations(models), nil
}

func (a *bookingReaderAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.events.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *bookingReaderAdapter) ListResources(ctx context.Context) ([]application.Resource, error) {
	return listResources(ctx, a.resources)
}

type allocationStoreAdapter struct {
	repo persistence.AllocationRepository
}

func newAllocationStoreAdapter(repo persistence.AllocationRepository) *allocationStoreAdapter {
	return &allocationStoreAdapter{repo: repo}
}

func (a *allocationStoreAdapter) WithinAllocationTx(ctx context.Context, fn func(application.AllocationTx) error) error {
	return a.repo.WithinAllocationTx(ctx, func(q persistence.AllocationQueries) error {
		return fn(allocationTxAdapter{queries: q})
	})
}

type allocationTxAdapter struct {
	queries persistence.AllocationQueries
}

func (a allocationTxAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.queries.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a allocationTxAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.queries.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a allocationTxAdapter) ListAllocationsForResource(ctx context.Context, resourceID string) ([]application.Allocation, error) {
	models, err := a.queries.ListAllocationsForResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return toApplicationAllocations(models), nil
}

func (a allocationTxAdapter) CreateAllocation(ctx context.Context, allocation application.Allocation) (application.Allocation, error) {
	if err := a.queries.CreateAllocation(ctx, toPersistenceAllocation(allocation)); err != nil {
		return application.Allocation{}, err
	}
	return allocation, nil
}

func listResources(ctx context.Context, repo persistence.ResourceRepository) ([]application.Resource, error) {
	models, err := repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	resources := make([]application.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toApplicationResource(model))
	}
	return resources, nil
}

func toApplicationEvent(model persistence.Event) application.Event {
	var description string
	if model.Description != nil {
		description = *model.Description
	}
	return application.Event{
		ID:          model.ID,
		Title:       model.Title,
		Description: description,
		Start:       model.Start,
		End:         model.End,
		CreatedAt:   model.CreatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	var description *string
	if strings.TrimSpace(event.Description) != "" {
		value := event.Description
		description = &value
	}
	return persistence.Event{
		ID:          event.ID,
		Title:       event.Title,
		Start:       event.Start,
		End:         event.End,
		Description: description,
		CreatedAt:   event.CreatedAt,
	}
}

func toApplicationResource(model persistence.Resource) application.Resource {
	return application.Resource{
		ID:        model.ID,
		Name:      model.Name,
		Type:      model.Type,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceResource(resource application.Resource) persistence.Resource {
	return persistence.Resource{
		ID:        resource.ID,
		Name:      resource.Name,
		Type:      resource.Type,
		CreatedAt: resource.CreatedAt,
	}
}

func toApplicationAllocations(models []persistence.Allocation) []application.Allocation {
	allocations := make([]application.Allocation, 0, len(models))
	for _, model := range models {
		allocations = append(allocations, application.Allocation{
			ID:         model.ID,
			EventID:    model.EventID,
			ResourceID: model.ResourceID,
			CreatedAt:  model.CreatedAt,
		})
	}
	return allocations
}

func toPersistenceAllocation(allocation application.Allocation) persistence.Allocation {
	return persistence.Allocation{
		ID:         allocation.ID,
		EventID:    allocation.EventID,
		ResourceID: allocation.ResourceID,
		CreatedAt:  allocation.CreatedAt,
	}
}
