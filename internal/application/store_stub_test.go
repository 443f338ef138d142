package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/example/resource-scheduler/internal/persistence"
)

var baseTime = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return baseTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// memoryStore is an in-memory stand-in for the SQLite store. Allocation
// transactions are serialized by mu and write to a staging copy that is only
// published when the callback succeeds.
type memoryStore struct {
	mu          sync.Mutex
	events      map[string]Event
	resources   []Resource
	allocations []Allocation

	createEventErr      error
	createAllocationErr error
	txCount             int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{events: make(map[string]Event)}
}

func (m *memoryStore) CreateEvent(ctx context.Context, event Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createEventErr != nil {
		return Event{}, m.createEventErr
	}
	if _, ok := m.events[event.ID]; ok {
		return Event{}, persistence.ErrDuplicate
	}
	m.events[event.ID] = event
	return event, nil
}

func (m *memoryStore) GetEvent(ctx context.Context, id string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getEvent(id)
}

func (m *memoryStore) getEvent(id string) (Event, error) {
	event, ok := m.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (m *memoryStore) ListEvents(ctx context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.events))
	for _, event := range m.events {
		out = append(out, event)
	}
	sortEvents(out)
	return out, nil
}

func (m *memoryStore) DeleteEvent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.events, id)
	kept := m.allocations[:0]
	for _, allocation := range m.allocations {
		if allocation.EventID != id {
			kept = append(kept, allocation)
		}
	}
	m.allocations = kept
	return nil
}

func (m *memoryStore) CreateResource(ctx context.Context, resource Resource) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append(m.resources, resource)
	return resource, nil
}

func (m *memoryStore) GetResource(ctx context.Context, id string) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getResource(id)
}

func (m *memoryStore) getResource(id string) (Resource, error) {
	for _, resource := range m.resources {
		if resource.ID == id {
			return resource, nil
		}
	}
	return Resource{}, persistence.ErrNotFound
}

func (m *memoryStore) ListResources(ctx context.Context) ([]Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Resource, len(m.resources))
	copy(out, m.resources)
	return out, nil
}

func (m *memoryStore) DeleteResource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, resource := range m.resources {
		if resource.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return persistence.ErrNotFound
	}
	m.resources = append(m.resources[:idx], m.resources[idx+1:]...)
	kept := m.allocations[:0]
	for _, allocation := range m.allocations {
		if allocation.ResourceID != id {
			kept = append(kept, allocation)
		}
	}
	m.allocations = kept
	return nil
}

func (m *memoryStore) ListAllocationsForResource(ctx context.Context, resourceID string) ([]Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterAllocations(m.allocations, func(a Allocation) bool { return a.ResourceID == resourceID }), nil
}

func (m *memoryStore) ListAllocationsForEvent(ctx context.Context, eventID string) ([]Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterAllocations(m.allocations, func(a Allocation) bool { return a.EventID == eventID }), nil
}

func (m *memoryStore) WithinAllocationTx(ctx context.Context, fn func(AllocationTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	tx := &memoryTx{store: m, staged: append([]Allocation(nil), m.allocations...)}
	if err := fn(tx); err != nil {
		return err
	}
	m.allocations = tx.staged
	return nil
}

func (m *memoryStore) allocationsFor(resourceID string) []Allocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterAllocations(m.allocations, func(a Allocation) bool { return a.ResourceID == resourceID })
}

func (m *memoryStore) seedEvent(id string, start, end time.Time) Event {
	event := Event{ID: id, Title: "Event " + id, Start: start, End: end, CreatedAt: baseTime}
	m.mu.Lock()
	m.events[id] = event
	m.mu.Unlock()
	return event
}

func (m *memoryStore) seedResource(id, name string) Resource {
	resource := Resource{ID: id, Name: name, Type: "room", CreatedAt: baseTime}
	m.mu.Lock()
	m.resources = append(m.resources, resource)
	m.mu.Unlock()
	return resource
}

func (m *memoryStore) seedAllocation(eventID, resourceID string) {
	m.mu.Lock()
	m.allocations = append(m.allocations, Allocation{
		ID:         "seed-" + eventID + "-" + resourceID,
		EventID:    eventID,
		ResourceID: resourceID,
		CreatedAt:  baseTime,
	})
	m.mu.Unlock()
}

type memoryTx struct {
	store  *memoryStore
	staged []Allocation
}

func (tx *memoryTx) GetEvent(ctx context.Context, id string) (Event, error) {
	return tx.store.getEvent(id)
}

func (tx *memoryTx) GetResource(ctx context.Context, id string) (Resource, error) {
	return tx.store.getResource(id)
}

func (tx *memoryTx) ListAllocationsForResource(ctx context.Context, resourceID string) ([]Allocation, error) {
	return filterAllocations(tx.staged, func(a Allocation) bool { return a.ResourceID == resourceID }), nil
}

func (tx *memoryTx) CreateAllocation(ctx context.Context, allocation Allocation) (Allocation, error) {
	if tx.store.createAllocationErr != nil {
		return Allocation{}, tx.store.createAllocationErr
	}
	tx.staged = append(tx.staged, allocation)
	return allocation, nil
}

func filterAllocations(in []Allocation, keep func(Allocation) bool) []Allocation {
	var out []Allocation
	for _, allocation := range in {
		if keep(allocation) {
			out = append(out, allocation)
		}
	}
	return out
}

type sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *sequence) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.prefix + "-" + strconv.Itoa(s.n)
}
