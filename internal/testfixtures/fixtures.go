package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/resource-scheduler/internal/application"
	"github.com/example/resource-scheduler/internal/persistence"
)

var (
	eventCounter      uint64
	resourceCounter   uint64
	allocationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic event that can be rendered for the
// application or persistence layer.
type EventFixture struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a one-hour event starting a day after the reference
// time, offset by an hour per fixture so defaults never overlap.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(24*time.Hour + time.Duration(idx)*time.Hour).Truncate(time.Hour)
	fixture := EventFixture{
		ID:        fmt.Sprintf("evt-%03d", idx),
		Title:     fmt.Sprintf("Event %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated identifier.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventDescription sets the optional description.
func WithEventDescription(description string) EventOption {
	return func(f *EventFixture) {
		f.Description = description
	}
}

// WithEventPeriod sets the half-open occupied interval.
func WithEventPeriod(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

func WithEventCreatedAt(t time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = t
	}
}

func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Start:       f.Start,
		End:         f.End,
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event. An empty
// description is stored as NULL.
func (f EventFixture) Persistence() persistence.Event {
	var description *string
	if f.Description != "" {
		value := f.Description
		description = &value
	}
	return persistence.Event{
		ID:          f.ID,
		Title:       f.Title,
		Start:       f.Start,
		End:         f.End,
		Description: description,
		CreatedAt:   f.CreatedAt,
	}
}

func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:       f.Title,
		Description: f.Description,
		Start:       f.Start,
		End:         f.End,
	}
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture is a deterministic bookable resource.
type ResourceFixture struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns a room fixture with optional overrides.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	fixture := ResourceFixture{
		ID:        fmt.Sprintf("res-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Type:      "room",
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourceType overrides the free-form type tag ("room" by default).
func WithResourceType(kind string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Type = kind
	}
}

func WithResourceCreatedAt(t time.Time) ResourceOption {
	return func(f *ResourceFixture) {
		f.CreatedAt = t
	}
}

func (f ResourceFixture) Application() application.Resource {
	return application.Resource{ID: f.ID, Name: f.Name, Type: f.Type, CreatedAt: f.CreatedAt}
}

func (f ResourceFixture) Persistence() persistence.Resource {
	return persistence.Resource{ID: f.ID, Name: f.Name, Type: f.Type, CreatedAt: f.CreatedAt}
}

func (f ResourceFixture) Input() application.ResourceInput {
	return application.ResourceInput{Name: f.Name, Type: f.Type}
}

// -------------------------- Allocation fixtures --------------------------

// NewAllocation binds resource to event with a generated identifier.
func NewAllocation(event EventFixture, resource ResourceFixture) persistence.Allocation {
	idx := atomic.AddUint64(&allocationCounter, 1)
	return persistence.Allocation{
		ID:         fmt.Sprintf("alloc-%03d", idx),
		EventID:    event.ID,
		ResourceID: resource.ID,
		CreatedAt:  referenceTime,
	}
}
