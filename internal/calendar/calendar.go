// Package calendar converts between scheduler events and iCalendar data.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/resource-scheduler/internal/application"
)

// ProductID identifies calendars produced by the scheduler.
const ProductID = "-//resource-scheduler//bookings//EN"

// ErrInvalidCalendar is returned when iCalendar input cannot be imported.
var ErrInvalidCalendar = errors.New("invalid calendar")

// WriteResourceCalendar encodes the events booked on resource as a VCALENDAR.
// stamp is used as DTSTAMP for every VEVENT.
func WriteResourceCalendar(w io.Writer, resource application.Resource, events []application.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText("X-WR-CALNAME", resource.Name)

	for _, event := range events {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, eventUID(resource, event))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
		ev.Props.SetText(ical.PropSummary, event.Title)
		if event.Description != "" {
			ev.Props.SetText(ical.PropDescription, event.Description)
		}
		ev.Props.SetText(ical.PropLocation, resource.Name)
		cal.Children = append(cal.Children, ev.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func eventUID(resource application.Resource, event application.Event) string {
	return event.ID + "/" + resource.ID
}

// ParseEvents decodes every VEVENT of the iCalendar stream into event input.
// Times are converted to UTC; floating times are read as UTC. Recurring
// events are rejected.
func ParseEvents(r io.Reader) ([]application.EventInput, error) {
	decoder := ical.NewDecoder(r)
	inputs := make([]application.EventInput, 0)
	calendars := 0

	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
		}
		calendars++

		for i, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			input, err := parseEvent(&ical.Event{Component: comp})
			if err != nil {
				return nil, fmt.Errorf("%w: event %d: %v", ErrInvalidCalendar, i, err)
			}
			inputs = append(inputs, input)
		}
	}

	if calendars == 0 {
		return nil, fmt.Errorf("%w: no VCALENDAR found", ErrInvalidCalendar)
	}
	return inputs, nil
}

func parseEvent(ev *ical.Event) (application.EventInput, error) {
	if ev.Props.Get(ical.PropRecurrenceRule) != nil {
		return application.EventInput{}, errors.New("recurring events are not supported")
	}
	if ev.Props.Get(ical.PropDateTimeStart) == nil {
		return application.EventInput{}, errors.New("DTSTART is required")
	}

	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		return application.EventInput{}, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		return application.EventInput{}, fmt.Errorf("DTEND: %w", err)
	}

	input := application.EventInput{Start: start.UTC(), End: end.UTC()}
	if prop := ev.Props.Get(ical.PropSummary); prop != nil {
		input.Title, err = prop.Text()
		if err != nil {
			return application.EventInput{}, fmt.Errorf("SUMMARY: %w", err)
		}
	}
	if prop := ev.Props.Get(ical.PropDescription); prop != nil {
		input.Description, err = prop.Text()
		if err != nil {
			return application.EventInput{}, fmt.Errorf("DESCRIPTION: %w", err)
		}
	}
	return input, nil
}
