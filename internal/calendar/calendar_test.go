package calendar

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/resource-scheduler/internal/application"
)

func TestWriteResourceCalendar(t *testing.T) {
	resource := application.Resource{ID: "res-1", Name: "Room A", Type: "room"}
	events := []application.Event{
		{
			ID:          "evt-1",
			Title:       "Planning",
			Description: "Quarterly planning",
			Start:       time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
		},
		{
			ID:    "evt-2",
			Title: "Retro",
			Start: time.Date(2024, 3, 4, 14, 0, 0, 0, time.FixedZone("JST", 9*60*60)),
			End:   time.Date(2024, 3, 4, 15, 0, 0, 0, time.FixedZone("JST", 9*60*60)),
		},
	}
	stamp := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := WriteResourceCalendar(&buf, resource, events, stamp); err != nil {
		t.Fatalf("WriteResourceCalendar failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + ProductID,
		"UID:evt-1/res-1",
		"DTSTART:20240304T100000Z",
		"DTEND:20240304T110000Z",
		"DTSTART:20240304T050000Z",
		"SUMMARY:Planning",
		"DESCRIPTION:Quarterly planning",
		"DTSTAMP:20240301T080000Z",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected two events, got:\n%s", out)
	}

	inputs, err := ParseEvents(&buf)
	if err != nil {
		t.Fatalf("ParseEvents failed on exported calendar: %v", err)
	}
	if len(inputs) != 2 || inputs[1].Title != "Retro" || !inputs[1].Start.Equal(events[1].Start) {
		t.Fatalf("unexpected parsed events: %#v", inputs)
	}
}

func TestParseEvents(t *testing.T) {
	t.Run("reads times and text", func(t *testing.T) {
		data := strings.Join([]string{
			"BEGIN:VCALENDAR",
			"VERSION:2.0",
			"PRODID:-//test//EN",
			"BEGIN:VEVENT",
			"UID:a",
			"DTSTAMP:20240301T080000Z",
			"DTSTART:20240304T090000Z",
			"DTEND:20240304T110000Z",
			"SUMMARY:Standup",
			"DESCRIPTION:Daily sync",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:b",
			"DTSTAMP:20240301T080000Z",
			"DTSTART:20240305T090000Z",
			"DURATION:PT30M",
			"SUMMARY:Short",
			"END:VEVENT",
			"END:VCALENDAR",
			"",
		}, "\r\n")

		inputs, err := ParseEvents(strings.NewReader(data))
		if err != nil {
			t.Fatalf("ParseEvents failed: %v", err)
		}
		if len(inputs) != 2 {
			t.Fatalf("expected 2 events, got %d", len(inputs))
		}
		first := inputs[0]
		if first.Title != "Standup" || first.Description != "Daily sync" {
			t.Fatalf("unexpected text fields: %#v", first)
		}
		if !first.Start.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)) || !first.End.Equal(time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected times: %v - %v", first.Start, first.End)
		}
		if got := inputs[1].End.Sub(inputs[1].Start); got != 30*time.Minute {
			t.Fatalf("expected DURATION to set the end, got %v", got)
		}
	})

	t.Run("rejects recurring events", func(t *testing.T) {
		data := strings.Join([]string{
			"BEGIN:VCALENDAR",
			"VERSION:2.0",
			"PRODID:-//test//EN",
			"BEGIN:VEVENT",
			"UID:a",
			"DTSTAMP:20240301T080000Z",
			"DTSTART:20240304T090000Z",
			"DTEND:20240304T100000Z",
			"RRULE:FREQ=DAILY",
			"END:VEVENT",
			"END:VCALENDAR",
			"",
		}, "\r\n")

		if _, err := ParseEvents(strings.NewReader(data)); !errors.Is(err, ErrInvalidCalendar) {
			t.Fatalf("expected ErrInvalidCalendar, got %v", err)
		}
	})

	t.Run("rejects input without a calendar", func(t *testing.T) {
		for _, data := range []string{"", "<html></html>"} {
			if _, err := ParseEvents(strings.NewReader(data)); !errors.Is(err, ErrInvalidCalendar) {
				t.Fatalf("input %q: expected ErrInvalidCalendar, got %v", data, err)
			}
		}
	})
}
