// Package http provides HTTP handlers and middleware for the scheduler API.
//
// The router exposes the following endpoints:
//   - GET /events, POST /events: event catalog. Body: {"title","description",
//     "start","end"} with RFC 3339 timestamps. Events are listed by start time.
//   - GET /events/{id}, DELETE /events/{id}: deleting an event releases every
//     resource allocated to it.
//   - GET /events/{id}/allocations, POST /events/{id}/allocations: lists or
//     batch allocates resources. Body: {"resource_ids": [...]}. A batch is
//     stored completely or not at all; a conflicting booking answers 409 with
//     the blocking event in the `conflict` object.
//   - POST /events/import: creates every VEVENT of a text/calendar body.
//   - GET /resources, POST /resources, GET /resources/{id}, DELETE /resources/{id}:
//     resource catalog exchanging the `resourceDTO` payload.
//   - GET /resources/{id}/calendar.ics: bookings of a resource as iCalendar.
//   - GET /resources/{id}/availability?start=...&end=...: reports whether the
//     resource is free for the interval.
//   - GET /reports/utilization?start=...&end=...: booked hours per resource
//     inside the window plus events starting after it.
//
// Mutating requests require `Authorization: Bearer <key>` when an API key
// hash is configured. Request/response DTOs live alongside their handlers.
package http
