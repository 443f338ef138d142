package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/resource-scheduler/internal/persistence"
)

const eventColumns = `id, title, start_time, end_time, description, created_at`

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.Title == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.Start.Before(event.End) {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		event.ID,
		event.Title,
		formatTimestamp(event.Start),
		formatTimestamp(event.End),
		nullableString(event.Description),
		formatTimestamp(event.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	return getEvent(ctx, r.helper, r.mapper, id)
}

// ListEvents returns all events ordered by start time then ID.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes the event and its allocations in one transaction.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		h := r.helper.WithTx(tx)

		if _, err := h.Exec(ctx, `DELETE FROM allocations WHERE event_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := h.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func getEvent(ctx context.Context, h *QueryHelper, mapper *ErrorMapper, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = ?
	`

	event, err := scanEvent(h.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, mapper.MapError(err)
	}
	return event, nil
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                     persistence.Event
		startStr, endStr, created string
		description               sql.NullString
	)

	if err := row.Scan(&event.ID, &event.Title, &startStr, &endStr, &description, &created); err != nil {
		return persistence.Event{}, err
	}

	if description.Valid {
		value := description.String
		event.Description = &value
	}

	var err error
	if event.Start, err = parseTimestamp("start_time", startStr); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTimestamp("end_time", endStr); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTimestamp("created_at", created); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
