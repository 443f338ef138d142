package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/resource-scheduler/internal/persistence"
)

const allocationColumns = `id, event_id, resource_id, created_at`

// AllocationRepository implements persistence.AllocationRepository using SQLite.
type AllocationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAllocationRepository creates a new SQLite allocation repository.
func NewAllocationRepository(pool *ConnectionPool) *AllocationRepository {
	return &AllocationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// ListAllocationsForResource returns the allocations held by a resource in
// insertion order.
func (r *AllocationRepository) ListAllocationsForResource(ctx context.Context, resourceID string) ([]persistence.Allocation, error) {
	return listAllocations(ctx, r.helper, r.mapper, `
		SELECT `+allocationColumns+`
		FROM allocations
		WHERE resource_id = ?
		ORDER BY rowid ASC
	`, resourceID)
}

// ListAllocationsForEvent returns the allocations made for an event.
func (r *AllocationRepository) ListAllocationsForEvent(ctx context.Context, eventID string) ([]persistence.Allocation, error) {
	return listAllocations(ctx, r.helper, r.mapper, `
		SELECT `+allocationColumns+`
		FROM allocations
		WHERE event_id = ?
		ORDER BY rowid ASC
	`, eventID)
}

// DeleteAllocation removes a single allocation.
func (r *AllocationRepository) DeleteAllocation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM allocations WHERE id = ?`, id)
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
}

// WithinAllocationTx runs fn in an immediate write transaction. Concurrent
// callers block on BEGIN until the previous transaction finishes, so checks
// made through the queries cannot be invalidated before commit.
func (r *AllocationRepository) WithinAllocationTx(ctx context.Context, fn func(persistence.AllocationQueries) error) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&allocationTx{helper: r.helper.WithTx(tx), mapper: r.mapper})
	})
}

// allocationTx implements persistence.AllocationQueries on a single transaction.
type allocationTx struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func (q *allocationTx) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	return getEvent(ctx, q.helper, q.mapper, id)
}

func (q *allocationTx) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	return getResource(ctx, q.helper, q.mapper, id)
}

func (q *allocationTx) ListAllocationsForResource(ctx context.Context, resourceID string) ([]persistence.Allocation, error) {
	return listAllocations(ctx, q.helper, q.mapper, `
		SELECT `+allocationColumns+`
		FROM allocations
		WHERE resource_id = ?
		ORDER BY rowid ASC
	`, resourceID)
}

func (q *allocationTx) CreateAllocation(ctx context.Context, allocation persistence.Allocation) error {
	if allocation.ID == "" || allocation.EventID == "" || allocation.ResourceID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO allocations (` + allocationColumns + `)
		VALUES (?, ?, ?, ?)
	`
	_, err := q.helper.Exec(ctx, query,
		allocation.ID,
		allocation.EventID,
		allocation.ResourceID,
		formatTimestamp(allocation.CreatedAt),
	)
	return q.mapper.MapError(err)
}

func listAllocations(ctx context.Context, h *QueryHelper, mapper *ErrorMapper, query, key string) ([]persistence.Allocation, error) {
	rows, err := h.Query(ctx, query, key)
	if err != nil {
		return nil, mapper.MapError(err)
	}
	defer rows.Close()

	var allocations []persistence.Allocation
	for rows.Next() {
		var (
			allocation persistence.Allocation
			created    string
		)
		if err := rows.Scan(&allocation.ID, &allocation.EventID, &allocation.ResourceID, &created); err != nil {
			return nil, mapper.MapError(err)
		}
		if allocation.CreatedAt, err = parseTimestamp("created_at", created); err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return allocations, nil
}
