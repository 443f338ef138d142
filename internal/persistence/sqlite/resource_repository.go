package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/resource-scheduler/internal/persistence"
)

const resourceColumns = `id, name, resource_type, created_at`

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateResource inserts a new resource.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Name == "" || resource.Type == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		resource.ID,
		resource.Name,
		resource.Type,
		formatTimestamp(resource.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	return getResource(ctx, r.helper, r.mapper, id)
}

// ListResources returns all resources in insertion order.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		ORDER BY rowid ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return resources, nil
}

// DeleteResource removes the resource and its allocations in one transaction.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		h := r.helper.WithTx(tx)

		if _, err := h.Exec(ctx, `DELETE FROM allocations WHERE resource_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := h.Exec(ctx, `DELETE FROM resources WHERE id = ?`, id)
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

func getResource(ctx context.Context, h *QueryHelper, mapper *ErrorMapper, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE id = ?
	`

	resource, err := scanResource(h.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, mapper.MapError(err)
	}
	return resource, nil
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource persistence.Resource
		created  string
	)
	if err := row.Scan(&resource.ID, &resource.Name, &resource.Type, &created); err != nil {
		return persistence.Resource{}, err
	}

	var err error
	if resource.CreatedAt, err = parseTimestamp("created_at", created); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}
