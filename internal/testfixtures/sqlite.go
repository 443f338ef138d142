package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/resource-scheduler/internal/persistence"
	"github.com/example/resource-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness exposes the repositories of a migrated SQLite database living
// in a temporary directory.
type SQLiteHarness struct {
	Events      persistence.EventRepository
	Resources   persistence.ResourceRepository
	Allocations persistence.AllocationRepository

	store *sqlite.Store
}

// Close releases the underlying connection pool. It is safe to call more than
// once.
func (h *SQLiteHarness) Close() {
	if h != nil && h.store != nil {
		_ = h.store.Close()
		h.store = nil
	}
}

// NewSQLiteHarness opens a fresh database file and registers Close with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(context.Background(), sqlite.DefaultSQLiteConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Events:      store.Events,
		Resources:   store.Resources,
		Allocations: store.Allocations,
		store:       store,
	}
	tb.Cleanup(harness.Close)
	return harness
}

// Seed inserts the given events and resources, failing the test on error.
func (h *SQLiteHarness) Seed(tb testing.TB, events []EventFixture, resources []ResourceFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, event := range events {
		if err := h.Events.CreateEvent(ctx, event.Persistence()); err != nil {
			tb.Fatalf("seed event %s: %v", event.ID, err)
		}
	}
	for _, resource := range resources {
		if err := h.Resources.CreateResource(ctx, resource.Persistence()); err != nil {
			tb.Fatalf("seed resource %s: %v", resource.ID, err)
		}
	}
}

// Allocate writes allocations through a single allocation transaction.
func (h *SQLiteHarness) Allocate(tb testing.TB, allocations ...persistence.Allocation) {
	tb.Helper()
	err := h.Allocations.WithinAllocationTx(context.Background(), func(q persistence.AllocationQueries) error {
		for _, allocation := range allocations {
			if err := q.CreateAllocation(context.Background(), allocation); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("allocate: %v", err)
	}
}
