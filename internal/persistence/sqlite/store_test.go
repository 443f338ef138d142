package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/resource-scheduler/internal/persistence"
)

var baseTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := Open(context.Background(), DefaultSQLiteConfig(path), discardLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEvent(id string, start time.Time, length time.Duration) persistence.Event {
	return persistence.Event{
		ID:        id,
		Title:     "Event " + id,
		Start:     start,
		End:       start.Add(length),
		CreatedAt: baseTime,
	}
}

func testResource(id string) persistence.Resource {
	return persistence.Resource{
		ID:        id,
		Name:      "Resource " + id,
		Type:      "room",
		CreatedAt: baseTime,
	}
}

func mustCreateEvent(t *testing.T, store *Store, event persistence.Event) {
	t.Helper()
	if err := store.Events.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent(%s) failed: %v", event.ID, err)
	}
}

func mustCreateResource(t *testing.T, store *Store, resource persistence.Resource) {
	t.Helper()
	if err := store.Resources.CreateResource(context.Background(), resource); err != nil {
		t.Fatalf("CreateResource(%s) failed: %v", resource.ID, err)
	}
}

func mustAllocate(t *testing.T, store *Store, allocations ...persistence.Allocation) {
	t.Helper()
	err := store.Allocations.WithinAllocationTx(context.Background(), func(q persistence.AllocationQueries) error {
		for _, allocation := range allocations {
			if err := q.CreateAllocation(context.Background(), allocation); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
}

func TestOpenMigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scheduler.db")

	first, err := Open(ctx, DefaultSQLiteConfig(path), discardLogger())
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	pool, err := NewConnectionPool(ctx, DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("NewConnectionPool failed: %v", err)
	}
	defer pool.Close()

	applied, err := Migrate(ctx, pool, discardLogger())
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations on reopen, applied %d", applied)
	}

	status, err := MigrationStatus(ctx, pool, discardLogger())
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status.CurrentVersion != "001" || len(status.Pending) != 0 || len(status.Applied) != 1 {
		t.Fatalf("unexpected migration status: %+v", status)
	}
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(context.Background(), InMemorySQLiteConfig(), discardLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
	if _, err := store.Events.GetEvent(context.Background(), "evt-1"); err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
}

func TestSQLiteConfigDSN(t *testing.T) {
	dsn := DefaultSQLiteConfig("/tmp/scheduler.db").DSN()

	for _, want := range []string{"file:/tmp/scheduler.db?", "foreign_keys%281%29", "busy_timeout%285000%29", "journal_mode%28WAL%29", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

func TestSQLiteConfigValidate(t *testing.T) {
	cases := map[string]SQLiteConfig{
		"empty path":    {},
		"journal mode":  {Path: "x.db", JournalMode: "SIDEWAYS"},
		"synchronous":   {Path: "x.db", Synchronous: "SOMETIMES"},
		"negative busy": {Path: "x.db", BusyTimeout: -time.Second},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEventRepository(t *testing.T) {
	t.Run("creates and reads events", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		description := "Quarterly planning"
		event := testEvent("evt-1", baseTime, 2*time.Hour)
		event.Description = &description
		mustCreateEvent(t, store, event)

		got, err := store.Events.GetEvent(ctx, "evt-1")
		if err != nil {
			t.Fatalf("GetEvent failed: %v", err)
		}
		if got.Title != event.Title || !got.Start.Equal(event.Start) || !got.End.Equal(event.End) {
			t.Fatalf("unexpected event: %#v", got)
		}
		if got.Description == nil || *got.Description != description {
			t.Fatalf("expected description %q, got %v", description, got.Description)
		}
	})

	t.Run("normalises non-UTC times", func(t *testing.T) {
		store := openTestStore(t)
		tokyo := time.FixedZone("JST", 9*60*60)

		event := testEvent("evt-tz", baseTime.In(tokyo), time.Hour)
		mustCreateEvent(t, store, event)

		got, err := store.Events.GetEvent(context.Background(), "evt-tz")
		if err != nil {
			t.Fatalf("GetEvent failed: %v", err)
		}
		if !got.Start.Equal(baseTime) || got.Start.Location() != time.UTC {
			t.Fatalf("expected %v in UTC, got %v", baseTime, got.Start)
		}
	})

	t.Run("lists events by start time", func(t *testing.T) {
		store := openTestStore(t)

		mustCreateEvent(t, store, testEvent("evt-b", baseTime.Add(2*time.Hour), time.Hour))
		mustCreateEvent(t, store, testEvent("evt-c", baseTime.Add(time.Hour), time.Hour))
		mustCreateEvent(t, store, testEvent("evt-a", baseTime.Add(2*time.Hour), time.Hour))

		events, err := store.Events.ListEvents(context.Background())
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		var ids []string
		for _, event := range events {
			ids = append(ids, event.ID)
		}
		if strings.Join(ids, ",") != "evt-c,evt-a,evt-b" {
			t.Fatalf("unexpected order: %v", ids)
		}
	})

	t.Run("rejects inverted and empty intervals", func(t *testing.T) {
		store := openTestStore(t)

		for _, length := range []time.Duration{0, -time.Hour} {
			err := store.Events.CreateEvent(context.Background(), testEvent("evt-bad", baseTime, length))
			if !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Fatalf("length %v: expected ErrConstraintViolation, got %v", length, err)
			}
		}
	})

	t.Run("check constraint guards direct writes", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		_, err := store.Pool().DB().ExecContext(ctx,
			`INSERT INTO events (id, title, start_time, end_time, created_at) VALUES (?, ?, ?, ?, ?)`,
			"evt-raw", "Raw", formatTimestamp(baseTime), formatTimestamp(baseTime), formatTimestamp(baseTime))
		if mapped := NewErrorMapper().MapError(err); !errors.Is(mapped, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", mapped)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := openTestStore(t)
		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))

		err := store.Events.CreateEvent(context.Background(), testEvent("evt-1", baseTime, time.Hour))
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("missing event", func(t *testing.T) {
		store := openTestStore(t)

		if _, err := store.Events.GetEvent(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := store.Events.DeleteEvent(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on delete, got %v", err)
		}
	})

	t.Run("delete cascades to allocations", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateEvent(t, store, testEvent("evt-2", baseTime.Add(time.Hour), time.Hour))
		mustCreateResource(t, store, testResource("res-1"))
		mustAllocate(t, store,
			persistence.Allocation{ID: "alloc-1", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime},
			persistence.Allocation{ID: "alloc-2", EventID: "evt-2", ResourceID: "res-1", CreatedAt: baseTime},
		)

		if err := store.Events.DeleteEvent(ctx, "evt-1"); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}

		remaining, err := store.Allocations.ListAllocationsForResource(ctx, "res-1")
		if err != nil {
			t.Fatalf("ListAllocationsForResource failed: %v", err)
		}
		if len(remaining) != 1 || remaining[0].ID != "alloc-2" {
			t.Fatalf("expected only alloc-2 to remain, got %#v", remaining)
		}
	})
}

func TestResourceRepository(t *testing.T) {
	t.Run("lists resources in creation order", func(t *testing.T) {
		store := openTestStore(t)

		for _, id := range []string{"res-z", "res-a", "res-m"} {
			mustCreateResource(t, store, testResource(id))
		}

		resources, err := store.Resources.ListResources(context.Background())
		if err != nil {
			t.Fatalf("ListResources failed: %v", err)
		}
		var ids []string
		for _, resource := range resources {
			ids = append(ids, resource.ID)
		}
		if strings.Join(ids, ",") != "res-z,res-a,res-m" {
			t.Fatalf("unexpected order: %v", ids)
		}
	})

	t.Run("rejects blank fields", func(t *testing.T) {
		store := openTestStore(t)

		resource := testResource("res-1")
		resource.Type = ""
		if err := store.Resources.CreateResource(context.Background(), resource); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("delete cascades to allocations", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateResource(t, store, testResource("res-1"))
		mustCreateResource(t, store, testResource("res-2"))
		mustAllocate(t, store,
			persistence.Allocation{ID: "alloc-1", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime},
			persistence.Allocation{ID: "alloc-2", EventID: "evt-1", ResourceID: "res-2", CreatedAt: baseTime},
		)

		if err := store.Resources.DeleteResource(ctx, "res-1"); err != nil {
			t.Fatalf("DeleteResource failed: %v", err)
		}
		if _, err := store.Resources.GetResource(ctx, "res-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}

		remaining, err := store.Allocations.ListAllocationsForEvent(ctx, "evt-1")
		if err != nil {
			t.Fatalf("ListAllocationsForEvent failed: %v", err)
		}
		if len(remaining) != 1 || remaining[0].ResourceID != "res-2" {
			t.Fatalf("expected only res-2 allocation to remain, got %#v", remaining)
		}
	})
}

func TestAllocationRepository(t *testing.T) {
	t.Run("rolls back every write when the callback fails", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateResource(t, store, testResource("res-1"))
		mustCreateResource(t, store, testResource("res-2"))

		abort := errors.New("abort")
		err := store.Allocations.WithinAllocationTx(ctx, func(q persistence.AllocationQueries) error {
			if err := q.CreateAllocation(ctx, persistence.Allocation{ID: "alloc-1", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime}); err != nil {
				return err
			}
			staged, err := q.ListAllocationsForResource(ctx, "res-1")
			if err != nil {
				return err
			}
			if len(staged) != 1 {
				t.Errorf("expected staged allocation to be visible inside the transaction, got %d", len(staged))
			}
			return abort
		})
		if !errors.Is(err, abort) {
			t.Fatalf("expected abort error, got %v", err)
		}

		allocations, err := store.Allocations.ListAllocationsForEvent(ctx, "evt-1")
		if err != nil {
			t.Fatalf("ListAllocationsForEvent failed: %v", err)
		}
		if len(allocations) != 0 {
			t.Fatalf("expected rollback to discard allocations, got %#v", allocations)
		}
	})

	t.Run("maps duplicate pairs and dangling references", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateResource(t, store, testResource("res-1"))
		mustAllocate(t, store, persistence.Allocation{ID: "alloc-1", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime})

		insert := func(allocation persistence.Allocation) error {
			return store.Allocations.WithinAllocationTx(ctx, func(q persistence.AllocationQueries) error {
				return q.CreateAllocation(ctx, allocation)
			})
		}

		if err := insert(persistence.Allocation{ID: "alloc-2", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime}); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if err := insert(persistence.Allocation{ID: "alloc-3", EventID: "evt-1", ResourceID: "res-missing", CreatedAt: baseTime}); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("reads entities inside the transaction", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateResource(t, store, testResource("res-1"))

		err := store.Allocations.WithinAllocationTx(ctx, func(q persistence.AllocationQueries) error {
			if _, err := q.GetEvent(ctx, "evt-1"); err != nil {
				return err
			}
			if _, err := q.GetResource(ctx, "res-1"); err != nil {
				return err
			}
			if _, err := q.GetResource(ctx, "res-missing"); !errors.Is(err, persistence.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithinAllocationTx failed: %v", err)
		}
	})

	t.Run("deletes a single allocation", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()

		mustCreateEvent(t, store, testEvent("evt-1", baseTime, time.Hour))
		mustCreateResource(t, store, testResource("res-1"))
		mustAllocate(t, store, persistence.Allocation{ID: "alloc-1", EventID: "evt-1", ResourceID: "res-1", CreatedAt: baseTime})

		if err := store.Allocations.DeleteAllocation(ctx, "alloc-1"); err != nil {
			t.Fatalf("DeleteAllocation failed: %v", err)
		}
		if err := store.Allocations.DeleteAllocation(ctx, "alloc-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMigrationFSContainsSchema(t *testing.T) {
	entries, err := MigrationFS().ReadDir(MigrationDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "001_initial_schema.sql" {
		t.Fatalf("unexpected embedded migrations: %v", entries)
	}
}
