package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/resource-scheduler/internal/application"
	"github.com/example/resource-scheduler/internal/config"
	httptransport "github.com/example/resource-scheduler/internal/http"
	"github.com/example/resource-scheduler/internal/logging"
	"github.com/example/resource-scheduler/internal/persistence/sqlite"
)

const usage = `usage: scheduler [-config file] [command]

commands:
  serve                 run the HTTP API (default)
  migrations            print applied and pending schema migrations
  hash-api-key [key]    print an argon2id hash for SCHEDULER_API_KEY_HASH;
                        a random key is generated when none is given
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := flags.String("config", "", "path to a YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	switch command := flags.Arg(0); command {
	case "", "serve":
		return serve(ctx, *configPath, stdout)
	case "migrations":
		return printMigrations(ctx, *configPath, stdout)
	case "hash-api-key":
		return hashAPIKey(flags.Arg(1), stdout)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, configPath string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel)
	logger := logging.New(stdout, level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.Open(ctx, storageConfig(cfg), logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	handler, err := newHandler(storage, cfg, uuid.NewString, utcNow, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "sqlite_path", cfg.SQLitePath, "api_key_required", cfg.APIKeyHash != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func storageConfig(cfg config.Config) sqlite.SQLiteConfig {
	storage := sqlite.DefaultSQLiteConfig(cfg.SQLitePath)
	storage.BusyTimeout = cfg.SQLiteBusyTimeout
	return storage
}

// newHandler wires the services on top of storage and returns the HTTP API.
func newHandler(storage *sqlite.Store, cfg config.Config, idGenerator func() string, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	events := newEventRepositoryAdapter(storage.Events)
	resources := newResourceRepositoryAdapter(storage.Resources)
	bookings := newBookingReaderAdapter(storage.Allocations, storage.Events, storage.Resources)
	allocations := newAllocationStoreAdapter(storage.Allocations)

	eventService := application.NewEventServiceWithLogger(events, bookings, idGenerator, now, logger)
	resourceService := application.NewResourceServiceWithLogger(resources, bookings, idGenerator, now, logger)
	allocationService := application.NewAllocationServiceWithLogger(allocations, idGenerator, now, logger)
	reportService := application.NewReportServiceWithLogger(bookings, logger)

	var verifier httptransport.APIKeyVerifier
	if cfg.APIKeyHash != "" {
		v, err := application.NewAPIKeyVerifier(cfg.APIKeyHash)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Events:    httptransport.NewEventHandler(eventService, allocationService, logger),
		Resources: httptransport.NewResourceHandler(resourceService, allocationService, now, logger),
		Reports:   httptransport.NewReportHandler(reportService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireAPIKey(verifier, logger),
		},
	}), nil
}

func printMigrations(ctx context.Context, configPath string, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(io.Discard, cfg.LogLevel)

	pool, err := sqlite.NewConnectionPool(ctx, storageConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	status, err := sqlite.MigrationStatus(ctx, pool, logger)
	if err != nil {
		return err
	}

	current := status.CurrentVersion
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(stdout, "current version: %s\n", current)
	for _, applied := range status.Applied {
		fmt.Fprintf(stdout, "applied %s at %s (%s)\n", applied.Version, applied.AppliedAt.UTC().Format(time.RFC3339), applied.ExecutionTime)
	}
	for _, pending := range status.Pending {
		fmt.Fprintf(stdout, "pending %s %s\n", pending.Version, pending.Description)
	}
	return nil
}

func hashAPIKey(key string, stdout io.Writer) error {
	if key == "" {
		generated, err := application.GenerateAPIKey()
		if err != nil {
			return err
		}
		key = generated
		fmt.Fprintf(stdout, "api key: %s\n", key)
	}

	hash, err := application.CreateAPIKeyHash(key, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}
