package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"courtside/internal/adapters/events"
	web "courtside/internal/adapters/http"
	"courtside/internal/adapters/http/perf"
	"courtside/internal/adapters/storage"
	accountStore "courtside/internal/adapters/storage/account"
	activityStore "courtside/internal/adapters/storage/activity"
	courtStore "courtside/internal/adapters/storage/court"
	occupancyStore "courtside/internal/adapters/storage/occupancy"
	participationStore "courtside/internal/adapters/storage/participation"
	"courtside/internal/application/calendar"
	"courtside/internal/application/keylock"
	"courtside/internal/application/ledgerops"
	"courtside/internal/application/orchestrators"
	"courtside/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		slog.Error("db_open_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connection pool settings for WAL mode.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		slog.Error("db_unreachable", "error", err)
		os.Exit(1)
	}
	if err := storage.MigrateDB(db); err != nil {
		slog.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	// Performance instrumentation: wrap the DB with timing, create collector.
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, storage.DefaultSlowQueryMs)

	stores := &web.Stores{
		ActivityStore:      activityStore.NewSQLiteStore(timedDB),
		ParticipationStore: participationStore.NewSQLiteStore(timedDB),
		AccountStore:       accountStore.NewSQLiteStore(timedDB),
		OccupancyStore:     occupancyStore.NewSQLiteStore(timedDB),
		CourtStore:         courtStore.NewSQLiteStore(timedDB),
	}

	locks := keylock.NewManager(keylock.DefaultWait)
	ledger := ledgerops.New(stores.AccountStore, locks)
	cal := calendar.New(stores.OccupancyStore, stores.CourtStore, locks, uuid.NewString)

	var publisher events.Publisher
	if cfg.RabbitURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			slog.Error("rabbit_connect_failed", "error", err)
			os.Exit(1)
		}
		defer rp.Close()
		publisher = rp
		slog.Info("event_publisher_configured", "kind", "rabbitmq", "exchange", cfg.RabbitExchange)
	} else {
		publisher = events.NewNoopPublisher()
		slog.Info("event_publisher_configured", "kind", "noop")
	}

	services := &web.Services{
		Ledger:    ledger,
		Calendar:  cal,
		Locks:     locks,
		Publisher: publisher,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed demo data and allow the dev token endpoint outside production.
	if !cfg.IsProduction() {
		seedDeps := orchestrators.SeedDevDeps{
			Activities: stores.ActivityStore,
			Courts:     stores.CourtStore,
			Ledger:     ledger,
		}
		if err := orchestrators.ExecuteSeedDev(ctx, seedDeps); err != nil {
			slog.Error("seed_dev_failed", "error", err)
			os.Exit(1)
		}
		web.DevTokenEnabled = true
	}

	cleanupDeps := orchestrators.CleanupDeps{
		Activities: stores.ActivityStore,
		Calendar:   cal,
	}
	cleanupCfg := orchestrators.DefaultCleanupConfig()
	cleanupCfg.Interval = cfg.CleanupInterval
	stopCleanup := orchestrators.StartCleanupScheduler(ctx, cleanupDeps, cleanupCfg)
	defer stopCleanup()

	web.RateLimitPerSecond = cfg.RateLimitPerSecond
	mux := web.NewMux(stores, services, collector, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server_stopped")
}
