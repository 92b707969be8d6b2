package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/playtrack-dev/playtrack/internal/aggregate"
	"github.com/playtrack-dev/playtrack/internal/config"
	"github.com/playtrack-dev/playtrack/internal/core/retry"
	"github.com/playtrack-dev/playtrack/internal/engine"
	"github.com/playtrack-dev/playtrack/internal/ledger"
	"github.com/playtrack-dev/playtrack/internal/migrations"
	"github.com/playtrack-dev/playtrack/internal/notify"
	"github.com/playtrack-dev/playtrack/internal/scan"
	"github.com/playtrack-dev/playtrack/internal/server"
	"github.com/playtrack-dev/playtrack/internal/state"
	"github.com/playtrack-dev/playtrack/internal/state/postgres"
	"github.com/playtrack-dev/playtrack/internal/store"
)

func main() {
	configPath := flag.String("config", "playtrack.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"principals", len(cfg.Principals),
		"poll_interval", cfg.Poll.Interval,
		"persistence", cfg.Persistence.Type,
	)

	clock := clockwork.NewRealClock()

	// 2. Initialize Persistence
	var persister state.Persister
	switch cfg.Persistence.Type {
	case "postgres":
		db, err := postgres.Open(cfg.Persistence.DSN, cfg.Persistence.MaxOpenConns, cfg.Persistence.MaxIdleConns)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := migrations.Run(db, cfg.Persistence.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		persister = postgres.NewAdapter(db)
	default:
		fileStore, err := state.NewFileStore(cfg.Persistence.Path)
		if err != nil {
			slog.Error("Failed to initialize state file", "error", err)
			os.Exit(1)
		}
		persister = fileStore
	}

	// 3. Initialize Store Access and Scanning
	client := store.NewHTTPClient(store.HTTPClientOptions{
		BaseURL:        cfg.Store.StoreEndpoint(),
		Datastore:      cfg.Store.Datastore,
		APIKey:         cfg.Store.APIKey,
		PageLimit:      cfg.Store.PageLimit,
		RequestTimeout: cfg.RequestTimeout(),
	})
	policy := retry.Policy{
		MaxAttempts:  cfg.Store.MaxAttempts,
		InitialDelay: cfg.RetryDelay(),
	}
	scanner := scan.NewScanner(
		store.NewEnumerator(client, policy, cfg.PageDelay(), clock),
		store.NewFetcher(client, policy),
	)

	// 4. Restore Engine State
	st := &state.EngineState{Ledger: ledger.New()}
	flush := func() {
		snap := st.Snapshot(clock.Now())
		if err := persister.Save(context.Background(), snap); err != nil {
			slog.Warn("[Main] Snapshot save failed", "error", err)
		}
	}
	st.Cache = aggregate.NewCache(scanner, clock, aggregate.Options{
		Principals: cfg.Principals,
		DailyTTL:   cfg.DailyTTL(),
		MonthlyTTL: cfg.MonthlyTTL(),
		Flush:      flush,
	})

	snap, err := persister.Load(context.Background())
	if err != nil {
		slog.Error("Failed to load persisted state", "error", err)
		os.Exit(1)
	}
	st.Restore(snap)
	slog.Info("Restored state",
		"ledger_entries", st.Ledger.Len(),
		"cache_entries", st.Cache.Len(),
	)

	// 5. Initialize Notification Sink
	sink := notify.NewWebhookSink(cfg.Webhook.URL, cfg.WebhookTimeout())

	// 6. Initialize Engine
	eng := engine.New(engine.Options{
		Principals:      cfg.Principals,
		PollInterval:    cfg.PollInterval(),
		SweepInterval:   cfg.SweepInterval(),
		LedgerRetention: cfg.LedgerRetention(),
		CacheRetention:  cfg.CacheRetention(),
	}, scanner, st, sink, persister, clock)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gctx)
	})

	if cfg.Server.Enabled {
		srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, eng)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
