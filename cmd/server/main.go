package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agenthands/dossier/internal/config"
	"github.com/agenthands/dossier/internal/core"
	"github.com/agenthands/dossier/internal/core/dedupe"
	"github.com/agenthands/dossier/internal/core/graph"
	"github.com/agenthands/dossier/internal/core/normalize"
	"github.com/agenthands/dossier/internal/core/orchestrator"
	"github.com/agenthands/dossier/internal/driver"
	"github.com/agenthands/dossier/internal/logging"
	"github.com/agenthands/dossier/internal/scanner"
	"github.com/agenthands/dossier/internal/scanner/synthetic"
	"github.com/agenthands/dossier/internal/server"
	"github.com/agenthands/dossier/internal/store"
	"github.com/agenthands/dossier/internal/store/memory"
	"github.com/agenthands/dossier/internal/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.toml"
	}

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("No config at %s, using defaults", path)
		cfg, err = config.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	registry := scanner.NewRegistry()
	for _, s := range synthetic.Default(synthetic.Options{
		Delay:    cfg.Scanners.SimulatedDelay.Duration,
		Disabled: cfg.Scanners.Disabled,
	}) {
		if err := registry.Register(s); err != nil {
			return err
		}
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var projector *graph.Projector
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
		if err != nil {
			return err
		}
		defer d.Close(context.Background())
		if err := d.BuildIndices(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to build graph indices")
		}
		projector = graph.NewProjector(d, logger)
	}

	orch := orchestrator.New(registry, orchestrator.Options{
		MaxConcurrency: cfg.Scanners.MaxConcurrency,
		ScannerTimeout: cfg.Scanners.Timeout.Duration,
		BatchDeadline:  cfg.Scanners.BatchDeadline.Duration,
		MaxRetries:     cfg.Scanners.MaxRetries,
		RetryBackoff:   cfg.Scanners.RetryBackoff.Duration,
	}, logger)
	agg := dedupe.NewAggregator(normalize.Normalizer{
		DefaultCountryCode: cfg.Normalization.DefaultCountryCode,
		FoldGmailDots:      cfg.Normalization.FoldGmailDots,
	})

	// A nil *graph.Projector must not become a non-nil interface.
	var engineGraph core.Projector
	var linker server.Linker
	if projector != nil {
		engineGraph, linker = projector, projector
	}
	engine := core.NewEngine(orch, agg, st, engineGraph, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewServer(engine, registry, linker, logger).SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Int("scanners", registry.Stats().Total).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.Postgres.URL == "" {
		logger.Info().Msg("No database configured, using in-memory store")
		return memory.New(), nil
	}

	db, err := postgres.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.Migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
