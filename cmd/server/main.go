package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/points-ledger/internal/api"
	"github.com/sheikh-saqib/points-ledger/internal/config"
	"github.com/sheikh-saqib/points-ledger/internal/events"
	"github.com/sheikh-saqib/points-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/points-ledger/internal/ledger"
	"github.com/sheikh-saqib/points-ledger/internal/observability"
	"github.com/sheikh-saqib/points-ledger/internal/storage/postgres"
)

const serviceName = "points-ledger"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogging(observability.LogConfig{
		Service:    serviceName,
		Env:        cfg.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	sinks, closeSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if len(sinks) > 0 {
		opts = append(opts, ledger.WithPublisher(sinks))
	}
	ledgerService := ledger.NewLedger(opts...)

	handler, err := api.NewServer(api.Config{
		Ledger:       ledgerService,
		Metrics:      observability.NewMetrics("points_ledger"),
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSinks wires the configured event sinks. With none configured the
// ledger runs without publishing.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (events.Fanout, func(), error) {
	var (
		sinks   events.Fanout
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close event sink", "error", err)
			}
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			Compression: cfg.Kafka.Compression,
		})
		if err != nil {
			return nil, func() {}, err
		}
		sinks = append(sinks, publisher)
		closers = append(closers, publisher.Close)
		logger.Info("kafka event sink enabled", "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, db.Close)
		store := postgres.NewPostgresEventStore(db, cfg.Postgres.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, store)
		logger.Info("postgres event sink enabled", "table", cfg.Postgres.Table)
	}

	return sinks, closeAll, nil
}
