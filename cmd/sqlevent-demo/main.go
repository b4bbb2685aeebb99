// Command sqlevent-demo runs a small zoo workload against an instrumented
// database and serves the resulting metrics.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/kroma-labs/sqlevent/internal/demo/config"
	"github.com/kroma-labs/sqlevent/internal/demo/database"
	"github.com/kroma-labs/sqlevent/internal/demo/server"
	"github.com/kroma-labs/sqlevent/internal/demo/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	logger := zerolog.New(os.Stdout).Level(cfg.LogLevel).With().
		Timestamp().
		Str("service", config.ServiceName).
		Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := telemetry.NewClient(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Settings(), client, tel.TracerProvider,
		tel.MeterProvider.Meter("github.com/kroma-labs/sqlevent/cmd/sqlevent-demo"), logger)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := errors.Join(
			db.Close(),
			client.Close(shutdownCtx),
			tel.Shutdown(shutdownCtx),
		)
		if err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := db.CreateTable(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to create table")
	}

	health := server.NewHealth(config.ServiceName, config.ServiceVersion)
	health.AddCheck("database", db.PingContext)

	srv := server.New(cfg.ListenAddr,
		server.NewRouter(db, health, prometheus.DefaultGatherer, logger),
		logger,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return workload(ctx, db, cfg.Interval, logger)
	})

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("sender", cfg.Sender).
		Msg("demo started")

	return g.Wait()
}

// workload runs the demo operations every interval under one root span.
func workload(ctx context.Context, db *database.DB, interval time.Duration, logger zerolog.Logger) error {
	tracer := otel.Tracer(config.ServiceName)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			spanCtx, span := tracer.Start(ctx, "demo-workload")
			if err := db.Run(spanCtx); err != nil {
				span.RecordError(err)
				logger.Error().Err(err).Msg("demo workload failed")
			}
			span.End()
		}
	}
}
