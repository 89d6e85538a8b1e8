package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/teamflow/pkg/cmd"
	"github.com/dukex/teamflow/pkg/config"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/dukex/teamflow/pkg/log"
	"github.com/dukex/teamflow/pkg/metrics"
	"github.com/dukex/teamflow/pkg/otelhelper"
	"github.com/dukex/teamflow/pkg/web"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start every team workflow, the coordinator and the API",
		Action:  runService,
	}
}

func runService(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("teamflow")

	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := otelhelper.NoopTracer()

	if command.Bool("tracing") {
		otelTracer, shutdown, err := otelhelper.NewTracer(ctx, "teamflow",
			otelhelper.WithServiceVersion(version),
			otelhelper.WithSampleRatio(command.Float("trace-sample-ratio")),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()

		tracer = otelTracer
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	clock := clockwork.NewRealClock()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	eventJournal, err := cmd.NewJournal(ctx, logger, command.String("journal-url"))
	if err != nil {
		return fmt.Errorf("failed to open event journal: %w", err)
	}

	defer func() {
		if err := eventJournal.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to close event journal", "error", err)
		}
	}()

	if err := journal.Attach(eventBus, eventJournal, logger); err != nil {
		return err
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	sharedCache, err := cmd.NewCache(ctx, logger, command.String("redis-url"), clock)
	if err != nil {
		return err
	}

	defer func() {
		if err := sharedCache.Close(); err != nil {
			logger.Error("Failed to close cache", "error", err)
		}
	}()

	capability, err := cmd.NewProvider(
		command.String("provider"),
		command.String("provider-url"),
		int64(command.Int("provider-seed")),
		sharedCache,
		tracer,
		logger,
	)
	if err != nil {
		return err
	}

	schedulerFactory, err := cmd.NewSchedulerFactory(command.String("scheduler"), clock)
	if err != nil {
		return err
	}

	coord, err := cmd.NewCoordinator(cfg, cmd.Runtime{
		Publisher: eventBus,
		Scheduler: schedulerFactory,
		Provider:  capability,
		Cache:     sharedCache,
		Clock:     clock,
		Tracer:    tracer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if err := coord.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}

	defer func() {
		if err := coord.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to shutdown coordinator", "error", err)
		}
	}()

	status := coord.Status()
	logger.InfoContext(ctx, "teamflow started",
		"active_teams", status.ActiveTeams,
		"total_teams", status.TotalTeams,
		"port", command.Int("port"),
	)

	return serve(ctx, logger, web.NewAPI(logger, coord, eventJournal, prometheus.DefaultGatherer), command.Int("port"))
}

// serve runs the API until ctx is cancelled.
func serve(ctx context.Context, logger *slog.Logger, api *web.API, port int) error {
	app := api.App()
	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Failed to stop API server", "error", err)
	}

	return nil
}
