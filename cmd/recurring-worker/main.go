package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting recurring-worker", log.NewFields().WithOperation(log.OpStartup).ToSlice()...)

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := cli.InitApp(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()
	app.StartCacheJanitor()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		log.FieldBackend, cfg.DataBackend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runProcessor(gctx, logger, app, cfg.RecurringInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down recurring-worker", log.FieldOperation, log.OpShutdown)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring-worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}

// runProcessor catches up once at startup and then on every tick. A failed
// run is logged and retried on the next tick with the fence unchanged.
func runProcessor(ctx context.Context, logger *log.Logger, app *cli.App, interval time.Duration) error {
	tick(ctx, logger, app, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			tick(ctx, logger, app, now)
		}
	}
}

func tick(ctx context.Context, logger *log.Logger, app *cli.App, now time.Time) {
	if process(ctx, logger, app.Processor, now) > 0 {
		warnGoals(logger, app.Reports, now)
	}
}

func process(ctx context.Context, logger *log.Logger, p *services.RecurringProcessor, now time.Time) int {
	start := time.Now()
	// The budget command writes the same store between ticks.
	count, err := p.ReloadAndProcessDue(ctx, core.DateOf(now))
	fields := log.NewFields().
		WithOperation(log.OpProcess).
		WithCount(count).
		WithDuration(time.Since(start).Milliseconds())
	if err != nil {
		logger.Error("Recurring processing failed", fields.WithError(err).ToSlice()...)
		return 0
	}
	logger.Info("Recurring processing complete", fields.ToSlice()...)
	return count
}

// warnGoals logs every budget goal that new recurring spending pushed to
// the warning threshold.
func warnGoals(logger *log.Logger, reports *services.Reports, now time.Time) {
	d := reports.Dashboard(now)
	for _, g := range d.Goals {
		if !g.Active || !g.Warning {
			continue
		}
		category := g.Category
		if category == "" {
			category = "overall"
		}
		logger.Warn("Budget goal nearly reached",
			"category", category,
			log.FieldMonth, d.Month,
			log.FieldCurrency, d.Currency,
			"spent", g.Spent.StringFixed(d.Currency.FractionDigits()),
			"goal", g.GoalAmount.StringFixed(d.Currency.FractionDigits()),
			"percentage", g.Percentage)
	}
}
