// Package cli holds the start-up sequence shared by cmd/budget and
// cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/config"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
)

// SetupLogger installs a text logger at the given level as the slog default.
// An unknown level falls back to info.
func SetupLogger(level, component string) *log.Logger {
	return SetupLoggerTo(os.Stdout, level, component)
}

// SetupLoggerTo is SetupLogger writing to out. Interactive commands log to
// stderr so stdout carries only their output.
func SetupLoggerTo(out io.Writer, level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Output = out
	lvl, err := log.ParseLevel(level)
	cfg.Level = lvl
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info logging", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is the wired ledger stack.
type App struct {
	Config    *config.Config
	Ledger    *services.LedgerService
	Processor *services.RecurringProcessor
	Reports   *services.Reports

	janitor *cache.Janitor
	cleanup backend.CleanupFunc
}

// InitApp opens the configured backend and loads the ledger from it.
func InitApp(ctx context.Context, logger *log.Logger, cfg *config.Config) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	currency, err := core.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		result.Cleanup()
		return nil, err
	}

	var opts []services.Option
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	ledger, err := services.NewLedgerService(ctx, result.Store, currency, opts...)
	if err != nil {
		result.Cleanup()
		return nil, err
	}

	reportCache := cache.NewLRUCache[services.Dashboard](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
	janitor.Register(reportCache)

	return &App{
		Config:    cfg,
		Ledger:    ledger,
		Processor: services.NewRecurringProcessor(ledger),
		Reports:   services.NewReports(ledger, reportCache, cfg.MonthsBack),
		janitor:   janitor,
		cleanup:   result.Cleanup,
	}, nil
}

// StartCacheJanitor sweeps expired reports in the background until Close.
// Only long-running processes need it.
func (a *App) StartCacheJanitor() {
	if a.Config.ReportCacheTTL > 0 {
		a.janitor.Start(a.Config.ReportCacheTTL)
	}
}

func (a *App) Close() error {
	a.janitor.Stop()
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
