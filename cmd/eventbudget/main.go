package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"eventbudget/internal/cache"
	"eventbudget/internal/cli"
	"eventbudget/internal/config"
	apphttp "eventbudget/internal/http"
	"eventbudget/internal/log"
	"eventbudget/internal/seed"
	"eventbudget/internal/services"
	"eventbudget/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg, log.ComponentApp)
	if err := run(cfg, logger); err != nil {
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.Info("Server shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting eventbudget",
		"backend", cfg.DataBackend,
		"port", cfg.Port,
		"broker", cfg.BrokerEnabled())

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", slog.String(log.FieldError, err.Error()))
		}
	}()

	seedStore(ctx, logger, be.Store, cfg.SeedDir)

	events := services.NewEventService(be.Store, be.Publisher(), services.EventServiceConfig{
		ShareBaseURL:  cfg.ShareBaseURL,
		ShareCacheTTL: cfg.ShareCacheTTL,
	})
	svc := apphttp.Services{
		Events:    events,
		Expenses:  services.NewExpenseService(be.Store, events),
		Templates: services.NewTemplateService(be.Store),
		Reminders: services.NewReminderService(be.Store, be.Publisher(), nil),
	}

	caches := cache.NewManager()
	caches.Register(events.ShareCache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	serverCfg := apphttp.DefaultConfig()
	serverCfg.Addr = ":" + cfg.Port
	serverCfg.CORSAllowedOrigin = cfg.CORSAllowedOrigin
	serverCfg.RateLimitPerMinute = cfg.RateLimitPerMin
	srv := apphttp.NewServer(serverCfg, svc, be.Store, logger.WithComponent(log.ComponentHTTP))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// seedStore loads the sample data on first start. Failures are logged and
// the server keeps running with whatever the store holds.
func seedStore(ctx context.Context, logger *log.Logger, store storage.Store, dir string) {
	seedLogger := logger.WithComponent(log.ComponentSeed)
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		seedLogger.Warn("Seed directory unavailable, skipping", "dir", dir, slog.String(log.FieldError, err.Error()))
		return
	}

	res, err := seed.NewLoader(store, os.DirFS(dir)).Load(ctx)
	if err != nil {
		seedLogger.Error("Seeding failed", "dir", dir, slog.String(log.FieldError, err.Error()))
		return
	}
	if res.Empty() {
		seedLogger.Debug("Store already populated, nothing seeded")
		return
	}
	seedLogger.Info("Seeded sample data",
		"templates", res.Templates,
		"events", res.Events,
		"expenses", res.Expenses)
}
