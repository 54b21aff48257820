package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"eventbudget/internal/cli"
	"eventbudget/internal/config"
	"eventbudget/internal/log"
	"eventbudget/internal/services"
	"eventbudget/internal/worker"
)

const batchSize = 50

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	if err := run(cfg, logger); err != nil {
		cli.Fatal(logger, "Reminder worker stopped with error", err)
	}
	logger.Info("Reminder worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting reminder-worker",
		"backend", cfg.DataBackend,
		"poll_interval", cfg.ReminderPollInterval)

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", slog.String(log.FieldError, err.Error()))
		}
	}()

	reminders := services.NewReminderService(be.Store, be.Publisher(), worker.NewLogNotifier(logger))
	reminderWorker := worker.NewReminderWorker(reminders, batchSize)

	// Catch up on reminders that fell due while the worker was down.
	if err := reminderWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup reminder sweep failed", slog.String(log.FieldError, err.Error()))
	}

	processor := services.NewReminderProcessor(reminders, services.ReminderProcessorConfig{
		PollInterval: cfg.ReminderPollInterval,
		BatchSize:    batchSize,
	})
	if err := processor.Start(ctx); err != nil {
		return fmt.Errorf("start reminder processor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if be.Broker != nil {
		g.Go(func() error {
			logger.Info("Consuming reminder messages", "queue", cfg.AMQPQueue)
			err := be.Broker.ConsumeReminders(gctx, reminderWorker.HandleReminderMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("No broker configured, relying on the periodic sweep")
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})
	return g.Wait()
}
