package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReminderProcessorConfig holds configuration for the reminder processor
type ReminderProcessorConfig struct {
	// PollInterval is how often to look for due reminders (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of reminders delivered per poll cycle (default: 50)
	BatchSize int
}

// DefaultReminderProcessorConfig returns sensible defaults
func DefaultReminderProcessorConfig() ReminderProcessorConfig {
	return ReminderProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
	}
}

// dueDeliverer is the part of ReminderService the processor drives.
type dueDeliverer interface {
	DeliverDue(ctx context.Context, limit int) (int, error)
}

// ReminderProcessor periodically delivers reminders whose date has passed.
// It covers reminders that were queued before they were due and reminders
// whose broker message was lost.
type ReminderProcessor struct {
	reminders dueDeliverer
	config    ReminderProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReminderProcessor creates a new reminder processor
func NewReminderProcessor(reminders *ReminderService, config ReminderProcessorConfig) *ReminderProcessor {
	return newReminderProcessor(reminders, config)
}

func newReminderProcessor(reminders dueDeliverer, config ReminderProcessorConfig) *ReminderProcessor {
	defaults := DefaultReminderProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &ReminderProcessor{
		reminders: reminders,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Reminder processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *ReminderProcessor) processBatch(ctx context.Context) {
	n, err := p.reminders.DeliverDue(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to deliver due reminders", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Delivered due reminders", "count", n)
	}
}
