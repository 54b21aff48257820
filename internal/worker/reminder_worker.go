package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventbudget/internal/amqp"
)

// Deliverer is the part of the reminder service the worker drives.
type Deliverer interface {
	Deliver(ctx context.Context, reminderID int64) error
	DeliverDue(ctx context.Context, limit int) (int, error)
}

var ErrInvalidMessage = errors.New("reminder message has no reminder id")

// ReminderWorker delivers reminders announced on the broker
type ReminderWorker struct {
	reminders Deliverer
	batchSize int
}

func NewReminderWorker(reminders Deliverer, batchSize int) *ReminderWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ReminderWorker{
		reminders: reminders,
		batchSize: batchSize,
	}
}

// HandleReminderMessage processes a single reminder message from AMQP.
// Reminders that are not due yet are left for the periodic sweep.
func (w *ReminderWorker) HandleReminderMessage(ctx context.Context, msg *amqp.ReminderMessage) error {
	if msg == nil || msg.ReminderID <= 0 {
		return ErrInvalidMessage
	}

	slog.InfoContext(ctx, "Processing reminder message",
		"reminder_id", msg.ReminderID,
		"event_id", msg.EventID,
		"reminder_date", msg.ReminderDate)

	if err := w.reminders.Deliver(ctx, msg.ReminderID); err != nil {
		return fmt.Errorf("deliver reminder %d: %w", msg.ReminderID, err)
	}
	return nil
}

// StartupCheck delivers reminders that fell due while the worker was down.
// This is the recovery path for lost AMQP messages.
func (w *ReminderWorker) StartupCheck(ctx context.Context) error {
	n, err := w.reminders.DeliverDue(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("deliver due reminders on startup: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "No due reminders found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup reminder check completed", "delivered", n)
	return nil
}
