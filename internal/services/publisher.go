// Package services orchestrates the event budget operations over the store,
// the budget engine and the message broker.
package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"eventbudget/internal/amqp"
	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

// Publisher is the broker surface the services need. *amqp.Client
// implements it. A nil Publisher disables publishing.
type Publisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// notify publishes a notification after a committed change. Failures are
// logged and never fail the request: the change is already persisted.
func notify(ctx context.Context, pub Publisher, kind string, eventID int64, attrs map[string]string) {
	if pub == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping notification", "type", kind)
		return
	}
	if err := pub.PublishNotification(ctx, amqp.NewNotificationMessage(kind, eventID, attrs)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish notification",
			"type", kind,
			"event_id", eventID,
			"error", err)
	}
}

// notFound converts storage.ErrNotFound into nf and passes other errors
// through.
func notFound(err error, nf *core.Error) error {
	if errors.Is(err, storage.ErrNotFound) {
		nf.Err = err
		return nf
	}
	return err
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
