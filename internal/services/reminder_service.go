package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventbudget/internal/amqp"
	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

// Notifier delivers a due reminder to its recipient.
type Notifier interface {
	Notify(ctx context.Context, r core.Reminder, e core.Event) error
}

// ReminderRequest schedules a reminder daysBeforeEvent days before the event.
type ReminderRequest struct {
	EventID         int64  `json:"eventId"`
	Email           string `json:"email"`
	DaysBeforeEvent int    `json:"daysBeforeEvent"`
	CustomMessage   string `json:"customMessage"`
}

// ReminderService schedules reminders and delivers them once due.
type ReminderService struct {
	store    storage.Store
	pub      Publisher
	notifier Notifier
	now      func() time.Time
}

// NewReminderService creates a ReminderService. pub and notifier may be nil:
// without a publisher reminders wait for the sweep, without a notifier they
// cannot be delivered.
func NewReminderService(store storage.Store, pub Publisher, notifier Notifier) *ReminderService {
	return &ReminderService{
		store:    store,
		pub:      pub,
		notifier: notifier,
		now:      time.Now,
	}
}

// Schedule validates and stores a reminder and queues it for the worker.
func (s *ReminderService) Schedule(ctx context.Context, req ReminderRequest) (core.Reminder, error) {
	r := core.Reminder{
		EventID:         req.EventID,
		Email:           strings.TrimSpace(req.Email),
		DaysBeforeEvent: req.DaysBeforeEvent,
		CustomMessage:   strings.TrimSpace(req.CustomMessage),
	}
	if err := r.Validate(); err != nil {
		return core.Reminder{}, core.Invalid(err)
	}

	e, err := s.store.Events().Get(ctx, req.EventID)
	if err != nil {
		return core.Reminder{}, notFound(err, core.EventNotFound(req.EventID))
	}
	r.ReminderDate = e.Date.AddDate(0, 0, -r.DaysBeforeEvent)

	if err := s.store.Reminders().Create(ctx, &r); err != nil {
		return core.Reminder{}, notFound(err, core.EventNotFound(req.EventID))
	}
	slog.InfoContext(ctx, "Reminder scheduled",
		"reminder_id", r.ID,
		"event_id", r.EventID,
		"reminder_date", r.ReminderDate)

	s.publish(ctx, r)
	return r, nil
}

func (s *ReminderService) publish(ctx context.Context, r core.Reminder) {
	if s.pub == nil {
		slog.WarnContext(ctx, "AMQP client not available, reminder left for the sweep", "reminder_id", r.ID)
		return
	}
	if err := s.pub.PublishReminder(ctx, amqp.NewReminderMessage(r.ID, r.EventID, r.ReminderDate)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reminder message",
			"reminder_id", r.ID,
			"error", err)
	}
}

// Deliver hands a reminder to the notifier and marks it sent. Reminders
// already sent, deleted or not yet due are skipped without error; the sweep
// picks up the ones that become due later.
func (s *ReminderService) Deliver(ctx context.Context, reminderID int64) error {
	r, err := s.store.Reminders().Get(ctx, reminderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Reminder no longer exists, skipping", "reminder_id", reminderID)
			return nil
		}
		return fmt.Errorf("load reminder %d: %w", reminderID, err)
	}
	if r.IsSent {
		slog.DebugContext(ctx, "Reminder already sent", "reminder_id", reminderID)
		return nil
	}
	now := s.now()
	if r.ReminderDate.After(now) {
		slog.DebugContext(ctx, "Reminder not due yet", "reminder_id", reminderID, "reminder_date", r.ReminderDate)
		return nil
	}
	return s.deliver(ctx, r, now)
}

func (s *ReminderService) deliver(ctx context.Context, r core.Reminder, now time.Time) error {
	if s.notifier == nil {
		return errors.New("no reminder notifier configured")
	}
	e, err := s.store.Events().Get(ctx, r.EventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", r.EventID, err)
	}
	if err := s.notifier.Notify(ctx, r, e); err != nil {
		return fmt.Errorf("notify reminder %d: %w", r.ID, err)
	}
	if err := s.store.Reminders().MarkSent(ctx, r.ID, now); err != nil {
		return fmt.Errorf("mark reminder %d sent: %w", r.ID, err)
	}
	slog.InfoContext(ctx, "Reminder delivered", "reminder_id", r.ID, "event_id", r.EventID)
	return nil
}

// DeliverDue delivers up to limit unsent reminders whose date has passed and
// returns how many were delivered. A failed reminder does not stop the batch.
func (s *ReminderService) DeliverDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	due, err := s.store.Reminders().Due(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	delivered := 0
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := s.deliver(ctx, r, now); err != nil {
			slog.WarnContext(ctx, "Reminder delivery failed", "reminder_id", r.ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}
