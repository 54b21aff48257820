package worker

import (
	"context"

	"eventbudget/internal/core"
	"eventbudget/internal/log"
)

// LogNotifier "delivers" reminders by writing them to the log. It stands in
// for an email transport.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentReminder)}
}

func (n *LogNotifier) Notify(ctx context.Context, r core.Reminder, e core.Event) error {
	n.logger.InfoContext(ctx, "Event reminder",
		log.FieldReminderID, r.ID,
		log.FieldEventID, e.ID,
		"event_name", e.Name,
		"event_date", e.Date.Format("2006-01-02"),
		"email", r.Email,
		"days_before", r.DaysBeforeEvent,
		"message", r.CustomMessage)
	return nil
}
