package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eventbudget/internal/core"
)

const reminderColumns = `id, event_id, email, days_before_event, reminder_date, custom_message,
	is_sent, sent_date, created_date`

type reminderRepo repos

func scanReminder(row rowScanner) (core.Reminder, error) {
	var (
		rem          core.Reminder
		due, created string
		sent         sql.NullString
		isSent       int
	)
	if err := row.Scan(&rem.ID, &rem.EventID, &rem.Email, &rem.DaysBeforeEvent, &due,
		&rem.CustomMessage, &isSent, &sent, &created); err != nil {
		return core.Reminder{}, err
	}
	var err error
	if rem.ReminderDate, err = parseTime(due); err != nil {
		return core.Reminder{}, err
	}
	if rem.CreatedDate, err = parseTime(created); err != nil {
		return core.Reminder{}, err
	}
	if rem.SentDate, err = parseNullTime(sent); err != nil {
		return core.Reminder{}, err
	}
	rem.IsSent = isSent != 0
	return rem, nil
}

func (r reminderRepo) Get(ctx context.Context, id int64) (core.Reminder, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id)
	rem, err := scanReminder(row)
	if err != nil {
		return core.Reminder{}, mapErr(err, fmt.Sprintf("reminder %d", id))
	}
	return rem, nil
}

func (r reminderRepo) Create(ctx context.Context, rem *core.Reminder) error {
	if rem.CreatedDate.IsZero() {
		rem.CreatedDate = r.now()
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO reminders
		(event_id, email, days_before_event, reminder_date, custom_message, is_sent, sent_date, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rem.EventID, rem.Email, rem.DaysBeforeEvent, formatTime(rem.ReminderDate), rem.CustomMessage,
		boolInt(rem.IsSent), formatNullTime(rem.SentDate), formatTime(rem.CreatedDate))
	if err != nil {
		return mapErr(err, "create reminder")
	}
	rem.ID, err = res.LastInsertId()
	return err
}

func (r reminderRepo) Due(ctx context.Context, now time.Time, limit int) ([]core.Reminder, error) {
	query := "SELECT " + reminderColumns + " FROM reminders WHERE is_sent = 0 AND reminder_date <= ? ORDER BY reminder_date, id"
	args := []any{formatTime(now)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	defer rows.Close()

	due := []core.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		due = append(due, rem)
	}
	return due, rows.Err()
}

func (r reminderRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, "UPDATE reminders SET is_sent = 1, sent_date = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("mark reminder %d sent", id))
	}
	return requireAffected(res, fmt.Sprintf("reminder %d", id))
}
