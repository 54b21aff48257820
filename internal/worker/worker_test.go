package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"eventbudget/internal/amqp"
	"eventbudget/internal/core"
	"eventbudget/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliverer struct {
	delivered []int64
	dueLimit  int
	due       int
	err       error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeDeliverer) DeliverDue(ctx context.Context, limit int) (int, error) {
	f.dueLimit = limit
	return f.due, f.err
}

func TestReminderWorker_HandleReminderMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *amqp.ReminderMessage
		err     error
		wantErr bool
		want    []int64
	}{
		{"delivers", amqp.NewReminderMessage(4, 1, time.Now()), nil, false, []int64{4}},
		{"nil message", nil, nil, true, nil},
		{"missing id", &amqp.ReminderMessage{EventID: 1}, nil, true, nil},
		{"delivery failure is returned", amqp.NewReminderMessage(4, 1, time.Now()), errors.New("store down"), true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDeliverer{err: tt.err}
			err := NewReminderWorker(d, 10).HandleReminderMessage(context.Background(), tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, d.delivered)
		})
	}
}

func TestReminderWorker_StartupCheck(t *testing.T) {
	d := &fakeDeliverer{due: 3}
	require.NoError(t, NewReminderWorker(d, 10).StartupCheck(context.Background()))
	assert.Equal(t, 50, d.dueLimit)

	d = &fakeDeliverer{}
	require.NoError(t, NewReminderWorker(d, 0).StartupCheck(context.Background()))
	assert.Equal(t, 250, d.dueLimit, "default batch size")

	d = &fakeDeliverer{err: errors.New("locked")}
	assert.Error(t, NewReminderWorker(d, 10).StartupCheck(context.Background()))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewJSONHandler(&buf, nil)})
	n := NewLogNotifier(logger)

	err := n.Notify(context.Background(),
		core.Reminder{ID: 9, Email: "host@example.com", DaysBeforeEvent: 2, CustomMessage: "Confirm the DJ"},
		core.Event{ID: 3, Name: "Gala", Date: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"reminder_id":9`)
	assert.Contains(t, out, `"event_date":"2025-11-01"`)
	assert.Contains(t, out, `"email":"host@example.com"`)
	assert.Contains(t, out, `"component":"reminder"`)
}
