package amqp

import (
	"encoding/json"
	"time"
)

// ReminderMessage references a persisted reminder. The worker loads the
// reminder and its event from the store before delivering it.
type ReminderMessage struct {
	ReminderID   int64     `json:"reminderId"`
	EventID      int64     `json:"eventId"`
	ReminderDate time.Time `json:"reminderDate"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewReminderMessage(reminderID, eventID int64, reminderDate time.Time) *ReminderMessage {
	return &ReminderMessage{
		ReminderID:   reminderID,
		EventID:      eventID,
		ReminderDate: reminderDate,
		Timestamp:    time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Notification types.
const (
	NotificationBudgetAllocated = "budget.allocated"
	NotificationShareIssued     = "share.issued"
)

// NotificationMessage announces a committed change to an event's budget
// plan or sharing state.
type NotificationMessage struct {
	Type       string            `json:"type"`
	EventID    int64             `json:"eventId"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewNotificationMessage(kind string, eventID int64, attrs map[string]string) *NotificationMessage {
	return &NotificationMessage{
		Type:       kind,
		EventID:    eventID,
		Attributes: attrs,
		Timestamp:  time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
