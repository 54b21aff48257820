package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validEvent() Event {
	return Event{
		Name:         "Summer wedding",
		Date:         time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
		Budget:       decimal.NewFromInt(15000),
		CurrencyCode: "EUR",
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Event)
		wantErr error
	}{
		{name: "valid", mutate: func(e *Event) {}},
		{name: "empty name", mutate: func(e *Event) { e.Name = "   " }, wantErr: ErrEmptyName},
		{name: "short name", mutate: func(e *Event) { e.Name = "ab" }, wantErr: ErrInvalidName},
		{name: "long name", mutate: func(e *Event) { e.Name = strings.Repeat("x", 201) }, wantErr: ErrInvalidName},
		{name: "zero date", mutate: func(e *Event) { e.Date = time.Time{} }, wantErr: ErrMissingDate},
		{name: "zero budget", mutate: func(e *Event) { e.Budget = decimal.Zero }, wantErr: ErrInvalidBudget},
		{name: "huge budget", mutate: func(e *Event) { e.Budget = MaxAmount }, wantErr: ErrInvalidBudget},
		{name: "long description", mutate: func(e *Event) { e.Description = strings.Repeat("d", 1001) }, wantErr: ErrDescriptionTooLong},
		{name: "bad currency", mutate: func(e *Event) { e.CurrencyCode = "EURO" }, wantErr: ErrInvalidCurrencyCode},
		{name: "empty currency allowed", mutate: func(e *Event) { e.CurrencyCode = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEventApply(t *testing.T) {
	e := validEvent()
	templateID := int64(7)
	e.EventTemplateID = &templateID

	name := "  Renamed party "
	budget := decimal.NewFromInt(200)
	unlink := int64(0)
	e.Apply(EventUpdate{Name: &name, Budget: &budget, EventTemplateID: &unlink})

	assert.Equal(t, "Renamed party", e.Name)
	assert.True(t, e.Budget.Equal(budget))
	assert.Nil(t, e.EventTemplateID)
	assert.Equal(t, "EUR", e.CurrencyCode, "untouched fields keep their value")
}

func TestExpenseValidate(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	good := Expense{
		EventID:  1,
		Category: "Catering",
		Amount:   decimal.RequireFromString("120.50"),
		Date:     now,
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{name: "valid", mutate: func(e *Expense) {}},
		{name: "missing event", mutate: func(e *Expense) { e.EventID = 0 }, wantErr: ErrInvalidEventID},
		{name: "empty category", mutate: func(e *Expense) { e.Category = "" }, wantErr: ErrEmptyCategory},
		{name: "one letter category", mutate: func(e *Expense) { e.Category = "x" }, wantErr: ErrInvalidCategory},
		{name: "zero amount", mutate: func(e *Expense) { e.Amount = decimal.Zero }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(e *Expense) { e.Amount = decimal.NewFromInt(-3) }, wantErr: ErrInvalidAmount},
		{name: "long description", mutate: func(e *Expense) { e.Description = strings.Repeat("d", 501) }, wantErr: ErrDescriptionTooLong},
		{name: "far future", mutate: func(e *Expense) { e.Date = now.AddDate(1, 0, 1) }, wantErr: ErrFutureDate},
		{name: "next year ok", mutate: func(e *Expense) { e.Date = now.AddDate(1, 0, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mutate(&e)
			err := e.validateAt(now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReminderValidate(t *testing.T) {
	good := Reminder{EventID: 3, Email: "host@example.com", DaysBeforeEvent: 7}
	assert.NoError(t, good.Validate())

	bad := good
	bad.Email = "not-an-email"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidEmail)

	bad = good
	bad.DaysBeforeEvent = 400
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDaysBefore)
}

func TestEventTemplateValidate(t *testing.T) {
	tpl := EventTemplate{
		Name: "Wedding",
		Categories: []EventTemplateCategory{
			{CategoryName: "Venue", EstimatedAmount: decimal.NewFromInt(600)},
		},
	}
	assert.NoError(t, tpl.Validate())

	tpl.Categories = append(tpl.Categories, EventTemplateCategory{CategoryName: "Food", EstimatedAmount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, tpl.Validate(), ErrInvalidEstimate)
}
