package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const DefaultCurrencyCode = "USD"

type (
	Event struct {
		ID              int64           `json:"id"`
		Name            string          `json:"name"`
		Date            time.Time       `json:"date"`
		Budget          decimal.Decimal `json:"budget"`
		Description     string          `json:"description,omitempty"`
		CurrencyCode    string          `json:"currencyCode"`
		EventTemplateID *int64          `json:"eventTemplateId,omitempty"`
		ShareToken      string          `json:"shareToken,omitempty"`
		IsTemplate      bool            `json:"isTemplate"`
		CreatedDate     time.Time       `json:"createdDate"`
		ModifiedDate    *time.Time      `json:"modifiedDate,omitempty"`
	}

	// EventUpdate carries a partial overwrite: nil fields are left untouched.
	EventUpdate struct {
		Name            *string
		Date            *time.Time
		Budget          *decimal.Decimal
		Description     *string
		CurrencyCode    *string
		EventTemplateID *int64
		IsTemplate      *bool
	}

	Expense struct {
		ID           int64           `json:"id"`
		EventID      int64           `json:"eventId"`
		Category     string          `json:"category"`
		Description  string          `json:"description,omitempty"`
		Amount       decimal.Decimal `json:"amount"`
		IsPaid       bool            `json:"isPaid"`
		Date         time.Time       `json:"date"`
		Vendor       string          `json:"vendor,omitempty"`
		CreatedDate  time.Time       `json:"createdDate"`
		ModifiedDate *time.Time      `json:"modifiedDate,omitempty"`
	}

	ExpenseUpdate struct {
		Category    *string
		Description *string
		Amount      *decimal.Decimal
		IsPaid      *bool
		Date        *time.Time
		Vendor      *string
	}

	EventTemplate struct {
		ID            int64                   `json:"id"`
		Name          string                  `json:"name"`
		Description   string                  `json:"description,omitempty"`
		Category      string                  `json:"category"`
		DefaultBudget decimal.Decimal         `json:"defaultBudget"`
		CurrencyCode  string                  `json:"currencyCode"`
		IsPublic      bool                    `json:"isPublic"`
		Categories    []EventTemplateCategory `json:"categories"`
		CreatedDate   time.Time               `json:"createdDate"`
	}

	EventTemplateCategory struct {
		ID              int64           `json:"id"`
		EventTemplateID int64           `json:"eventTemplateId"`
		CategoryName    string          `json:"categoryName"`
		EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
		Description     string          `json:"description,omitempty"`
		SortOrder       int             `json:"sortOrder"`
	}

	// EventCategoryBudget is the planned amount for one category of an event.
	// At most one row exists per (EventID, Category), compared case-insensitively.
	EventCategoryBudget struct {
		ID            int64           `json:"id"`
		EventID       int64           `json:"eventId"`
		Category      string          `json:"category"`
		PlannedAmount decimal.Decimal `json:"plannedAmount"`
		CreatedDate   time.Time       `json:"createdDate"`
		ModifiedDate  *time.Time      `json:"modifiedDate,omitempty"`
	}

	Reminder struct {
		ID              int64      `json:"id"`
		EventID         int64      `json:"eventId"`
		Email           string     `json:"email"`
		DaysBeforeEvent int        `json:"daysBeforeEvent"`
		ReminderDate    time.Time  `json:"reminderDate"`
		CustomMessage   string     `json:"customMessage,omitempty"`
		IsSent          bool       `json:"isSent"`
		SentDate        *time.Time `json:"sentDate,omitempty"`
		CreatedDate     time.Time  `json:"createdDate"`
	}
)

var (
	ErrEmptyName           = errors.New("name is required")
	ErrInvalidName         = errors.New("name must be between 3 and 200 characters")
	ErrDescriptionTooLong  = errors.New("description is too long")
	ErrInvalidCurrencyCode = errors.New("currency code must be 3 letters")
	ErrMissingDate         = errors.New("date is required")
	ErrEmptyCategory       = errors.New("category is required")
	ErrInvalidCategory     = errors.New("category must be between 2 and 100 characters")
	ErrFutureDate          = errors.New("date cannot be more than 1 year in the future")
	ErrInvalidEventID      = errors.New("event id is required")
	ErrInvalidEmail        = errors.New("a valid email address is required")
	ErrInvalidDaysBefore   = errors.New("daysBeforeEvent must be between 0 and 365")
	ErrInvalidEstimate     = errors.New("estimated amount cannot be negative")
)

const (
	maxEventDescription   = 1000
	maxExpenseDescription = 500
	maxCustomMessage      = 500
)

func (e Event) Validate() error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ErrEmptyName
	}
	if n := len([]rune(name)); n < 3 || n > 200 {
		return ErrInvalidName
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if err := ValidateBudget(e.Budget); err != nil {
		return err
	}
	if len([]rune(e.Description)) > maxEventDescription {
		return ErrDescriptionTooLong
	}
	if e.CurrencyCode != "" && !isCurrencyCode(e.CurrencyCode) {
		return ErrInvalidCurrencyCode
	}
	return nil
}

// Apply overwrites the fields set in u.
func (e *Event) Apply(u EventUpdate) {
	if u.Name != nil {
		e.Name = strings.TrimSpace(*u.Name)
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Budget != nil {
		e.Budget = *u.Budget
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.CurrencyCode != nil {
		e.CurrencyCode = strings.ToUpper(strings.TrimSpace(*u.CurrencyCode))
	}
	if u.EventTemplateID != nil {
		if *u.EventTemplateID == 0 {
			e.EventTemplateID = nil
		} else {
			id := *u.EventTemplateID
			e.EventTemplateID = &id
		}
	}
	if u.IsTemplate != nil {
		e.IsTemplate = *u.IsTemplate
	}
}

func (e Expense) Validate() error {
	return e.validateAt(time.Now())
}

func (e Expense) validateAt(now time.Time) error {
	if e.EventID <= 0 {
		return ErrInvalidEventID
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if n := len([]rune(category)); n < 2 || n > 100 {
		return ErrInvalidCategory
	}
	if len([]rune(e.Description)) > maxExpenseDescription {
		return ErrDescriptionTooLong
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if e.Date.After(now.AddDate(1, 0, 0)) {
		return ErrFutureDate
	}
	return nil
}

func (e *Expense) Apply(u ExpenseUpdate) {
	if u.Category != nil {
		e.Category = strings.TrimSpace(*u.Category)
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.IsPaid != nil {
		e.IsPaid = *u.IsPaid
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Vendor != nil {
		e.Vendor = *u.Vendor
	}
}

func (t EventTemplate) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyName
	}
	if n := len([]rune(name)); n < 3 || n > 200 {
		return ErrInvalidName
	}
	if len([]rune(t.Description)) > maxEventDescription {
		return ErrDescriptionTooLong
	}
	if t.DefaultBudget.IsNegative() {
		return ErrInvalidAmount
	}
	if t.CurrencyCode != "" && !isCurrencyCode(t.CurrencyCode) {
		return ErrInvalidCurrencyCode
	}
	for _, c := range t.Categories {
		if strings.TrimSpace(c.CategoryName) == "" {
			return ErrEmptyCategory
		}
		if c.EstimatedAmount.IsNegative() {
			return ErrInvalidEstimate
		}
	}
	return nil
}

func (r Reminder) Validate() error {
	if r.EventID <= 0 {
		return ErrInvalidEventID
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return ErrInvalidEmail
	}
	if r.DaysBeforeEvent < 0 || r.DaysBeforeEvent > 365 {
		return ErrInvalidDaysBefore
	}
	if len([]rune(r.CustomMessage)) > maxCustomMessage {
		return ErrDescriptionTooLong
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
