// Package storage defines the gateway the services persist through. The
// sqlite and memory subpackages implement it.
package storage

import (
	"context"
	"errors"
	"time"

	"eventbudget/internal/core"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing one")
)

type (
	EventRepository interface {
		// Get returns ErrNotFound when no event has the id.
		Get(ctx context.Context, id int64) (core.Event, error)
		Exists(ctx context.Context, q EventQuery) (bool, error)
		Find(ctx context.Context, q EventQuery) ([]core.Event, error)
		Count(ctx context.Context, q EventQuery) (int, error)
		Create(ctx context.Context, e *core.Event) error
		// Update writes every field except the share token.
		Update(ctx context.Context, e *core.Event) error
		// SetShareToken stores token on an event that has none and returns
		// the token the event holds afterwards, which is the earlier one if
		// it was already set. ErrConflict means another event owns token.
		SetShareToken(ctx context.Context, id int64, token string) (string, error)
		// Delete removes the event with its expenses and category budgets.
		Delete(ctx context.Context, id int64) error
	}

	ExpenseRepository interface {
		Get(ctx context.Context, id int64) (core.Expense, error)
		Find(ctx context.Context, q ExpenseQuery) ([]core.Expense, error)
		Count(ctx context.Context, q ExpenseQuery) (int, error)
		Create(ctx context.Context, e *core.Expense) error
		Update(ctx context.Context, e *core.Expense) error
		Delete(ctx context.Context, id int64) error
	}

	TemplateRepository interface {
		// Get returns the template with its categories.
		Get(ctx context.Context, id int64) (core.EventTemplate, error)
		List(ctx context.Context) ([]core.EventTemplate, error)
		Create(ctx context.Context, t *core.EventTemplate) error
		Categories(ctx context.Context, q TemplateCategoryQuery) ([]core.EventTemplateCategory, error)
	}

	CategoryBudgetRepository interface {
		Find(ctx context.Context, q CategoryBudgetQuery) ([]core.EventCategoryBudget, error)
		Create(ctx context.Context, b *core.EventCategoryBudget) error
		Update(ctx context.Context, b *core.EventCategoryBudget) error
	}

	ReminderRepository interface {
		Get(ctx context.Context, id int64) (core.Reminder, error)
		Create(ctx context.Context, r *core.Reminder) error
		// Due returns unsent reminders whose date is not after now, oldest first.
		Due(ctx context.Context, now time.Time, limit int) ([]core.Reminder, error)
		MarkSent(ctx context.Context, id int64, at time.Time) error
	}

	Repositories interface {
		Events() EventRepository
		Expenses() ExpenseRepository
		Templates() TemplateRepository
		CategoryBudgets() CategoryBudgetRepository
		Reminders() ReminderRepository
	}

	// Tx scopes the repositories to one transaction. Rollback after Commit
	// is a no-op.
	Tx interface {
		Repositories
		Commit() error
		Rollback() error
	}

	Store interface {
		Repositories
		Begin(ctx context.Context) (Tx, error)
		Ping(ctx context.Context) error
		Close() error
	}
)
