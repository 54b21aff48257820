package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ShareInvalidator drops cached public views after an event's expenses
// change. *EventService implements it.
type ShareInvalidator interface {
	InvalidateShared(ctx context.Context, eventID int64)
}

// ExpenseFilter selects a page of expenses. Without an EventID it searches
// the expenses of every event.
type ExpenseFilter struct {
	EventID       int64            `json:"eventId"`
	Category      string           `json:"category"`
	IsPaid        *bool            `json:"isPaid"`
	MinAmount     *decimal.Decimal `json:"minAmount"`
	MaxAmount     *decimal.Decimal `json:"maxAmount"`
	StartDate     *time.Time       `json:"startDate"`
	EndDate       *time.Time       `json:"endDate"`
	SearchTerm    string           `json:"searchTerm"`
	Vendor        string           `json:"vendor"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	SortBy        string           `json:"sortBy"`
	SortDirection string           `json:"sortDirection"`
}

// ExpenseService manages the expenses of events.
type ExpenseService struct {
	store  storage.Store
	shares ShareInvalidator
	now    func() time.Time
}

// NewExpenseService creates an ExpenseService. shares may be nil.
func NewExpenseService(store storage.Store, shares ShareInvalidator) *ExpenseService {
	return &ExpenseService{
		store:  store,
		shares: shares,
		now:    time.Now,
	}
}

// ListByEvent returns the expenses of an event, newest first, optionally
// narrowed to paid or unpaid ones and to one category.
func (s *ExpenseService) ListByEvent(ctx context.Context, eventID int64, paid *bool, category string) ([]core.Expense, error) {
	if err := s.requireEvent(ctx, eventID, core.EventNotFound(eventID)); err != nil {
		return nil, err
	}
	expenses, err := s.store.Expenses().Find(ctx, storage.ExpenseQuery{
		EventID:  eventID,
		IsPaid:   paid,
		Category: strings.TrimSpace(category),
		Sort:     storage.Sort{Field: "date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.Expenses().Get(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, core.ExpenseNotFound(id))
	}
	return e, nil
}

// Filter returns one page of the expenses matching f and the total number of
// matches.
func (s *ExpenseService) Filter(ctx context.Context, f ExpenseFilter) ([]core.Expense, int, error) {
	q, err := f.query()
	if err != nil {
		return nil, 0, err
	}
	if f.EventID != 0 {
		if err := s.requireEvent(ctx, f.EventID, core.EventNotFound(f.EventID)); err != nil {
			return nil, 0, err
		}
	}

	var (
		expenses []core.Expense
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.store.Expenses().Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Expenses().Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("filter expenses: %w", err)
	}
	return expenses, total, nil
}

func (f ExpenseFilter) query() (storage.ExpenseQuery, error) {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return storage.ExpenseQuery{}, core.BadRequest("startDate must not be after endDate.")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return storage.ExpenseQuery{}, core.BadRequest("minAmount must not be greater than maxAmount.")
	}
	if f.PageSize < 0 || f.PageSize > storage.MaxPageSize {
		return storage.ExpenseQuery{}, core.BadRequest("pageSize must be between 1 and %d.", storage.MaxPageSize)
	}

	sortBy, direction := f.SortBy, f.SortDirection
	if strings.TrimSpace(sortBy) == "" {
		sortBy = "date"
	}
	if strings.TrimSpace(direction) == "" {
		direction = "desc"
	}
	order := storage.ParseSort(sortBy, direction)
	switch order.Field {
	case "date", "amount", "category", "vendor", "createddate":
	default:
		return storage.ExpenseQuery{}, core.BadRequest("sortBy must be one of date, amount, category, vendor or createdDate.")
	}

	return storage.ExpenseQuery{
		EventID:   f.EventID,
		Category:  strings.TrimSpace(f.Category),
		IsPaid:    f.IsPaid,
		MinAmount: f.MinAmount,
		MaxAmount: f.MaxAmount,
		From:      f.StartDate,
		To:        f.EndDate,
		Search:    strings.TrimSpace(f.SearchTerm),
		Vendor:    strings.TrimSpace(f.Vendor),
		Sort:      order,
		Paging:    storage.Paging{Page: f.Page, Size: f.PageSize}.Normalize(),
	}, nil
}

// Create stores an expense against an existing event. A missing date
// defaults to now.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = 0
	e.Category = strings.TrimSpace(e.Category)
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Invalid(err)
	}
	missing := core.Failure(0, "Event with ID %d does not exist.", e.EventID)
	if err := s.requireEvent(ctx, e.EventID, missing); err != nil {
		return core.Expense{}, err
	}

	if err := s.store.Expenses().Create(ctx, &e); err != nil {
		return core.Expense{}, notFound(err, missing)
	}
	s.changed(ctx, e.EventID)
	slog.InfoContext(ctx, "Expense created",
		"expense_id", e.ID,
		"event_id", e.EventID,
		"category", e.Category,
		"amount", e.Amount.String())
	return e, nil
}

// Update applies the non-nil fields of u to the expense.
func (s *ExpenseService) Update(ctx context.Context, id int64, u core.ExpenseUpdate) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.Apply(u)
	if err := e.Validate(); err != nil {
		return core.Invalid(err)
	}
	if err := s.store.Expenses().Update(ctx, &e); err != nil {
		return notFound(err, core.ExpenseNotFound(id))
	}
	s.changed(ctx, e.EventID)
	slog.InfoContext(ctx, "Expense updated", "expense_id", id, "event_id", e.EventID)
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Expenses().Delete(ctx, id); err != nil {
		return notFound(err, core.ExpenseNotFound(id))
	}
	s.changed(ctx, e.EventID)
	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "event_id", e.EventID)
	return nil
}

func (s *ExpenseService) requireEvent(ctx context.Context, eventID int64, missing *core.Error) error {
	exists, err := s.store.Events().Exists(ctx, storage.EventQuery{ID: eventID})
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return missing
	}
	return nil
}

func (s *ExpenseService) changed(ctx context.Context, eventID int64) {
	if s.shares != nil {
		s.shares.InvalidateShared(ctx, eventID)
	}
}
