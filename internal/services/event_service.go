package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventbudget/internal/amqp"
	"eventbudget/internal/budget"
	"eventbudget/internal/cache"
	"eventbudget/internal/core"
	"eventbudget/internal/log"
	"eventbudget/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	shareTokenLength   = 16
	shareTokenAttempts = 3
)

var ErrSharedEventNotFound = core.NotFound("Shared event not found or invalid token.")

// EventServiceConfig holds the settings of an EventService.
type EventServiceConfig struct {
	// ShareBaseURL prefixes issued share links, e.g. https://app.example.com.
	ShareBaseURL string

	// ShareCacheSize bounds the number of cached public views (default: 256)
	ShareCacheSize int

	// ShareCacheTTL is how long a public view is served from cache (default: 30s)
	ShareCacheTTL time.Duration
}

func DefaultEventServiceConfig() EventServiceConfig {
	return EventServiceConfig{
		ShareBaseURL:   "http://localhost:4200",
		ShareCacheSize: 256,
		ShareCacheTTL:  30 * time.Second,
	}
}

// EventFilter selects a page of events. Zero values disable a criterion.
type EventFilter struct {
	SearchTerm    string           `json:"searchTerm"`
	StartDate     *time.Time       `json:"startDate"`
	EndDate       *time.Time       `json:"endDate"`
	MinBudget     *decimal.Decimal `json:"minBudget"`
	MaxBudget     *decimal.Decimal `json:"maxBudget"`
	CurrencyCode  string           `json:"currencyCode"`
	IsTemplate    *bool            `json:"isTemplate"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	SortBy        string           `json:"sortBy"`
	SortDirection string           `json:"sortDirection"`
}

// AllocationRequest asks for totalBudget to be spread over the event's
// categories with the named strategy.
type AllocationRequest struct {
	TotalBudget decimal.Decimal `json:"totalBudget"`
	Strategy    string          `json:"strategy"`
}

type AllocationResult struct {
	EventID     int64               `json:"eventId"`
	TotalBudget decimal.Decimal     `json:"totalBudget"`
	Strategy    string              `json:"strategy"`
	Allocations []budget.Allocation `json:"allocations"`
}

type ShareLink struct {
	ShareURL   string `json:"shareUrl"`
	ShareToken string `json:"shareToken"`
}

// SharedEvent is the public view of a shared event.
type SharedEvent struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Date         time.Time       `json:"date"`
	Budget       decimal.Decimal `json:"budget"`
	Description  string          `json:"description,omitempty"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	ExpenseCount int             `json:"expenseCount"`
}

// EventService manages events and runs the budget analytics over them.
type EventService struct {
	store   storage.Store
	pub     Publisher
	baseURL string
	shared  *cache.Loading[SharedEvent]
	lru     *cache.LRUCache[SharedEvent]

	newToken func() string
}

func NewEventService(store storage.Store, pub Publisher, config EventServiceConfig) *EventService {
	defaults := DefaultEventServiceConfig()
	if config.ShareCacheSize <= 0 {
		config.ShareCacheSize = defaults.ShareCacheSize
	}
	if config.ShareCacheTTL <= 0 {
		config.ShareCacheTTL = defaults.ShareCacheTTL
	}
	lru := cache.NewLRUCache[SharedEvent](config.ShareCacheSize, config.ShareCacheTTL)
	return &EventService{
		store:    store,
		pub:      pub,
		baseURL:  strings.TrimRight(config.ShareBaseURL, "/"),
		shared:   cache.NewLoading[SharedEvent](lru),
		lru:      lru,
		newToken: newShareToken,
	}
}

// ShareCache exposes the public view cache for periodic cleanup.
func (s *EventService) ShareCache() cache.Cleaner {
	return s.lru
}

// List returns every event ordered by date.
func (s *EventService) List(ctx context.Context) ([]core.Event, error) {
	events, err := s.store.Events().Find(ctx, storage.EventQuery{Sort: storage.Sort{Field: "date"}})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (core.Event, error) {
	e, err := s.store.Events().Get(ctx, id)
	if err != nil {
		return core.Event{}, notFound(err, core.EventNotFound(id))
	}
	return e, nil
}

// Templates returns the events flagged as templates, ordered by name.
func (s *EventService) Templates(ctx context.Context) ([]core.Event, error) {
	isTemplate := true
	events, err := s.store.Events().Find(ctx, storage.EventQuery{
		IsTemplate: &isTemplate,
		Sort:       storage.Sort{Field: "name"},
	})
	if err != nil {
		return nil, fmt.Errorf("list template events: %w", err)
	}
	return events, nil
}

// Filter returns one page of the events matching f and the total number of
// matches.
func (s *EventService) Filter(ctx context.Context, f EventFilter) ([]core.Event, int, error) {
	q, err := f.query()
	if err != nil {
		return nil, 0, err
	}

	var (
		events []core.Event
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.store.Events().Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Events().Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("filter events: %w", err)
	}
	return events, total, nil
}

func (f EventFilter) query() (storage.EventQuery, error) {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return storage.EventQuery{}, core.BadRequest("startDate must not be after endDate.")
	}
	if f.MinBudget != nil && f.MaxBudget != nil && f.MinBudget.GreaterThan(*f.MaxBudget) {
		return storage.EventQuery{}, core.BadRequest("minBudget must not be greater than maxBudget.")
	}
	if f.PageSize < 0 || f.PageSize > storage.MaxPageSize {
		return storage.EventQuery{}, core.BadRequest("pageSize must be between 1 and %d.", storage.MaxPageSize)
	}

	sortBy := f.SortBy
	if strings.TrimSpace(sortBy) == "" {
		sortBy = "date"
	}
	direction := f.SortDirection
	if strings.TrimSpace(direction) == "" {
		direction = "desc"
	}
	order := storage.ParseSort(sortBy, direction)
	switch order.Field {
	case "date", "name", "budget", "createddate":
	default:
		return storage.EventQuery{}, core.BadRequest("sortBy must be one of date, name, budget or createdDate.")
	}

	return storage.EventQuery{
		Search:       strings.TrimSpace(f.SearchTerm),
		From:         f.StartDate,
		To:           f.EndDate,
		MinBudget:    f.MinBudget,
		MaxBudget:    f.MaxBudget,
		CurrencyCode: strings.TrimSpace(f.CurrencyCode),
		IsTemplate:   f.IsTemplate,
		Sort:         order,
		Paging:       storage.Paging{Page: f.Page, Size: f.PageSize}.Normalize(),
	}, nil
}

// Create validates and stores a new event. The share token is never taken
// from the input.
func (s *EventService) Create(ctx context.Context, e core.Event) (core.Event, error) {
	e.ID = 0
	e.ShareToken = ""
	e.Name = strings.TrimSpace(e.Name)
	e.CurrencyCode = strings.ToUpper(strings.TrimSpace(e.CurrencyCode))
	if e.CurrencyCode == "" {
		e.CurrencyCode = core.DefaultCurrencyCode
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, core.Invalid(err)
	}
	if err := s.checkTemplate(ctx, e.EventTemplateID); err != nil {
		return core.Event{}, err
	}

	if err := s.store.Events().Create(ctx, &e); err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	slog.InfoContext(ctx, "Event created", "event_id", e.ID, "name", e.Name)
	return e, nil
}

// Update applies the non-nil fields of u to the event.
func (s *EventService) Update(ctx context.Context, id int64, u core.EventUpdate) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.Apply(u)
	if err := e.Validate(); err != nil {
		return core.Invalid(err)
	}
	if err := s.checkTemplate(ctx, e.EventTemplateID); err != nil {
		return err
	}

	if err := s.store.Events().Update(ctx, &e); err != nil {
		return notFound(err, core.EventNotFound(id))
	}
	s.invalidateShared(e.ShareToken)
	slog.InfoContext(ctx, "Event updated", "event_id", id)
	return nil
}

// Delete removes the event together with its expenses and category budgets.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Events().Delete(ctx, id); err != nil {
		return notFound(err, core.EventNotFound(id))
	}
	s.invalidateShared(e.ShareToken)
	slog.InfoContext(ctx, "Event deleted", "event_id", id)
	return nil
}

func (s *EventService) checkTemplate(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.Templates().Get(ctx, *id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.BadRequest("Event template with ID %d does not exist.", *id)
		}
		return fmt.Errorf("load event template: %w", err)
	}
	return nil
}

// loadWithExpenses reads the event and its expenses concurrently.
func (s *EventService) loadWithExpenses(ctx context.Context, id int64) (core.Event, []core.Expense, error) {
	var (
		event    core.Event
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		event, err = s.store.Events().Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.Expenses().Find(gctx, storage.ExpenseQuery{EventID: id})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Event{}, nil, notFound(err, core.EventNotFound(id))
	}
	return event, expenses, nil
}

// Summary aggregates the spending of an event.
func (s *EventService) Summary(ctx context.Context, id int64) (budget.Summary, error) {
	event, expenses, err := s.loadWithExpenses(ctx, id)
	if err != nil {
		return budget.Summary{}, err
	}
	return budget.Summarize(event, expenses), nil
}

// Cashflow buckets the expenses of an event by week or month. A missing
// event is reported before an invalid interval.
func (s *EventService) Cashflow(ctx context.Context, id int64, interval string) ([]budget.CashflowPoint, error) {
	exists, err := s.store.Events().Exists(ctx, storage.EventQuery{ID: id})
	if err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, core.EventNotFound(id)
	}

	iv, err := budget.ParseInterval(interval)
	if err != nil {
		return nil, core.Reject(err, msgInvalidInterval)
	}

	expenses, err := s.store.Expenses().Find(ctx, storage.ExpenseQuery{EventID: id})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return budget.Cashflow(expenses, iv), nil
}

// Allocate spreads req.TotalBudget over the event's categories and upserts
// the planned amounts in one transaction.
func (s *EventService) Allocate(ctx context.Context, id int64, req AllocationRequest) (AllocationResult, error) {
	if !req.TotalBudget.IsPositive() {
		return AllocationResult{}, core.Reject(budget.ErrInvalidTotal, msgInvalidTotal)
	}
	event, expenses, err := s.loadWithExpenses(ctx, id)
	if err != nil {
		return AllocationResult{}, err
	}
	name := budget.NormalizeStrategy(req.Strategy)
	strategy, err := budget.GetStrategy(name)
	if err != nil {
		return AllocationResult{}, core.Reject(err, msgInvalidStrategy)
	}

	src := budget.Sources{ExpenseCategories: make([]string, 0, len(expenses))}
	for _, x := range expenses {
		src.ExpenseCategories = append(src.ExpenseCategories, x.Category)
	}
	if name == budget.StrategyTemplateWeighted && event.EventTemplateID != nil {
		src.TemplateCategories, err = s.store.Templates().Categories(ctx,
			storage.TemplateCategoryQuery{TemplateID: *event.EventTemplateID})
		if err != nil {
			return AllocationResult{}, fmt.Errorf("load template categories: %w", err)
		}
	}

	allocations, err := strategy.Allocate(req.TotalBudget, src)
	if err != nil {
		if errors.Is(err, budget.ErrNoCategories) {
			return AllocationResult{}, core.Reject(err, msgNoCategories)
		}
		return AllocationResult{}, fmt.Errorf("allocate budget: %w", err)
	}

	if err := s.saveAllocations(ctx, id, allocations); err != nil {
		return AllocationResult{}, err
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogAllocationCommitted(ctx, id, name, req.TotalBudget, len(allocations))
	notify(ctx, s.pub, amqp.NotificationBudgetAllocated, id, map[string]string{
		"strategy":    name,
		"totalBudget": req.TotalBudget.String(),
		"categories":  idString(int64(len(allocations))),
	})

	return AllocationResult{
		EventID:     id,
		TotalBudget: req.TotalBudget,
		Strategy:    name,
		Allocations: allocations,
	}, nil
}

const (
	msgInvalidInterval = "Interval must be 'week' or 'month'."
	msgInvalidTotal    = "totalBudget must be > 0"
	msgInvalidStrategy = "strategy must be 'equal' or 'templateWeighted'"
	msgNoCategories    = "No categories available to allocate. Add expenses or link a template with categories."
)

// saveAllocations upserts one category budget per allocation. Categories
// match case-insensitively. Nothing is written unless every row succeeds.
func (s *EventService) saveAllocations(ctx context.Context, eventID int64, allocations []budget.Allocation) (err error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Failed to roll back allocation", "event_id", eventID, "error", rbErr)
			}
		}
	}()

	existing, err := tx.CategoryBudgets().Find(ctx, storage.CategoryBudgetQuery{EventID: eventID})
	if err != nil {
		return fmt.Errorf("load category budgets: %w", err)
	}
	byCategory := make(map[string]*core.EventCategoryBudget, len(existing))
	for i := range existing {
		byCategory[strings.ToLower(existing[i].Category)] = &existing[i]
	}

	for _, a := range allocations {
		key := strings.ToLower(a.Category)
		if row, ok := byCategory[key]; ok {
			row.PlannedAmount = a.PlannedAmount
			if err = tx.CategoryBudgets().Update(ctx, row); err != nil {
				return fmt.Errorf("update category budget %q: %w", a.Category, err)
			}
			continue
		}
		row := &core.EventCategoryBudget{
			EventID:       eventID,
			Category:      a.Category,
			PlannedAmount: a.PlannedAmount,
		}
		if err = tx.CategoryBudgets().Create(ctx, row); err != nil {
			return fmt.Errorf("create category budget %q: %w", a.Category, err)
		}
		byCategory[key] = row
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation: %w", err)
	}
	return nil
}

// CategoryBudgets lists the planned amounts of an event.
func (s *EventService) CategoryBudgets(ctx context.Context, id int64) ([]core.EventCategoryBudget, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.store.CategoryBudgets().Find(ctx, storage.CategoryBudgetQuery{EventID: id})
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	return rows, nil
}

// EnsureShareLink returns the event's share link, issuing a token on first
// use. An issued token never changes.
func (s *EventService) EnsureShareLink(ctx context.Context, id int64) (ShareLink, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return ShareLink{}, err
	}
	if e.ShareToken != "" {
		return s.shareLink(e.ShareToken), nil
	}

	var token, held string
	for attempt := 1; ; attempt++ {
		token = s.newToken()
		held, err = s.store.Events().SetShareToken(ctx, id, token)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrConflict) || attempt == shareTokenAttempts {
			return ShareLink{}, notFound(err, core.EventNotFound(id))
		}
		slog.WarnContext(ctx, "Share token collision, retrying", "event_id", id, "attempt", attempt)
	}

	// A concurrent caller got there first; its token stands.
	if held != token {
		return s.shareLink(held), nil
	}
	slog.InfoContext(ctx, "Share link issued", "event_id", id)
	notify(ctx, s.pub, amqp.NotificationShareIssued, id, nil)
	return s.shareLink(held), nil
}

func (s *EventService) shareLink(token string) ShareLink {
	return ShareLink{ShareURL: s.baseURL + "/share/" + token, ShareToken: token}
}

// SharedEvent returns the public view of the event holding token.
func (s *EventService) SharedEvent(ctx context.Context, token string) (SharedEvent, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return SharedEvent{}, ErrSharedEventNotFound
	}
	return s.shared.Get(ctx, token, func(ctx context.Context) (SharedEvent, error) {
		return s.loadShared(ctx, token)
	})
}

func (s *EventService) loadShared(ctx context.Context, token string) (SharedEvent, error) {
	events, err := s.store.Events().Find(ctx, storage.EventQuery{
		ShareToken: token,
		Sort:       storage.Sort{Field: "createddate"},
		Paging:     storage.Paging{Page: 1, Size: 1},
	})
	if err != nil {
		return SharedEvent{}, fmt.Errorf("find shared event: %w", err)
	}
	if len(events) == 0 {
		return SharedEvent{}, ErrSharedEventNotFound
	}
	e := events[0]

	expenses, err := s.store.Expenses().Find(ctx, storage.ExpenseQuery{EventID: e.ID})
	if err != nil {
		return SharedEvent{}, fmt.Errorf("load shared expenses: %w", err)
	}
	return SharedEvent{
		ID:           e.ID,
		Name:         e.Name,
		Date:         e.Date,
		Budget:       e.Budget,
		Description:  e.Description,
		TotalSpent:   budget.TotalSpent(expenses),
		ExpenseCount: len(expenses),
	}, nil
}

// InvalidateShared drops the cached public view of an event, if it has one.
func (s *EventService) InvalidateShared(ctx context.Context, eventID int64) {
	e, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return
	}
	s.invalidateShared(e.ShareToken)
}

func (s *EventService) invalidateShared(token string) {
	if token != "" {
		s.shared.Invalidate(token)
	}
}

func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shareTokenLength]
}
