// Package seed loads starter templates, events and expenses from JSON files
// into an empty store.
//
// The directory holds event_templates.json, events.json and expenses.json.
// Each file is optional. A set is only loaded when its table is empty, so
// running the loader twice is harmless.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"

	"github.com/shopspring/decimal"
)

const (
	TemplatesFile = "event_templates.json"
	EventsFile    = "events.json"
	ExpensesFile  = "expenses.json"
)

// Result counts the records created by a Load.
type Result struct {
	Templates int
	Events    int
	Expenses  int
}

func (r Result) Empty() bool {
	return r.Templates == 0 && r.Events == 0 && r.Expenses == 0
}

type templateCategoryRecord struct {
	CategoryName    string          `json:"categoryName"`
	EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
	Description     string          `json:"description"`
	SortOrder       int             `json:"sortOrder"`
}

type templateRecord struct {
	Name              string                   `json:"name"`
	Description       string                   `json:"description"`
	Category          string                   `json:"category"`
	DefaultBudget     decimal.Decimal          `json:"defaultBudget"`
	CurrencyCode      string                   `json:"currencyCode"`
	IsPublic          bool                     `json:"isPublic"`
	DefaultCategories []templateCategoryRecord `json:"defaultCategories"`
}

// eventRecord links a template by its 1-based position in
// event_templates.json.
type eventRecord struct {
	Name            string          `json:"name"`
	Date            date            `json:"date"`
	Budget          decimal.Decimal `json:"budget"`
	Description     string          `json:"description"`
	CurrencyCode    string          `json:"currencyCode"`
	EventTemplateID *int            `json:"eventTemplateId"`
	IsTemplate      bool            `json:"isTemplate"`
}

// expenseRecord links its event by 0-based position in events.json.
type expenseRecord struct {
	EventIndex  int             `json:"eventIndex"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	IsPaid      bool            `json:"isPaid"`
	Date        date            `json:"date"`
	Vendor      string          `json:"vendor"`
}

type date struct {
	time.Time
}

var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339}

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// Loader seeds a store from the files of fsys.
type Loader struct {
	store storage.Store
	fsys  fs.FS
}

func NewLoader(store storage.Store, fsys fs.FS) *Loader {
	return &Loader{store: store, fsys: fsys}
}

// Load seeds every empty table inside a single transaction. Expenses are
// only loaded together with the events they belong to.
func (l *Loader) Load(ctx context.Context) (res Result, err error) {
	var (
		templates []templateRecord
		events    []eventRecord
		expenses  []expenseRecord
	)
	if err := l.read(TemplatesFile, &templates); err != nil {
		return res, err
	}
	if err := l.read(EventsFile, &events); err != nil {
		return res, err
	}
	if err := l.read(ExpensesFile, &expenses); err != nil {
		return res, err
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	templateIDs, err := seedTemplates(ctx, tx, templates)
	if err != nil {
		return res, err
	}
	res.Templates = len(templateIDs)

	eventIDs, err := seedEvents(ctx, tx, events, templateIDs)
	if err != nil {
		return res, err
	}
	res.Events = len(eventIDs)

	if len(eventIDs) > 0 {
		if res.Expenses, err = seedExpenses(ctx, tx, expenses, eventIDs); err != nil {
			return res, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit seed: %w", err)
	}
	slog.InfoContext(ctx, "Seed data loaded",
		"templates", res.Templates,
		"events", res.Events,
		"expenses", res.Expenses)
	return res, nil
}

func (l *Loader) read(name string, dst any) error {
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Seed file not found, skipping", "file", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// seedTemplates returns the ids of the created templates in file order, or
// nil when templates already exist.
func seedTemplates(ctx context.Context, repos storage.Repositories, records []templateRecord) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	existing, err := repos.Templates().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Templates already present, skipping", "count", len(existing))
		return nil, nil
	}

	ids := make([]int64, 0, len(records))
	for i, rec := range records {
		t := core.EventTemplate{
			Name:          strings.TrimSpace(rec.Name),
			Description:   strings.TrimSpace(rec.Description),
			Category:      strings.TrimSpace(rec.Category),
			DefaultBudget: rec.DefaultBudget,
			CurrencyCode:  currency(rec.CurrencyCode),
			IsPublic:      rec.IsPublic,
		}
		for j, c := range rec.DefaultCategories {
			order := c.SortOrder
			if order == 0 {
				order = j + 1
			}
			t.Categories = append(t.Categories, core.EventTemplateCategory{
				CategoryName:    strings.TrimSpace(c.CategoryName),
				EstimatedAmount: c.EstimatedAmount,
				Description:     strings.TrimSpace(c.Description),
				SortOrder:       order,
			})
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", TemplatesFile, i, err)
		}
		if err := repos.Templates().Create(ctx, &t); err != nil {
			return nil, fmt.Errorf("create template %q: %w", t.Name, err)
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func seedEvents(ctx context.Context, repos storage.Repositories, records []eventRecord, templateIDs []int64) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	n, err := repos.Events().Count(ctx, storage.EventQuery{})
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Events already present, skipping", "count", n)
		return nil, nil
	}

	ids := make([]int64, 0, len(records))
	for i, rec := range records {
		e := core.Event{
			Name:         strings.TrimSpace(rec.Name),
			Date:         rec.Date.Time,
			Budget:       rec.Budget,
			Description:  strings.TrimSpace(rec.Description),
			CurrencyCode: currency(rec.CurrencyCode),
			IsTemplate:   rec.IsTemplate,
		}
		if ref := rec.EventTemplateID; ref != nil {
			if *ref < 1 || *ref > len(templateIDs) {
				return nil, fmt.Errorf("%s entry %d: eventTemplateId %d does not match a seeded template", EventsFile, i, *ref)
			}
			id := templateIDs[*ref-1]
			e.EventTemplateID = &id
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", EventsFile, i, err)
		}
		if err := repos.Events().Create(ctx, &e); err != nil {
			return nil, fmt.Errorf("create event %q: %w", e.Name, err)
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func seedExpenses(ctx context.Context, repos storage.Repositories, records []expenseRecord, eventIDs []int64) (int, error) {
	for i, rec := range records {
		if rec.EventIndex < 0 || rec.EventIndex >= len(eventIDs) {
			return 0, fmt.Errorf("%s entry %d: eventIndex %d is out of range", ExpensesFile, i, rec.EventIndex)
		}
		x := core.Expense{
			EventID:     eventIDs[rec.EventIndex],
			Category:    strings.TrimSpace(rec.Category),
			Description: strings.TrimSpace(rec.Description),
			Amount:      rec.Amount,
			IsPaid:      rec.IsPaid,
			Date:        rec.Date.Time,
			Vendor:      strings.TrimSpace(rec.Vendor),
		}
		if err := x.Validate(); err != nil {
			return 0, fmt.Errorf("%s entry %d: %w", ExpensesFile, i, err)
		}
		if err := repos.Expenses().Create(ctx, &x); err != nil {
			return 0, fmt.Errorf("create expense %d: %w", i, err)
		}
	}
	return len(records), nil
}

func currency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return core.DefaultCurrencyCode
	}
	return code
}
