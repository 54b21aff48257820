package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

// TemplateService manages event templates and their category estimates.
type TemplateService struct {
	store storage.Store
}

func NewTemplateService(store storage.Store) *TemplateService {
	return &TemplateService{store: store}
}

func (s *TemplateService) List(ctx context.Context) ([]core.EventTemplate, error) {
	templates, err := s.store.Templates().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) Get(ctx context.Context, id int64) (core.EventTemplate, error) {
	t, err := s.store.Templates().Get(ctx, id)
	if err != nil {
		return core.EventTemplate{}, notFound(err, core.NotFound("Event template with ID %d not found.", id))
	}
	return t, nil
}

// Create stores a template with its categories in one transaction.
// Categories without an explicit sort order keep their input order.
func (s *TemplateService) Create(ctx context.Context, t core.EventTemplate) (core.EventTemplate, error) {
	t.ID = 0
	t.Name = strings.TrimSpace(t.Name)
	t.CurrencyCode = strings.ToUpper(strings.TrimSpace(t.CurrencyCode))
	if t.CurrencyCode == "" {
		t.CurrencyCode = core.DefaultCurrencyCode
	}
	ordered := true
	for _, c := range t.Categories {
		if c.SortOrder != 0 {
			ordered = false
			break
		}
	}
	for i := range t.Categories {
		t.Categories[i].ID = 0
		t.Categories[i].CategoryName = strings.TrimSpace(t.Categories[i].CategoryName)
		if ordered {
			t.Categories[i].SortOrder = i + 1
		}
	}
	if err := t.Validate(); err != nil {
		return core.EventTemplate{}, core.Invalid(err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return core.EventTemplate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := tx.Templates().Create(ctx, &t); err != nil {
		return core.EventTemplate{}, fmt.Errorf("create event template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.EventTemplate{}, fmt.Errorf("commit event template: %w", err)
	}
	slog.InfoContext(ctx, "Event template created",
		"template_id", t.ID,
		"count", len(t.Categories))
	return t, nil
}
