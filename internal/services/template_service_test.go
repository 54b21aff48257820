package services

import (
	"context"
	"testing"

	"eventbudget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewTemplateService(store)

	created, err := svc.Create(ctx, core.EventTemplate{
		Name:          "  Team offsite ",
		DefaultBudget: money("5000"),
		CurrencyCode:  " eur",
		Categories: []core.EventTemplateCategory{
			{CategoryName: " Travel ", EstimatedAmount: money("2000")},
			{CategoryName: "Lodging", EstimatedAmount: money("2500")},
			{CategoryName: "Food", EstimatedAmount: money("500")},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Team offsite", created.Name)
	assert.Equal(t, "EUR", created.CurrencyCode)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 3)
	names := make([]string, 0, len(got.Categories))
	for _, c := range got.Categories {
		names = append(names, c.CategoryName)
		assert.Equal(t, created.ID, c.EventTemplateID)
	}
	assert.Equal(t, []string{"Travel", "Lodging", "Food"}, names, "input order is kept")

	t.Run("default currency", func(t *testing.T) {
		tpl, err := svc.Create(ctx, core.EventTemplate{Name: "Picnic"})
		require.NoError(t, err)
		assert.Equal(t, core.DefaultCurrencyCode, tpl.CurrencyCode)
	})

	t.Run("explicit sort order", func(t *testing.T) {
		tpl, err := svc.Create(ctx, core.EventTemplate{
			Name: "Recital",
			Categories: []core.EventTemplateCategory{
				{CategoryName: "Venue", SortOrder: 2},
				{CategoryName: "Piano tuning", SortOrder: 1},
			},
		})
		require.NoError(t, err)
		got, err := svc.Get(ctx, tpl.ID)
		require.NoError(t, err)
		require.Len(t, got.Categories, 2)
		assert.Equal(t, "Piano tuning", got.Categories[0].CategoryName)
	})

	tests := []struct {
		name     string
		template core.EventTemplate
	}{
		{"short name", core.EventTemplate{Name: "ab"}},
		{"negative budget", core.EventTemplate{Name: "Gala", DefaultBudget: money("-1")}},
		{"blank category", core.EventTemplate{Name: "Gala", Categories: []core.EventTemplateCategory{{CategoryName: "  "}}}},
		{"negative estimate", core.EventTemplate{Name: "Gala", Categories: []core.EventTemplateCategory{{CategoryName: "Band", EstimatedAmount: money("-5")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.template)
			requireKind(t, err, core.KindBadRequest)
		})
	}
}

func TestTemplateService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewTemplateService(store)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, name := range []string{"Wedding", "Birthday"} {
		_, err := svc.Create(ctx, core.EventTemplate{Name: name})
		require.NoError(t, err)
	}

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Birthday", list[0].Name)

	_, err = svc.Get(ctx, 999)
	requireKind(t, err, core.KindNotFound)
	assert.Equal(t, "Event template with ID 999 not found.", err.(*core.Error).Message)
}
