package services

import (
	"context"
	"testing"
	"time"

	"eventbudget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseService_Create(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewExpenseService(store, nil)
	fixed := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	e := seedEvent(t, store, "Garden party", "600")

	t.Run("date defaults to now", func(t *testing.T) {
		x, err := svc.Create(ctx, core.Expense{EventID: e.ID, Category: " Plants ", Amount: money("45.90")})
		require.NoError(t, err)
		assert.NotZero(t, x.ID)
		assert.Equal(t, "Plants", x.Category)
		assert.True(t, x.Date.Equal(fixed))
	})

	t.Run("missing event is a failure", func(t *testing.T) {
		_, err := svc.Create(ctx, core.Expense{EventID: 999, Category: "Plants", Amount: money("1")})
		requireKind(t, err, core.KindFailure)
		assert.Equal(t, "Event with ID 999 does not exist.", err.(*core.Error).Message)
		assert.Equal(t, 400, err.(*core.Error).StatusCode())
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			expense core.Expense
		}{
			{"short category", core.Expense{EventID: e.ID, Category: "x", Amount: money("1")}},
			{"zero amount", core.Expense{EventID: e.ID, Category: "Plants", Amount: money("0")}},
			{"far future", core.Expense{EventID: e.ID, Category: "Plants", Amount: money("1"), Date: time.Now().AddDate(2, 0, 0)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tt.expense)
				requireKind(t, err, core.KindBadRequest)
			})
		}
	})
}

func TestExpenseService_ListByEvent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewExpenseService(store, nil)
	e := seedEvent(t, store, "Road trip", "2000")
	other := seedEvent(t, store, "Ski trip", "2000")
	seedExpense(t, store, e.ID, "Fuel", "80", true, day(2025, 7, 1))
	seedExpense(t, store, e.ID, "fuel", "60", false, day(2025, 7, 3))
	seedExpense(t, store, e.ID, "Lodging", "300", false, day(2025, 7, 2))
	seedExpense(t, store, other.ID, "Fuel", "10", true, day(2025, 7, 1))

	paid := true
	unpaid := false
	tests := []struct {
		name     string
		paid     *bool
		category string
		want     []string
	}{
		{"all newest first", nil, "", []string{"60", "300", "80"}},
		{"paid only", &paid, "", []string{"80"}},
		{"unpaid only", &unpaid, "", []string{"60", "300"}},
		{"category ignores case", nil, "FUEL", []string{"60", "80"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListByEvent(ctx, e.ID, tt.paid, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(got))
		})
	}

	_, err := svc.ListByEvent(ctx, 999, nil, "")
	requireKind(t, err, core.KindNotFound)
}

func TestExpenseService_Filter(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewExpenseService(store, nil)
	a := seedEvent(t, store, "Event one", "100")
	b := seedEvent(t, store, "Event two", "100")
	seedExpense(t, store, a.ID, "Music", "50", true, day(2025, 1, 5))
	seedExpense(t, store, b.ID, "Music", "75", false, day(2025, 2, 5))
	seedExpense(t, store, b.ID, "Decor", "20", false, day(2025, 3, 5))

	t.Run("across events", func(t *testing.T) {
		got, total, err := svc.Filter(ctx, ExpenseFilter{SearchTerm: "music", SortBy: "amount", SortDirection: "asc"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{"50", "75"}, amounts(got))
	})

	t.Run("scoped to an event", func(t *testing.T) {
		got, total, err := svc.Filter(ctx, ExpenseFilter{EventID: b.ID, MinAmount: ptr(money("30"))})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []string{"75"}, amounts(got))
	})

	t.Run("missing event", func(t *testing.T) {
		_, _, err := svc.Filter(ctx, ExpenseFilter{EventID: 999})
		requireKind(t, err, core.KindNotFound)
	})

	t.Run("bad sort", func(t *testing.T) {
		_, _, err := svc.Filter(ctx, ExpenseFilter{SortBy: "mood"})
		requireKind(t, err, core.KindBadRequest)
	})
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewExpenseService(store, nil)
	e := seedEvent(t, store, "Workshop", "900")
	x := seedExpense(t, store, e.ID, "Supplies", "40", false, day(2025, 2, 2))

	paid := true
	vendor := "Paper Co"
	require.NoError(t, svc.Update(ctx, x.ID, core.ExpenseUpdate{IsPaid: &paid, Vendor: &vendor}))

	got, err := svc.Get(ctx, x.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, "Paper Co", got.Vendor)
	assert.Equal(t, "Supplies", got.Category)

	err = svc.Update(ctx, 999, core.ExpenseUpdate{IsPaid: &paid})
	requireKind(t, err, core.KindNotFound)
	assert.Equal(t, "Expense with ID 999 not found.", err.(*core.Error).Message)

	require.NoError(t, svc.Delete(ctx, x.ID))
	_, err = svc.Get(ctx, x.ID)
	requireKind(t, err, core.KindNotFound)
	requireKind(t, svc.Delete(ctx, x.ID), core.KindNotFound)
}

func amounts(expenses []core.Expense) []string {
	out := make([]string, 0, len(expenses))
	for _, x := range expenses {
		out = append(out, x.Amount.String())
	}
	return out
}
