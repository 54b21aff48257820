package budget

import (
	"testing"
	"time"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	ev := core.Event{ID: 9, Name: "Launch party", Budget: decimal.NewFromInt(200)}
	expenses := []core.Expense{
		{Category: "Food", Amount: decimal.NewFromInt(120), IsPaid: true},
		{Category: "Food", Amount: decimal.NewFromInt(30)},
		{Category: "Music", Amount: decimal.NewFromInt(100), IsPaid: true},
	}

	s := Summarize(ev, expenses)

	assert.Equal(t, int64(9), s.EventID)
	assert.Equal(t, "Launch party", s.EventName)
	assert.Equal(t, "250", s.TotalSpent.String())
	assert.Equal(t, "-50", s.RemainingBudget.String())
	assert.Equal(t, "125.00", s.PercentageSpent.StringFixed(2))
	assert.True(t, s.IsOverBudget)
	assert.Equal(t, "50", s.OverBudgetAmount.String())
	assert.Equal(t, 2, s.PaidExpensesCount)
	assert.Equal(t, 1, s.UnpaidExpensesCount)
	assert.Equal(t, 3, s.TotalExpensesCount)
	assert.Len(t, s.ExpensesByCategory, 2)
	assert.Equal(t, "150", s.ExpensesByCategory["Food"].String())
	assert.Equal(t, "100", s.ExpensesByCategory["Music"].String())
}

func TestSummarizeZeroBudget(t *testing.T) {
	ev := core.Event{ID: 1, Name: "Free meetup", Budget: decimal.Zero}
	s := Summarize(ev, []core.Expense{{Category: "Snacks", Amount: decimal.NewFromInt(12), Date: time.Now()}})

	assert.True(t, s.PercentageSpent.IsZero())
	assert.True(t, s.IsOverBudget)
	assert.Equal(t, "12", s.OverBudgetAmount.String())
}

func TestSummarizeUnderBudget(t *testing.T) {
	ev := core.Event{ID: 2, Name: "Dinner", Budget: decimal.NewFromInt(300)}
	s := Summarize(ev, []core.Expense{{Category: "Food", Amount: decimal.NewFromInt(100)}})

	assert.False(t, s.IsOverBudget)
	assert.True(t, s.OverBudgetAmount.IsZero())
	assert.Equal(t, "33.33", s.PercentageSpent.StringFixed(2))
	assert.Equal(t, s.PaidExpensesCount+s.UnpaidExpensesCount, s.TotalExpensesCount)
}

func TestSummarizeNoExpenses(t *testing.T) {
	s := Summarize(core.Event{ID: 3, Budget: decimal.NewFromInt(10)}, nil)

	assert.True(t, s.TotalSpent.IsZero())
	assert.Empty(t, s.ExpensesByCategory)
	assert.NotNil(t, s.ExpensesByCategory)
	assert.Equal(t, 0, s.TotalExpensesCount)
}
