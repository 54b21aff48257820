package budget

import (
	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Summary is the spending overview of one event.
type Summary struct {
	EventID             int64                      `json:"eventId"`
	EventName           string                     `json:"eventName"`
	Budget              decimal.Decimal            `json:"budget"`
	TotalSpent          decimal.Decimal            `json:"totalSpent"`
	RemainingBudget     decimal.Decimal            `json:"remainingBudget"`
	PercentageSpent     decimal.Decimal            `json:"percentageSpent"`
	ExpensesByCategory  map[string]decimal.Decimal `json:"expensesByCategory"`
	PaidExpensesCount   int                        `json:"paidExpensesCount"`
	UnpaidExpensesCount int                        `json:"unpaidExpensesCount"`
	TotalExpensesCount  int                        `json:"totalExpensesCount"`
	IsOverBudget        bool                       `json:"isOverBudget"`
	OverBudgetAmount    decimal.Decimal            `json:"overBudgetAmount"`
}

// Summarize aggregates the expenses of e. Paid and unpaid expenses both count
// towards the total spent.
func Summarize(e core.Event, expenses []core.Expense) Summary {
	s := Summary{
		EventID:            e.ID,
		EventName:          e.Name,
		Budget:             e.Budget,
		TotalSpent:         decimal.Zero,
		ExpensesByCategory: make(map[string]decimal.Decimal),
		TotalExpensesCount: len(expenses),
		OverBudgetAmount:   decimal.Zero,
	}

	for _, x := range expenses {
		s.TotalSpent = s.TotalSpent.Add(x.Amount)
		if cur, ok := s.ExpensesByCategory[x.Category]; ok {
			s.ExpensesByCategory[x.Category] = cur.Add(x.Amount)
		} else {
			s.ExpensesByCategory[x.Category] = x.Amount
		}
		if x.IsPaid {
			s.PaidExpensesCount++
		} else {
			s.UnpaidExpensesCount++
		}
	}

	s.RemainingBudget = e.Budget.Sub(s.TotalSpent)
	s.PercentageSpent = core.Percentage(s.TotalSpent, e.Budget)
	if s.TotalSpent.GreaterThan(e.Budget) {
		s.IsOverBudget = true
		s.OverBudgetAmount = s.TotalSpent.Sub(e.Budget)
	}
	return s
}

// TotalSpent sums the expense amounts.
func TotalSpent(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, x := range expenses {
		total = total.Add(x.Amount)
	}
	return total
}
