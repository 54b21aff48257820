package budget

import (
	"testing"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(allocs []Allocation) map[string]string {
	out := make(map[string]string, len(allocs))
	for _, a := range allocs {
		out[a.Category] = a.PlannedAmount.StringFixed(2)
	}
	return out
}

func TestGetStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    Strategy
		wantErr bool
	}{
		{name: "", want: EqualSplit{}},
		{name: "equal", want: EqualSplit{}},
		{name: " templateWeighted ", want: TemplateWeighted{}},
		{name: "TEMPLATEWEIGHTED", want: TemplateWeighted{}},
		{name: "weighted", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetStrategy(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqualSplit(t *testing.T) {
	allocs, err := EqualSplit{}.Allocate(decimal.NewFromInt(100), Sources{
		ExpenseCategories: []string{"Venue", "Food", "Music", "Food"},
	})
	require.NoError(t, err)

	require.Len(t, allocs, 3)
	assert.Equal(t, []string{"Food", "Music", "Venue"}, []string{allocs[0].Category, allocs[1].Category, allocs[2].Category})
	for _, a := range allocs {
		assert.Equal(t, "33.33", a.PlannedAmount.StringFixed(2))
	}
}

func TestEqualSplitIgnoresTemplate(t *testing.T) {
	allocs, err := EqualSplit{}.Allocate(decimal.NewFromInt(90), Sources{
		TemplateCategories: []core.EventTemplateCategory{{CategoryName: "Venue", EstimatedAmount: decimal.NewFromInt(600)}},
		ExpenseCategories:  []string{"Food", "Flowers"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Flowers": "45.00", "Food": "45.00"}, amounts(allocs))
}

func TestTemplateWeighted(t *testing.T) {
	src := Sources{
		TemplateCategories: []core.EventTemplateCategory{
			{CategoryName: "Venue", EstimatedAmount: decimal.NewFromInt(600)},
			{CategoryName: "Food", EstimatedAmount: decimal.NewFromInt(400)},
		},
		ExpenseCategories: []string{"Ignored"},
	}

	allocs, err := TemplateWeighted{}.Allocate(decimal.NewFromInt(500), src)
	require.NoError(t, err)

	require.Len(t, allocs, 2)
	assert.Equal(t, "Venue", allocs[0].Category, "template order is kept")
	assert.Equal(t, map[string]string{"Venue": "300.00", "Food": "200.00"}, amounts(allocs))
}

func TestTemplateWeightedThirds(t *testing.T) {
	src := Sources{TemplateCategories: []core.EventTemplateCategory{
		{CategoryName: "A", EstimatedAmount: decimal.NewFromInt(1)},
		{CategoryName: "B", EstimatedAmount: decimal.NewFromInt(1)},
		{CategoryName: "C", EstimatedAmount: decimal.NewFromInt(1)},
	}}

	allocs, err := TemplateWeighted{}.Allocate(decimal.NewFromInt(300), src)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "100.00", "B": "100.00", "C": "100.00"}, amounts(allocs))
}

func TestTemplateWeightedFallsBackToExpenses(t *testing.T) {
	tests := []struct {
		name string
		src  Sources
	}{
		{
			name: "no template",
			src:  Sources{ExpenseCategories: []string{"Food", "Decor"}},
		},
		{
			name: "zero estimates",
			src: Sources{
				TemplateCategories: []core.EventTemplateCategory{
					{CategoryName: "Venue", EstimatedAmount: decimal.Zero},
				},
				ExpenseCategories: []string{"Food", "Decor"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := TemplateWeighted{}.Allocate(decimal.NewFromInt(50), tt.src)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"Decor": "25.00", "Food": "25.00"}, amounts(allocs))
		})
	}
}

func TestAllocateWithoutCategories(t *testing.T) {
	for name, s := range map[string]Strategy{"equal": EqualSplit{}, "weighted": TemplateWeighted{}} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Allocate(decimal.NewFromInt(10), Sources{})
			assert.ErrorIs(t, err, ErrNoCategories)
		})
	}
}

func TestEqualSplitRemainderIsNotCorrected(t *testing.T) {
	allocs, err := EqualSplit{}.Allocate(decimal.NewFromInt(100), Sources{ExpenseCategories: []string{"A", "B", "C"}})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.PlannedAmount)
	}
	assert.Equal(t, "99.99", sum.StringFixed(2))
}
