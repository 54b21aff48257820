// This file implements the Strategy Pattern for budget allocation.
// Each strategy decides which categories receive a share of the total
// budget and how large each share is.

package budget

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
)

const (
	StrategyEqual            = "equal"
	StrategyTemplateWeighted = "templateweighted"

	DefaultStrategy = StrategyEqual
)

var (
	ErrInvalidStrategy = errors.New("unknown allocation strategy")
	ErrNoCategories    = errors.New("no categories to allocate")
	ErrInvalidTotal    = errors.New("total budget must be positive")
)

// Allocation is the planned amount for one category.
type Allocation struct {
	Category      string          `json:"category"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
}

// Sources are the category inputs available to a strategy. TemplateCategories
// is nil when the event is not linked to a template.
type Sources struct {
	TemplateCategories []core.EventTemplateCategory
	ExpenseCategories  []string
}

// Strategy distributes a total budget across categories.
type Strategy interface {
	Allocate(total decimal.Decimal, src Sources) ([]Allocation, error)
}

// EqualSplit gives every category observed among the expenses the same
// share, rounded to cents. The rounding remainder is not redistributed.
type EqualSplit struct{}

func (EqualSplit) Allocate(total decimal.Decimal, src Sources) ([]Allocation, error) {
	return equalShares(total, distinctSorted(src.ExpenseCategories))
}

// TemplateWeighted weights each template category by its share of the
// template's estimated total. Without a usable template it behaves like
// EqualSplit.
type TemplateWeighted struct{}

func (TemplateWeighted) Allocate(total decimal.Decimal, src Sources) ([]Allocation, error) {
	categories, weights := templateWeights(src.TemplateCategories)
	if weights == nil {
		return EqualSplit{}.Allocate(total, src)
	}

	out := make([]Allocation, 0, len(categories))
	for _, name := range categories {
		w, ok := weights[name]
		if !ok {
			w = decimal.Zero
		}
		out = append(out, Allocation{
			Category:      name,
			PlannedAmount: core.RoundMoney(total.Mul(w)),
		})
	}
	return out, nil
}

var strategies = map[string]Strategy{
	StrategyEqual:            EqualSplit{},
	StrategyTemplateWeighted: TemplateWeighted{},
}

// NormalizeStrategy trims and case-folds name, defaulting to equal.
func NormalizeStrategy(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultStrategy
	}
	return name
}

// GetStrategy returns the strategy registered under the normalized name.
func GetStrategy(name string) (Strategy, error) {
	s, ok := strategies[NormalizeStrategy(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidStrategy, name)
	}
	return s, nil
}

// RegisterStrategy adds or replaces a strategy. Not safe for concurrent use
// with GetStrategy; call it during initialization.
func RegisterStrategy(name string, s Strategy) {
	strategies[NormalizeStrategy(name)] = s
}

func equalShares(total decimal.Decimal, categories []string) ([]Allocation, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	share := core.RoundMoney(total.Div(decimal.NewFromInt(int64(len(categories)))))
	out := make([]Allocation, 0, len(categories))
	for _, c := range categories {
		out = append(out, Allocation{Category: c, PlannedAmount: share})
	}
	return out, nil
}

// templateWeights returns the distinct template category names in template
// order and, when the estimates sum to a positive amount, the weight of each.
func templateWeights(cats []core.EventTemplateCategory) ([]string, map[string]decimal.Decimal) {
	if len(cats) == 0 {
		return nil, nil
	}

	var names []string
	estimates := make(map[string]decimal.Decimal, len(cats))
	sum := decimal.Zero
	for _, c := range cats {
		if _, seen := estimates[c.CategoryName]; !seen {
			names = append(names, c.CategoryName)
			estimates[c.CategoryName] = decimal.Zero
		}
		estimates[c.CategoryName] = estimates[c.CategoryName].Add(c.EstimatedAmount)
		sum = sum.Add(c.EstimatedAmount)
	}
	if !sum.IsPositive() {
		return names, nil
	}

	weights := make(map[string]decimal.Decimal, len(estimates))
	for name, est := range estimates {
		weights[name] = est.Div(sum)
	}
	return names, weights
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
