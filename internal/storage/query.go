package storage

import (
	"sort"
	"strings"
	"time"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Query specifications. Each describes filter criteria, ordering and paging
// for one record type. The sqlite store translates them to SQL; the memory
// store evaluates them with Match, Less and Evaluate.

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paging selects a 1-based page. A zero Size means no paging.
type Paging struct {
	Page int
	Size int
}

// Normalize clamps the page to at least 1 and the size to 1..MaxPageSize,
// defaulting an unset size to DefaultPageSize.
func (p Paging) Normalize() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Paging) Offset() int {
	if p.Size <= 0 || p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// Sort orders results by Field, descending when Desc is set.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort builds a Sort from user input such as ("Date", "desc").
func ParseSort(field, direction string) Sort {
	return Sort{
		Field: strings.ToLower(strings.TrimSpace(field)),
		Desc:  strings.EqualFold(strings.TrimSpace(direction), "desc"),
	}
}

type EventQuery struct {
	ID           int64
	ShareToken   string
	IsTemplate   *bool
	CurrencyCode string
	Search       string
	From, To     *time.Time
	MinBudget    *decimal.Decimal
	MaxBudget    *decimal.Decimal
	Sort         Sort
	Paging       Paging
}

func (q EventQuery) Match(e core.Event) bool {
	if q.ID != 0 && e.ID != q.ID {
		return false
	}
	if q.ShareToken != "" && e.ShareToken != q.ShareToken {
		return false
	}
	if q.IsTemplate != nil && e.IsTemplate != *q.IsTemplate {
		return false
	}
	if q.CurrencyCode != "" && !strings.EqualFold(e.CurrencyCode, q.CurrencyCode) {
		return false
	}
	if q.Search != "" && !containsFold(q.Search, e.Name, e.Description) {
		return false
	}
	if q.From != nil && e.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && e.Date.After(*q.To) {
		return false
	}
	if q.MinBudget != nil && e.Budget.LessThan(*q.MinBudget) {
		return false
	}
	if q.MaxBudget != nil && e.Budget.GreaterThan(*q.MaxBudget) {
		return false
	}
	return true
}

// Less orders by date unless another field is requested. Ties break on id.
func (q EventQuery) Less(a, b core.Event) bool {
	var c int
	switch q.Sort.Field {
	case "name":
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "budget":
		c = a.Budget.Cmp(b.Budget)
	case "createddate":
		c = a.CreatedDate.Compare(b.CreatedDate)
	default:
		c = a.Date.Compare(b.Date)
	}
	if c == 0 {
		c = compareID(a.ID, b.ID)
	}
	if q.Sort.Desc {
		return c > 0
	}
	return c < 0
}

type ExpenseQuery struct {
	EventID   int64
	Category  string
	IsPaid    *bool
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	From, To  *time.Time
	Search    string
	Vendor    string
	Sort      Sort
	Paging    Paging
}

func (q ExpenseQuery) Match(e core.Expense) bool {
	if q.EventID != 0 && e.EventID != q.EventID {
		return false
	}
	if q.Category != "" && !strings.EqualFold(e.Category, q.Category) {
		return false
	}
	if q.IsPaid != nil && e.IsPaid != *q.IsPaid {
		return false
	}
	if q.MinAmount != nil && e.Amount.LessThan(*q.MinAmount) {
		return false
	}
	if q.MaxAmount != nil && e.Amount.GreaterThan(*q.MaxAmount) {
		return false
	}
	if q.From != nil && e.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && e.Date.After(*q.To) {
		return false
	}
	if q.Search != "" && !containsFold(q.Search, e.Description, e.Category, e.Vendor) {
		return false
	}
	if q.Vendor != "" && !containsFold(q.Vendor, e.Vendor) {
		return false
	}
	return true
}

// Less orders by date unless another field is requested. Ties break on id.
func (q ExpenseQuery) Less(a, b core.Expense) bool {
	var c int
	switch q.Sort.Field {
	case "amount":
		c = a.Amount.Cmp(b.Amount)
	case "category":
		c = strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
	case "vendor":
		c = strings.Compare(strings.ToLower(a.Vendor), strings.ToLower(b.Vendor))
	case "createddate":
		c = a.CreatedDate.Compare(b.CreatedDate)
	default:
		c = a.Date.Compare(b.Date)
	}
	if c == 0 {
		c = compareID(a.ID, b.ID)
	}
	if q.Sort.Desc {
		return c > 0
	}
	return c < 0
}

type TemplateCategoryQuery struct {
	TemplateID int64
}

func (q TemplateCategoryQuery) Match(c core.EventTemplateCategory) bool {
	return q.TemplateID == 0 || c.EventTemplateID == q.TemplateID
}

type CategoryBudgetQuery struct {
	EventID int64
}

func (q CategoryBudgetQuery) Match(b core.EventCategoryBudget) bool {
	return q.EventID == 0 || b.EventID == q.EventID
}

// Evaluate filters items with match, orders them with less when it is not
// nil and cuts the requested page.
func Evaluate[T any](items []T, match func(T) bool, less func(a, b T) bool, p Paging) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if match(it) {
			out = append(out, it)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	if p.Size <= 0 {
		return out
	}
	start := p.Offset()
	if start >= len(out) {
		return out[:0]
	}
	end := start + p.Size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end]
}

func containsFold(needle string, haystacks ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
