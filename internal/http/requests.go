package http

import (
	"eventbudget/internal/core"
	"eventbudget/internal/services"

	"github.com/shopspring/decimal"
)

// eventRequest is the body of event create and update calls. Update
// leaves omitted fields untouched.
type eventRequest struct {
	Name            *string          `json:"name"`
	Date            *jsonDate        `json:"date"`
	Budget          *decimal.Decimal `json:"budget"`
	Description     *string          `json:"description"`
	CurrencyCode    *string          `json:"currencyCode"`
	EventTemplateID *int64           `json:"eventTemplateId"`
	IsTemplate      *bool            `json:"isTemplate"`
}

func (req eventRequest) event() core.Event {
	e := core.Event{
		Date:            timeValue(req.Date),
		EventTemplateID: req.EventTemplateID,
	}
	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.Budget != nil {
		e.Budget = *req.Budget
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.CurrencyCode != nil {
		e.CurrencyCode = *req.CurrencyCode
	}
	if req.IsTemplate != nil {
		e.IsTemplate = *req.IsTemplate
	}
	return e
}

func (req eventRequest) update() core.EventUpdate {
	return core.EventUpdate{
		Name:            req.Name,
		Date:            timePtr(req.Date),
		Budget:          req.Budget,
		Description:     req.Description,
		CurrencyCode:    req.CurrencyCode,
		EventTemplateID: req.EventTemplateID,
		IsTemplate:      req.IsTemplate,
	}
}

type expenseRequest struct {
	EventID     int64            `json:"eventId"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	IsPaid      *bool            `json:"isPaid"`
	Date        *jsonDate        `json:"date"`
	Vendor      *string          `json:"vendor"`
}

func (req expenseRequest) expense() core.Expense {
	x := core.Expense{
		EventID: req.EventID,
		Date:    timeValue(req.Date),
	}
	if req.Category != nil {
		x.Category = *req.Category
	}
	if req.Description != nil {
		x.Description = *req.Description
	}
	if req.Amount != nil {
		x.Amount = *req.Amount
	}
	if req.IsPaid != nil {
		x.IsPaid = *req.IsPaid
	}
	if req.Vendor != nil {
		x.Vendor = *req.Vendor
	}
	return x
}

func (req expenseRequest) update() core.ExpenseUpdate {
	return core.ExpenseUpdate{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		IsPaid:      req.IsPaid,
		Date:        timePtr(req.Date),
		Vendor:      req.Vendor,
	}
}

type eventFilterRequest struct {
	SearchTerm    string           `json:"searchTerm"`
	StartDate     *jsonDate        `json:"startDate"`
	EndDate       *jsonDate        `json:"endDate"`
	MinBudget     *decimal.Decimal `json:"minBudget"`
	MaxBudget     *decimal.Decimal `json:"maxBudget"`
	CurrencyCode  string           `json:"currencyCode"`
	IsTemplate    *bool            `json:"isTemplate"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	SortBy        string           `json:"sortBy"`
	SortDirection string           `json:"sortDirection"`
}

func (req eventFilterRequest) filter() services.EventFilter {
	return services.EventFilter{
		SearchTerm:    req.SearchTerm,
		StartDate:     timePtr(req.StartDate),
		EndDate:       timePtr(req.EndDate),
		MinBudget:     req.MinBudget,
		MaxBudget:     req.MaxBudget,
		CurrencyCode:  req.CurrencyCode,
		IsTemplate:    req.IsTemplate,
		Page:          req.Page,
		PageSize:      req.PageSize,
		SortBy:        req.SortBy,
		SortDirection: req.SortDirection,
	}
}

type expenseFilterRequest struct {
	EventID       int64            `json:"eventId"`
	Category      string           `json:"category"`
	IsPaid        *bool            `json:"isPaid"`
	MinAmount     *decimal.Decimal `json:"minAmount"`
	MaxAmount     *decimal.Decimal `json:"maxAmount"`
	StartDate     *jsonDate        `json:"startDate"`
	EndDate       *jsonDate        `json:"endDate"`
	SearchTerm    string           `json:"searchTerm"`
	Vendor        string           `json:"vendor"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	SortBy        string           `json:"sortBy"`
	SortDirection string           `json:"sortDirection"`
}

func (req expenseFilterRequest) filter() services.ExpenseFilter {
	return services.ExpenseFilter{
		EventID:       req.EventID,
		Category:      req.Category,
		IsPaid:        req.IsPaid,
		MinAmount:     req.MinAmount,
		MaxAmount:     req.MaxAmount,
		StartDate:     timePtr(req.StartDate),
		EndDate:       timePtr(req.EndDate),
		SearchTerm:    req.SearchTerm,
		Vendor:        req.Vendor,
		Page:          req.Page,
		PageSize:      req.PageSize,
		SortBy:        req.SortBy,
		SortDirection: req.SortDirection,
	}
}

type templateCategoryRequest struct {
	CategoryName    string          `json:"categoryName"`
	EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
	Description     string          `json:"description"`
	SortOrder       int             `json:"sortOrder"`
}

type templateRequest struct {
	Name          string                    `json:"name"`
	Description   string                    `json:"description"`
	Category      string                    `json:"category"`
	DefaultBudget decimal.Decimal           `json:"defaultBudget"`
	CurrencyCode  string                    `json:"currencyCode"`
	IsPublic      bool                      `json:"isPublic"`
	Categories    []templateCategoryRequest `json:"categories"`
}

func (req templateRequest) template() core.EventTemplate {
	t := core.EventTemplate{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		DefaultBudget: req.DefaultBudget,
		CurrencyCode:  req.CurrencyCode,
		IsPublic:      req.IsPublic,
		Categories:    make([]core.EventTemplateCategory, 0, len(req.Categories)),
	}
	for _, c := range req.Categories {
		t.Categories = append(t.Categories, core.EventTemplateCategory{
			CategoryName:    c.CategoryName,
			EstimatedAmount: c.EstimatedAmount,
			Description:     c.Description,
			SortOrder:       c.SortOrder,
		})
	}
	return t
}
