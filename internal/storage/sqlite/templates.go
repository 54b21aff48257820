package sqlite

import (
	"context"
	"fmt"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

const (
	templateColumns         = `id, name, description, category, default_budget, currency_code, is_public, created_date`
	templateCategoryColumns = `id, event_template_id, category_name, estimated_amount, description, sort_order`
)

type templateRepo repos

func scanTemplate(row rowScanner) (core.EventTemplate, error) {
	var (
		t        core.EventTemplate
		created  string
		isPublic int
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.DefaultBudget,
		&t.CurrencyCode, &isPublic, &created); err != nil {
		return core.EventTemplate{}, err
	}
	var err error
	if t.CreatedDate, err = parseTime(created); err != nil {
		return core.EventTemplate{}, err
	}
	t.IsPublic = isPublic != 0
	return t, nil
}

func (r templateRepo) Get(ctx context.Context, id int64) (core.EventTemplate, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM event_templates WHERE id = ?", id)
	t, err := scanTemplate(row)
	if err != nil {
		return core.EventTemplate{}, mapErr(err, fmt.Sprintf("template %d", id))
	}
	if t.Categories, err = r.Categories(ctx, storage.TemplateCategoryQuery{TemplateID: id}); err != nil {
		return core.EventTemplate{}, err
	}
	return t, nil
}

func (r templateRepo) List(ctx context.Context) ([]core.EventTemplate, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+templateColumns+" FROM event_templates ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates := []core.EventTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Categories are loaded after the rows are closed; a transaction has a
	// single connection.
	cats, err := r.Categories(ctx, storage.TemplateCategoryQuery{})
	if err != nil {
		return nil, err
	}
	byTemplate := make(map[int64][]core.EventTemplateCategory)
	for _, c := range cats {
		byTemplate[c.EventTemplateID] = append(byTemplate[c.EventTemplateID], c)
	}
	for i := range templates {
		templates[i].Categories = byTemplate[templates[i].ID]
		if templates[i].Categories == nil {
			templates[i].Categories = []core.EventTemplateCategory{}
		}
	}
	return templates, nil
}

func (r templateRepo) Create(ctx context.Context, t *core.EventTemplate) error {
	if t.CreatedDate.IsZero() {
		t.CreatedDate = r.now()
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO event_templates
		(name, description, category, default_budget, currency_code, is_public, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, t.Category, t.DefaultBudget.String(), t.CurrencyCode,
		boolInt(t.IsPublic), formatTime(t.CreatedDate))
	if err != nil {
		return mapErr(err, "create template")
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range t.Categories {
		c := &t.Categories[i]
		c.EventTemplateID = t.ID
		res, err := r.q.ExecContext(ctx, `INSERT INTO event_template_categories
			(event_template_id, category_name, estimated_amount, description, sort_order)
			VALUES (?, ?, ?, ?, ?)`,
			c.EventTemplateID, c.CategoryName, c.EstimatedAmount.String(), c.Description, c.SortOrder)
		if err != nil {
			return mapErr(err, fmt.Sprintf("create template category %q", c.CategoryName))
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

func (r templateRepo) Categories(ctx context.Context, q storage.TemplateCategoryQuery) ([]core.EventTemplateCategory, error) {
	w := &where{}
	if q.TemplateID != 0 {
		w.add("event_template_id = ?", q.TemplateID)
	}
	rows, err := r.q.QueryContext(ctx, "SELECT "+templateCategoryColumns+
		" FROM event_template_categories"+w.String()+" ORDER BY sort_order, id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("find template categories: %w", err)
	}
	defer rows.Close()

	cats := []core.EventTemplateCategory{}
	for rows.Next() {
		var c core.EventTemplateCategory
		if err := rows.Scan(&c.ID, &c.EventTemplateID, &c.CategoryName, &c.EstimatedAmount,
			&c.Description, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
