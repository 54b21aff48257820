package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

type budgetRepo repos

func (r budgetRepo) Find(ctx context.Context, q storage.CategoryBudgetQuery) ([]core.EventCategoryBudget, error) {
	w := &where{}
	if q.EventID != 0 {
		w.add("event_id = ?", q.EventID)
	}
	rows, err := r.q.QueryContext(ctx, `SELECT id, event_id, category, planned_amount, created_date, modified_date
		FROM event_category_budgets`+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("find category budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.EventCategoryBudget{}
	for rows.Next() {
		var (
			b        core.EventCategoryBudget
			created  string
			modified sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.EventID, &b.Category, &b.PlannedAmount, &created, &modified); err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		if b.CreatedDate, err = parseTime(created); err != nil {
			return nil, err
		}
		if b.ModifiedDate, err = parseNullTime(modified); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r budgetRepo) Create(ctx context.Context, b *core.EventCategoryBudget) error {
	if b.CreatedDate.IsZero() {
		b.CreatedDate = r.now()
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO event_category_budgets
		(event_id, category, planned_amount, created_date, modified_date) VALUES (?, ?, ?, ?, ?)`,
		b.EventID, b.Category, b.PlannedAmount.String(), formatTime(b.CreatedDate), formatNullTime(b.ModifiedDate))
	if err != nil {
		return mapErr(err, fmt.Sprintf("create category budget %q", b.Category))
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (r budgetRepo) Update(ctx context.Context, b *core.EventCategoryBudget) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `UPDATE event_category_budgets
		SET category = ?, planned_amount = ?, modified_date = ? WHERE id = ?`,
		b.Category, b.PlannedAmount.String(), formatTime(now), b.ID)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update category budget %d", b.ID))
	}
	if err := requireAffected(res, fmt.Sprintf("category budget %d", b.ID)); err != nil {
		return err
	}
	b.ModifiedDate = &now
	return nil
}
