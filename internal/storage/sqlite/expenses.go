package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

const expenseColumns = `id, event_id, category, description, amount, is_paid, date, vendor,
	created_date, modified_date`

type expenseRepo repos

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		x             core.Expense
		date, created string
		modified      sql.NullString
		isPaid        int
	)
	if err := row.Scan(&x.ID, &x.EventID, &x.Category, &x.Description, &x.Amount, &isPaid,
		&date, &x.Vendor, &created, &modified); err != nil {
		return core.Expense{}, err
	}
	var err error
	if x.Date, err = parseTime(date); err != nil {
		return core.Expense{}, err
	}
	if x.CreatedDate, err = parseTime(created); err != nil {
		return core.Expense{}, err
	}
	if x.ModifiedDate, err = parseNullTime(modified); err != nil {
		return core.Expense{}, err
	}
	x.IsPaid = isPaid != 0
	return x, nil
}

func expenseFilter(q storage.ExpenseQuery) *where {
	w := &where{}
	if q.EventID != 0 {
		w.add("event_id = ?", q.EventID)
	}
	if q.Category != "" {
		w.add("category = ? COLLATE NOCASE", q.Category)
	}
	if q.IsPaid != nil {
		w.add("is_paid = ?", boolInt(*q.IsPaid))
	}
	if q.MinAmount != nil {
		w.add("CAST(amount AS REAL) >= ?", q.MinAmount.InexactFloat64())
	}
	if q.MaxAmount != nil {
		w.add("CAST(amount AS REAL) <= ?", q.MaxAmount.InexactFloat64())
	}
	if q.From != nil {
		w.add("date >= ?", formatTime(*q.From))
	}
	if q.To != nil {
		w.add("date <= ?", formatTime(*q.To))
	}
	if q.Search != "" {
		p := likePattern(q.Search)
		w.add(`(LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(vendor) LIKE ? ESCAPE '\')`, p, p, p)
	}
	if q.Vendor != "" {
		w.add(`LOWER(vendor) LIKE ? ESCAPE '\'`, likePattern(q.Vendor))
	}
	return w
}

func expenseOrder(s storage.Sort) string {
	switch s.Field {
	case "amount":
		return orderBy("CAST(amount AS REAL)", s.Desc)
	case "category":
		return orderBy("LOWER(category)", s.Desc)
	case "vendor":
		return orderBy("LOWER(vendor)", s.Desc)
	case "createddate":
		return orderBy("created_date", s.Desc)
	default:
		return orderBy("date", s.Desc)
	}
}

func (r expenseRepo) Get(ctx context.Context, id int64) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	x, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapErr(err, fmt.Sprintf("expense %d", id))
	}
	return x, nil
}

func (r expenseRepo) Find(ctx context.Context, q storage.ExpenseQuery) ([]core.Expense, error) {
	w := expenseFilter(q)
	page, args := limit(q.Paging, w.args)
	rows, err := r.q.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses"+w.String()+expenseOrder(q.Sort)+page, args...)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		x, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, x)
	}
	return expenses, rows.Err()
}

func (r expenseRepo) Count(ctx context.Context, q storage.ExpenseQuery) (int, error) {
	w := expenseFilter(q)
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r expenseRepo) Create(ctx context.Context, x *core.Expense) error {
	if x.CreatedDate.IsZero() {
		x.CreatedDate = r.now()
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO expenses
		(event_id, category, description, amount, is_paid, date, vendor, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		x.EventID, x.Category, x.Description, x.Amount.String(), boolInt(x.IsPaid),
		formatTime(x.Date), x.Vendor, formatTime(x.CreatedDate), formatNullTime(x.ModifiedDate))
	if err != nil {
		return mapErr(err, "create expense")
	}
	x.ID, err = res.LastInsertId()
	return err
}

func (r expenseRepo) Update(ctx context.Context, x *core.Expense) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `UPDATE expenses SET
		event_id = ?, category = ?, description = ?, amount = ?, is_paid = ?, date = ?, vendor = ?, modified_date = ?
		WHERE id = ?`,
		x.EventID, x.Category, x.Description, x.Amount.String(), boolInt(x.IsPaid),
		formatTime(x.Date), x.Vendor, formatTime(now), x.ID)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update expense %d", x.ID))
	}
	if err := requireAffected(res, fmt.Sprintf("expense %d", x.ID)); err != nil {
		return err
	}
	x.ModifiedDate = &now
	return nil
}

func (r expenseRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("delete expense %d", id))
	}
	return requireAffected(res, fmt.Sprintf("expense %d", id))
}
