package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

const eventColumns = `id, name, date, budget, description, currency_code, event_template_id,
	share_token, is_template, created_date, modified_date`

type eventRepo repos

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (core.Event, error) {
	var (
		e                    core.Event
		date, created        string
		templateID           sql.NullInt64
		shareToken, modified sql.NullString
		isTemplate           int
	)
	if err := row.Scan(&e.ID, &e.Name, &date, &e.Budget, &e.Description, &e.CurrencyCode,
		&templateID, &shareToken, &isTemplate, &created, &modified); err != nil {
		return core.Event{}, err
	}
	var err error
	if e.Date, err = parseTime(date); err != nil {
		return core.Event{}, err
	}
	if e.CreatedDate, err = parseTime(created); err != nil {
		return core.Event{}, err
	}
	if e.ModifiedDate, err = parseNullTime(modified); err != nil {
		return core.Event{}, err
	}
	if templateID.Valid {
		id := templateID.Int64
		e.EventTemplateID = &id
	}
	e.ShareToken = shareToken.String
	e.IsTemplate = isTemplate != 0
	return e, nil
}

func eventFilter(q storage.EventQuery) *where {
	w := &where{}
	if q.ID != 0 {
		w.add("id = ?", q.ID)
	}
	if q.ShareToken != "" {
		w.add("share_token = ?", q.ShareToken)
	}
	if q.IsTemplate != nil {
		w.add("is_template = ?", boolInt(*q.IsTemplate))
	}
	if q.CurrencyCode != "" {
		w.add("currency_code = ? COLLATE NOCASE", q.CurrencyCode)
	}
	if q.Search != "" {
		p := likePattern(q.Search)
		w.add(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, p, p)
	}
	if q.From != nil {
		w.add("date >= ?", formatTime(*q.From))
	}
	if q.To != nil {
		w.add("date <= ?", formatTime(*q.To))
	}
	if q.MinBudget != nil {
		w.add("CAST(budget AS REAL) >= ?", q.MinBudget.InexactFloat64())
	}
	if q.MaxBudget != nil {
		w.add("CAST(budget AS REAL) <= ?", q.MaxBudget.InexactFloat64())
	}
	return w
}

func eventOrder(s storage.Sort) string {
	switch s.Field {
	case "name":
		return orderBy("LOWER(name)", s.Desc)
	case "budget":
		return orderBy("CAST(budget AS REAL)", s.Desc)
	case "createddate":
		return orderBy("created_date", s.Desc)
	default:
		return orderBy("date", s.Desc)
	}
}

func (r eventRepo) Get(ctx context.Context, id int64) (core.Event, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	e, err := scanEvent(row)
	if err != nil {
		return core.Event{}, mapErr(err, fmt.Sprintf("event %d", id))
	}
	return e, nil
}

func (r eventRepo) Exists(ctx context.Context, q storage.EventQuery) (bool, error) {
	w := eventFilter(q)
	var exists int
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM events"+w.String()+")", w.args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event exists: %w", err)
	}
	return exists != 0, nil
}

func (r eventRepo) Find(ctx context.Context, q storage.EventQuery) ([]core.Event, error) {
	w := eventFilter(q)
	page, args := limit(q.Paging, w.args)
	rows, err := r.q.QueryContext(ctx, "SELECT "+eventColumns+" FROM events"+w.String()+eventOrder(q.Sort)+page, args...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer rows.Close()

	events := []core.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r eventRepo) Count(ctx context.Context, q storage.EventQuery) (int, error) {
	w := eventFilter(q)
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (r eventRepo) Create(ctx context.Context, e *core.Event) error {
	if e.CreatedDate.IsZero() {
		e.CreatedDate = r.now()
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO events
		(name, date, budget, description, currency_code, event_template_id, share_token, is_template, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, formatTime(e.Date), e.Budget.String(), e.Description, e.CurrencyCode,
		templateArg(e.EventTemplateID), nullString(e.ShareToken), boolInt(e.IsTemplate),
		formatTime(e.CreatedDate), formatNullTime(e.ModifiedDate))
	if err != nil {
		return mapErr(err, "create event")
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (r eventRepo) Update(ctx context.Context, e *core.Event) error {
	now := r.now()
	res, err := r.q.ExecContext(ctx, `UPDATE events SET
		name = ?, date = ?, budget = ?, description = ?, currency_code = ?, event_template_id = ?,
		is_template = ?, modified_date = ?
		WHERE id = ?`,
		e.Name, formatTime(e.Date), e.Budget.String(), e.Description, e.CurrencyCode,
		templateArg(e.EventTemplateID), boolInt(e.IsTemplate),
		formatTime(now), e.ID)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update event %d", e.ID))
	}
	if err := requireAffected(res, fmt.Sprintf("event %d", e.ID)); err != nil {
		return err
	}
	e.ModifiedDate = &now
	return nil
}

// SetShareToken only writes over a NULL token, so two callers racing on the
// same event both end up with the one that landed first.
func (r eventRepo) SetShareToken(ctx context.Context, id int64, token string) (string, error) {
	what := fmt.Sprintf("set share token of event %d", id)
	if _, err := r.q.ExecContext(ctx,
		"UPDATE events SET share_token = ? WHERE id = ? AND share_token IS NULL", token, id); err != nil {
		return "", mapErr(err, what)
	}
	var held sql.NullString
	if err := r.q.QueryRowContext(ctx, "SELECT share_token FROM events WHERE id = ?", id).Scan(&held); err != nil {
		return "", mapErr(err, what)
	}
	return held.String, nil
}

func (r eventRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("delete event %d", id))
	}
	return requireAffected(res, fmt.Sprintf("event %d", id))
}

func templateArg(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}
