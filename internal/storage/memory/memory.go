// Package memory is an in-process storage.Store. It backs DATA_BACKEND=memory
// and the service tests. A transaction reads and writes a private copy of
// the data and logs each change; Commit replays the log onto the shared
// data, so writes made outside the transaction survive it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"
)

var errTxDone = errors.New("transaction has already been committed or rolled back")

type state struct {
	seq          int64
	events       map[int64]core.Event
	expenses     map[int64]core.Expense
	templates    map[int64]core.EventTemplate
	templateCats map[int64]core.EventTemplateCategory
	budgets      map[int64]core.EventCategoryBudget
	reminders    map[int64]core.Reminder
}

func newState() *state {
	return &state{
		events:       map[int64]core.Event{},
		expenses:     map[int64]core.Expense{},
		templates:    map[int64]core.EventTemplate{},
		templateCats: map[int64]core.EventTemplateCategory{},
		budgets:      map[int64]core.EventCategoryBudget{},
		reminders:    map[int64]core.Reminder{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:          s.seq,
		events:       copyMap(s.events),
		expenses:     copyMap(s.expenses),
		templates:    copyMap(s.templates),
		templateCats: copyMap(s.templateCats),
		budgets:      copyMap(s.budgets),
		reminders:    copyMap(s.reminders),
	}
}

func copyMap[T any](m map[int64]T) map[int64]T {
	c := make(map[int64]T, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// The mutations below hold every integrity rule. Repositories call them
// directly and transactions replay them on commit.

func (s *state) insertEvent(e core.Event) error {
	if err := s.checkShareToken(e.ID, e.ShareToken); err != nil {
		return err
	}
	s.events[e.ID] = e
	return nil
}

// updateEvent keeps the stored share token; SetShareToken is the only way
// to change it.
func (s *state) updateEvent(e core.Event) error {
	old, ok := s.events[e.ID]
	if !ok {
		return fmt.Errorf("event %d: %w", e.ID, storage.ErrNotFound)
	}
	e.ShareToken = old.ShareToken
	e.CreatedDate = old.CreatedDate
	s.events[e.ID] = e
	return nil
}

func (s *state) setShareToken(id int64, token string) (string, error) {
	e, ok := s.events[id]
	if !ok {
		return "", fmt.Errorf("event %d: %w", id, storage.ErrNotFound)
	}
	if e.ShareToken != "" {
		return e.ShareToken, nil
	}
	if err := s.checkShareToken(id, token); err != nil {
		return "", err
	}
	e.ShareToken = token
	s.events[id] = e
	return token, nil
}

func (s *state) checkShareToken(id int64, token string) error {
	if token == "" {
		return nil
	}
	for _, other := range s.events {
		if other.ID != id && other.ShareToken == token {
			return fmt.Errorf("share token: %w", storage.ErrConflict)
		}
	}
	return nil
}

func (s *state) deleteEvent(id int64) error {
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %d: %w", id, storage.ErrNotFound)
	}
	delete(s.events, id)
	for k, x := range s.expenses {
		if x.EventID == id {
			delete(s.expenses, k)
		}
	}
	for k, b := range s.budgets {
		if b.EventID == id {
			delete(s.budgets, k)
		}
	}
	for k, rem := range s.reminders {
		if rem.EventID == id {
			delete(s.reminders, k)
		}
	}
	return nil
}

func (s *state) requireEvent(id int64) error {
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *state) insertExpense(x core.Expense) error {
	if err := s.requireEvent(x.EventID); err != nil {
		return err
	}
	s.expenses[x.ID] = x
	return nil
}

func (s *state) updateExpense(x core.Expense) error {
	if _, ok := s.expenses[x.ID]; !ok {
		return fmt.Errorf("expense %d: %w", x.ID, storage.ErrNotFound)
	}
	if err := s.requireEvent(x.EventID); err != nil {
		return err
	}
	s.expenses[x.ID] = x
	return nil
}

func (s *state) deleteExpense(id int64) error {
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *state) insertTemplate(t core.EventTemplate) error {
	cats := t.Categories
	t.Categories = nil
	s.templates[t.ID] = t
	for _, c := range cats {
		s.templateCats[c.ID] = c
	}
	return nil
}

func (s *state) checkBudget(b core.EventCategoryBudget) error {
	if err := s.requireEvent(b.EventID); err != nil {
		return err
	}
	for _, other := range s.budgets {
		if other.ID != b.ID && other.EventID == b.EventID && strings.EqualFold(other.Category, b.Category) {
			return fmt.Errorf("category budget %q: %w", b.Category, storage.ErrConflict)
		}
	}
	return nil
}

func (s *state) insertBudget(b core.EventCategoryBudget) error {
	if err := s.checkBudget(b); err != nil {
		return err
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *state) updateBudget(b core.EventCategoryBudget) error {
	if _, ok := s.budgets[b.ID]; !ok {
		return fmt.Errorf("category budget %d: %w", b.ID, storage.ErrNotFound)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *state) insertReminder(rem core.Reminder) error {
	if err := s.requireEvent(rem.EventID); err != nil {
		return err
	}
	s.reminders[rem.ID] = rem
	return nil
}

func (s *state) markSent(id int64, at time.Time) error {
	rem, ok := s.reminders[id]
	if !ok {
		return fmt.Errorf("reminder %d: %w", id, storage.ErrNotFound)
	}
	rem.IsSent = true
	rem.SentDate = &at
	s.reminders[id] = rem
	return nil
}

type change func(*state) error

type db struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	// parent is set inside a transaction. Ids are drawn from it so they
	// stay unique across transactions, and changes are logged for replay.
	parent  *db
	changes []change
}

func (d *db) nextID() int64 {
	if d.parent != nil {
		d.parent.mu.Lock()
		defer d.parent.mu.Unlock()
		return d.parent.nextID()
	}
	d.st.seq++
	return d.st.seq
}

// apply runs c on the data and logs it when inside a transaction. The
// caller holds d.mu.
func (d *db) apply(c change) error {
	if err := c(d.st); err != nil {
		return err
	}
	if d.parent != nil {
		d.changes = append(d.changes, c)
	}
	return nil
}

func (d *db) repos() repos { return repos{d: d} }

type repos struct{ d *db }

func (r repos) Events() storage.EventRepository                   { return eventRepo(r) }
func (r repos) Expenses() storage.ExpenseRepository               { return expenseRepo(r) }
func (r repos) Templates() storage.TemplateRepository             { return templateRepo(r) }
func (r repos) CategoryBudgets() storage.CategoryBudgetRepository { return budgetRepo(r) }
func (r repos) Reminders() storage.ReminderRepository             { return reminderRepo(r) }

// Store implements storage.Store in memory.
type Store struct {
	repos
	d *db
}

func New() *Store {
	d := &db{st: newState(), now: func() time.Time { return time.Now().UTC() }}
	return &Store{repos: d.repos(), d: d}
}

// SetClock replaces the clock used for created and modified dates.
func (s *Store) SetClock(now func() time.Time) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.now = now
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.d.mu.Lock()
	local := &db{st: s.d.st.clone(), now: s.d.now, parent: s.d}
	s.d.mu.Unlock()
	return &tx{repos: local.repos(), local: local}, nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

type tx struct {
	repos
	local *db
	mu    sync.Mutex
	done  bool
}

// Commit replays the logged changes onto the shared data. If any change no
// longer applies, for example because its event was deleted meanwhile,
// nothing is written and the error is returned.
func (t *tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true

	t.local.mu.Lock()
	changes := t.local.changes
	t.local.mu.Unlock()

	parent := t.local.parent
	parent.mu.Lock()
	defer parent.mu.Unlock()
	next := parent.st.clone()
	for _, c := range changes {
		if err := c(next); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}
	parent.st = next
	return nil
}

func (t *tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return nil
}

type eventRepo repos

func (r eventRepo) Get(ctx context.Context, id int64) (core.Event, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	e, ok := r.d.st.events[id]
	if !ok {
		return core.Event{}, fmt.Errorf("event %d: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (r eventRepo) Exists(ctx context.Context, q storage.EventQuery) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, e := range r.d.st.events {
		if q.Match(e) {
			return true, nil
		}
	}
	return false, nil
}

func (r eventRepo) Find(ctx context.Context, q storage.EventQuery) ([]core.Event, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return storage.Evaluate(values(r.d.st.events), q.Match, q.Less, q.Paging), nil
}

func (r eventRepo) Count(ctx context.Context, q storage.EventQuery) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n := 0
	for _, e := range r.d.st.events {
		if q.Match(e) {
			n++
		}
	}
	return n, nil
}

func (r eventRepo) Create(ctx context.Context, e *core.Event) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.st.checkShareToken(0, e.ShareToken); err != nil {
		return err
	}
	e.ID = r.d.nextID()
	if e.CreatedDate.IsZero() {
		e.CreatedDate = r.d.now()
	}
	stored := *e
	return r.d.apply(func(st *state) error { return st.insertEvent(stored) })
}

func (r eventRepo) Update(ctx context.Context, e *core.Event) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	now := r.d.now()
	stored := *e
	stored.ModifiedDate = &now
	if err := r.d.apply(func(st *state) error { return st.updateEvent(stored) }); err != nil {
		return err
	}
	e.ModifiedDate = &now
	e.ShareToken = r.d.st.events[e.ID].ShareToken
	return nil
}

func (r eventRepo) SetShareToken(ctx context.Context, id int64, token string) (string, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var held string
	err := r.d.apply(func(st *state) error {
		var err error
		held, err = st.setShareToken(id, token)
		return err
	})
	return held, err
}

func (r eventRepo) Delete(ctx context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.apply(func(st *state) error { return st.deleteEvent(id) })
}

type expenseRepo repos

func (r expenseRepo) Get(ctx context.Context, id int64) (core.Expense, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	x, ok := r.d.st.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return x, nil
}

func (r expenseRepo) Find(ctx context.Context, q storage.ExpenseQuery) ([]core.Expense, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return storage.Evaluate(values(r.d.st.expenses), q.Match, q.Less, q.Paging), nil
}

func (r expenseRepo) Count(ctx context.Context, q storage.ExpenseQuery) (int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n := 0
	for _, x := range r.d.st.expenses {
		if q.Match(x) {
			n++
		}
	}
	return n, nil
}

func (r expenseRepo) Create(ctx context.Context, x *core.Expense) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.st.requireEvent(x.EventID); err != nil {
		return err
	}
	x.ID = r.d.nextID()
	if x.CreatedDate.IsZero() {
		x.CreatedDate = r.d.now()
	}
	stored := *x
	return r.d.apply(func(st *state) error { return st.insertExpense(stored) })
}

func (r expenseRepo) Update(ctx context.Context, x *core.Expense) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	now := r.d.now()
	stored := *x
	stored.ModifiedDate = &now
	if err := r.d.apply(func(st *state) error { return st.updateExpense(stored) }); err != nil {
		return err
	}
	x.ModifiedDate = &now
	return nil
}

func (r expenseRepo) Delete(ctx context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.apply(func(st *state) error { return st.deleteExpense(id) })
}

type templateRepo repos

func (r templateRepo) Get(ctx context.Context, id int64) (core.EventTemplate, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	t, ok := r.d.st.templates[id]
	if !ok {
		return core.EventTemplate{}, fmt.Errorf("template %d: %w", id, storage.ErrNotFound)
	}
	t.Categories = r.categories(id)
	return t, nil
}

func (r templateRepo) List(ctx context.Context) ([]core.EventTemplate, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	out := values(r.d.st.templates)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Categories = r.categories(out[i].ID)
	}
	return out, nil
}

func (r templateRepo) Create(ctx context.Context, t *core.EventTemplate) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	t.ID = r.d.nextID()
	if t.CreatedDate.IsZero() {
		t.CreatedDate = r.d.now()
	}
	for i := range t.Categories {
		c := &t.Categories[i]
		c.ID = r.d.nextID()
		c.EventTemplateID = t.ID
	}
	stored := *t
	stored.Categories = append([]core.EventTemplateCategory(nil), t.Categories...)
	return r.d.apply(func(st *state) error { return st.insertTemplate(stored) })
}

func (r templateRepo) Categories(ctx context.Context, q storage.TemplateCategoryQuery) ([]core.EventTemplateCategory, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return storage.Evaluate(values(r.d.st.templateCats), q.Match, lessTemplateCategory, storage.Paging{}), nil
}

func (r templateRepo) categories(templateID int64) []core.EventTemplateCategory {
	q := storage.TemplateCategoryQuery{TemplateID: templateID}
	return storage.Evaluate(values(r.d.st.templateCats), q.Match, lessTemplateCategory, storage.Paging{})
}

func lessTemplateCategory(a, b core.EventTemplateCategory) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.ID < b.ID
}

type budgetRepo repos

func (r budgetRepo) Find(ctx context.Context, q storage.CategoryBudgetQuery) ([]core.EventCategoryBudget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return storage.Evaluate(values(r.d.st.budgets), q.Match, func(a, b core.EventCategoryBudget) bool {
		return a.ID < b.ID
	}, storage.Paging{}), nil
}

func (r budgetRepo) Create(ctx context.Context, b *core.EventCategoryBudget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.st.checkBudget(*b); err != nil {
		return err
	}
	b.ID = r.d.nextID()
	if b.CreatedDate.IsZero() {
		b.CreatedDate = r.d.now()
	}
	stored := *b
	return r.d.apply(func(st *state) error { return st.insertBudget(stored) })
}

func (r budgetRepo) Update(ctx context.Context, b *core.EventCategoryBudget) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	now := r.d.now()
	stored := *b
	stored.ModifiedDate = &now
	if err := r.d.apply(func(st *state) error { return st.updateBudget(stored) }); err != nil {
		return err
	}
	b.ModifiedDate = &now
	return nil
}

type reminderRepo repos

func (r reminderRepo) Get(ctx context.Context, id int64) (core.Reminder, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	rem, ok := r.d.st.reminders[id]
	if !ok {
		return core.Reminder{}, fmt.Errorf("reminder %d: %w", id, storage.ErrNotFound)
	}
	return rem, nil
}

func (r reminderRepo) Create(ctx context.Context, rem *core.Reminder) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if err := r.d.st.requireEvent(rem.EventID); err != nil {
		return err
	}
	rem.ID = r.d.nextID()
	if rem.CreatedDate.IsZero() {
		rem.CreatedDate = r.d.now()
	}
	stored := *rem
	return r.d.apply(func(st *state) error { return st.insertReminder(stored) })
}

func (r reminderRepo) Due(ctx context.Context, now time.Time, limit int) ([]core.Reminder, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	due := storage.Evaluate(values(r.d.st.reminders),
		func(rem core.Reminder) bool { return !rem.IsSent && !rem.ReminderDate.After(now) },
		func(a, b core.Reminder) bool {
			if a.ReminderDate.Equal(b.ReminderDate) {
				return a.ID < b.ID
			}
			return a.ReminderDate.Before(b.ReminderDate)
		},
		storage.Paging{})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r reminderRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.d.apply(func(st *state) error { return st.markSent(id, at) })
}

func values[T any](m map[int64]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
