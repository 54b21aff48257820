package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eventbudget/internal/amqp"
	"eventbudget/internal/core"
	"eventbudget/internal/storage"
	"eventbudget/internal/storage/memory"
	"eventbudget/internal/storage/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu            sync.Mutex
	reminders     []*amqp.ReminderMessage
	notifications []*amqp.NotificationMessage
	err           error
}

func (p *recordingPublisher) PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reminders = append(p.reminders, msg)
	return nil
}

func (p *recordingPublisher) PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.notifications = append(p.notifications, msg)
	return nil
}

func (p *recordingPublisher) notificationTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.notifications))
	for _, n := range p.notifications {
		types = append(types, n.Type)
	}
	return types
}

// failingStore fails the failOn-th category budget write inside a
// transaction.
type failingStore struct {
	storage.Store
	failOn int
}

func (s *failingStore) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, budgets: &failingBudgets{CategoryBudgetRepository: tx.CategoryBudgets(), failOn: s.failOn}}, nil
}

type failingTx struct {
	storage.Tx
	budgets storage.CategoryBudgetRepository
}

func (t *failingTx) CategoryBudgets() storage.CategoryBudgetRepository { return t.budgets }

type failingBudgets struct {
	storage.CategoryBudgetRepository
	calls  int
	failOn int
}

var errDiskFull = errors.New("disk full")

func (b *failingBudgets) Create(ctx context.Context, row *core.EventCategoryBudget) error {
	b.calls++
	if b.calls == b.failOn {
		return errDiskFull
	}
	return b.CategoryBudgetRepository.Create(ctx, row)
}

func (b *failingBudgets) Update(ctx context.Context, row *core.EventCategoryBudget) error {
	b.calls++
	if b.calls == b.failOn {
		return errDiskFull
	}
	return b.CategoryBudgetRepository.Update(ctx, row)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedEvent(t *testing.T, store storage.Store, name, budget string) core.Event {
	t.Helper()
	e := core.Event{
		Name:         name,
		Date:         day(2025, 9, 20),
		Budget:       money(budget),
		CurrencyCode: "USD",
	}
	require.NoError(t, store.Events().Create(context.Background(), &e))
	return e
}

func seedExpense(t *testing.T, store storage.Store, eventID int64, category, amount string, paid bool, date time.Time) core.Expense {
	t.Helper()
	x := core.Expense{
		EventID:  eventID,
		Category: category,
		Amount:   money(amount),
		IsPaid:   paid,
		Date:     date,
	}
	require.NoError(t, store.Expenses().Create(context.Background(), &x))
	return x
}

func newTestEventService(store storage.Store, pub Publisher) *EventService {
	return NewEventService(store, pub, EventServiceConfig{ShareBaseURL: "https://plan.example.com/"})
}

func newStore() *memory.Store {
	return memory.New()
}

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "db", "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// backends builds an empty store of each kind the services run on.
var backends = map[string]func(t *testing.T) storage.Store{
	"memory": func(*testing.T) storage.Store { return newStore() },
	"sqlite": func(t *testing.T) storage.Store { return newSQLiteStore(t) },
}

// staleReadStore hides stored share tokens from event reads, which is what
// a caller sees when another request issues a token right after its read.
type staleReadStore struct {
	storage.Store
}

func (s staleReadStore) Events() storage.EventRepository {
	return staleEvents{EventRepository: s.Store.Events()}
}

type staleEvents struct {
	storage.EventRepository
}

func (r staleEvents) Get(ctx context.Context, id int64) (core.Event, error) {
	e, err := r.EventRepository.Get(ctx, id)
	e.ShareToken = ""
	return e, err
}

func requireKind(t *testing.T, err error, kind core.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, core.KindOf(err), "unexpected error kind for %v", err)
}
