// Package storagetest holds the behaviour every storage.Store must share.
// Store implementations run it from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"eventbudget/internal/core"
	"eventbudget/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type Suite struct {
	suite.Suite
	// NewStore returns an empty store. It is called before each test.
	NewStore func(t *testing.T) (storage.Store, error)

	store storage.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	store, err := s.NewStore(s.T())
	s.Require().NoError(err, "failed to create store")
	s.store = store
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Suite) createEvent(name string, budget int64) core.Event {
	e := core.Event{
		Name:         name,
		Date:         day(2025, 6, 14),
		Budget:       decimal.NewFromInt(budget),
		CurrencyCode: "USD",
	}
	s.Require().NoError(s.store.Events().Create(s.ctx, &e))
	s.Require().NotZero(e.ID)
	return e
}

func (s *Suite) createExpense(eventID int64, category, vendor string, amount string, paid bool, date time.Time) core.Expense {
	x := core.Expense{
		EventID:     eventID,
		Category:    category,
		Description: category + " deposit",
		Amount:      decimal.RequireFromString(amount),
		IsPaid:      paid,
		Date:        date,
		Vendor:      vendor,
	}
	s.Require().NoError(s.store.Expenses().Create(s.ctx, &x))
	return x
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *Suite) TestEventLifecycle() {
	e := s.createEvent("Summer wedding", 12000)

	got, err := s.store.Events().Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Summer wedding", got.Name)
	s.True(got.Date.Equal(day(2025, 6, 14)))
	s.Equal("12000", got.Budget.String())
	s.False(got.CreatedDate.IsZero())
	s.Nil(got.ModifiedDate)

	got.Budget = decimal.RequireFromString("15000.50")
	got.Description = "Lakeside venue"
	s.Require().NoError(s.store.Events().Update(s.ctx, &got))
	s.NotNil(got.ModifiedDate)

	updated, err := s.store.Events().Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("15000.5", updated.Budget.String())
	s.Equal("Lakeside venue", updated.Description)
	s.NotNil(updated.ModifiedDate)

	s.Require().NoError(s.store.Events().Delete(s.ctx, e.ID))
	_, err = s.store.Events().Get(s.ctx, e.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	s.ErrorIs(s.store.Events().Delete(s.ctx, e.ID), storage.ErrNotFound)
}

func (s *Suite) TestUpdateMissingEvent() {
	e := core.Event{ID: 4242, Name: "Ghost", Date: day(2025, 1, 1), Budget: decimal.NewFromInt(1)}
	s.ErrorIs(s.store.Events().Update(s.ctx, &e), storage.ErrNotFound)
}

func (s *Suite) TestDeleteEventCascades() {
	e := s.createEvent("Conference", 5000)
	other := s.createEvent("Meetup", 300)
	x := s.createExpense(e.ID, "Venue", "Hall Co", "2000", true, day(2025, 5, 1))
	kept := s.createExpense(other.ID, "Pizza", "", "80", false, day(2025, 5, 2))
	s.Require().NoError(s.store.CategoryBudgets().Create(s.ctx, &core.EventCategoryBudget{
		EventID: e.ID, Category: "Venue", PlannedAmount: decimal.NewFromInt(2500),
	}))
	s.Require().NoError(s.store.Reminders().Create(s.ctx, &core.Reminder{
		EventID: e.ID, Email: "host@example.com", DaysBeforeEvent: 7, ReminderDate: day(2025, 6, 7),
	}))

	s.Require().NoError(s.store.Events().Delete(s.ctx, e.ID))

	_, err := s.store.Expenses().Get(s.ctx, x.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	budgets, err := s.store.CategoryBudgets().Find(s.ctx, storage.CategoryBudgetQuery{EventID: e.ID})
	s.Require().NoError(err)
	s.Empty(budgets)
	due, err := s.store.Reminders().Due(s.ctx, day(2030, 1, 1), 0)
	s.Require().NoError(err)
	s.Empty(due)

	_, err = s.store.Expenses().Get(s.ctx, kept.ID)
	s.NoError(err)
}

func (s *Suite) TestEventQueries() {
	s.createEvent("Birthday dinner", 400)
	tmpl := core.Event{Name: "Wedding template", Date: day(2025, 9, 1), Budget: decimal.NewFromInt(20000), IsTemplate: true}
	s.Require().NoError(s.store.Events().Create(s.ctx, &tmpl))
	s.createEvent("Company offsite", 9000)

	yes := true
	templates, err := s.store.Events().Find(s.ctx, storage.EventQuery{IsTemplate: &yes})
	s.Require().NoError(err)
	s.Require().Len(templates, 1)
	s.Equal(tmpl.ID, templates[0].ID)

	byBudget, err := s.store.Events().Find(s.ctx, storage.EventQuery{Sort: storage.ParseSort("budget", "desc")})
	s.Require().NoError(err)
	s.Require().Len(byBudget, 3)
	s.Equal("Wedding template", byBudget[0].Name)
	s.Equal("Birthday dinner", byBudget[2].Name)

	minBudget := decimal.NewFromInt(1000)
	search, err := s.store.Events().Find(s.ctx, storage.EventQuery{Search: "OFF", MinBudget: &minBudget})
	s.Require().NoError(err)
	s.Require().Len(search, 1)
	s.Equal("Company offsite", search[0].Name)

	n, err := s.store.Events().Count(s.ctx, storage.EventQuery{})
	s.Require().NoError(err)
	s.Equal(3, n)

	page, err := s.store.Events().Find(s.ctx, storage.EventQuery{
		Sort:   storage.ParseSort("name", "asc"),
		Paging: storage.Paging{Page: 2, Size: 2},
	})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("Wedding template", page[0].Name)
}

func (s *Suite) TestShareTokenIsUnique() {
	a := s.createEvent("Gala", 100)
	b := s.createEvent("Picnic", 50)

	held, err := s.store.Events().SetShareToken(s.ctx, a.ID, "abcdef0123456789")
	s.Require().NoError(err)
	s.Equal("abcdef0123456789", held)

	ok, err := s.store.Events().Exists(s.ctx, storage.EventQuery{ShareToken: "abcdef0123456789"})
	s.Require().NoError(err)
	s.True(ok)

	found, err := s.store.Events().Find(s.ctx, storage.EventQuery{ShareToken: "abcdef0123456789"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(a.ID, found[0].ID)

	_, err = s.store.Events().SetShareToken(s.ctx, b.ID, "abcdef0123456789")
	s.ErrorIs(err, storage.ErrConflict)

	ok, err = s.store.Events().Exists(s.ctx, storage.EventQuery{ShareToken: "0000000000000000"})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *Suite) TestSetShareTokenKeepsFirstToken() {
	e := s.createEvent("Gala", 100)

	held, err := s.store.Events().SetShareToken(s.ctx, e.ID, "1111111111111111")
	s.Require().NoError(err)
	s.Equal("1111111111111111", held)

	held, err = s.store.Events().SetShareToken(s.ctx, e.ID, "2222222222222222")
	s.Require().NoError(err)
	s.Equal("1111111111111111", held, "a second writer gets the stored token back")

	got, err := s.store.Events().Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("1111111111111111", got.ShareToken)

	_, err = s.store.Events().SetShareToken(s.ctx, 999, "3333333333333333")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestUpdateLeavesShareTokenAlone() {
	e := s.createEvent("Gala", 100)
	_, err := s.store.Events().SetShareToken(s.ctx, e.ID, "1111111111111111")
	s.Require().NoError(err)

	e.Name = "Winter gala"
	e.ShareToken = ""
	s.Require().NoError(s.store.Events().Update(s.ctx, &e))

	got, err := s.store.Events().Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Winter gala", got.Name)
	s.Equal("1111111111111111", got.ShareToken)
}

func (s *Suite) TestExpenseRequiresEvent() {
	x := core.Expense{EventID: 999, Category: "Food", Amount: decimal.NewFromInt(1), Date: day(2025, 1, 1)}
	s.ErrorIs(s.store.Expenses().Create(s.ctx, &x), storage.ErrNotFound)
}

func (s *Suite) TestExpenseQueries() {
	e := s.createEvent("Festival", 10000)
	other := s.createEvent("Other", 10)
	s.createExpense(e.ID, "Food", "Tasty Catering", "450.00", true, day(2025, 3, 3))
	s.createExpense(e.ID, "food", "Street Eats", "120.50", false, day(2025, 3, 10))
	s.createExpense(e.ID, "Music", "DJ Max", "800", true, day(2025, 3, 17))
	s.createExpense(other.ID, "Food", "", "5", false, day(2025, 3, 3))

	all, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{EventID: e.ID})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal("Food", all[0].Category, "date ascending by default")

	food, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{EventID: e.ID, Category: "FOOD"})
	s.Require().NoError(err)
	s.Len(food, 2)

	paid := true
	paidRows, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{EventID: e.ID, IsPaid: &paid})
	s.Require().NoError(err)
	s.Len(paidRows, 2)

	minAmount := decimal.NewFromInt(200)
	byAmount, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{
		EventID:   e.ID,
		MinAmount: &minAmount,
		Sort:      storage.ParseSort("Amount", "desc"),
	})
	s.Require().NoError(err)
	s.Require().Len(byAmount, 2)
	s.Equal("800", byAmount[0].Amount.String())
	s.Equal("450", byAmount[1].Amount.String())

	vendor, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{Vendor: "eats"})
	s.Require().NoError(err)
	s.Require().Len(vendor, 1)
	s.Equal("Street Eats", vendor[0].Vendor)

	search, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{Search: "music"})
	s.Require().NoError(err)
	s.Len(search, 1)

	from, to := day(2025, 3, 5), day(2025, 3, 12)
	ranged, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{From: &from, To: &to})
	s.Require().NoError(err)
	s.Require().Len(ranged, 1)
	s.Equal("Street Eats", ranged[0].Vendor)

	n, err := s.store.Expenses().Count(s.ctx, storage.ExpenseQuery{Category: "food"})
	s.Require().NoError(err)
	s.Equal(3, n)

	page, err := s.store.Expenses().Find(s.ctx, storage.ExpenseQuery{
		EventID: e.ID,
		Sort:    storage.ParseSort("date", "desc"),
		Paging:  storage.Paging{Page: 1, Size: 1},
	})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("Music", page[0].Category)
}

func (s *Suite) TestExpenseUpdateAndDelete() {
	e := s.createEvent("Retreat", 700)
	x := s.createExpense(e.ID, "Lodging", "Cabin Inc", "300", false, day(2025, 4, 1))

	x.IsPaid = true
	x.Amount = decimal.RequireFromString("320.75")
	s.Require().NoError(s.store.Expenses().Update(s.ctx, &x))

	got, err := s.store.Expenses().Get(s.ctx, x.ID)
	s.Require().NoError(err)
	s.True(got.IsPaid)
	s.Equal("320.75", got.Amount.String())
	s.NotNil(got.ModifiedDate)

	s.Require().NoError(s.store.Expenses().Delete(s.ctx, x.ID))
	s.ErrorIs(s.store.Expenses().Delete(s.ctx, x.ID), storage.ErrNotFound)
}

func (s *Suite) TestTemplates() {
	t := core.EventTemplate{
		Name:          "Wedding",
		Category:      "Celebration",
		DefaultBudget: decimal.NewFromInt(20000),
		CurrencyCode:  "USD",
		IsPublic:      true,
		Categories: []core.EventTemplateCategory{
			{CategoryName: "Food", EstimatedAmount: decimal.NewFromInt(400), SortOrder: 2},
			{CategoryName: "Venue", EstimatedAmount: decimal.NewFromInt(600), SortOrder: 1},
		},
	}
	s.Require().NoError(s.store.Templates().Create(s.ctx, &t))
	s.NotZero(t.ID)
	s.Equal(t.ID, t.Categories[0].EventTemplateID)

	got, err := s.store.Templates().Get(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Categories, 2)
	s.Equal("Venue", got.Categories[0].CategoryName)
	s.Equal("400", got.Categories[1].EstimatedAmount.String())

	empty := core.EventTemplate{Name: "Blank", CurrencyCode: "EUR"}
	s.Require().NoError(s.store.Templates().Create(s.ctx, &empty))

	list, err := s.store.Templates().List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Blank", list[0].Name)
	s.Empty(list[0].Categories)
	s.Len(list[1].Categories, 2)

	cats, err := s.store.Templates().Categories(s.ctx, storage.TemplateCategoryQuery{TemplateID: t.ID})
	s.Require().NoError(err)
	s.Len(cats, 2)

	_, err = s.store.Templates().Get(s.ctx, 987654)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestCategoryBudgetsAreUniquePerEvent() {
	e := s.createEvent("Launch", 1000)
	b := core.EventCategoryBudget{EventID: e.ID, Category: "Food", PlannedAmount: decimal.NewFromInt(500)}
	s.Require().NoError(s.store.CategoryBudgets().Create(s.ctx, &b))

	dup := core.EventCategoryBudget{EventID: e.ID, Category: "FOOD", PlannedAmount: decimal.NewFromInt(1)}
	s.ErrorIs(s.store.CategoryBudgets().Create(s.ctx, &dup), storage.ErrConflict)

	b.PlannedAmount = decimal.RequireFromString("333.33")
	s.Require().NoError(s.store.CategoryBudgets().Update(s.ctx, &b))

	rows, err := s.store.CategoryBudgets().Find(s.ctx, storage.CategoryBudgetQuery{EventID: e.ID})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("333.33", rows[0].PlannedAmount.String())
	s.NotNil(rows[0].ModifiedDate)
}

func (s *Suite) TestTransactionRollback() {
	tx, err := s.store.Begin(s.ctx)
	s.Require().NoError(err)

	e := core.Event{Name: "Draft", Date: day(2025, 2, 2), Budget: decimal.NewFromInt(10)}
	s.Require().NoError(tx.Events().Create(s.ctx, &e))
	s.Require().NoError(tx.Rollback())

	_, err = s.store.Events().Get(s.ctx, e.ID)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestTransactionCommit() {
	tx, err := s.store.Begin(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()

	e := core.Event{Name: "Final", Date: day(2025, 2, 2), Budget: decimal.NewFromInt(10)}
	s.Require().NoError(tx.Events().Create(s.ctx, &e))
	s.Require().NoError(tx.CategoryBudgets().Create(s.ctx, &core.EventCategoryBudget{
		EventID: e.ID, Category: "Misc", PlannedAmount: decimal.NewFromInt(10),
	}))
	s.Require().NoError(tx.Commit())
	s.NoError(tx.Rollback(), "rollback after commit is a no-op")

	got, err := s.store.Events().Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Final", got.Name)
	rows, err := s.store.CategoryBudgets().Find(s.ctx, storage.CategoryBudgetQuery{EventID: e.ID})
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *Suite) TestDueReminders() {
	e := s.createEvent("Reunion", 800)
	past := core.Reminder{EventID: e.ID, Email: "a@example.com", DaysBeforeEvent: 7, ReminderDate: day(2025, 6, 7)}
	later := core.Reminder{EventID: e.ID, Email: "b@example.com", DaysBeforeEvent: 1, ReminderDate: day(2025, 6, 13)}
	s.Require().NoError(s.store.Reminders().Create(s.ctx, &past))
	s.Require().NoError(s.store.Reminders().Create(s.ctx, &later))

	now := day(2025, 6, 10)
	due, err := s.store.Reminders().Due(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(past.ID, due[0].ID)

	s.Require().NoError(s.store.Reminders().MarkSent(s.ctx, past.ID, now))
	due, err = s.store.Reminders().Due(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Empty(due)

	got, err := s.store.Reminders().Get(s.ctx, past.ID)
	s.Require().NoError(err)
	s.True(got.IsSent)
	s.Require().NotNil(got.SentDate)
	s.True(got.SentDate.Equal(now))

	s.ErrorIs(s.store.Reminders().MarkSent(s.ctx, 31337, now), storage.ErrNotFound)
}
