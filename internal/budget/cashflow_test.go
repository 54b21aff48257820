package budget

import (
	"testing"
	"time"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func expense(category string, amount string, at time.Time) core.Expense {
	return core.Expense{EventID: 1, Category: category, Amount: decimal.RequireFromString(amount), Date: at}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    Interval
		wantErr bool
	}{
		{in: "", want: IntervalMonth},
		{in: "month", want: IntervalMonth},
		{in: "  WEEK ", want: IntervalWeek},
		{in: "Month", want: IntervalMonth},
		{in: "day", wantErr: true},
		{in: "weekly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInterval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", day(2025, time.March, 3), day(2025, time.March, 3)},
		{"wednesday afternoon", time.Date(2025, time.March, 5, 15, 30, 0, 0, time.UTC), day(2025, time.March, 3)},
		{"sunday", day(2025, time.March, 9), day(2025, time.March, 3)},
		{"across month", day(2025, time.March, 1), day(2025, time.February, 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
		})
	}
}

func TestCashflowEmpty(t *testing.T) {
	points := Cashflow(nil, IntervalWeek)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestCashflowSingleExpense(t *testing.T) {
	points := Cashflow([]core.Expense{expense("Food", "42.10", time.Date(2025, time.May, 14, 18, 0, 0, 0, time.UTC))}, IntervalMonth)

	require.Len(t, points, 1)
	assert.Equal(t, day(2025, time.May, 1), points[0].PeriodStart)
	assert.Equal(t, day(2025, time.June, 1).Add(-time.Nanosecond), points[0].PeriodEnd)
	assert.True(t, points[0].PeriodTotal.Equal(decimal.RequireFromString("42.10")))
	assert.True(t, points[0].CumulativeTotal.Equal(points[0].PeriodTotal))
}

func TestCashflowMonthFillsGaps(t *testing.T) {
	expenses := []core.Expense{
		expense("Venue", "500", day(2025, time.March, 31)),
		expense("Food", "100", day(2025, time.January, 15)),
		expense("Food", "25.50", day(2025, time.January, 2)),
	}

	points := Cashflow(expenses, IntervalMonth)

	require.Len(t, points, 3)
	want := []struct {
		start      time.Time
		total, cum string
	}{
		{day(2025, time.January, 1), "125.50", "125.50"},
		{day(2025, time.February, 1), "0", "125.50"},
		{day(2025, time.March, 1), "500", "625.50"},
	}
	for i, w := range want {
		assert.Equal(t, w.start, points[i].PeriodStart, "bucket %d start", i)
		assert.True(t, points[i].PeriodTotal.Equal(decimal.RequireFromString(w.total)), "bucket %d total %s", i, points[i].PeriodTotal)
		assert.True(t, points[i].CumulativeTotal.Equal(decimal.RequireFromString(w.cum)), "bucket %d cumulative %s", i, points[i].CumulativeTotal)
	}
}

func TestCashflowWeekBoundaries(t *testing.T) {
	expenses := []core.Expense{
		// Sunday night belongs to the week starting Monday the 3rd.
		expense("Food", "10", time.Date(2025, time.March, 9, 23, 59, 59, 0, time.UTC)),
		// Monday midnight opens the next week.
		expense("Food", "20", day(2025, time.March, 10)),
		expense("Music", "30", day(2025, time.March, 26)),
	}

	points := Cashflow(expenses, IntervalWeek)

	require.Len(t, points, 4)
	assert.Equal(t, day(2025, time.March, 3), points[0].PeriodStart)
	assert.Equal(t, day(2025, time.March, 24), points[3].PeriodStart)
	assert.Equal(t, day(2025, time.March, 31).Add(-time.Nanosecond), points[3].PeriodEnd)

	totals := []string{"10", "20", "0", "30"}
	for i, want := range totals {
		assert.True(t, points[i].PeriodTotal.Equal(decimal.RequireFromString(want)), "bucket %d total %s", i, points[i].PeriodTotal)
	}
}

func TestCashflowBucketsAreContiguous(t *testing.T) {
	expenses := []core.Expense{
		expense("A", "1", day(2024, time.November, 20)),
		expense("B", "2", day(2025, time.February, 3)),
		expense("C", "3.33", day(2025, time.July, 30)),
	}

	for _, interval := range []Interval{IntervalWeek, IntervalMonth} {
		t.Run(string(interval), func(t *testing.T) {
			points := Cashflow(expenses, interval)
			require.NotEmpty(t, points)

			for i := 0; i+1 < len(points); i++ {
				assert.Equal(t, points[i+1].PeriodStart.Add(-time.Nanosecond), points[i].PeriodEnd, "gap after bucket %d", i)
				assert.False(t, points[i+1].CumulativeTotal.LessThan(points[i].CumulativeTotal))
			}
			last := points[len(points)-1]
			assert.True(t, last.CumulativeTotal.Equal(TotalSpent(expenses)))
		})
	}
}
