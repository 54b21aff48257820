// Package budget holds the event analytics: cashflow bucketing, budget
// allocation strategies and the spending summary. Everything here is a pure
// function of its inputs; loading and persistence live in the services.
package budget

import (
	"errors"
	"sort"
	"strings"
	"time"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Interval is the granularity of a cashflow bucket.
type Interval string

const (
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"

	DefaultInterval = IntervalMonth
)

// tick is the gap between one bucket's end and the next bucket's start.
const tick = time.Nanosecond

var ErrInvalidInterval = errors.New("interval must be week or month")

// ParseInterval trims and case-folds s. An empty value selects the default.
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultInterval, nil
	case IntervalWeek:
		return IntervalWeek, nil
	case IntervalMonth:
		return IntervalMonth, nil
	default:
		return "", ErrInvalidInterval
	}
}

// Start returns the first instant of the bucket containing t.
func (i Interval) Start(t time.Time) time.Time {
	if i == IntervalWeek {
		return WeekStart(t)
	}
	return MonthStart(t)
}

// Next returns the start of the bucket after the one starting at start.
func (i Interval) Next(start time.Time) time.Time {
	if i == IntervalWeek {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

// CashflowPoint is one bucket of the cashflow timeseries.
type CashflowPoint struct {
	PeriodStart     time.Time       `json:"periodStart"`
	PeriodEnd       time.Time       `json:"periodEnd"`
	PeriodTotal     decimal.Decimal `json:"periodTotal"`
	CumulativeTotal decimal.Decimal `json:"cumulativeTotal"`
}

// Cashflow partitions the span of the expenses into contiguous buckets and
// sums the amounts per bucket. Buckets without expenses are still emitted.
// No expenses yields an empty, non-nil slice.
func Cashflow(expenses []core.Expense, interval Interval) []CashflowPoint {
	points := []CashflowPoint{}
	if len(expenses) == 0 {
		return points
	}

	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Date.Before(sorted[b].Date)
	})

	minDate := truncateDay(sorted[0].Date)
	maxDate := truncateDay(sorted[len(sorted)-1].Date)

	cursor := interval.Start(minDate)
	end := interval.Next(interval.Start(maxDate)).Add(-tick)

	cumulative := decimal.Zero
	next := 0
	for !cursor.After(end) {
		periodEnd := interval.Next(cursor).Add(-tick)

		total := decimal.Zero
		for next < len(sorted) && !sorted[next].Date.After(periodEnd) {
			if !sorted[next].Date.Before(cursor) {
				total = total.Add(sorted[next].Amount)
			}
			next++
		}
		cumulative = cumulative.Add(total)

		points = append(points, CashflowPoint{
			PeriodStart:     cursor,
			PeriodEnd:       periodEnd,
			PeriodTotal:     total,
			CumulativeTotal: cumulative,
		})
		cursor = interval.Next(cursor)
	}
	return points
}

// WeekStart returns midnight UTC of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	d := truncateDay(t)
	offset := (7 + int(d.Weekday()-time.Monday)) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthStart returns midnight UTC of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
