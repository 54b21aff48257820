// Package export renders the expenses of an event as CSV or XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"eventbudget/internal/budget"
	"eventbudget/internal/core"

	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("format must be 'csv' or 'xlsx'")

const dateLayout = "2006-01-02"

var header = []string{"Date", "Category", "Description", "Vendor", "Amount", "Paid"}

// ParseFormat trims and case-folds s. An empty value selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", ErrUnknownFormat
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds a download name such as "summer-wedding-2025-06-14.csv".
func (f Format) FileName(e core.Event) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(e.Name), "-"), "-")
	if slug == "" {
		slug = fmt.Sprintf("event-%d", e.ID)
	}
	return fmt.Sprintf("%s-%s.%s", slug, e.Date.Format(dateLayout), f)
}

// Write renders the expenses of e to w in format f.
func Write(w io.Writer, f Format, e core.Event, expenses []core.Expense) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, expenses)
	case FormatXLSX:
		return WriteXLSX(w, e, expenses)
	}
	return ErrUnknownFormat
}

func row(x core.Expense) []string {
	paid := "no"
	if x.IsPaid {
		paid = "yes"
	}
	return []string{
		x.Date.Format(dateLayout),
		x.Category,
		x.Description,
		x.Vendor,
		core.RoundMoney(x.Amount).StringFixed(2),
		paid,
	}
}

// WriteCSV writes a header line and one line per expense.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, x := range expenses {
		if err := cw.Write(row(x)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	expensesSheet = "Expenses"
	summarySheet  = "Summary"
)

// WriteXLSX writes a workbook with an Expenses sheet and a Summary sheet.
func WriteXLSX(w io.Writer, e core.Event, expenses []core.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, expensesSheet, 1, toAny(header)); err != nil {
		return err
	}
	for i, x := range expenses {
		r := row(x)
		values := toAny(r)
		values[4] = core.RoundMoney(x.Amount).InexactFloat64()
		if err := setRow(f, expensesSheet, i+2, values); err != nil {
			return err
		}
	}
	widths := map[string]float64{"A": 12, "B": 18, "C": 32, "D": 20, "E": 12, "F": 8}
	for col, width := range widths {
		if err := f.SetColWidth(expensesSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	s := budget.Summarize(e, expenses)
	lines := [][]any{
		{"Event", e.Name},
		{"Date", e.Date.Format(dateLayout)},
		{"Currency", e.CurrencyCode},
		{"Budget", s.Budget.InexactFloat64()},
		{"Total spent", s.TotalSpent.InexactFloat64()},
		{"Remaining", s.RemainingBudget.InexactFloat64()},
		{"Spent %", s.PercentageSpent.InexactFloat64()},
		{"Expenses", s.TotalExpensesCount},
	}
	for i, line := range lines {
		if err := setRow(f, summarySheet, i+1, line); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
