package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"eventbudget/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixture() (core.Event, []core.Expense) {
	e := core.Event{
		ID:           7,
		Name:         "Summer Wedding!",
		Date:         time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		Budget:       decimal.RequireFromString("1000"),
		CurrencyCode: "EUR",
	}
	expenses := []core.Expense{
		{EventID: 7, Category: "Venue", Description: "Hall, deposit", Amount: decimal.RequireFromString("400"), IsPaid: true, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{EventID: 7, Category: "Catering", Vendor: "Chef & Co", Amount: decimal.RequireFromString("250.5"), Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)},
	}
	return e, expenses
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	e, _ := fixture()
	assert.Equal(t, "summer-wedding-2025-06-14.csv", FormatCSV.FileName(e))
	assert.Equal(t, "summer-wedding-2025-06-14.xlsx", FormatXLSX.FileName(e))

	e.Name = "!!!"
	assert.Equal(t, "event-7-2025-06-14.csv", FormatCSV.FileName(e))
}

func TestWriteCSV(t *testing.T) {
	e, expenses := fixture()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, e, expenses))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		header,
		{"2025-03-01", "Venue", "Hall, deposit", "", "400.00", "yes"},
		{"2025-04-02", "Catering", "", "Chef & Co", "250.50", "no"},
	}, records)
}

func TestWriteXLSX(t *testing.T) {
	e, expenses := fixture()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, e, expenses))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{expensesSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(expensesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "Venue", rows[1][1])
	assert.Equal(t, "250.5", rows[2][4])

	spent, err := f.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "650.5", spent)
}

func TestWrite_UnknownFormat(t *testing.T) {
	e, expenses := fixture()
	assert.ErrorIs(t, Write(&bytes.Buffer{}, Format("pdf"), e, expenses), ErrUnknownFormat)
}
