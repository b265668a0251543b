// Package sheets exports report snapshots to spreadsheets.
package sheets

import (
	"context"
	"fmt"
	"sort"

	"homeledger/internal/report"
)

// SummaryWriter replaces the tab holding one property-month summary.
type SummaryWriter interface {
	WriteMonthlySummary(ctx context.Context, s report.MonthlySummary) (ref string, err error)
}

// Columns of the summary table.
var Header = []any{"Category", "Budget", "Expenses", "Variance", "Variance %", "Status"}

// TabName names the tab a property-month summary lives in, e.g. "P12 2024-03".
func TabName(propertyID int64, year, month int) string {
	return fmt.Sprintf("P%d %04d-%02d", propertyID, year, month)
}

// Rows renders a monthly summary as spreadsheet rows: a short preamble, the
// header, one row per category in name order and a closing total.
func Rows(s report.MonthlySummary) [][]any {
	rows := [][]any{
		{"Property", s.Property.Address, s.Property.City, s.Property.State},
		{"Period", fmt.Sprintf("%04d-%02d", s.Period.Year, s.Period.Month)},
		{},
		Header,
	}

	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rows = append(rows, summaryRow(name, s.Categories[name].Summary))
	}
	return append(rows, summaryRow("Total", s.Totals))
}

func summaryRow(label string, s report.Summary) []any {
	var percent any = ""
	if s.VariancePercent != nil {
		percent = *s.VariancePercent
	}
	return []any{label, s.Budget.String(), s.Expenses.String(), s.Variance.String(), percent, string(s.Status)}
}
