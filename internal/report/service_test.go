package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
	"homeledger/internal/report"
	"homeledger/internal/storage/memory"
)

func setup(t *testing.T) (*report.Service, *ledger.Service, core.Property) {
	t.Helper()
	store := memory.New()
	p, err := store.CreateProperty(context.Background(), core.Property{OwnerID: 1, Address: "1 Elm St", City: "Springfield", State: "IL"})
	require.NoError(t, err)
	return report.NewService(store, store, log.Discard()), ledger.NewService(store, store, nil, log.Discard()), p
}

func TestMonthlySummaryFromStore(t *testing.T) {
	ctx := context.Background()
	reports, ledgers, p := setup(t)

	amount, err := core.ToMinorUnits("150.00")
	require.NoError(t, err)
	_, err = ledgers.CreateExpense(ctx, 1, core.Expense{PropertyID: p.ID, Title: "Roof repair", Category: "Repairs", Date: core.NewDate(2024, 12, 10), Amount: amount})
	require.NoError(t, err)
	// outside the month on both sides
	_, err = ledgers.CreateExpense(ctx, 1, core.Expense{PropertyID: p.ID, Title: "Gutter", Category: "Repairs", Date: core.NewDate(2025, 1, 1), Amount: amount})
	require.NoError(t, err)
	_, err = ledgers.CreateExpense(ctx, 1, core.Expense{PropertyID: p.ID, Title: "Gutter", Category: "Repairs", Date: core.NewDate(2024, 11, 30), Amount: amount})
	require.NoError(t, err)
	_, err = ledgers.CreateBudget(ctx, 1, core.Budget{PropertyID: p.ID, Category: "Repairs", Month: 12, Year: 2024, Amount: core.Money{Cents: 20000}})
	require.NoError(t, err)
	_, err = ledgers.CreateBudget(ctx, 1, core.Budget{PropertyID: p.ID, Category: "Landscaping", Month: 12, Year: 2024, Amount: core.Money{Cents: 5000}})
	require.NoError(t, err)

	got, err := reports.MonthlySummary(ctx, 1, p.ID, 2024, 12)
	require.NoError(t, err)
	require.Len(t, got.Categories, 2)
	repairs := got.Categories["Repairs"]
	assert.Equal(t, int64(15000), repairs.Expenses.Cents)
	assert.Equal(t, int64(5000), repairs.Variance.Cents)
	assert.Equal(t, 25.0, *repairs.VariancePercent)
	assert.True(t, got.Categories["Landscaping"].Expenses.IsZero())

	yearly, err := reports.YearlySummary(ctx, 1, p.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), yearly.YearlyTotals.Expenses.Cents)
	assert.Equal(t, int64(25000), yearly.YearlyTotals.Budget.Cents)
	assert.Equal(t, int64(15000), yearly.MonthlyData[11].TotalExpenses.Cents)
}

func TestReportsHideForeignProperties(t *testing.T) {
	ctx := context.Background()
	reports, _, p := setup(t)

	_, err := reports.MonthlySummary(ctx, 2, p.ID, 2024, 12)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = reports.YearlySummary(ctx, 2, p.ID, 2024)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = reports.PropertyComparison(ctx, 2, report.ComparisonQuery{Year: 2024})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReportValidation(t *testing.T) {
	ctx := context.Background()
	reports, _, p := setup(t)

	_, err := reports.MonthlySummary(ctx, 1, p.ID, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	_, err = reports.MonthlySummary(ctx, 1, p.ID, 0, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = reports.MonthlySummary(ctx, 1, p.ID, 9999, 12)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = reports.YearlySummary(ctx, 1, p.ID, 9999)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = reports.YearlySummary(ctx, 1, p.ID, 9998)
	assert.NoError(t, err)
	bad := 0
	_, err = reports.PropertyComparison(ctx, 1, report.ComparisonQuery{Year: 2024, Month: &bad})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestPropertyComparisonDefaultsToPrimary(t *testing.T) {
	ctx := context.Background()
	reports, ledgers, p := setup(t)
	for _, e := range []core.Expense{
		{PropertyID: p.ID, Title: "a", Category: "Repairs", Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 1000}},
		{PropertyID: p.ID, Title: "b", Category: "Utilities", Date: core.NewDate(2024, 4, 1), Amount: core.Money{Cents: 500}},
	} {
		_, err := ledgers.CreateExpense(ctx, 1, e)
		require.NoError(t, err)
	}

	got, err := reports.PropertyComparison(ctx, 1, report.ComparisonQuery{Year: 2024})
	require.NoError(t, err)
	require.Len(t, got.Properties, 1)
	assert.Equal(t, p.ID, got.Properties[0].ID)
	assert.Equal(t, int64(1500), got.Averages.Total.Cents)
	assert.Nil(t, got.Period.Month)
	assert.Nil(t, got.Period.Category)

	march := 3
	got, err = reports.PropertyComparison(ctx, 1, report.ComparisonQuery{Year: 2024, Month: &march, PropertyID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Properties[0].TotalExpenses.Cents)
}
