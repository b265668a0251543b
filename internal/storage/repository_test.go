package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

func newTestRepo(t *testing.T) (*Repository, core.Property) {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	p, err := repo.CreateProperty(context.Background(), core.Property{OwnerID: 1, Address: "1 Elm St", City: "Springfield", State: "IL"})
	require.NoError(t, err)
	return repo, p
}

func TestRebind(t *testing.T) {
	r := &Repository{dialect: DialectPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", r.q("SELECT 1 WHERE a = ? AND b = ?"))
	r.dialect = DialectSQLite
	assert.Equal(t, "a = ?", r.q("a = ?"))
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)

	in := core.Expense{
		OwnerID: 1, PropertyID: p.ID, Title: "Roof repair", Category: "Repairs",
		Date: core.NewDate(2024, 12, 10), Amount: core.Money{Cents: 15000},
		Description: "north side", Recurring: true, RecurringInterval: "yearly",
	}
	created, err := repo.CreateExpense(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 12, 10), got.Date)
	assert.Equal(t, int64(15000), got.Amount.Cents)
	assert.True(t, got.Recurring)
	assert.Equal(t, "yearly", got.RecurringInterval)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.GetExpense(ctx, created.ID+1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExpensesBetweenLastReportableYear(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)

	_, err := repo.CreateExpense(ctx, core.Expense{
		OwnerID: 1, PropertyID: p.ID, Title: "Gutters", Category: "Repairs",
		Date: core.NewDate(9998, 12, 10), Amount: core.Money{Cents: 500},
	})
	require.NoError(t, err)

	december, err := core.MonthRange(9998, 12)
	require.NoError(t, err)
	month, err := repo.ExpensesBetween(ctx, p.ID, december)
	require.NoError(t, err)
	assert.Len(t, month, 1)
	year, err := repo.ExpensesBetween(ctx, p.ID, core.YearRange(9998))
	require.NoError(t, err)
	assert.Len(t, year, 1)
}

func TestListExpensesFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	for _, e := range []struct {
		title, cat string
		d          core.Date
	}{
		{"jan", "Repairs", core.NewDate(2024, 1, 31)},
		{"feb-a", "Utilities", core.NewDate(2024, 2, 1)},
		{"feb-b", "Repairs", core.NewDate(2024, 2, 29)},
		{"mar", "Repairs", core.NewDate(2024, 3, 1)},
	} {
		_, err := repo.CreateExpense(ctx, core.Expense{OwnerID: 1, PropertyID: p.ID, Title: e.title, Category: e.cat, Date: e.d, Amount: core.Money{Cents: 100}})
		require.NoError(t, err)
	}
	titles := func(es []core.Expense) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.Title)
		}
		return out
	}

	all, err := repo.ListExpenses(ctx, p.ID, ledger.ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mar", "feb-b", "feb-a", "jan"}, titles(all))

	start, end := core.NewDate(2024, 2, 1), core.NewDate(2024, 3, 1)
	got, err := repo.ListExpenses(ctx, p.ID, ledger.ExpenseFilter{Start: &start, End: &end, Category: "Repairs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mar", "feb-b"}, titles(got))

	feb, _ := core.MonthRange(2024, 2)
	month, err := repo.ExpensesBetween(ctx, p.ID, feb)
	require.NoError(t, err)
	assert.Equal(t, []string{"feb-a", "feb-b"}, titles(month))
}

func TestBudgetUniqueIndex(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	b := core.Budget{OwnerID: 1, PropertyID: p.ID, Category: "Repairs", Amount: core.Money{Cents: 20000}, Month: 12, Year: 2024}

	first, err := repo.CreateBudget(ctx, b)
	require.NoError(t, err)
	_, err = repo.CreateBudget(ctx, b)
	assert.ErrorIs(t, err, core.ErrConflict)

	nov := b
	nov.Month = 11
	second, err := repo.CreateBudget(ctx, nov)
	require.NoError(t, err)

	_, err = repo.UpdateBudget(ctx, second.ID, p.ID, func(x *core.Budget) error {
		x.Month = 12
		return nil
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	found, err := repo.FindBudget(ctx, b.Key())
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	year := 2024
	list, err := repo.ListBudgets(ctx, p.ID, ledger.BudgetFilter{Year: &year})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 11, list[0].Month)
	assert.Equal(t, 12, list[1].Month)
}

func TestConcurrentBudgetInsertsOneWins(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	b := core.Budget{OwnerID: 1, PropertyID: p.ID, Category: "Landscaping", Amount: core.Money{Cents: 5000}, Month: 6, Year: 2024}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateBudget(ctx, b)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, core.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestUpdateRollsBackOnValidationError(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	e, err := repo.CreateExpense(ctx, core.Expense{OwnerID: 1, PropertyID: p.ID, Title: "x", Category: "Repairs", Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	_, err = repo.UpdateExpense(ctx, e.ID, p.ID, func(x *core.Expense) error {
		x.Title = ""
		return x.Validate()
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = repo.UpdateExpense(ctx, e.ID, p.ID+1, func(*core.Expense) error { return nil })
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
}

func TestMoveToMissingPropertyIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	e, err := repo.CreateExpense(ctx, core.Expense{OwnerID: 1, PropertyID: p.ID, Title: "x", Category: "Repairs", Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)

	_, err = repo.UpdateExpense(ctx, e.ID, p.ID, func(x *core.Expense) error {
		x.PropertyID = 999
		return nil
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeletePropertyCascades(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)
	e, err := repo.CreateExpense(ctx, core.Expense{OwnerID: 1, PropertyID: p.ID, Title: "x", Category: "Repairs", Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}})
	require.NoError(t, err)
	b, err := repo.CreateBudget(ctx, core.Budget{OwnerID: 1, PropertyID: p.ID, Category: "Repairs", Amount: core.Money{Cents: 100}, Month: 1, Year: 2024})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteProperty(ctx, p.ID))
	_, err = repo.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetBudget(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProperty(ctx, p.ID), core.ErrNotFound)
}

func TestPropertyResolution(t *testing.T) {
	ctx := context.Background()
	repo, p := newTestRepo(t)

	got, err := repo.ResolveAuthorizedProperty(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got.City)

	_, err = repo.ResolveAuthorizedProperty(ctx, 2, p.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	primary, err := repo.PrimaryProperty(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p.ID, primary.ID)
	_, err = repo.PrimaryProperty(ctx, 2)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
