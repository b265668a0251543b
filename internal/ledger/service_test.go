package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
	"homeledger/internal/storage/memory"
)

const (
	owner    int64 = 1
	stranger int64 = 2
)

type fixture struct {
	svc       *ledger.Service
	store     *memory.Store
	publisher *ledger.MockEventPublisher
	home      core.Property
	cabin     core.Property
	foreign   core.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	store := memory.New()
	f := &fixture{store: store, publisher: ledger.NewMockEventPublisher(ctrl)}

	var err error
	f.home, err = store.CreateProperty(ctx, core.Property{OwnerID: owner, Address: "1 Elm St", City: "Springfield", State: "IL"})
	require.NoError(t, err)
	f.cabin, err = store.CreateProperty(ctx, core.Property{OwnerID: owner, Address: "9 Lake Rd", City: "Tahoe", State: "CA"})
	require.NoError(t, err)
	f.foreign, err = store.CreateProperty(ctx, core.Property{OwnerID: stranger, Address: "5 Main St"})
	require.NoError(t, err)

	f.svc = ledger.NewService(store, store, f.publisher, log.Discard())
	return f
}

// quiet accepts any number of events.
func (f *fixture) quiet() {
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func roofRepair(propertyID int64) core.Expense {
	return core.Expense{
		PropertyID: propertyID,
		Title:      "Roof repair",
		Category:   "Repairs",
		Date:       core.NewDate(2024, 12, 10),
		Amount:     core.Money{Cents: 15000},
	}
}

func repairsBudget(propertyID int64) core.Budget {
	return core.Budget{PropertyID: propertyID, Category: "Repairs", Amount: core.Money{Cents: 20000}, Month: 12, Year: 2024}
}

func TestCreateExpensePublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev ledger.Event) error {
		assert.Equal(t, ledger.EventCreated, ev.Type)
		assert.Equal(t, ledger.EntityExpense, ev.Entity)
		assert.Equal(t, owner, ev.OwnerID)
		assert.Equal(t, []ledger.Period{{PropertyID: f.home.ID, Year: 2024, Month: 12}}, ev.Periods)
		return nil
	})

	created, err := f.svc.CreateExpense(ctx, owner, roofRepair(f.home.ID))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, owner, created.OwnerID)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	_, err := f.svc.CreateExpense(context.Background(), owner, roofRepair(f.home.ID))
	assert.NoError(t, err)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := roofRepair(f.home.ID)
	bad.Title = ""
	_, err := f.svc.CreateExpense(ctx, owner, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	bad = roofRepair(f.home.ID)
	bad.Amount = core.Money{}
	_, err = f.svc.CreateExpense(ctx, owner, bad)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.svc.CreateExpense(ctx, owner, roofRepair(f.foreign.ID))
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := f.svc.ListExpenses(ctx, owner, &f.home.ID, ledger.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected creates leave nothing behind")
}

func TestForeignRecordsAreNotFound(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	ctx := context.Background()

	e, err := f.svc.CreateExpense(ctx, stranger, roofRepair(f.foreign.ID))
	require.NoError(t, err)
	b, err := f.svc.CreateBudget(ctx, stranger, repairsBudget(f.foreign.ID))
	require.NoError(t, err)

	_, err = f.svc.GetExpense(ctx, owner, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	title := "mine now"
	_, err = f.svc.UpdateExpense(ctx, owner, e.ID, core.ExpensePatch{Title: &title})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, owner, e.ID), core.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteBudget(ctx, owner, b.ID), core.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, owner, 9999), core.ErrNotFound)

	_, err = f.svc.ListExpenses(ctx, owner, &f.foreign.ID, ledger.ExpenseFilter{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	still, err := f.svc.GetExpense(ctx, stranger, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roof repair", still.Title)
}

func TestListWithoutPropertyUsesPrimary(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	ctx := context.Background()

	_, err := f.svc.CreateExpense(ctx, owner, roofRepair(f.home.ID))
	require.NoError(t, err)
	_, err = f.svc.CreateExpense(ctx, owner, roofRepair(f.cabin.ID))
	require.NoError(t, err)

	list, err := f.svc.ListExpenses(ctx, owner, nil, ledger.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.home.ID, list[0].PropertyID)

	none, err := f.svc.ListBudgets(ctx, 42, nil, ledger.BudgetFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateExpenseMovesBetweenProperties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	e, err := f.svc.CreateExpense(ctx, owner, roofRepair(f.home.ID))
	require.NoError(t, err)

	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev ledger.Event) error {
		assert.Equal(t, ledger.EventUpdated, ev.Type)
		assert.Equal(t, []ledger.Period{
			{PropertyID: f.home.ID, Year: 2024, Month: 12},
			{PropertyID: f.cabin.ID, Year: 2025, Month: 1},
		}, ev.Periods)
		return nil
	})
	date := core.NewDate(2025, 1, 3)
	moved, err := f.svc.UpdateExpense(ctx, owner, e.ID, core.ExpensePatch{PropertyID: &f.cabin.ID, Date: &date})
	require.NoError(t, err)
	assert.Equal(t, f.cabin.ID, moved.PropertyID)
	assert.Equal(t, "Roof repair", moved.Title)

	_, err = f.svc.UpdateExpense(ctx, owner, e.ID, core.ExpensePatch{PropertyID: &f.foreign.ID})
	assert.ErrorIs(t, err, core.ErrNotFound)

	zero := core.Money{}
	_, err = f.svc.UpdateExpense(ctx, owner, e.ID, core.ExpensePatch{Amount: &zero})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestDuplicateBudgetConflicts(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	ctx := context.Background()

	_, err := f.svc.CreateBudget(ctx, owner, repairsBudget(f.home.ID))
	require.NoError(t, err)
	_, err = f.svc.CreateBudget(ctx, owner, repairsBudget(f.home.ID))
	assert.ErrorIs(t, err, core.ErrBudgetExists)
	assert.ErrorIs(t, err, core.ErrConflict)

	// same key on another property is fine
	_, err = f.svc.CreateBudget(ctx, owner, repairsBudget(f.cabin.ID))
	assert.NoError(t, err)
}

func TestBudgetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	zero := repairsBudget(f.home.ID)
	zero.Amount = core.Money{}
	_, err := f.svc.CreateBudget(ctx, owner, zero)
	assert.ErrorIs(t, err, core.ErrValidation)

	month := repairsBudget(f.home.ID)
	month.Month = 0
	_, err = f.svc.CreateBudget(ctx, owner, month)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	year := repairsBudget(f.home.ID)
	year.Year = 2101
	_, err = f.svc.CreateBudget(ctx, owner, year)
	assert.ErrorIs(t, err, core.ErrInvalidYear)

	bad := 13
	_, err = f.svc.ListBudgets(ctx, owner, nil, ledger.BudgetFilter{Month: &bad})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestUpdateBudgetRechecksKey(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	ctx := context.Background()

	dec, err := f.svc.CreateBudget(ctx, owner, repairsBudget(f.home.ID))
	require.NoError(t, err)
	nov := repairsBudget(f.home.ID)
	nov.Month = 11
	nov, err = f.svc.CreateBudget(ctx, owner, nov)
	require.NoError(t, err)

	twelve := 12
	_, err = f.svc.UpdateBudget(ctx, owner, nov.ID, core.BudgetPatch{Month: &twelve})
	assert.ErrorIs(t, err, core.ErrBudgetExists)

	// rewriting its own key is not a conflict
	amount := core.Money{Cents: 25000}
	updated, err := f.svc.UpdateBudget(ctx, owner, dec.ID, core.BudgetPatch{Month: &twelve, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), updated.Amount.Cents)

	gardening := "Landscaping"
	updated, err = f.svc.UpdateBudget(ctx, owner, nov.ID, core.BudgetPatch{Category: &gardening, Month: &twelve})
	require.NoError(t, err)
	assert.Equal(t, core.BudgetKey{PropertyID: f.home.ID, Category: "Landscaping", Month: 12, Year: 2024}, updated.Key())

	list, err := f.svc.ListBudgets(ctx, owner, &f.home.ID, ledger.BudgetFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Landscaping", list[0].Category)
	assert.Equal(t, "Repairs", list[1].Category)
}

func TestConcurrentBudgetCreation(t *testing.T) {
	f := newFixture(t)
	f.quiet()
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.CreateBudget(ctx, owner, repairsBudget(f.home.ID))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, core.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}
