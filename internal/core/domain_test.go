package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-12-10")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 12, 10), d)
	assert.Equal(t, 12, d.Month())
	assert.Equal(t, "2024-12-10", d.String())

	for _, bad := range []string{"", "2024-13-01", "10/12/2024", "2024-12-10T00:00:00Z"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateJSON(t *testing.T) {
	out, err := json.Marshal(NewDate(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(out))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, NewDate(2024, 2, 29), d)
	assert.Error(t, json.Unmarshal([]byte(`"2023-02-29"`), &d))
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	d := DateOf(time.Date(2024, 3, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, NewDate(2024, 3, 1), d)
}

func validExpense() Expense {
	return Expense{
		PropertyID: 1,
		Title:      "Roof repair",
		Amount:     Money{Cents: 15000},
		Category:   "Repairs",
		Date:       NewDate(2024, 12, 10),
	}
}

func TestExpenseValidate(t *testing.T) {
	require.NoError(t, validExpense().Validate())

	cases := map[string]func(*Expense){
		"no property":  func(e *Expense) { e.PropertyID = 0 },
		"no title":     func(e *Expense) { e.Title = "  " },
		"long title":   func(e *Expense) { e.Title = strings.Repeat("x", maxTitleLen+1) },
		"no category":  func(e *Expense) { e.Category = "" },
		"no date":      func(e *Expense) { e.Date = Date{} },
		"zero amount":  func(e *Expense) { e.Amount = Money{} },
		"minus amount": func(e *Expense) { e.Amount = Money{Cents: -1} },
	}
	for name, mutate := range cases {
		e := validExpense()
		mutate(&e)
		err := e.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{PropertyID: 1, Category: "Repairs", Amount: Money{Cents: 20000}, Month: 12, Year: 2024}
	require.NoError(t, good.Validate())

	zero := good
	zero.Amount = Money{}
	assert.ErrorIs(t, zero.Validate(), ErrInvalidAmount)

	month := good
	month.Month = 13
	assert.ErrorIs(t, month.Validate(), ErrInvalidMonth)

	year := good
	year.Year = 1999
	assert.ErrorIs(t, year.Validate(), ErrInvalidYear)
	year.Year = 2101
	assert.ErrorIs(t, year.Validate(), ErrInvalidYear)

	for _, err := range []error{zero.Validate(), month.Validate(), year.Validate()} {
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestBudgetPatchReportsKeyChange(t *testing.T) {
	b := Budget{PropertyID: 1, Category: "Repairs", Amount: Money{Cents: 100}, Month: 1, Year: 2024}

	amount := Money{Cents: 500}
	assert.False(t, BudgetPatch{Amount: &amount}.Apply(&b))
	assert.Equal(t, int64(500), b.Amount.Cents)

	month := 2
	assert.True(t, BudgetPatch{Month: &month}.Apply(&b))
	assert.Equal(t, BudgetKey{PropertyID: 1, Category: "Repairs", Month: 2, Year: 2024}, b.Key())
}

func TestExpensePatchAppliesOnlyPresentFields(t *testing.T) {
	e := validExpense()
	e.Description = "keep"
	title := "New roof"
	ExpensePatch{Title: &title}.Apply(&e)
	assert.Equal(t, "New roof", e.Title)
	assert.Equal(t, "keep", e.Description)
	assert.Equal(t, "Repairs", e.Category)
}

func TestExpenseCategoriesIsACopy(t *testing.T) {
	cats := ExpenseCategories()
	require.Len(t, cats, 14)
	cats[0] = "changed"
	assert.Equal(t, "Mortgage", ExpenseCategories()[0])
}
