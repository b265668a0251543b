// Package report turns ledger records into variance reports. Everything in
// this file is pure: no I/O, integer cents only.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"homeledger/internal/core"
)

// Status tells whether a category stayed within its budget.
type Status string

const (
	StatusUnderBudget Status = "under_budget"
	StatusOverBudget  Status = "over_budget"
)

// Summary is the budget-versus-actual block shared by every report row.
type Summary struct {
	Expenses        core.Money `json:"expenses"`
	Budget          core.Money `json:"budget"`
	Variance        core.Money `json:"variance"`
	VariancePercent *float64   `json:"variance_percent"`
	Status          Status     `json:"status"`
}

// Sum adds expense amounts.
func Sum(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// SumBudgets adds budget amounts.
func SumBudgets(budgets []core.Budget) core.Money {
	var total core.Money
	for _, b := range budgets {
		total = total.Add(b.Amount)
	}
	return total
}

// GroupByCategory buckets expenses by category, keeping input order.
func GroupByCategory(expenses []core.Expense) map[string][]core.Expense {
	out := make(map[string][]core.Expense)
	for _, e := range expenses {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}

// SumByCategory returns the expense total per category.
func SumByCategory(expenses []core.Expense) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// BudgetByCategory returns the budget total per category.
func BudgetByCategory(budgets []core.Budget) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, b := range budgets {
		out[b.Category] = out[b.Category].Add(b.Amount)
	}
	return out
}

// CategorySet is the sorted union of categories seen in either list.
func CategorySet(expenses []core.Expense, budgets []core.Budget) []string {
	seen := make(map[string]struct{})
	for _, e := range expenses {
		seen[e.Category] = struct{}{}
	}
	for _, b := range budgets {
		seen[b.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Variance is budget minus spent; positive means money left.
func Variance(budget, spent core.Money) core.Money {
	return budget.Sub(spent)
}

// StatusOf maps a variance to a status. Zero counts as under budget.
func StatusOf(variance core.Money) Status {
	if variance.Cents >= 0 {
		return StatusUnderBudget
	}
	return StatusOverBudget
}

// VariancePercent is variance/budget*100 rounded to two places, or nil when
// there is no budget to compare against.
func VariancePercent(variance, budget core.Money) *float64 {
	if budget.Cents <= 0 {
		return nil
	}
	pct := decimal.NewFromInt(variance.Cents).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(budget.Cents), 2)
	f, _ := pct.Float64()
	return &f
}

// Summarize builds the summary block for one budget/spend pair.
func Summarize(budget, spent core.Money) Summary {
	v := Variance(budget, spent)
	return Summary{
		Expenses:        spent,
		Budget:          budget,
		Variance:        v,
		VariancePercent: VariancePercent(v, budget),
		Status:          StatusOf(v),
	}
}
