package report

import (
	"github.com/shopspring/decimal"

	"homeledger/internal/core"
)

// MonthPeriod identifies the month a monthly summary covers.
type MonthPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthlyCategory is one category row of a monthly summary.
type MonthlyCategory struct {
	Summary
	Detail []core.Expense `json:"detail"`
}

type MonthlySummary struct {
	Property   core.Property              `json:"property"`
	Period     MonthPeriod                `json:"period"`
	Totals     Summary                    `json:"totals"`
	Categories map[string]MonthlyCategory `json:"categories"`
}

// ComposeMonthly builds the monthly summary from the month's expenses and
// budgets. Totals are summed from the category rows.
func ComposeMonthly(p core.Property, year, month int, expenses []core.Expense, budgets []core.Budget) MonthlySummary {
	groups := GroupByCategory(expenses)
	planned := BudgetByCategory(budgets)

	out := MonthlySummary{
		Property:   p,
		Period:     MonthPeriod{Year: year, Month: month},
		Categories: make(map[string]MonthlyCategory),
	}
	var spentTotal, budgetTotal core.Money
	for _, category := range CategorySet(expenses, budgets) {
		detail := groups[category]
		if detail == nil {
			detail = []core.Expense{}
		}
		row := Summarize(planned[category], Sum(detail))
		spentTotal = spentTotal.Add(row.Expenses)
		budgetTotal = budgetTotal.Add(row.Budget)
		out.Categories[category] = MonthlyCategory{Summary: row, Detail: detail}
	}
	out.Totals = Summarize(budgetTotal, spentTotal)
	return out
}

// MonthTotals is one month bucket of a yearly summary. Categories carries
// expense sums only; budgets are compared per month and per year.
type MonthTotals struct {
	TotalExpenses core.Money            `json:"total_expenses"`
	TotalBudget   core.Money            `json:"total_budget"`
	Variance      core.Money            `json:"variance"`
	Categories    map[string]core.Money `json:"categories"`
}

type YearTotals struct {
	Expenses core.Money `json:"expenses"`
	Budget   core.Money `json:"budget"`
	Variance core.Money `json:"variance"`
}

type YearlySummary struct {
	Property       core.Property         `json:"property"`
	Year           int                   `json:"year"`
	MonthlyData    map[int]MonthTotals   `json:"monthly_data"`
	YearlyTotals   YearTotals            `json:"yearly_totals"`
	CategoryTotals map[string]core.Money `json:"category_totals"`
}

// ComposeYearly builds the yearly summary. All twelve months are present
// even without activity; records outside the year are ignored.
func ComposeYearly(p core.Property, year int, expenses []core.Expense, budgets []core.Budget) YearlySummary {
	out := YearlySummary{
		Property:       p,
		Year:           year,
		MonthlyData:    make(map[int]MonthTotals, 12),
		CategoryTotals: make(map[string]core.Money),
	}

	for _, bucket := range core.MonthBuckets(year) {
		var inMonth []core.Expense
		for _, e := range expenses {
			if bucket.Range.Contains(e.Date) {
				inMonth = append(inMonth, e)
			}
		}
		var planned core.Money
		for _, b := range budgets {
			if b.Year == year && b.Month == bucket.Month {
				planned = planned.Add(b.Amount)
			}
		}

		spent := Sum(inMonth)
		out.MonthlyData[bucket.Month] = MonthTotals{
			TotalExpenses: spent,
			TotalBudget:   planned,
			Variance:      Variance(planned, spent),
			Categories:    SumByCategory(inMonth),
		}
		out.YearlyTotals.Expenses = out.YearlyTotals.Expenses.Add(spent)
		out.YearlyTotals.Budget = out.YearlyTotals.Budget.Add(planned)
		for category, amount := range SumByCategory(inMonth) {
			out.CategoryTotals[category] = out.CategoryTotals[category].Add(amount)
		}
	}
	out.YearlyTotals.Variance = Variance(out.YearlyTotals.Budget, out.YearlyTotals.Expenses)
	return out
}

// ComparisonQuery selects the comparison period. Month and Category are
// optional; PropertyID defaults to the owner's primary property.
type ComparisonQuery struct {
	Year       int
	Month      *int
	Category   *string
	PropertyID *int64
}

type ComparisonPeriod struct {
	Year     int     `json:"year"`
	Month    *int    `json:"month"`
	Category *string `json:"category"`
}

// PropertyTotals is one property's expense totals in a comparison.
type PropertyTotals struct {
	ID            int64                 `json:"id"`
	Address       string                `json:"address"`
	City          string                `json:"city"`
	State         string                `json:"state"`
	Categories    map[string]core.Money `json:"categories"`
	TotalExpenses core.Money            `json:"total_expenses"`
}

type Averages struct {
	Total      core.Money            `json:"total"`
	Categories map[string]core.Money `json:"categories"`
}

type Comparison struct {
	Period     ComparisonPeriod `json:"period"`
	Properties []PropertyTotals `json:"properties"`
	Averages   Averages         `json:"averages"`
}

// Range returns the date range the query covers.
func (q ComparisonQuery) Range() (core.DateRange, error) {
	if q.Month != nil {
		return core.MonthRange(q.Year, *q.Month)
	}
	return core.YearRange(q.Year), nil
}

// TotalsFor sums a property's expenses, honouring the category filter.
func TotalsFor(p core.Property, expenses []core.Expense, category *string) PropertyTotals {
	var kept []core.Expense
	for _, e := range expenses {
		if category == nil || e.Category == *category {
			kept = append(kept, e)
		}
	}
	return PropertyTotals{
		ID:            p.ID,
		Address:       p.Address,
		City:          p.City,
		State:         p.State,
		Categories:    SumByCategory(kept),
		TotalExpenses: Sum(kept),
	}
}

// ComposeComparison lists the properties and their per-property averages.
// With a single property the averages equal its own totals.
func ComposeComparison(q ComparisonQuery, properties []PropertyTotals) Comparison {
	return Comparison{
		Period:     ComparisonPeriod{Year: q.Year, Month: q.Month, Category: q.Category},
		Properties: properties,
		Averages:   average(properties),
	}
}

func average(properties []PropertyTotals) Averages {
	out := Averages{Categories: make(map[string]core.Money)}
	if len(properties) == 0 {
		return out
	}
	n := decimal.NewFromInt(int64(len(properties)))
	mean := func(total core.Money) core.Money {
		return core.Money{Cents: decimal.NewFromInt(total.Cents).Div(n).Round(0).IntPart()}
	}

	var total core.Money
	sums := make(map[string]core.Money)
	for _, p := range properties {
		total = total.Add(p.TotalExpenses)
		for c, amount := range p.Categories {
			sums[c] = sums[c].Add(amount)
		}
	}
	out.Total = mean(total)
	for c, amount := range sums {
		out.Categories[c] = mean(amount)
	}
	return out
}
