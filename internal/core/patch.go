package core

// ExpensePatch holds the fields present in a partial update. Nil means
// "leave unchanged".
type ExpensePatch struct {
	PropertyID        *int64
	Title             *string
	Amount            *Money
	Category          *string
	Date              *Date
	Description       *string
	Recurring         *bool
	RecurringInterval *string
}

// Apply copies the present fields onto e. Identity and owner never change.
func (p ExpensePatch) Apply(e *Expense) {
	if p.PropertyID != nil {
		e.PropertyID = *p.PropertyID
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Recurring != nil {
		e.Recurring = *p.Recurring
	}
	if p.RecurringInterval != nil {
		e.RecurringInterval = *p.RecurringInterval
	}
}

// BudgetPatch holds the fields present in a partial budget update.
type BudgetPatch struct {
	PropertyID *int64
	Category   *string
	Amount     *Money
	Month      *int
	Year       *int
}

// Apply copies the present fields onto b and reports whether the uniqueness
// key changed.
func (p BudgetPatch) Apply(b *Budget) (keyChanged bool) {
	before := b.Key()
	if p.PropertyID != nil {
		b.PropertyID = *p.PropertyID
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	return b.Key() != before
}
