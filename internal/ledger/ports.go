// Package ledger owns expense and budget records scoped to an authorized
// property.
package ledger

import (
	"context"

	"homeledger/internal/core"
)

// ExpenseFilter narrows an expense listing. Nil or empty fields impose no
// constraint. End is inclusive.
type ExpenseFilter struct {
	Start    *core.Date
	End      *core.Date
	Category string
}

// BudgetFilter narrows a budget listing.
type BudgetFilter struct {
	Year  *int
	Month *int
}

// Store persists expenses and budgets. Implementations must enforce the
// budget key uniqueness themselves and report violations as core.ErrConflict.
//
// Update and delete are guarded by propertyID: a record that no longer
// belongs to that property is reported as core.ErrNotFound.
type Store interface {
	ListExpenses(ctx context.Context, propertyID int64, f ExpenseFilter) ([]core.Expense, error)
	// ExpensesBetween returns the expenses of a property dated inside r,
	// ordered by date then id.
	ExpensesBetween(ctx context.Context, propertyID int64, r core.DateRange) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, id, propertyID int64, apply func(*core.Expense) error) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, propertyID int64) error

	ListBudgets(ctx context.Context, propertyID int64, f BudgetFilter) ([]core.Budget, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	FindBudget(ctx context.Context, key core.BudgetKey) (core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, id, propertyID int64, apply func(*core.Budget) error) (core.Budget, error)
	DeleteBudget(ctx context.Context, id, propertyID int64) error
}

// PropertyResolver authorizes property access for an owner. Both a missing
// property and one owned by somebody else yield core.ErrNotFound.
type PropertyResolver interface {
	ResolveAuthorizedProperty(ctx context.Context, owner, propertyID int64) (core.Property, error)
	// PrimaryProperty returns the owner's first property, or core.ErrNotFound.
	PrimaryProperty(ctx context.Context, owner int64) (core.Property, error)
}

//go:generate mockgen -destination=mock_publisher.go -package=ledger homeledger/internal/ledger EventPublisher

// EventPublisher receives an event after every committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
