package http

import (
	"context"
	"net/http"

	"homeledger/internal/auth"
	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

// LedgerService is the record API the handlers drive.
type LedgerService interface {
	ListExpenses(ctx context.Context, owner int64, propertyID *int64, f ledger.ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, owner, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, owner int64, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, owner, id int64, patch core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, owner, id int64) error

	ListBudgets(ctx context.Context, owner int64, propertyID *int64, f ledger.BudgetFilter) ([]core.Budget, error)
	GetBudget(ctx context.Context, owner, id int64) (core.Budget, error)
	CreateBudget(ctx context.Context, owner int64, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, owner, id int64, patch core.BudgetPatch) (core.Budget, error)
	DeleteBudget(ctx context.Context, owner, id int64) error
}

const (
	expenseNotFound = "Expense not found"
	budgetNotFound  = "Budget not found"
)

// ownerOf returns the authenticated owner. Routes are mounted behind the
// auth middleware, so a missing owner is a wiring fault.
func ownerOf(r *http.Request) (int64, error) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		return 0, errNoOwner
	}
	return owner, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}

	q := r.URL.Query()
	propertyID, err1 := queryInt64(q, "property_id")
	start, err2 := queryDate(q, "start_date")
	end, err3 := queryDate(q, "end_date")
	if err := firstErr(err1, err2, err3); err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	filter := ledger.ExpenseFilter{Start: start, End: end}
	if c := queryString(q, "category"); c != nil {
		filter.Category = *c
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), owner, propertyID, filter)
	if err != nil {
		writeError(w, r, err, "Property not found")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}

	e, err := s.ledger.GetExpense(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	e, err := parseNewExpense(body)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}

	created, err := s.ledger.CreateExpense(r.Context(), owner, e)
	if err != nil {
		writeError(w, r, err, "Property not found")
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		ID:      created.ID,
		Title:   created.Title,
		Message: "Expense created successfully",
	})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	patch, err := parseExpensePatch(body)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}

	updated, err := s.ledger.UpdateExpense(r.Context(), owner, id, patch)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		ID:      updated.ID,
		Title:   updated.Title,
		Message: "Expense updated successfully",
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), owner, id); err != nil {
		writeError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Expense deleted successfully"})
}

func (s *Server) handleExpenseCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.ExpenseCategories())
}
