package http

import (
	"net/http"

	"homeledger/internal/ledger"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	q := r.URL.Query()
	propertyID, err1 := queryInt64(q, "property_id")
	year, err2 := queryInt(q, "year")
	month, err3 := queryInt(q, "month")
	if err := firstErr(err1, err2, err3); err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	budgets, err := s.ledger.ListBudgets(r.Context(), owner, propertyID, ledger.BudgetFilter{Year: year, Month: month})
	if err != nil {
		writeError(w, r, err, "Property not found")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	b, err := s.ledger.GetBudget(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	b, err := parseNewBudget(body)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	created, err := s.ledger.CreateBudget(r.Context(), owner, b)
	if err != nil {
		writeError(w, r, err, "Property not found")
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		ID:       created.ID,
		Category: created.Category,
		Message:  "Budget created successfully",
	})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	patch, err := parseBudgetPatch(body)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	updated, err := s.ledger.UpdateBudget(r.Context(), owner, id, patch)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		ID:       updated.ID,
		Category: updated.Category,
		Message:  "Budget updated successfully",
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}

	if err := s.ledger.DeleteBudget(r.Context(), owner, id); err != nil {
		writeError(w, r, err, budgetNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Budget deleted successfully"})
}
