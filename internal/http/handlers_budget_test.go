package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeledger/internal/core"
)

func (h *harness) createBudget(t *testing.T, category string, amount string, month, year int) int64 {
	t.Helper()
	rr := h.do(t, http.MethodPost, APIPrefix+"/budgets", fmt.Sprintf(
		`{"property_id": %d, "category": %q, "amount": %s, "month": %d, "year": %d}`,
		h.property.ID, category, amount, month, year))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[MessageResponse](t, rr)
	assert.Equal(t, category, resp.Category)
	assert.Equal(t, "Budget created successfully", resp.Message)
	return resp.ID
}

func TestBudgetLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.createBudget(t, "Utilities", "150", 3, 2024)
	path := fmt.Sprintf("%s/budgets/%d", APIPrefix, id)

	rr := h.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	b := decode[core.Budget](t, rr)
	assert.Equal(t, int64(15000), b.Amount.Cents)
	assert.Equal(t, 3, b.Month)
	assert.Equal(t, 2024, b.Year)

	rr = h.do(t, http.MethodPut, path, `{"amount": "175.25", "month": 4}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Budget updated successfully", decode[MessageResponse](t, rr).Message)

	rr = h.do(t, http.MethodGet, path, "")
	b = decode[core.Budget](t, rr)
	assert.Equal(t, int64(17525), b.Amount.Cents)
	assert.Equal(t, 4, b.Month)
	assert.Equal(t, "Utilities", b.Category)

	rr = h.do(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Budget deleted successfully", decode[MessageResponse](t, rr).Message)

	rr = h.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, budgetNotFound, errorOf(t, rr).Message)
}

func TestBudgetUniqueness(t *testing.T) {
	h := newHarness(t)
	h.createBudget(t, "Repairs", "200", 1, 2024)
	other := h.createBudget(t, "Repairs", "200", 2, 2024)

	rr := h.do(t, http.MethodPost, APIPrefix+"/budgets", fmt.Sprintf(
		`{"property_id": %d, "category": "Repairs", "amount": 99, "month": 1, "year": 2024}`, h.property.ID))
	require.Equal(t, http.StatusConflict, rr.Code)
	detail := errorOf(t, rr)
	assert.Equal(t, core.KindConflict, detail.Type)
	assert.Equal(t, "A budget already exists for this category, month, year, and property", detail.Message)

	// moving another budget onto the taken key conflicts too
	rr = h.do(t, http.MethodPatch, fmt.Sprintf("%s/budgets/%d", APIPrefix, other), `{"month": 1}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// an update that keeps its own key is fine
	rr = h.do(t, http.MethodPatch, fmt.Sprintf("%s/budgets/%d", APIPrefix, other), `{"month": 2, "amount": 250}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateBudgetRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	pid := h.property.ID

	tests := []struct {
		name string
		body string
		kind string
		msg  string
	}{
		{"month too large", fmt.Sprintf(`{"property_id": %d, "category": "Repairs", "amount": 10, "month": 13, "year": 2024}`, pid), core.KindValidation, "month: must be between 1 and 12"},
		{"month not a number", fmt.Sprintf(`{"property_id": %d, "category": "Repairs", "amount": 10, "month": "May", "year": 2024}`, pid), core.KindValidation, "month: must be between 1 and 12"},
		{"year out of range", fmt.Sprintf(`{"property_id": %d, "category": "Repairs", "amount": 10, "month": 1, "year": 1999}`, pid), core.KindValidation, "year: must be between 2000 and 2100"},
		{"missing category", fmt.Sprintf(`{"property_id": %d, "amount": 10, "month": 1, "year": 2024}`, pid), core.KindValidation, "category: is required"},
		{"null amount", fmt.Sprintf(`{"property_id": %d, "category": "Repairs", "amount": null, "month": 1, "year": 2024}`, pid), core.KindValidation, "amount: is required"},
		{"zero amount", fmt.Sprintf(`{"property_id": %d, "category": "Repairs", "amount": "0.00", "month": 1, "year": 2024}`, pid), core.KindInvalidAmount, "amount: must be a positive decimal number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, http.MethodPost, APIPrefix+"/budgets", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			detail := errorOf(t, rr)
			assert.Equal(t, tt.kind, detail.Type)
			assert.Equal(t, tt.msg, detail.Message)
		})
	}
}

func TestListBudgetsFilters(t *testing.T) {
	h := newHarness(t)
	h.createBudget(t, "Utilities", "100", 1, 2024)
	h.createBudget(t, "Repairs", "100", 1, 2024)
	h.createBudget(t, "Repairs", "100", 2, 2024)
	h.createBudget(t, "Repairs", "100", 1, 2025)

	rr := h.do(t, http.MethodGet, APIPrefix+"/budgets?year=2024&month=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]core.Budget](t, rr)
	require.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, 1, b.Month)
		assert.Equal(t, 2024, b.Year)
	}

	rr = h.do(t, http.MethodGet, APIPrefix+"/budgets?year=2024", "")
	require.Len(t, decode[[]core.Budget](t, rr), 3)

	rr = h.do(t, http.MethodGet, APIPrefix+"/budgets", "")
	require.Len(t, decode[[]core.Budget](t, rr), 4)

	rr = h.do(t, http.MethodGet, APIPrefix+"/budgets?month=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = h.do(t, http.MethodGet, APIPrefix+"/budgets?year=twenty", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
