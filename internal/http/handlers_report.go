package http

import (
	"context"
	"net/http"

	"homeledger/internal/report"
)

// ReportService builds the variance reports.
type ReportService interface {
	MonthlySummary(ctx context.Context, owner, propertyID int64, year, month int) (report.MonthlySummary, error)
	YearlySummary(ctx context.Context, owner, propertyID int64, year int) (report.YearlySummary, error)
	PropertyComparison(ctx context.Context, owner int64, q report.ComparisonQuery) (report.Comparison, error)
}

const propertyNotFound = "Property not found"

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	q := r.URL.Query()
	propertyID, err1 := requireQueryInt(q, "property_id")
	year, err2 := requireQueryInt(q, "year")
	month, err3 := requireQueryInt(q, "month")
	if err := firstErr(err1, err2, err3); err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	summary, err := s.reports.MonthlySummary(r.Context(), owner, int64(propertyID), year, month)
	if err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	q := r.URL.Query()
	propertyID, err1 := requireQueryInt(q, "property_id")
	year, err2 := requireQueryInt(q, "year")
	if err := firstErr(err1, err2); err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	summary, err := s.reports.YearlySummary(r.Context(), owner, int64(propertyID), year)
	if err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePropertyComparison(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	q := r.URL.Query()
	year, err1 := requireQueryInt(q, "year")
	month, err2 := queryInt(q, "month")
	propertyID, err3 := queryInt64(q, "property_id")
	if err := firstErr(err1, err2, err3); err != nil {
		writeError(w, r, err, propertyNotFound)
		return
	}

	cmp, err := s.reports.PropertyComparison(r.Context(), owner, report.ComparisonQuery{
		Year:       year,
		Month:      month,
		Category:   queryString(q, "category"),
		PropertyID: propertyID,
	})
	if err != nil {
		writeError(w, r, err, "No properties found")
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
