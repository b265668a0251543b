// Package http serves the finances JSON API.
//
// This file holds the helpers that turn query strings and JSON bodies into
// core values. Bodies are decoded field by field so that a partial update can
// tell an absent field from a zero value.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"homeledger/internal/core"
)

const maxBodyBytes = 1 << 20

// bodyFields is a decoded JSON object keyed by field name.
type bodyFields map[string]json.RawMessage

// decodeBody reads a JSON object from the request body.
func decodeBody(r *http.Request) (bodyFields, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, core.Invalid("body", "could not be read")
	}
	if len(data) > maxBodyBytes {
		return nil, core.Invalid("body", "is too large")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, core.Invalid("body", "must be a JSON object")
	}
	var f bodyFields
	if err := json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, core.Invalid("body", "must be a JSON object")
	}
	return f, nil
}

func (f bodyFields) present(key string) (json.RawMessage, bool) {
	raw, ok := f[key]
	return raw, ok
}

// String returns the trimmed string value of key, or nil when absent.
func (f bodyFields) String(key string) (*string, error) {
	raw, ok := f.present(key)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, core.Invalid(key, "must be a string")
	}
	s = strings.TrimSpace(s)
	return &s, nil
}

// Int64 accepts a JSON integer or a numeric string.
func (f bodyFields) Int64(key string) (*int64, error) {
	raw, ok := f.present(key)
	if !ok {
		return nil, nil
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, core.Invalid(key, "must be an integer")
		}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, core.Invalid(key, "must be an integer")
	}
	return &n, nil
}

// Int is Int64 narrowed to int.
func (f bodyFields) Int(key string) (*int, error) {
	n, err := f.Int64(key)
	if err != nil || n == nil {
		return nil, err
	}
	v := int(*n)
	return &v, nil
}

// Money parses an amount from its raw JSON token.
func (f bodyFields) Money(key string) (*core.Money, error) {
	raw, ok := f.present(key)
	if !ok {
		return nil, nil
	}
	m, err := core.ParseAmountJSON(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Date parses a YYYY-MM-DD string.
func (f bodyFields) Date(key string) (*core.Date, error) {
	raw, ok := f.present(key)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, core.ErrInvalidDate
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Bool returns the boolean value of key, or nil when absent.
func (f bodyFields) Bool(key string) (*bool, error) {
	raw, ok := f.present(key)
	if !ok {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, core.Invalid(key, "must be a boolean")
	}
	return &b, nil
}

// require reports the first of keys missing from the body.
func (f bodyFields) require(keys ...string) error {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return core.Invalid(k, "is required")
		}
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// parseExpensePatch reads the expense fields present in the body.
func parseExpensePatch(f bodyFields) (core.ExpensePatch, error) {
	var p core.ExpensePatch
	var errs [8]error
	p.PropertyID, errs[0] = f.Int64("property_id")
	p.Title, errs[1] = f.String("title")
	p.Amount, errs[2] = f.Money("amount")
	p.Category, errs[3] = f.String("category")
	p.Date, errs[4] = f.Date("date")
	p.Description, errs[5] = f.String("description")
	p.Recurring, errs[6] = f.Bool("recurring")
	p.RecurringInterval, errs[7] = f.String("recurring_interval")
	return p, firstErr(errs[:]...)
}

// parseNewExpense builds an expense from a create request.
func parseNewExpense(f bodyFields) (core.Expense, error) {
	if err := f.require("property_id", "title", "amount", "category", "date"); err != nil {
		return core.Expense{}, err
	}
	p, err := parseExpensePatch(f)
	if err != nil {
		return core.Expense{}, err
	}
	var e core.Expense
	p.Apply(&e)
	return e, nil
}

// parseBudgetPatch reads the budget fields present in the body.
func parseBudgetPatch(f bodyFields) (core.BudgetPatch, error) {
	var p core.BudgetPatch
	var errs [5]error
	p.PropertyID, errs[0] = f.Int64("property_id")
	p.Category, errs[1] = f.String("category")
	p.Amount, errs[2] = f.Money("amount")
	p.Month, errs[3] = f.Int("month")
	p.Year, errs[4] = f.Int("year")
	if errs[3] != nil {
		errs[3] = core.ErrInvalidMonth
	}
	if errs[4] != nil {
		errs[4] = core.ErrInvalidYear
	}
	return p, firstErr(errs[:]...)
}

// parseNewBudget builds a budget from a create request.
func parseNewBudget(f bodyFields) (core.Budget, error) {
	if err := f.require("property_id", "category", "amount", "month", "year"); err != nil {
		return core.Budget{}, err
	}
	p, err := parseBudgetPatch(f)
	if err != nil {
		return core.Budget{}, err
	}
	var b core.Budget
	p.Apply(&b)
	return b, nil
}

// pathID reads a positive integer route parameter. Anything else cannot name
// a record and is reported as not found.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(q url.Values, key string) (*int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, core.Invalid(key, "must be an integer")
	}
	return &n, nil
}

// requireQueryInt parses a mandatory integer query parameter.
func requireQueryInt(q url.Values, key string) (int, error) {
	n, err := queryInt(q, key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, core.Invalid(key, "is required")
	}
	return *n, nil
}

// queryInt64 parses an optional id query parameter.
func queryInt64(q url.Values, key string) (*int64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, core.Invalid(key, "must be an integer")
	}
	return &n, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(q url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, core.Invalid(key, "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

// queryString returns the trimmed parameter or nil when empty.
func queryString(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

var errNoOwner = errors.New("no authenticated owner in request context")
