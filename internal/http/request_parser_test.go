package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeledger/internal/core"
)

func bodyOf(t *testing.T, s string) bodyFields {
	t.Helper()
	f, err := decodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(s)))
	require.NoError(t, err)
	return f
}

func TestDecodeBodyRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "   ", "null", `"text"`, "[]", "{", strings.Repeat(" ", maxBodyBytes+1) + "{}"} {
		_, err := decodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		assert.ErrorIs(t, err, core.ErrValidation, "body %.20q", body)
	}
}

func TestBodyFieldAccessors(t *testing.T) {
	f := bodyOf(t, `{"id": "42", "n": 7, "bad": "x", "title": "  Rent  ", "flag": true, "amount": 12.345, "date": "2024-02-29"}`)

	id, err := f.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), *id)

	n, err := f.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 7, *n)

	_, err = f.Int64("bad")
	assert.EqualError(t, err, "bad: must be an integer")

	title, err := f.String("title")
	require.NoError(t, err)
	assert.Equal(t, "Rent", *title)

	_, err = f.String("n")
	assert.EqualError(t, err, "n: must be a string")

	flag, err := f.Bool("flag")
	require.NoError(t, err)
	assert.True(t, *flag)

	amount, err := f.Money("amount")
	require.NoError(t, err)
	assert.Equal(t, int64(1235), amount.Cents)

	date, err := f.Date("date")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", date.String())

	missing, err := f.String("nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseExpensePatchKeepsAbsentFieldsNil(t *testing.T) {
	p, err := parseExpensePatch(bodyOf(t, `{"description": "", "recurring": false}`))
	require.NoError(t, err)

	require.NotNil(t, p.Description)
	assert.Equal(t, "", *p.Description)
	require.NotNil(t, p.Recurring)
	assert.False(t, *p.Recurring)
	assert.Nil(t, p.Title)
	assert.Nil(t, p.Amount)
	assert.Nil(t, p.Date)
	assert.Nil(t, p.PropertyID)

	_, err = parseExpensePatch(bodyOf(t, `{"amount": 0}`))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestParseNewExpenseRequiresFields(t *testing.T) {
	_, err := parseNewExpense(bodyOf(t, `{"property_id": 1, "title": "x", "amount": 5, "date": "2024-01-01"}`))
	assert.EqualError(t, err, "category: is required")

	e, err := parseNewExpense(bodyOf(t, `{"property_id": "3", "title": "x", "amount": "5", "category": "Other", "date": "2024-01-01", "recurring": true, "recurring_interval": "monthly"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.PropertyID)
	assert.Equal(t, int64(500), e.Amount.Cents)
	assert.True(t, e.Recurring)
	assert.Equal(t, "monthly", e.RecurringInterval)
}

func TestParseBudgetPatchNormalisesPeriodErrors(t *testing.T) {
	_, err := parseBudgetPatch(bodyOf(t, `{"month": "March"}`))
	assert.True(t, errors.Is(err, core.ErrInvalidMonth))

	_, err = parseBudgetPatch(bodyOf(t, `{"year": 20.5}`))
	assert.True(t, errors.Is(err, core.ErrInvalidYear))

	p, err := parseBudgetPatch(bodyOf(t, `{"month": 6}`))
	require.NoError(t, err)
	assert.Equal(t, 6, *p.Month)
	assert.Nil(t, p.Year)
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{"year": {"2024"}, "bad": {"x"}, "from": {"2024-01-31"}, "blank": {"  "}}

	year, err := queryInt(q, "year")
	require.NoError(t, err)
	assert.Equal(t, 2024, *year)

	none, err := queryInt(q, "blank")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = requireQueryInt(q, "month")
	assert.EqualError(t, err, "month: is required")

	_, err = queryInt64(q, "bad")
	assert.EqualError(t, err, "bad: must be an integer")

	from, err := queryDate(q, "from")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", from.String())

	_, err = queryDate(q, "bad")
	assert.ErrorIs(t, err, core.ErrValidation)

	assert.Nil(t, queryString(q, "blank"))
}
