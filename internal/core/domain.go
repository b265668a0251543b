package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DateLayout = "2006-01-02"

	MinBudgetYear = 2000
	MaxBudgetYear = 2100

	maxTitleLen    = 200
	maxCategoryLen = 100
)

type (
	// Date is a calendar date without a time component, always UTC midnight.
	Date struct {
		time.Time
	}

	// Property is the external entity every ledger record belongs to. The
	// ledger only reads it to authorize access and to label reports.
	Property struct {
		ID      int64  `json:"id"`
		OwnerID int64  `json:"-"`
		Address string `json:"address"`
		City    string `json:"city"`
		State   string `json:"state"`
	}

	Expense struct {
		ID                int64     `json:"id"`
		OwnerID           int64     `json:"created_by"`
		PropertyID        int64     `json:"property_id"`
		Title             string    `json:"title"`
		Amount            Money     `json:"amount"`
		Category          string    `json:"category"`
		Date              Date      `json:"date"`
		Description       string    `json:"description"`
		Recurring         bool      `json:"recurring"`
		RecurringInterval string    `json:"recurring_interval,omitempty"`
		CreatedAt         time.Time `json:"created_at"`
		UpdatedAt         time.Time `json:"updated_at"`
	}

	// Budget is the spending plan for one category in one calendar month of
	// one property. (PropertyID, Category, Month, Year) is unique.
	Budget struct {
		ID         int64     `json:"id"`
		OwnerID    int64     `json:"created_by"`
		PropertyID int64     `json:"property_id"`
		Category   string    `json:"category"`
		Amount     Money     `json:"amount"`
		Month      int       `json:"month"`
		Year       int       `json:"year"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	// BudgetKey is the uniqueness key of a Budget.
	BudgetKey struct {
		PropertyID int64
		Category   string
		Month      int
		Year       int
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Key returns the uniqueness key of b.
func (b Budget) Key() BudgetKey {
	return BudgetKey{PropertyID: b.PropertyID, Category: b.Category, Month: b.Month, Year: b.Year}
}

// ValidateMonth checks that month is a calendar month number.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// ValidateBudgetYear checks the year range accepted for budgets.
func ValidateBudgetYear(year int) error {
	if year < MinBudgetYear || year > MaxBudgetYear {
		return ErrInvalidYear
	}
	return nil
}

func (e Expense) Validate() error {
	if e.PropertyID <= 0 {
		return Invalid("property_id", "is required")
	}
	if err := validateText("title", e.Title, maxTitleLen); err != nil {
		return err
	}
	if err := validateText("category", e.Category, maxCategoryLen); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return e.Amount.Validate()
}

func (b Budget) Validate() error {
	if b.PropertyID <= 0 {
		return Invalid("property_id", "is required")
	}
	if err := validateText("category", b.Category, maxCategoryLen); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := ValidateMonth(b.Month); err != nil {
		return err
	}
	return ValidateBudgetYear(b.Year)
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field, "is required")
	}
	if utf8.RuneCountInString(value) > max {
		return Invalid(field, "is too long")
	}
	return nil
}
