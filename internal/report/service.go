package report

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
)

// The upper bound keeps every period end within four-digit years, which
// SQLite compares as text.
const (
	minReportYear = 1
	maxReportYear = 9998
)

var errReportYear = core.Invalid("year", fmt.Sprintf("must be between %d and %d", minReportYear, maxReportYear))

// Source is the part of the ledger store reports read from.
type Source interface {
	ExpensesBetween(ctx context.Context, propertyID int64, r core.DateRange) ([]core.Expense, error)
	ListBudgets(ctx context.Context, propertyID int64, f ledger.BudgetFilter) ([]core.Budget, error)
}

// Service computes reports on demand from the store. Nothing is cached
// between calls.
type Service struct {
	source Source
	props  ledger.PropertyResolver
	logger *log.Logger
}

func NewService(source Source, props ledger.PropertyResolver, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{source: source, props: props, logger: logger.WithComponent(log.ComponentReport)}
}

func validateYear(year int) error {
	if year < minReportYear || year > maxReportYear {
		return errReportYear
	}
	return nil
}

// load fetches expenses in r and budgets matching f concurrently.
func (s *Service) load(ctx context.Context, propertyID int64, r core.DateRange, f ledger.BudgetFilter) ([]core.Expense, []core.Budget, error) {
	var (
		expenses []core.Expense
		budgets  []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.source.ExpensesBetween(gctx, propertyID, r)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if f.Year != nil {
		g.Go(func() error {
			var err error
			budgets, err = s.source.ListBudgets(gctx, propertyID, f)
			if err != nil {
				return fmt.Errorf("load budgets: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return expenses, budgets, nil
}

// MonthlySummary reports per-category budget variance for one month.
func (s *Service) MonthlySummary(ctx context.Context, owner, propertyID int64, year, month int) (MonthlySummary, error) {
	if err := validateYear(year); err != nil {
		return MonthlySummary{}, err
	}
	r, err := core.MonthRange(year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	p, err := s.props.ResolveAuthorizedProperty(ctx, owner, propertyID)
	if err != nil {
		return MonthlySummary{}, err
	}

	expenses, budgets, err := s.load(ctx, p.ID, r, ledger.BudgetFilter{Year: &year, Month: &month})
	if err != nil {
		s.logger.ErrorContext(ctx, "Monthly summary failed",
			log.NewFields().WithError(err).WithOperation(log.OpReport).WithPeriod(year, month).ToSlice()...)
		return MonthlySummary{}, err
	}
	s.logger.DebugContext(ctx, "Monthly summary computed",
		log.FieldPropertyID, p.ID, log.FieldYear, year, log.FieldMonth, month,
		"expenses", len(expenses), "budgets", len(budgets))
	return ComposeMonthly(p, year, month, expenses, budgets), nil
}

// YearlySummary reports twelve month buckets plus yearly totals.
func (s *Service) YearlySummary(ctx context.Context, owner, propertyID int64, year int) (YearlySummary, error) {
	if err := validateYear(year); err != nil {
		return YearlySummary{}, err
	}
	p, err := s.props.ResolveAuthorizedProperty(ctx, owner, propertyID)
	if err != nil {
		return YearlySummary{}, err
	}

	expenses, budgets, err := s.load(ctx, p.ID, core.YearRange(year), ledger.BudgetFilter{Year: &year})
	if err != nil {
		s.logger.ErrorContext(ctx, "Yearly summary failed",
			log.NewFields().WithError(err).WithOperation(log.OpReport).WithPeriod(year, 0).ToSlice()...)
		return YearlySummary{}, err
	}
	return ComposeYearly(p, year, expenses, budgets), nil
}

// PropertyComparison reports expense totals for the selected property.
func (s *Service) PropertyComparison(ctx context.Context, owner int64, q ComparisonQuery) (Comparison, error) {
	if err := validateYear(q.Year); err != nil {
		return Comparison{}, err
	}
	r, err := q.Range()
	if err != nil {
		return Comparison{}, err
	}

	var p core.Property
	if q.PropertyID != nil {
		p, err = s.props.ResolveAuthorizedProperty(ctx, owner, *q.PropertyID)
	} else {
		p, err = s.props.PrimaryProperty(ctx, owner)
	}
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Comparison{}, fmt.Errorf("no property found: %w", core.ErrNotFound)
		}
		return Comparison{}, err
	}

	expenses, _, err := s.load(ctx, p.ID, r, ledger.BudgetFilter{})
	if err != nil {
		return Comparison{}, err
	}
	return ComposeComparison(q, []PropertyTotals{TotalsFor(p, expenses, q.Category)}), nil
}
