package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeledger/internal/core"
	"homeledger/internal/log"
)

// Service orchestrates ledger operations: authorization through the owning
// property, validation, persistence and change events.
type Service struct {
	store     Store
	props     PropertyResolver
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
}

// NewService wires a Service. publisher may be nil, in which case no events
// are emitted.
func NewService(store Store, props PropertyResolver, publisher EventPublisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &Service{
		store:     store,
		props:     props,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// scope resolves the property a listing applies to. With no explicit id the
// owner's primary property is used; ok is false when the owner has none.
func (s *Service) scope(ctx context.Context, owner int64, propertyID *int64) (core.Property, bool, error) {
	if propertyID != nil {
		p, err := s.props.ResolveAuthorizedProperty(ctx, owner, *propertyID)
		if err != nil {
			return core.Property{}, false, err
		}
		return p, true, nil
	}
	p, err := s.props.PrimaryProperty(ctx, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.Property{}, false, nil
	}
	if err != nil {
		return core.Property{}, false, err
	}
	return p, true, nil
}

// ListExpenses returns the property's expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, owner int64, propertyID *int64, f ExpenseFilter) ([]core.Expense, error) {
	p, ok, err := s.scope(ctx, owner, propertyID)
	if err != nil || !ok {
		return []core.Expense{}, err
	}
	out, err := s.store.ListExpenses(ctx, p.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// GetExpense returns one expense if its property belongs to owner.
func (s *Service) GetExpense(ctx context.Context, owner, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, e.PropertyID); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// CreateExpense validates and stores a new expense.
func (s *Service) CreateExpense(ctx context.Context, owner int64, e core.Expense) (core.Expense, error) {
	e.ID = 0
	e.OwnerID = owner
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, e.PropertyID); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.events.LogMutation(ctx, log.OpCreate, string(EntityExpense), created.ID, created.PropertyID, created.Category, created.Amount.Cents)
	s.publish(ctx, EventCreated, EntityExpense, created.ID, owner, created.PropertyID, expensePeriod(created))
	return created, nil
}

// UpdateExpense applies a partial update. Moving the expense to another
// property requires owner access to that property as well.
func (s *Service) UpdateExpense(ctx context.Context, owner, id int64, patch core.ExpensePatch) (core.Expense, error) {
	current, err := s.GetExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, err
	}
	if patch.PropertyID != nil && *patch.PropertyID != current.PropertyID {
		if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, *patch.PropertyID); err != nil {
			return core.Expense{}, err
		}
	}

	var before core.Expense
	updated, err := s.store.UpdateExpense(ctx, id, current.PropertyID, func(e *core.Expense) error {
		before = *e
		patch.Apply(e)
		return e.Validate()
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	s.events.LogMutation(ctx, log.OpUpdate, string(EntityExpense), updated.ID, updated.PropertyID, updated.Category, updated.Amount.Cents)
	s.publish(ctx, EventUpdated, EntityExpense, updated.ID, owner, updated.PropertyID, expensePeriod(before), expensePeriod(updated))
	return updated, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, owner, id int64) error {
	current, err := s.GetExpense(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id, current.PropertyID); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.events.LogMutation(ctx, log.OpDelete, string(EntityExpense), id, current.PropertyID, current.Category, current.Amount.Cents)
	s.publish(ctx, EventDeleted, EntityExpense, id, owner, current.PropertyID, expensePeriod(current))
	return nil
}

// ListBudgets returns the property's budgets ordered by year, month, category.
func (s *Service) ListBudgets(ctx context.Context, owner int64, propertyID *int64, f BudgetFilter) ([]core.Budget, error) {
	if f.Month != nil {
		if err := core.ValidateMonth(*f.Month); err != nil {
			return nil, err
		}
	}
	p, ok, err := s.scope(ctx, owner, propertyID)
	if err != nil || !ok {
		return []core.Budget{}, err
	}
	out, err := s.store.ListBudgets(ctx, p.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

// GetBudget returns one budget if its property belongs to owner.
func (s *Service) GetBudget(ctx context.Context, owner, id int64) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, b.PropertyID); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// CreateBudget validates and stores a budget. A second budget for the same
// (property, category, month, year) fails with core.ErrBudgetExists, also
// when two creations race: the store's unique constraint decides.
func (s *Service) CreateBudget(ctx context.Context, owner int64, b core.Budget) (core.Budget, error) {
	b.ID = 0
	b.OwnerID = owner
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, b.PropertyID); err != nil {
		return core.Budget{}, err
	}
	if err := s.ensureKeyFree(ctx, b.Key(), 0); err != nil {
		return core.Budget{}, err
	}

	created, err := s.store.CreateBudget(ctx, b)
	if errors.Is(err, core.ErrConflict) {
		return core.Budget{}, core.ErrBudgetExists
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.events.LogMutation(ctx, log.OpCreate, string(EntityBudget), created.ID, created.PropertyID, created.Category, created.Amount.Cents)
	s.publish(ctx, EventCreated, EntityBudget, created.ID, owner, created.PropertyID, budgetPeriod(created))
	return created, nil
}

// UpdateBudget applies a partial update, re-checking uniqueness against the
// new key when any key field changes.
func (s *Service) UpdateBudget(ctx context.Context, owner, id int64, patch core.BudgetPatch) (core.Budget, error) {
	current, err := s.GetBudget(ctx, owner, id)
	if err != nil {
		return core.Budget{}, err
	}
	if patch.PropertyID != nil && *patch.PropertyID != current.PropertyID {
		if _, err := s.props.ResolveAuthorizedProperty(ctx, owner, *patch.PropertyID); err != nil {
			return core.Budget{}, err
		}
	}

	candidate := current
	if patch.Apply(&candidate) {
		if err := candidate.Validate(); err != nil {
			return core.Budget{}, err
		}
		if err := s.ensureKeyFree(ctx, candidate.Key(), id); err != nil {
			return core.Budget{}, err
		}
	}

	var before core.Budget
	updated, err := s.store.UpdateBudget(ctx, id, current.PropertyID, func(b *core.Budget) error {
		before = *b
		patch.Apply(b)
		return b.Validate()
	})
	if errors.Is(err, core.ErrConflict) {
		return core.Budget{}, core.ErrBudgetExists
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, err)
	}

	s.events.LogMutation(ctx, log.OpUpdate, string(EntityBudget), updated.ID, updated.PropertyID, updated.Category, updated.Amount.Cents)
	s.publish(ctx, EventUpdated, EntityBudget, updated.ID, owner, updated.PropertyID, budgetPeriod(before), budgetPeriod(updated))
	return updated, nil
}

// DeleteBudget removes a budget.
func (s *Service) DeleteBudget(ctx context.Context, owner, id int64) error {
	current, err := s.GetBudget(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBudget(ctx, id, current.PropertyID); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}

	s.events.LogMutation(ctx, log.OpDelete, string(EntityBudget), id, current.PropertyID, current.Category, current.Amount.Cents)
	s.publish(ctx, EventDeleted, EntityBudget, id, owner, current.PropertyID, budgetPeriod(current))
	return nil
}

// ensureKeyFree is the friendly pre-check; the store constraint still has the
// final word.
func (s *Service) ensureKeyFree(ctx context.Context, key core.BudgetKey, self int64) error {
	existing, err := s.store.FindBudget(ctx, key)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check budget key: %w", err)
	case existing.ID != self:
		return core.ErrBudgetExists
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ EventType, entity Entity, id, owner, propertyID int64, ps ...Period) {
	if s.publisher == nil {
		return
	}
	ev := Event{
		Type:       typ,
		Entity:     entity,
		ID:         id,
		OwnerID:    owner,
		PropertyID: propertyID,
		Periods:    periods(ps...),
		OccurredAt: s.now().UTC(),
	}
	// The record is committed; a lost event only delays the export.
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.events.LogError(ctx, "Failed to publish ledger event", err, log.OpPublish,
			log.NewFields().WithRecord(string(entity), id, propertyID))
	}
}
