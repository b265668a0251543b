// Package memory is an in-process ledger store used for development and
// tests. It enforces the same constraints as the SQL store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	nextID     int64
	properties map[int64]core.Property
	expenses   map[int64]core.Expense
	budgets    map[int64]core.Budget
	budgetKeys map[core.BudgetKey]int64
	now        func() time.Time
}

func New() *Store {
	return &Store{
		properties: map[int64]core.Property{},
		expenses:   map[int64]core.Expense{},
		budgets:    map[int64]core.Budget{},
		budgetKeys: map[core.BudgetKey]int64{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateProperty registers a property for an owner.
func (s *Store) CreateProperty(_ context.Context, p core.Property) (core.Property, error) {
	if p.OwnerID <= 0 {
		return core.Property{}, core.Invalid("owner_id", "is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return core.Property{}, core.Invalid("address", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.properties[p.ID] = p
	return p, nil
}

// DeleteProperty removes a property together with its expenses and budgets.
func (s *Store) DeleteProperty(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.properties, id)
	for eid, e := range s.expenses {
		if e.PropertyID == id {
			delete(s.expenses, eid)
		}
	}
	for bid, b := range s.budgets {
		if b.PropertyID == id {
			delete(s.budgets, bid)
			delete(s.budgetKeys, b.Key())
		}
	}
	return nil
}

// ResolveAuthorizedProperty implements ledger.PropertyResolver.
func (s *Store) ResolveAuthorizedProperty(_ context.Context, owner, propertyID int64) (core.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[propertyID]
	if !ok || p.OwnerID != owner {
		return core.Property{}, core.ErrNotFound
	}
	return p, nil
}

// PrimaryProperty implements ledger.PropertyResolver: the owner's property
// with the lowest id.
func (s *Store) PrimaryProperty(_ context.Context, owner int64) (core.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best core.Property
	for _, p := range s.properties {
		if p.OwnerID == owner && (best.ID == 0 || p.ID < best.ID) {
			best = p
		}
	}
	if best.ID == 0 {
		return core.Property{}, core.ErrNotFound
	}
	return best, nil
}

func (s *Store) ListExpenses(_ context.Context, propertyID int64, f ledger.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.PropertyID != propertyID {
			continue
		}
		if f.Start != nil && e.Date.Before(f.Start.Time) {
			continue
		}
		if f.End != nil && e.Date.After(f.End.Time) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ExpensesBetween(_ context.Context, propertyID int64, r core.DateRange) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.PropertyID == propertyID && r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[e.PropertyID]; !ok {
		return core.Expense{}, core.ErrNotFound
	}
	e.ID = s.id()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id, propertyID int64, apply func(*core.Expense) error) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.expenses[id]
	if !ok || current.PropertyID != propertyID {
		return core.Expense{}, core.ErrNotFound
	}
	next := current
	if err := apply(&next); err != nil {
		return core.Expense{}, err
	}
	if _, ok := s.properties[next.PropertyID]; !ok {
		return core.Expense{}, core.ErrNotFound
	}
	next.ID, next.OwnerID, next.CreatedAt = current.ID, current.OwnerID, current.CreatedAt
	next.UpdatedAt = s.now()
	s.expenses[id] = next
	return next, nil
}

func (s *Store) DeleteExpense(_ context.Context, id, propertyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.PropertyID != propertyID {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, propertyID int64, f ledger.BudgetFilter) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Budget{}
	for _, b := range s.budgets {
		if b.PropertyID != propertyID {
			continue
		}
		if f.Year != nil && b.Year != *f.Year {
			continue
		}
		if f.Month != nil && b.Month != *f.Month {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) FindBudget(_ context.Context, key core.BudgetKey) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.budgetKeys[key]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return s.budgets[id], nil
}

// CreateBudget checks and claims the key under one lock, so concurrent
// creators of the same key see exactly one success.
func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[b.PropertyID]; !ok {
		return core.Budget{}, core.ErrNotFound
	}
	if _, taken := s.budgetKeys[b.Key()]; taken {
		return core.Budget{}, core.ErrConflict
	}
	b.ID = s.id()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.budgets[b.ID] = b
	s.budgetKeys[b.Key()] = b.ID
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, id, propertyID int64, apply func(*core.Budget) error) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.budgets[id]
	if !ok || current.PropertyID != propertyID {
		return core.Budget{}, core.ErrNotFound
	}
	next := current
	if err := apply(&next); err != nil {
		return core.Budget{}, err
	}
	if _, ok := s.properties[next.PropertyID]; !ok {
		return core.Budget{}, core.ErrNotFound
	}
	if other, taken := s.budgetKeys[next.Key()]; taken && other != id {
		return core.Budget{}, core.ErrConflict
	}
	next.ID, next.OwnerID, next.CreatedAt = current.ID, current.OwnerID, current.CreatedAt
	next.UpdatedAt = s.now()
	delete(s.budgetKeys, current.Key())
	s.budgetKeys[next.Key()] = id
	s.budgets[id] = next
	return next, nil
}

func (s *Store) DeleteBudget(_ context.Context, id, propertyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.PropertyID != propertyID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	delete(s.budgetKeys, b.Key())
	return nil
}

// Close is a no-op; it lets the store satisfy the backend's closer.
// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
