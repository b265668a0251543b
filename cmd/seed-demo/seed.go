package main

import (
	"context"
	"errors"
	"fmt"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
)

type demoAccount struct {
	OwnerID  int64
	Property core.Property
}

var demoAccounts = []demoAccount{
	{OwnerID: 1, Property: core.Property{Address: "123 Maple Street", City: "Springfield", State: "IL"}},
	{OwnerID: 2, Property: core.Property{Address: "456 Oak Avenue", City: "Portland", State: "OR"}},
	{OwnerID: 3, Property: core.Property{Address: "789 Pine Road", City: "Austin", State: "TX"}},
}

// monthlyPlan is the recurring spend seeded for every demo month. Actual
// amounts drift from the budget so reports show both statuses.
var monthlyPlan = []struct {
	Category string
	Title    string
	Budget   string
	Spent    string
}{
	{"Mortgage", "Mortgage payment", "1450.00", "1450.00"},
	{"Utilities", "Electric and water", "180.00", "164.35"},
	{"Insurance", "Homeowners insurance", "95.00", "97.20"},
	{"Maintenance", "General upkeep", "150.00", "122.80"},
}

type propertyAdmin interface {
	Create(ctx context.Context, p core.Property) (core.Property, error)
	PrimaryProperty(ctx context.Context, owner int64) (core.Property, error)
}

type seeder struct {
	props  propertyAdmin
	ledger *ledger.Service
	logger *log.Logger
}

// seedAccount creates the owner's demo property with a year of records up to
// and including lastMonth. An owner who already has a property is skipped.
func (s *seeder) seedAccount(ctx context.Context, acct demoAccount, year, lastMonth int) (core.Property, bool, error) {
	existing, err := s.props.PrimaryProperty(ctx, acct.OwnerID)
	if err == nil {
		s.logger.Info("Demo owner already seeded", log.FieldOwnerID, acct.OwnerID, log.FieldPropertyID, existing.ID)
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Property{}, false, err
	}

	prop := acct.Property
	prop.OwnerID = acct.OwnerID
	prop, err = s.props.Create(ctx, prop)
	if err != nil {
		return core.Property{}, false, fmt.Errorf("create demo property: %w", err)
	}

	for month := 1; month <= lastMonth; month++ {
		for _, item := range monthlyPlan {
			if err := s.seedMonth(ctx, acct.OwnerID, prop.ID, year, month, item.Category, item.Title, item.Budget, item.Spent); err != nil {
				return core.Property{}, false, err
			}
		}
	}
	s.logger.Info("Seeded demo owner",
		log.FieldOwnerID, acct.OwnerID,
		log.FieldPropertyID, prop.ID,
		log.FieldYear, year,
		"months", lastMonth)
	return prop, true, nil
}

func (s *seeder) seedMonth(ctx context.Context, owner, propertyID int64, year, month int, category, title, budget, spent string) error {
	planned, err := core.ToMinorUnits(budget)
	if err != nil {
		return err
	}
	actual, err := core.ToMinorUnits(spent)
	if err != nil {
		return err
	}

	_, err = s.ledger.CreateBudget(ctx, owner, core.Budget{
		PropertyID: propertyID,
		Category:   category,
		Amount:     planned,
		Month:      month,
		Year:       year,
	})
	if err != nil && !errors.Is(err, core.ErrBudgetExists) {
		return fmt.Errorf("seed %s budget %04d-%02d: %w", category, year, month, err)
	}

	_, err = s.ledger.CreateExpense(ctx, owner, core.Expense{
		PropertyID:        propertyID,
		Title:             title,
		Amount:            actual,
		Category:          category,
		Date:              core.NewDate(year, month, 5),
		Description:       "Demo data",
		Recurring:         true,
		RecurringInterval: "monthly",
	})
	if err != nil {
		return fmt.Errorf("seed %s expense %04d-%02d: %w", category, year, month, err)
	}
	return nil
}
