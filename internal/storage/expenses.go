package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

const selectExpense = `SELECT id, owner_id, property_id, title, amount_cents, category, date,
	description, recurring, recurring_interval, created_at, updated_at FROM expenses`

func scanExpense(row scanner) (core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.OwnerID, &e.PropertyID, &e.Title, &e.Amount.Cents, &e.Category,
		dateColumn{&e.Date}, &e.Description, boolColumn{&e.Recurring}, &e.RecurringInterval,
		timeColumn{&e.CreatedAt}, timeColumn{&e.UpdatedAt})
	return e, err
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) ListExpenses(ctx context.Context, propertyID int64, f ledger.ExpenseFilter) ([]core.Expense, error) {
	query := selectExpense + ` WHERE property_id = ?`
	args := []any{propertyID}
	if f.Start != nil {
		query += ` AND date >= ?`
		args = append(args, r.dateArg(*f.Start))
	}
	if f.End != nil {
		query += ` AND date <= ?`
		args = append(args, r.dateArg(*f.End))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY date DESC, id DESC`
	return r.queryExpenses(ctx, query, args...)
}

func (r *Repository) ExpensesBetween(ctx context.Context, propertyID int64, dr core.DateRange) ([]core.Expense, error) {
	return r.queryExpenses(ctx, selectExpense+` WHERE property_id = ? AND date >= ? AND date < ? ORDER BY date, id`,
		propertyID, r.dateArg(dr.Start), r.dateArg(dr.End))
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, r.q(selectExpense+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.CreatedAt = r.now()
	e.UpdatedAt = e.CreatedAt
	err := r.db.QueryRowContext(ctx, r.q(`INSERT INTO expenses
		(owner_id, property_id, title, amount_cents, category, date, description, recurring, recurring_interval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		e.OwnerID, e.PropertyID, e.Title, e.Amount.Cents, e.Category, r.dateArg(e.Date), e.Description,
		r.boolArg(e.Recurring), e.RecurringInterval, r.timeArg(e.CreatedAt), r.timeArg(e.UpdatedAt)).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, mapWriteError("insert expense", err)
	}
	return e, nil
}

// UpdateExpense reads, patches and writes the row in one transaction.
func (r *Repository) UpdateExpense(ctx context.Context, id, propertyID int64, apply func(*core.Expense) error) (core.Expense, error) {
	var out core.Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanExpense(tx.QueryRowContext(ctx,
			r.q(selectExpense+` WHERE id = ? AND property_id = ?`+r.forUpdate()), id, propertyID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load expense: %w", err)
		}

		next := current
		if err := apply(&next); err != nil {
			return err
		}
		next.ID, next.OwnerID, next.CreatedAt = current.ID, current.OwnerID, current.CreatedAt
		next.UpdatedAt = r.now()

		_, err = tx.ExecContext(ctx, r.q(`UPDATE expenses SET property_id = ?, title = ?, amount_cents = ?,
			category = ?, date = ?, description = ?, recurring = ?, recurring_interval = ?, updated_at = ?
			WHERE id = ?`),
			next.PropertyID, next.Title, next.Amount.Cents, next.Category, r.dateArg(next.Date), next.Description,
			r.boolArg(next.Recurring), next.RecurringInterval, r.timeArg(next.UpdatedAt), id)
		if err != nil {
			return mapWriteError("update expense", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (r *Repository) DeleteExpense(ctx context.Context, id, propertyID int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM expenses WHERE id = ? AND property_id = ?`), id, propertyID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res)
}
