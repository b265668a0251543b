package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
)

const selectBudget = `SELECT id, owner_id, property_id, category, amount_cents, month, year,
	created_at, updated_at FROM budgets`

func scanBudget(row scanner) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.OwnerID, &b.PropertyID, &b.Category, &b.Amount.Cents, &b.Month, &b.Year,
		timeColumn{&b.CreatedAt}, timeColumn{&b.UpdatedAt})
	return b, err
}

func (r *Repository) getBudget(ctx context.Context, query string, args ...any) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, r.q(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, propertyID int64, f ledger.BudgetFilter) ([]core.Budget, error) {
	query := selectBudget + ` WHERE property_id = ?`
	args := []any{propertyID}
	if f.Year != nil {
		query += ` AND year = ?`
		args = append(args, *f.Year)
	}
	if f.Month != nil {
		query += ` AND month = ?`
		args = append(args, *f.Month)
	}
	query += ` ORDER BY year, month, category, id`

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *Repository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return r.getBudget(ctx, selectBudget+` WHERE id = ?`, id)
}

func (r *Repository) FindBudget(ctx context.Context, key core.BudgetKey) (core.Budget, error) {
	return r.getBudget(ctx, selectBudget+` WHERE property_id = ? AND category = ? AND month = ? AND year = ?`,
		key.PropertyID, key.Category, key.Month, key.Year)
}

// CreateBudget relies on the unique index for concurrent creators of the
// same key: the loser gets core.ErrConflict.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.CreatedAt = r.now()
	b.UpdatedAt = b.CreatedAt
	err := r.db.QueryRowContext(ctx, r.q(`INSERT INTO budgets
		(owner_id, property_id, category, amount_cents, month, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		b.OwnerID, b.PropertyID, b.Category, b.Amount.Cents, b.Month, b.Year,
		r.timeArg(b.CreatedAt), r.timeArg(b.UpdatedAt)).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, mapWriteError("insert budget", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, id, propertyID int64, apply func(*core.Budget) error) (core.Budget, error) {
	var out core.Budget
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanBudget(tx.QueryRowContext(ctx,
			r.q(selectBudget+` WHERE id = ? AND property_id = ?`+r.forUpdate()), id, propertyID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load budget: %w", err)
		}

		next := current
		if err := apply(&next); err != nil {
			return err
		}
		next.ID, next.OwnerID, next.CreatedAt = current.ID, current.OwnerID, current.CreatedAt
		next.UpdatedAt = r.now()

		_, err = tx.ExecContext(ctx, r.q(`UPDATE budgets SET property_id = ?, category = ?, amount_cents = ?,
			month = ?, year = ?, updated_at = ? WHERE id = ?`),
			next.PropertyID, next.Category, next.Amount.Cents, next.Month, next.Year, r.timeArg(next.UpdatedAt), id)
		if err != nil {
			return mapWriteError("update budget", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (r *Repository) DeleteBudget(ctx context.Context, id, propertyID int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM budgets WHERE id = ? AND property_id = ?`), id, propertyID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOneRow(res)
}
