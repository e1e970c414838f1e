package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"obras/internal/core"
)

// CreateExpense appends an expense to a project's ledger. The repository does
// not check the expense against any budget; over-budget handling is a
// front-end policy.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount_cents, expense_date, project_id)
		 VALUES (?, ?, ?, ?)`,
		e.Description, e.Amount.Cents, e.Date.ISO(), e.ProjectID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.ID = id
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, expense_date, project_id
		 FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Description, &e.Amount.Cents, &date, &e.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date: %w", err)
	}
	return e, nil
}

// ListExpensesByProject returns the project's ledger, newest first.
func (r *Repository) ListExpensesByProject(ctx context.Context, projectID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, expense_date, project_id
		 FROM expenses WHERE project_id = ?
		 ORDER BY expense_date DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &date, &e.ProjectID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res)
}
