package storage

import (
	"context"
	"fmt"

	"obras/internal/core"
)

// The aggregate queries below are the only way derived budget figures are
// produced. Each is a single SUM statement over current rows; nothing here is
// cached or denormalized.

// ProjectTotalSpent sums the project's expense ledger; zero when empty.
func (r *Repository) ProjectTotalSpent(ctx context.Context, projectID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE project_id = ?`,
		projectID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("project total spent: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// DepartmentTotalSpent sums every expense of every project in the department,
// unscoped by any period.
func (r *Repository) DepartmentTotalSpent(ctx context.Context, departmentID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(e.amount_cents), 0)
		 FROM expenses e
		 JOIN projects p ON p.id = e.project_id
		 WHERE p.department_id = ?`,
		departmentID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("department total spent: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// DepartmentSpentBetween sums department expenses dated inside [start, end],
// both ends inclusive.
func (r *Repository) DepartmentSpentBetween(ctx context.Context, departmentID int64, start, end core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(e.amount_cents), 0)
		 FROM expenses e
		 JOIN projects p ON p.id = e.project_id
		 WHERE p.department_id = ?
		   AND e.expense_date >= ?
		   AND e.expense_date <= ?`,
		departmentID, start.ISO(), end.ISO()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("department spent between: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// MeasurementAllocatedTotal sums the effective amount of the measurement's
// allocations, resolving the selected source per row.
func (r *Repository) MeasurementAllocatedTotal(ctx context.Context, measurementID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN selected_source = ? THEN alternate_cents ELSE initial_cents END), 0)
		 FROM allocations WHERE measurement_id = ?`,
		string(core.SourceAlternate), measurementID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("measurement allocated total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// DayTotal is one day's summed expenses for the chart series.
type DayTotal struct {
	Date  core.Date
	Total core.Money
}

// DepartmentDailyExpenseTotals groups department expenses by day inside
// [start, end], both ends inclusive. Days without expenses are absent.
func (r *Repository) DepartmentDailyExpenseTotals(ctx context.Context, departmentID int64, start, end core.Date) ([]DayTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.expense_date, SUM(e.amount_cents)
		 FROM expenses e
		 JOIN projects p ON p.id = e.project_id
		 WHERE p.department_id = ?
		   AND e.expense_date >= ?
		   AND e.expense_date <= ?
		 GROUP BY e.expense_date
		 ORDER BY e.expense_date`,
		departmentID, start.ISO(), end.ISO())
	if err != nil {
		return nil, fmt.Errorf("daily expense totals: %w", err)
	}
	defer rows.Close()

	var totals []DayTotal
	for rows.Next() {
		var (
			day   string
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		d, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("parse day: %w", err)
		}
		totals = append(totals, DayTotal{Date: d, Total: core.Money{Cents: cents}})
	}
	return totals, rows.Err()
}
