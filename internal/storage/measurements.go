package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"obras/internal/core"
)

func (r *Repository) CreateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO measurements (name, start_date, end_date, department_id)
		 VALUES (?, ?, ?, ?)`,
		m.Name, m.StartDate.ISO(), m.EndDate.ISO(), m.DepartmentID)
	if err != nil {
		return core.Measurement{}, fmt.Errorf("insert measurement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Measurement{}, fmt.Errorf("measurement id: %w", err)
	}
	m.ID = id
	return m, nil
}

func (r *Repository) GetMeasurement(ctx context.Context, id int64) (core.Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date, department_id
		 FROM measurements WHERE id = ?`, id)
	m, err := scanMeasurement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Measurement{}, ErrNotFound
	}
	if err != nil {
		return core.Measurement{}, fmt.Errorf("get measurement: %w", err)
	}
	return m, nil
}

// ListMeasurementsByDepartment returns the department's accounting periods,
// most recent start date first.
func (r *Repository) ListMeasurementsByDepartment(ctx context.Context, departmentID int64) ([]core.Measurement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, start_date, end_date, department_id
		 FROM measurements WHERE department_id = ?
		 ORDER BY start_date DESC, id DESC`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	var measurements []core.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

func (r *Repository) UpdateMeasurement(ctx context.Context, m core.Measurement) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE measurements SET name = ?, start_date = ?, end_date = ?
		 WHERE id = ?`,
		m.Name, m.StartDate.ISO(), m.EndDate.ISO(), m.ID)
	if err != nil {
		return fmt.Errorf("update measurement: %w", err)
	}
	return requireAffected(res)
}

// DeleteMeasurement cascades to its allocations only; the projects and
// expenses it reconciled stay untouched.
func (r *Repository) DeleteMeasurement(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete measurement: %w", err)
	}
	return requireAffected(res)
}

// UpsertAllocation creates or replaces the allocation for the
// (measurement, project) pair. The whole operation runs in one transaction
// and is idempotent: repeating identical inputs leaves a single row with the
// same values. The project must belong to the measurement's department.
func (r *Repository) UpsertAllocation(ctx context.Context, a core.Allocation) (core.Allocation, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var measurementDept, projectDept int64
		err := tx.QueryRowContext(ctx,
			`SELECT department_id FROM measurements WHERE id = ?`, a.MeasurementID).
			Scan(&measurementDept)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load measurement: %w", err)
		}
		err = tx.QueryRowContext(ctx,
			`SELECT department_id FROM projects WHERE id = ?`, a.ProjectID).
			Scan(&projectDept)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}
		if measurementDept != projectDept {
			return ErrProjectNotInDepartment
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE allocations SET initial_cents = ?, alternate_cents = ?, selected_source = ?
			 WHERE measurement_id = ? AND project_id = ?`,
			a.InitialAmount.Cents, a.AlternateAmount.Cents, string(a.SelectedSource),
			a.MeasurementID, a.ProjectID)
		if err != nil {
			return fmt.Errorf("update allocation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			return tx.QueryRowContext(ctx,
				`SELECT id FROM allocations WHERE measurement_id = ? AND project_id = ?`,
				a.MeasurementID, a.ProjectID).Scan(&a.ID)
		}

		ins, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (measurement_id, project_id, initial_cents, alternate_cents, selected_source)
			 VALUES (?, ?, ?, ?, ?)`,
			a.MeasurementID, a.ProjectID,
			a.InitialAmount.Cents, a.AlternateAmount.Cents, string(a.SelectedSource))
		if err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
		a.ID, err = ins.LastInsertId()
		if err != nil {
			return fmt.Errorf("allocation id: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Allocation{}, err
	}
	return a, nil
}

func (r *Repository) ListAllocationsByMeasurement(ctx context.Context, measurementID int64) ([]core.Allocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, measurement_id, project_id, initial_cents, alternate_cents, selected_source
		 FROM allocations WHERE measurement_id = ?
		 ORDER BY project_id`, measurementID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var allocations []core.Allocation
	for rows.Next() {
		var (
			a      core.Allocation
			source string
		)
		if err := rows.Scan(&a.ID, &a.MeasurementID, &a.ProjectID,
			&a.InitialAmount.Cents, &a.AlternateAmount.Cents, &source); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.SelectedSource = core.BudgetSource(source)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func scanMeasurement(row rowScanner) (core.Measurement, error) {
	var (
		m          core.Measurement
		start, end string
	)
	if err := row.Scan(&m.ID, &m.Name, &start, &end, &m.DepartmentID); err != nil {
		return core.Measurement{}, err
	}
	var err error
	if m.StartDate, err = core.ParseDate(start); err != nil {
		return core.Measurement{}, fmt.Errorf("parse start date: %w", err)
	}
	if m.EndDate, err = core.ParseDate(end); err != nil {
		return core.Measurement{}, fmt.Errorf("parse end date: %w", err)
	}
	return m, nil
}
