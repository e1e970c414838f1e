package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"obras/internal/core"
)

// CreateDepartment inserts a department. A name collision maps to
// ErrDuplicateName and leaves nothing behind.
func (r *Repository) CreateDepartment(ctx context.Context, dep core.Department) (core.Department, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (name) VALUES (?)`, dep.Name)
	if err != nil {
		if isUniqueViolation(err, "departments.name") {
			return core.Department{}, ErrDuplicateName
		}
		return core.Department{}, fmt.Errorf("insert department: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Department{}, fmt.Errorf("department id: %w", err)
	}
	dep.ID = id
	return dep, nil
}

func (r *Repository) GetDepartment(ctx context.Context, id int64) (core.Department, error) {
	var dep core.Department
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM departments WHERE id = ?`, id).
		Scan(&dep.ID, &dep.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Department{}, ErrNotFound
	}
	if err != nil {
		return core.Department{}, fmt.Errorf("get department: %w", err)
	}
	return dep, nil
}

func (r *Repository) ListDepartments(ctx context.Context) ([]core.Department, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var deps []core.Department
	for rows.Next() {
		var dep core.Department
		if err := rows.Scan(&dep.ID, &dep.Name); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

func (r *Repository) UpdateDepartment(ctx context.Context, dep core.Department) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = ? WHERE id = ?`, dep.Name, dep.ID)
	if err != nil {
		if isUniqueViolation(err, "departments.name") {
			return ErrDuplicateName
		}
		return fmt.Errorf("update department: %w", err)
	}
	return requireAffected(res)
}

// DeleteDepartment removes the department and, via FK cascades, all of its
// projects, their progress and expenses, and all measurements and allocations.
func (r *Repository) DeleteDepartment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
