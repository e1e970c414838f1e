package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"obras/internal/core"
)

// ProjectOrder selects the listing order for projects.
type ProjectOrder string

const (
	OrderByName      ProjectOrder = "name"
	OrderBySpentAsc  ProjectOrder = "spent_asc"
	OrderBySpentDesc ProjectOrder = "spent_desc"
)

// ProjectFilter narrows and orders a project listing. Query matches the name
// or contract number case-insensitively; DepartmentID of zero means all
// departments.
type ProjectFilter struct {
	Query        string
	DepartmentID int64
	Order        ProjectOrder
}

const projectColumns = `p.id, p.name, p.object, p.municipality, p.contract_number,
	p.contract_source, p.service_order, p.period, p.address, p.department_id`

// CreateProject inserts the project together with its initial progress row
// (status "Não Iniciada", start date today) in one transaction: both persist
// or neither does.
func (r *Repository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (name, object, municipality, contract_number,
				contract_source, service_order, period, address, department_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Object, p.Municipality, p.ContractNumber,
			p.ContractSource, p.ServiceOrder, p.Period, p.Address, p.DepartmentID)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("project id: %w", err)
		}
		p.ID = id

		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (status, start_date, project_id) VALUES (?, ?, ?)`,
			core.DefaultProgressStatus, core.Today().ISO(), id)
		if err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}
	return p, nil
}

func (r *Repository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, ErrNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects applies the filter. Ordering by expense total uses an outer
// join so projects with no expenses participate with a total of zero; name is
// the tie-break in every order.
func (r *Repository) ListProjects(ctx context.Context, f ProjectFilter) ([]core.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p`
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(p.name LIKE ? COLLATE NOCASE OR p.contract_number LIKE ? COLLATE NOCASE)`)
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}
	if f.DepartmentID > 0 {
		where = append(where, `p.department_id = ?`)
		args = append(args, f.DepartmentID)
	}

	switch f.Order {
	case OrderBySpentAsc, OrderBySpentDesc:
		query += ` LEFT JOIN expenses e ON e.project_id = p.id`
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	switch f.Order {
	case OrderBySpentAsc:
		query += ` GROUP BY p.id ORDER BY COALESCE(SUM(e.amount_cents), 0) ASC, p.name`
	case OrderBySpentDesc:
		query += ` GROUP BY p.id ORDER BY COALESCE(SUM(e.amount_cents), 0) DESC, p.name`
	default:
		query += ` ORDER BY p.name`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Repository) UpdateProject(ctx context.Context, p core.Project) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, object = ?, municipality = ?,
			contract_number = ?, contract_source = ?, service_order = ?,
			period = ?, address = ?, department_id = ?
		 WHERE id = ?`,
		p.Name, p.Object, p.Municipality, p.ContractNumber,
		p.ContractSource, p.ServiceOrder, p.Period, p.Address, p.DepartmentID,
		p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireAffected(res)
}

// DeleteProject cascades to the progress row, the expense ledger and any
// allocations the project received.
func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) GetProgress(ctx context.Context, projectID int64) (core.Progress, error) {
	var (
		pr          core.Progress
		start, del  sql.NullString
		lastUpdated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, start_date, delivery_date, last_updated, project_id
		 FROM progress WHERE project_id = ?`, projectID).
		Scan(&pr.ID, &pr.Status, &start, &del, &lastUpdated, &pr.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Progress{}, ErrNotFound
	}
	if err != nil {
		return core.Progress{}, fmt.Errorf("get progress: %w", err)
	}
	if pr.StartDate, err = nullDate(start); err != nil {
		return core.Progress{}, fmt.Errorf("parse start date: %w", err)
	}
	if pr.DeliveryDate, err = nullDate(del); err != nil {
		return core.Progress{}, fmt.Errorf("parse delivery date: %w", err)
	}
	if ts, err := parseTimestamp(lastUpdated); err == nil {
		pr.LastUpdated = ts
	}
	return pr, nil
}

// UpdateProgress replaces status and milestone dates; last_updated is stamped
// on every mutation.
func (r *Repository) UpdateProgress(ctx context.Context, pr core.Progress) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE progress SET status = ?, start_date = ?, delivery_date = ?,
			last_updated = CURRENT_TIMESTAMP
		 WHERE project_id = ?`,
		pr.Status, dateParam(pr.StartDate), dateParam(pr.DeliveryDate), pr.ProjectID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return requireAffected(res)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (core.Project, error) {
	var p core.Project
	err := row.Scan(&p.ID, &p.Name, &p.Object, &p.Municipality, &p.ContractNumber,
		&p.ContractSource, &p.ServiceOrder, &p.Period, &p.Address, &p.DepartmentID)
	return p, err
}
