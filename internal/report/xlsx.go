// Package report builds the exportable views of the ledger: a per-department
// budget summary and a full project statement, rendered as an xlsx workbook
// or handed to a spreadsheet publisher.
package report

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"obras/internal/budget"
	"obras/internal/core"
	"obras/internal/storage"
)

// Source is the read surface the report needs. *storage.Repository
// satisfies it.
type Source interface {
	budget.Ledger
	ListDepartments(ctx context.Context) ([]core.Department, error)
	ListProjects(ctx context.Context, f storage.ProjectFilter) ([]core.Project, error)
	GetDepartment(ctx context.Context, id int64) (core.Department, error)
	GetProgress(ctx context.Context, projectID int64) (core.Progress, error)
}

var _ Source = (*storage.Repository)(nil)

// SummaryRow is one department's consolidated budget line.
type SummaryRow struct {
	Department   string
	Consolidated core.Money
	Spent        core.Money
	Remaining    core.Money
}

// StatementRow is one project's line in the statement sheet.
type StatementRow struct {
	ProjectID    int64
	Project      string
	Department   string
	TotalCost    core.Money
	Status       string
	StartDate    core.Date
	DeliveryDate core.Date
}

// CollectSummary recomputes every department's figures from the ledger.
func CollectSummary(ctx context.Context, src Source) ([]SummaryRow, error) {
	deps, err := src.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	rows := make([]SummaryRow, 0, len(deps))
	for _, dep := range deps {
		consolidated, err := budget.ConsolidatedBudget(ctx, src, dep.ID)
		if err != nil {
			return nil, err
		}
		spent, err := src.DepartmentTotalSpent(ctx, dep.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, SummaryRow{
			Department:   dep.Name,
			Consolidated: consolidated,
			Spent:        spent,
			Remaining:    core.Money{Cents: consolidated.Cents - spent.Cents},
		})
	}
	return rows, nil
}

// CollectStatement lists every project with its total cost and progress.
func CollectStatement(ctx context.Context, src Source) ([]StatementRow, error) {
	projects, err := src.ListProjects(ctx, storage.ProjectFilter{Order: storage.OrderByName})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	rows := make([]StatementRow, 0, len(projects))
	for _, p := range projects {
		dep, err := src.GetDepartment(ctx, p.DepartmentID)
		if err != nil {
			return nil, err
		}
		total, err := src.ProjectTotalSpent(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		prog, err := src.GetProgress(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, StatementRow{
			ProjectID:    p.ID,
			Project:      p.Name,
			Department:   dep.Name,
			TotalCost:    total,
			Status:       prog.Status,
			StartDate:    prog.StartDate,
			DeliveryDate: prog.DeliveryDate,
		})
	}
	return rows, nil
}

const (
	summarySheet   = "Resumo"
	statementSheet = "Extrato de Obras"
)

// Workbook renders both report sheets into a new xlsx file. The caller owns
// the returned file and must Close it.
func Workbook(summary []SummaryRow, statement []StatementRow) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	headers := []any{"Secretaria", "Orçamento Consolidado", "Gasto", "Restante"}
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+2)
		values := []any{row.Department, row.Consolidated.BRL(), row.Spent.BRL(), row.Remaining.BRL()}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(statementSheet); err != nil {
		return nil, err
	}
	headers = []any{"ID Obra", "Nome", "Secretaria", "Custo Total", "Status", "Data de Início", "Data de Entrega"}
	if err := f.SetSheetRow(statementSheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, row := range statement {
		cell := fmt.Sprintf("A%d", i+2)
		values := []any{
			row.ProjectID,
			row.Project,
			row.Department,
			row.TotalCost.BRL(),
			row.Status,
			cellDate(row.StartDate),
			cellDate(row.DeliveryDate),
		}
		if err := f.SetSheetRow(statementSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// cellDate renders a date for a sheet cell, blank when unset.
func cellDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.ISO()
}
