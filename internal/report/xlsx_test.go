package report

import (
	"context"
	"path/filepath"
	"testing"

	"obras/internal/core"
	"obras/internal/storage"
)

func seededRepo(t *testing.T) *storage.Repository {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	dep, err := repo.CreateDepartment(ctx, core.Department{Name: "Secretaria de Infraestrutura"})
	if err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}
	p, err := repo.CreateProject(ctx, core.Project{
		Name:         "Pavimentação da Rua Central",
		DepartmentID: dep.ID,
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	m, err := repo.CreateMeasurement(ctx, core.Measurement{
		Name:         "Medição Agosto 2025",
		StartDate:    core.NewDate(2025, 8, 1),
		EndDate:      core.NewDate(2025, 8, 31),
		DepartmentID: dep.ID,
	})
	if err != nil {
		t.Fatalf("CreateMeasurement() error = %v", err)
	}
	if _, err := repo.UpsertAllocation(ctx, core.Allocation{
		MeasurementID:  m.ID,
		ProjectID:      p.ID,
		InitialAmount:  core.Money{Cents: 1000_00},
		SelectedSource: core.SourceInitial,
	}); err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{
		Description: "compra de asfalto",
		Amount:      core.Money{Cents: 300_00},
		Date:        core.NewDate(2025, 8, 15),
		ProjectID:   p.ID,
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	return repo
}

func TestCollectSummary(t *testing.T) {
	repo := seededRepo(t)

	rows, err := CollectSummary(context.Background(), repo)
	if err != nil {
		t.Fatalf("CollectSummary() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("summary rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Department != "Secretaria de Infraestrutura" {
		t.Errorf("department = %q", row.Department)
	}
	if row.Consolidated.Cents != 1000_00 || row.Spent.Cents != 300_00 || row.Remaining.Cents != 700_00 {
		t.Errorf("figures = %d/%d/%d, want 100000/30000/70000",
			row.Consolidated.Cents, row.Spent.Cents, row.Remaining.Cents)
	}
}

func TestCollectStatement(t *testing.T) {
	repo := seededRepo(t)

	rows, err := CollectStatement(context.Background(), repo)
	if err != nil {
		t.Fatalf("CollectStatement() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("statement rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Project != "Pavimentação da Rua Central" {
		t.Errorf("project = %q", row.Project)
	}
	if row.TotalCost.Cents != 300_00 {
		t.Errorf("total cost = %d, want 30000", row.TotalCost.Cents)
	}
	if row.Status != core.DefaultProgressStatus {
		t.Errorf("status = %q, want %q", row.Status, core.DefaultProgressStatus)
	}
}

func TestWorkbook(t *testing.T) {
	summary := []SummaryRow{{
		Department:   "Secretaria de Infraestrutura",
		Consolidated: core.Money{Cents: 1000_00},
		Spent:        core.Money{Cents: 300_00},
		Remaining:    core.Money{Cents: 700_00},
	}}
	statement := []StatementRow{{
		ProjectID:  1,
		Project:    "Pavimentação da Rua Central",
		Department: "Secretaria de Infraestrutura",
		TotalCost:  core.Money{Cents: 300_00},
		Status:     "Em Andamento",
		StartDate:  core.NewDate(2025, 8, 1),
	}}

	f, err := Workbook(summary, statement)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Resumo", "A2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if got != "Secretaria de Infraestrutura" {
		t.Errorf("Resumo!A2 = %q", got)
	}
	got, _ = f.GetCellValue("Resumo", "B2")
	if got != "1000" {
		t.Errorf("Resumo!B2 = %q, want 1000", got)
	}

	got, _ = f.GetCellValue("Extrato de Obras", "B2")
	if got != "Pavimentação da Rua Central" {
		t.Errorf("Extrato!B2 = %q", got)
	}
	got, _ = f.GetCellValue("Extrato de Obras", "F2")
	if got != "2025-08-01" {
		t.Errorf("Extrato!F2 = %q, want 2025-08-01", got)
	}
	// Unset delivery date renders blank.
	got, _ = f.GetCellValue("Extrato de Obras", "G2")
	if got != "" {
		t.Errorf("Extrato!G2 = %q, want empty", got)
	}
}
