package budget

import (
	"context"
	"testing"

	"obras/internal/core"
)

func TestDailySeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data, err := DailySeries(ctx, f.repo, f.dep.ID)
	if err != nil {
		t.Fatalf("DailySeries() error = %v", err)
	}

	// August 2025 has 31 days; the window covers the single measurement.
	if len(data.Labels) != 31 {
		t.Fatalf("labels = %d, want 31", len(data.Labels))
	}
	if len(data.Gastos) != 31 || len(data.Saldos) != 31 {
		t.Fatalf("series lengths = %d/%d, want 31/31", len(data.Gastos), len(data.Saldos))
	}
	if data.Labels[0] != "01/08" || data.Labels[30] != "31/08" {
		t.Errorf("label bounds = %s..%s, want 01/08..31/08", data.Labels[0], data.Labels[30])
	}
	if data.Teto != 1000.00 {
		t.Errorf("teto = %.2f, want 1000.00", data.Teto)
	}

	// Allocation credited on day one, the expense debited on the 15th.
	if data.Saldos[0] != 1000.00 {
		t.Errorf("balance day 1 = %.2f, want 1000.00", data.Saldos[0])
	}
	if data.Gastos[14] != 300.00 {
		t.Errorf("spend on the 15th = %.2f, want 300.00", data.Gastos[14])
	}
	if data.Saldos[14] != 700.00 {
		t.Errorf("balance on the 15th = %.2f, want 700.00", data.Saldos[14])
	}
	if data.Saldos[30] != 700.00 {
		t.Errorf("final balance = %.2f, want 700.00", data.Saldos[30])
	}

	if len(data.Marcos) != 1 {
		t.Fatalf("markers = %d, want 1", len(data.Marcos))
	}
	marker := data.Marcos[0]
	if marker.Nome != "Medição Agosto 2025" || marker.Data != "01/08" || marker.Valor != 1000.00 {
		t.Errorf("marker = %+v", marker)
	}
}

func TestDailySeriesNoMeasurements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.repo.CreateDepartment(ctx, core.Department{Name: "Secretaria de Cultura"})
	if err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}

	data, err := DailySeries(ctx, f.repo, empty.ID)
	if err != nil {
		t.Fatalf("DailySeries() error = %v", err)
	}
	if data.Labels == nil || data.Gastos == nil || data.Saldos == nil || data.Marcos == nil {
		t.Error("empty series must use empty slices, not nil")
	}
	if len(data.Labels) != 0 {
		t.Errorf("labels = %d, want 0", len(data.Labels))
	}
}

func TestDailySeriesSpansMultipleMeasurements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sep, err := f.repo.CreateMeasurement(ctx, core.Measurement{
		Name:         "Medição Setembro 2025",
		StartDate:    core.NewDate(2025, 9, 1),
		EndDate:      core.NewDate(2025, 9, 30),
		DepartmentID: f.dep.ID,
	})
	if err != nil {
		t.Fatalf("CreateMeasurement() error = %v", err)
	}
	if _, err := f.repo.UpsertAllocation(ctx, core.Allocation{
		MeasurementID:  sep.ID,
		ProjectID:      f.project.ID,
		InitialAmount:  core.Money{Cents: 500_00},
		SelectedSource: core.SourceInitial,
	}); err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}

	data, err := DailySeries(ctx, f.repo, f.dep.ID)
	if err != nil {
		t.Fatalf("DailySeries() error = %v", err)
	}
	if want := 31 + 30; len(data.Labels) != want {
		t.Fatalf("labels = %d, want %d (Aug 1 through Sep 30)", len(data.Labels), want)
	}
	if data.Teto != 1500.00 {
		t.Errorf("teto = %.2f, want 1500.00", data.Teto)
	}
	// September's credit lands on its start day.
	if data.Saldos[31] != 700.00+500.00 {
		t.Errorf("balance Sep 1 = %.2f, want 1200.00", data.Saldos[31])
	}
	if len(data.Marcos) != 2 {
		t.Errorf("markers = %d, want 2", len(data.Marcos))
	}
}
