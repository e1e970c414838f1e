// Package budget derives every figure shown to users from the ledger rows.
// All functions are read-only and recompute on every call; there is no cached
// total anywhere, so the numbers can never drift from the ledger.
package budget

import (
	"context"
	"fmt"

	"obras/internal/core"
	"obras/internal/storage"
)

// Ledger is the read surface the aggregation model needs from storage.
type Ledger interface {
	ProjectTotalSpent(ctx context.Context, projectID int64) (core.Money, error)
	DepartmentTotalSpent(ctx context.Context, departmentID int64) (core.Money, error)
	DepartmentSpentBetween(ctx context.Context, departmentID int64, start, end core.Date) (core.Money, error)
	MeasurementAllocatedTotal(ctx context.Context, measurementID int64) (core.Money, error)
	ListMeasurementsByDepartment(ctx context.Context, departmentID int64) ([]core.Measurement, error)
	DepartmentDailyExpenseTotals(ctx context.Context, departmentID int64, start, end core.Date) ([]storage.DayTotal, error)
}

var _ Ledger = (*storage.Repository)(nil)

// Overview bundles a department's consolidated budget figures.
type Overview struct {
	DepartmentID int64   `json:"department_id"`
	Name         string  `json:"nome"`
	Consolidated float64 `json:"orcamento_consolidado"`
	Spent        float64 `json:"orcamento_gasto"`
	Remaining    float64 `json:"orcamento_restante"`
	RemainingPct float64 `json:"percentual_restante"`
}

// MeasurementSummary holds one accounting period's reconciliation.
type MeasurementSummary struct {
	MeasurementID int64   `json:"measurement_id"`
	Allocated     float64 `json:"orcamento_total"`
	SpentInPeriod float64 `json:"gasto_no_periodo"`
	Result        float64 `json:"resultado"`
}

// ProjectTotalSpent sums a project's expense ledger via a single aggregate
// query; zero when the ledger is empty.
func ProjectTotalSpent(ctx context.Context, l Ledger, projectID int64) (core.Money, error) {
	return l.ProjectTotalSpent(ctx, projectID)
}

// AllocatedTotal sums the effective amounts of a measurement's allocations.
func AllocatedTotal(ctx context.Context, l Ledger, measurementID int64) (core.Money, error) {
	return l.MeasurementAllocatedTotal(ctx, measurementID)
}

// SpentInPeriod sums the expenses of every project in the measurement's
// department dated inside the period, both ends inclusive.
func SpentInPeriod(ctx context.Context, l Ledger, m core.Measurement) (core.Money, error) {
	return l.DepartmentSpentBetween(ctx, m.DepartmentID, m.StartDate, m.EndDate)
}

// Result is allocated total minus spent in period. Positive means the period
// stayed under budget.
func Result(ctx context.Context, l Ledger, m core.Measurement) (core.Money, error) {
	allocated, err := AllocatedTotal(ctx, l, m.ID)
	if err != nil {
		return core.Money{}, err
	}
	spent, err := SpentInPeriod(ctx, l, m)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: allocated.Cents - spent.Cents}, nil
}

// Summarize computes a measurement's allocated/spent/result triple.
func Summarize(ctx context.Context, l Ledger, m core.Measurement) (MeasurementSummary, error) {
	allocated, err := AllocatedTotal(ctx, l, m.ID)
	if err != nil {
		return MeasurementSummary{}, err
	}
	spent, err := SpentInPeriod(ctx, l, m)
	if err != nil {
		return MeasurementSummary{}, err
	}
	return MeasurementSummary{
		MeasurementID: m.ID,
		Allocated:     allocated.BRL(),
		SpentInPeriod: spent.BRL(),
		Result:        core.Money{Cents: allocated.Cents - spent.Cents}.BRL(),
	}, nil
}

// ConsolidatedBudget sums the allocated totals of every measurement the
// department has ever had. Every historical period counts; budgeting is
// cumulative across periods, not latest-only.
func ConsolidatedBudget(ctx context.Context, l Ledger, departmentID int64) (core.Money, error) {
	measurements, err := l.ListMeasurementsByDepartment(ctx, departmentID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list measurements: %w", err)
	}
	var total int64
	for _, m := range measurements {
		allocated, err := AllocatedTotal(ctx, l, m.ID)
		if err != nil {
			return core.Money{}, err
		}
		total += allocated.Cents
	}
	return core.Money{Cents: total}, nil
}

// RemainingBudget is the consolidated budget minus everything the
// department's projects ever spent.
func RemainingBudget(ctx context.Context, l Ledger, departmentID int64) (core.Money, error) {
	consolidated, err := ConsolidatedBudget(ctx, l, departmentID)
	if err != nil {
		return core.Money{}, err
	}
	spent, err := l.DepartmentTotalSpent(ctx, departmentID)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: consolidated.Cents - spent.Cents}, nil
}

// DepartmentOverview computes the full consolidated picture for one
// department. RemainingPct is zero while no budget has been allocated.
func DepartmentOverview(ctx context.Context, l Ledger, dep core.Department) (Overview, error) {
	consolidated, err := ConsolidatedBudget(ctx, l, dep.ID)
	if err != nil {
		return Overview{}, err
	}
	spent, err := l.DepartmentTotalSpent(ctx, dep.ID)
	if err != nil {
		return Overview{}, err
	}
	remaining := core.Money{Cents: consolidated.Cents - spent.Cents}
	return Overview{
		DepartmentID: dep.ID,
		Name:         dep.Name,
		Consolidated: consolidated.BRL(),
		Spent:        spent.BRL(),
		Remaining:    remaining.BRL(),
		RemainingPct: core.Percentage(remaining, consolidated),
	}, nil
}
