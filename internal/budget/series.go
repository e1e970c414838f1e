package budget

import (
	"context"

	"obras/internal/core"
)

// ChartData is the line-chart payload consumed by the dashboard widget. The
// Portuguese keys are the wire format the widget already speaks.
type ChartData struct {
	Labels  []string            `json:"labels"`
	Gastos  []float64           `json:"gastos"`
	Saldos  []float64           `json:"saldos"`
	Teto    float64             `json:"teto_orcamento"`
	Marcos  []MeasurementMarker `json:"medicoes"`
}

// MeasurementMarker flags a measurement's start on the chart.
type MeasurementMarker struct {
	Nome  string  `json:"nome"`
	Data  string  `json:"data"`
	Valor float64 `json:"valor"`
}

// DailySeries builds the department's daily expense/balance series across the
// window spanned by its measurements: one entry per calendar day from the
// earliest start to the latest end. The running balance credits each
// measurement's allocated total on its start date and debits each day's
// expenses. Departments without measurements get an empty (not nil) payload
// so the widget renders a blank chart instead of breaking.
func DailySeries(ctx context.Context, l Ledger, departmentID int64) (ChartData, error) {
	empty := ChartData{
		Labels: []string{},
		Gastos: []float64{},
		Saldos: []float64{},
		Marcos: []MeasurementMarker{},
	}

	measurements, err := l.ListMeasurementsByDepartment(ctx, departmentID)
	if err != nil {
		return ChartData{}, err
	}
	if len(measurements) == 0 {
		return empty, nil
	}

	minStart := measurements[0].StartDate
	maxEnd := measurements[0].EndDate
	for _, m := range measurements[1:] {
		if m.StartDate.Before(minStart.Time) {
			minStart = m.StartDate
		}
		if m.EndDate.After(maxEnd.Time) {
			maxEnd = m.EndDate
		}
	}

	// Allocations credited on their measurement's start day.
	credits := make(map[string]int64)
	markers := []MeasurementMarker{}
	var ceiling int64
	for _, m := range measurements {
		allocated, err := AllocatedTotal(ctx, l, m.ID)
		if err != nil {
			return ChartData{}, err
		}
		credits[m.StartDate.ISO()] += allocated.Cents
		ceiling += allocated.Cents
		if allocated.Cents > 0 {
			markers = append(markers, MeasurementMarker{
				Nome:  m.Name,
				Data:  m.StartDate.ShortBR(),
				Valor: allocated.BRL(),
			})
		}
	}

	totals, err := l.DepartmentDailyExpenseTotals(ctx, departmentID, minStart, maxEnd)
	if err != nil {
		return ChartData{}, err
	}
	debits := make(map[string]int64, len(totals))
	for _, t := range totals {
		debits[t.Date.ISO()] = t.Total.Cents
	}

	data := ChartData{Teto: core.Money{Cents: ceiling}.BRL(), Marcos: markers}
	var balance int64
	for day := minStart.Time; !day.After(maxEnd.Time); day = day.AddDate(0, 0, 1) {
		d := core.DateOf(day)
		spent := debits[d.ISO()]
		balance += credits[d.ISO()] - spent
		data.Labels = append(data.Labels, d.ShortBR())
		data.Gastos = append(data.Gastos, core.Money{Cents: spent}.BRL())
		data.Saldos = append(data.Saldos, core.Money{Cents: balance}.BRL())
	}
	return data, nil
}
