package bot

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"obras/internal/core"
)

// BudgetPie renders a department's spent-versus-available pie as a PNG.
// Returns nil bytes when the department has no consolidated budget; there is
// nothing meaningful to draw in that case.
func BudgetPie(departmentName string, spent, consolidated core.Money) ([]byte, error) {
	if consolidated.Cents <= 0 {
		return nil, nil
	}

	available := consolidated.Cents - spent.Cents
	if available < 0 {
		available = 0
	}

	// Zero slices are dropped; the pie needs positive values only.
	var values []chart.Value
	if spent.Cents > 0 {
		values = append(values, chart.Value{
			Value: float64(spent.Cents),
			Label: fmt.Sprintf("Gasto: %s (%.1f%%)", core.FormatBRL(spent), core.Percentage(spent, consolidated)),
		})
	}
	if available > 0 {
		values = append(values, chart.Value{
			Value: float64(available),
			Label: fmt.Sprintf("Disponível: %s (%.1f%%)",
				core.FormatBRL(core.Money{Cents: available}),
				core.Percentage(core.Money{Cents: available}, consolidated)),
		})
	}

	pie := chart.PieChart{
		Title:  departmentName,
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}
