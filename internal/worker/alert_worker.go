// Package worker turns queued budget alert events into admin notifications.
package worker

import (
	"context"
	"log/slog"

	"obras/internal/amqp"
	"obras/internal/core"
)

// Notifier delivers one alert text; implementations swallow their own errors.
type Notifier interface {
	Alert(ctx context.Context, text string)
}

// AlertWorker consumes budget alert messages and forwards them to the
// configured notifier.
type AlertWorker struct {
	notifier Notifier
}

func NewAlertWorker(notifier Notifier) *AlertWorker {
	return &AlertWorker{notifier: notifier}
}

// HandleAlert formats and delivers one alert. It always returns nil: alerts
// are never retried, so a delivery failure must not requeue the message.
func (w *AlertWorker) HandleAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	slog.InfoContext(ctx, "Processing budget alert",
		"department_id", msg.DepartmentID,
		"department", msg.DepartmentName)

	w.notifier.Alert(ctx, FormatAlert(msg))
	return nil
}

// FormatAlert renders the admin-facing alert text.
func FormatAlert(msg *amqp.BudgetAlertMessage) string {
	return "⚠️ *Alerta de orçamento*\n" +
		"Secretaria: *" + msg.DepartmentName + "*\n" +
		"Gasto: " + msg.Description + " (" + core.FormatBRL(core.Money{Cents: msg.AmountCents}) + ")\n" +
		"Saldo atual: " + core.FormatBRL(core.Money{Cents: msg.RemainingCents})
}
