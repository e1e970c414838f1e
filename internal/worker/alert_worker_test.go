package worker

import (
	"context"
	"strings"
	"testing"

	"obras/internal/amqp"
)

type captureNotifier struct {
	texts []string
}

func (n *captureNotifier) Alert(_ context.Context, text string) {
	n.texts = append(n.texts, text)
}

func TestHandleAlertDelivers(t *testing.T) {
	notifier := &captureNotifier{}
	w := NewAlertWorker(notifier)

	msg := amqp.NewBudgetAlertMessage(1, "Secretaria de Infraestrutura", "aditivo contratual", 250_00, -150_00)
	if err := w.HandleAlert(context.Background(), msg); err != nil {
		t.Fatalf("HandleAlert() error = %v, must always be nil", err)
	}
	if len(notifier.texts) != 1 {
		t.Fatalf("alerts delivered = %d, want 1", len(notifier.texts))
	}
}

func TestFormatAlert(t *testing.T) {
	msg := amqp.NewBudgetAlertMessage(1, "Secretaria de Infraestrutura", "aditivo contratual", 250_00, -150_00)
	text := FormatAlert(msg)

	for _, want := range []string{
		"Secretaria de Infraestrutura",
		"aditivo contratual",
		"R$ 250,00",
		"-R$ 150,00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("FormatAlert() missing %q:\n%s", want, text)
		}
	}
}
