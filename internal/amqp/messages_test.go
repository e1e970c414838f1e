package amqp

import (
	"testing"
)

func TestBudgetAlertMessageRoundTrip(t *testing.T) {
	msg := NewBudgetAlertMessage(7, "Secretaria de Infraestrutura", "aditivo contratual", 250_00, -150_00)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := BudgetAlertMessageFromJSON(data)
	if err != nil {
		t.Fatalf("BudgetAlertMessageFromJSON() error = %v", err)
	}

	if got.DepartmentID != 7 || got.DepartmentName != "Secretaria de Infraestrutura" {
		t.Errorf("department = %d/%q", got.DepartmentID, got.DepartmentName)
	}
	if got.AmountCents != 250_00 || got.RemainingCents != -150_00 {
		t.Errorf("amounts = %d/%d", got.AmountCents, got.RemainingCents)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestBudgetAlertMessageFromJSONMalformed(t *testing.T) {
	if _, err := BudgetAlertMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("BudgetAlertMessageFromJSON(malformed) = nil, want error")
	}
}
