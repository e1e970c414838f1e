package amqp

import (
	"encoding/json"
	"time"
)

// BudgetAlertMessage announces that an expense pushed a department's
// remaining budget below zero. Alerts are advisory: they never block the
// write that triggered them and are never retried after delivery fails.
type BudgetAlertMessage struct {
	DepartmentID   int64     `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	Description    string    `json:"description"`
	AmountCents    int64     `json:"amount_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(departmentID int64, departmentName, description string, amountCents, remainingCents int64) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		Description:    description,
		AmountCents:    amountCents,
		RemainingCents: remainingCents,
		Timestamp:      time.Now(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
