package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// SourceInitial selects the department's original service-order figure.
	SourceInitial BudgetSource = "initial"
	// SourceAlternate selects the competing supervisor figure.
	SourceAlternate BudgetSource = "alternate"

	// DefaultProgressStatus is the status every new project starts with.
	DefaultProgressStatus = "Não Iniciada"
)

type (
	BudgetSource string

	// Date is a calendar day without a time component. All ledger dates
	// (expenses, measurement periods, progress milestones) are day-granular.
	Date struct {
		time.Time
	}

	// Department (secretaria) owns projects and measurement periods.
	Department struct {
		ID   int64
		Name string
	}

	// Project (obra) is a public-works undertaking tracked for cost.
	Project struct {
		ID             int64
		Name           string
		Object         string
		Municipality   string
		ContractNumber string
		ContractSource string
		ServiceOrder   string
		Period         string
		Address        string
		DepartmentID   int64
	}

	// Progress (andamento) is the single status/timeline record of a project.
	Progress struct {
		ID           int64
		Status       string
		StartDate    Date
		DeliveryDate Date
		LastUpdated  time.Time
		ProjectID    int64
	}

	// Expense (gasto) is one dated cost entry against a project. Expenses are
	// immutable once recorded; they can only be deleted.
	Expense struct {
		ID          int64
		Description string
		Amount      Money
		Date        Date
		ProjectID   int64
	}

	// Measurement (medição) is a named accounting period during which each of
	// the department's projects receives a budget allocation.
	Measurement struct {
		ID           int64
		Name         string
		StartDate    Date
		EndDate      Date
		DepartmentID int64
	}

	// Allocation holds the two candidate budget figures a project received in
	// one measurement, plus the selector deciding which one counts.
	Allocation struct {
		ID              int64
		MeasurementID   int64
		ProjectID       int64
		InitialAmount   Money
		AlternateAmount Money
		SelectedSource  BudgetSource
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrNameLength      = errors.New("name length out of range")
	ErrEmptyDesc       = errors.New("empty description")
	ErrDescTooLong     = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrInvalidPeriod   = errors.New("start date must not be after end date")
	ErrInvalidSource   = errors.New("invalid budget source")
	ErrMissingRelation = errors.New("missing parent reference")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now().UTC())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// ISO renders the date as YYYY-MM-DD, the ledger's storage format.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// ShortBR renders the date as dd/mm, the chart label format.
func (d Date) ShortBR() string {
	return d.Format("02/01")
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (s BudgetSource) Valid() bool {
	return s == SourceInitial || s == SourceAlternate
}

func (dep Department) Validate() error {
	name := strings.TrimSpace(dep.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) < 3 || len(name) > 100 {
		return ErrNameLength
	}
	return nil
}

func (p Project) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) < 5 || len(name) > 200 {
		return ErrNameLength
	}
	if p.DepartmentID <= 0 {
		return ErrMissingRelation
	}
	return nil
}

func (e Expense) Validate() error {
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return ErrEmptyDesc
	}
	if len(desc) < 3 {
		return ErrNameLength
	}
	if len(desc) > 200 {
		return ErrDescTooLong
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.ProjectID <= 0 {
		return ErrMissingRelation
	}
	return nil
}

func (m Measurement) Validate() error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) < 5 || len(name) > 150 {
		return ErrNameLength
	}
	if err := m.StartDate.Validate(); err != nil {
		return err
	}
	if err := m.EndDate.Validate(); err != nil {
		return err
	}
	if m.EndDate.Before(m.StartDate.Time) {
		return ErrInvalidPeriod
	}
	if m.DepartmentID <= 0 {
		return ErrMissingRelation
	}
	return nil
}

func (a Allocation) Validate() error {
	if a.MeasurementID <= 0 || a.ProjectID <= 0 {
		return ErrMissingRelation
	}
	if a.InitialAmount.Cents < 0 || a.AlternateAmount.Cents < 0 {
		return ErrNegativeAmount
	}
	if !a.SelectedSource.Valid() {
		return ErrInvalidSource
	}
	return nil
}

// EffectiveAmount is the allocation figure that counts toward budget totals.
// It is a pure function of the two candidate amounts and the selector and is
// never stored.
func (a Allocation) EffectiveAmount() Money {
	if a.SelectedSource == SourceAlternate {
		return a.AlternateAmount
	}
	return a.InitialAmount
}
