package http

import (
	"log/slog"
	"net/http"

	"obras/internal/amqp"
	"obras/internal/budget"
	"obras/internal/core"
)

type expenseRequest struct {
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        core.Date `json:"date"`
}

type expenseView struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        core.Date `json:"date"`
	ProjectID   int64     `json:"project_id"`
	Warning     string    `json:"warning,omitempty"`
}

// handleCreateExpense records an expense against a project. An amount beyond
// the department's remaining budget is advisory here: the expense persists
// and the response carries a warning (the bot front-end rejects the same
// case). Going over budget also raises a best-effort admin alert.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.repo.GetProject(r.Context(), projectID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	var req expenseRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	amount, err := core.ParseBRL(req.Amount)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	date := req.Date
	if date.IsZero() {
		date = core.Today()
	}

	e := core.Expense{
		Description: req.Description,
		Amount:      amount,
		Date:        date,
		ProjectID:   projectID,
	}
	if err := e.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}

	remaining, err := budget.RemainingBudget(r.Context(), s.repo, p.DepartmentID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	overBudget := e.Amount.Cents > remaining.Cents

	created, err := s.repo.CreateExpense(r.Context(), e)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	view := expenseView{
		ID:          created.ID,
		Description: created.Description,
		Amount:      created.Amount.BRL(),
		Date:        created.Date,
		ProjectID:   created.ProjectID,
	}
	if overBudget {
		dep, err := s.repo.GetDepartment(r.Context(), p.DepartmentID)
		if err != nil {
			writeStorageError(w, r, err)
			return
		}
		view.Warning = "Atenção! Este gasto deixará o saldo geral da secretaria (" + dep.Name + ") negativo."
		s.publishBudgetAlert(r, dep, created, remaining)
	}
	writeJSON(w, http.StatusCreated, view)
}

// publishBudgetAlert pushes an over-budget event onto the bus. Failures are
// logged and swallowed; alerting never blocks the write.
func (s *Server) publishBudgetAlert(r *http.Request, dep core.Department, e core.Expense, remainingBefore core.Money) {
	if s.alerts == nil {
		return
	}
	msg := amqp.NewBudgetAlertMessage(dep.ID, dep.Name, e.Description,
		e.Amount.Cents, remainingBefore.Cents-e.Amount.Cents)
	if err := s.alerts.PublishBudgetAlert(r.Context(), msg); err != nil {
		slog.ErrorContext(r.Context(), "Failed to publish budget alert",
			"error", err, "department_id", dep.ID)
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.repo.GetProject(r.Context(), projectID); err != nil {
		writeStorageError(w, r, err)
		return
	}
	expenses, err := s.repo.ListExpensesByProject(r.Context(), projectID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, expenseView{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount.BRL(),
			Date:        e.Date,
			ProjectID:   e.ProjectID,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteExpense(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
