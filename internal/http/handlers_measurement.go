package http

import (
	"net/http"

	"obras/internal/budget"
	"obras/internal/core"
)

type measurementRequest struct {
	Name      string    `json:"name"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

type measurementView struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StartDate    core.Date `json:"start_date"`
	EndDate      core.Date `json:"end_date"`
	DepartmentID int64     `json:"department_id"`
}

type allocationRequest struct {
	InitialAmount   string `json:"initial_amount"`
	AlternateAmount string `json:"alternate_amount"`
	SelectedSource  string `json:"selected_source"`
}

type allocationView struct {
	ID              int64   `json:"id"`
	MeasurementID   int64   `json:"measurement_id"`
	ProjectID       int64   `json:"project_id"`
	InitialAmount   float64 `json:"initial_amount"`
	AlternateAmount float64 `json:"alternate_amount"`
	SelectedSource  string  `json:"selected_source"`
	EffectiveAmount float64 `json:"effective_amount"`
}

func newMeasurementView(m core.Measurement) measurementView {
	return measurementView{
		ID:           m.ID,
		Name:         m.Name,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		DepartmentID: m.DepartmentID,
	}
}

func newAllocationView(a core.Allocation) allocationView {
	return allocationView{
		ID:              a.ID,
		MeasurementID:   a.MeasurementID,
		ProjectID:       a.ProjectID,
		InitialAmount:   a.InitialAmount.BRL(),
		AlternateAmount: a.AlternateAmount.BRL(),
		SelectedSource:  string(a.SelectedSource),
		EffectiveAmount: a.EffectiveAmount().BRL(),
	}
}

func (s *Server) handleCreateMeasurement(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req measurementRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	m := core.Measurement{
		Name:         req.Name,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		DepartmentID: departmentID,
	}
	if err := m.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if _, err := s.repo.GetDepartment(r.Context(), departmentID); err != nil {
		writeStorageError(w, r, err)
		return
	}
	created, err := s.repo.CreateMeasurement(r.Context(), m)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMeasurementView(created))
}

func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.repo.GetDepartment(r.Context(), departmentID); err != nil {
		writeStorageError(w, r, err)
		return
	}
	measurements, err := s.repo.ListMeasurementsByDepartment(r.Context(), departmentID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	views := make([]measurementView, 0, len(measurements))
	for _, m := range measurements {
		views = append(views, newMeasurementView(m))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := s.repo.GetMeasurement(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMeasurementView(m))
}

func (s *Server) handleUpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	existing, err := s.repo.GetMeasurement(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	var req measurementRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	m := core.Measurement{
		ID:           id,
		Name:         req.Name,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		DepartmentID: existing.DepartmentID,
	}
	if err := m.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if err := s.repo.UpdateMeasurement(r.Context(), m); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMeasurementView(m))
}

// handleDeleteMeasurement removes the period and its allocations; the
// projects and expenses it reconciled are untouched.
func (s *Server) handleDeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteMeasurement(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMeasurementSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := s.repo.GetMeasurement(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	summary, err := budget.Summarize(r.Context(), s.repo, m)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.repo.GetMeasurement(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	allocations, err := s.repo.ListAllocationsByMeasurement(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	views := make([]allocationView, 0, len(allocations))
	for _, a := range allocations {
		views = append(views, newAllocationView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleUpsertAllocation creates or updates the allocation for one project in
// one measurement. Repeating the same request is a no-op.
func (s *Server) handleUpsertAllocation(w http.ResponseWriter, r *http.Request) {
	measurementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	var req allocationRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	initial, err := core.ParseBRL(req.InitialAmount)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	alternate, err := core.ParseBRL(req.AlternateAmount)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	source := core.BudgetSource(req.SelectedSource)
	if req.SelectedSource == "" {
		source = core.SourceInitial
	}

	a := core.Allocation{
		MeasurementID:   measurementID,
		ProjectID:       projectID,
		InitialAmount:   initial,
		AlternateAmount: alternate,
		SelectedSource:  source,
	}
	if err := a.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertAllocation(r.Context(), a)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAllocationView(saved))
}
