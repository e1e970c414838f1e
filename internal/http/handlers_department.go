package http

import (
	"net/http"

	"obras/internal/budget"
	"obras/internal/core"
)

type departmentRequest struct {
	Name string `json:"name"`
}

type departmentView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	dep := core.Department{Name: req.Name}
	if err := dep.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	created, err := s.repo.CreateDepartment(r.Context(), dep)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, departmentView{ID: created.ID, Name: created.Name})
}

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := s.repo.ListDepartments(r.Context())
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	views := make([]departmentView, 0, len(deps))
	for _, dep := range deps {
		views = append(views, departmentView{ID: dep.ID, Name: dep.Name})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dep, err := s.repo.GetDepartment(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, departmentView{ID: dep.ID, Name: dep.Name})
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req departmentRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	dep := core.Department{ID: id, Name: req.Name}
	if err := dep.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if err := s.repo.UpdateDepartment(r.Context(), dep); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, departmentView{ID: dep.ID, Name: dep.Name})
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteDepartment(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// handleDepartmentOverview returns the consolidated budget figures the
// dashboard cards show.
func (s *Server) handleDepartmentOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dep, err := s.repo.GetDepartment(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	overview, err := budget.DepartmentOverview(r.Context(), s.repo, dep)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleDepartmentChart returns the daily line-chart payload.
func (s *Server) handleDepartmentChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.repo.GetDepartment(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	data, err := budget.DailySeries(r.Context(), s.repo, id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
