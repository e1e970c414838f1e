package http

import (
	"net/http"
	"strconv"

	"obras/internal/budget"
	"obras/internal/core"
	"obras/internal/storage"
)

type projectRequest struct {
	Name           string `json:"name"`
	Object         string `json:"object"`
	Municipality   string `json:"municipality"`
	ContractNumber string `json:"contract_number"`
	ContractSource string `json:"contract_source"`
	ServiceOrder   string `json:"service_order"`
	Period         string `json:"period"`
	Address        string `json:"address"`
	DepartmentID   int64  `json:"department_id"`
}

type projectView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Object         string `json:"object"`
	Municipality   string `json:"municipality"`
	ContractNumber string `json:"contract_number"`
	ContractSource string `json:"contract_source"`
	ServiceOrder   string `json:"service_order"`
	Period         string `json:"period"`
	Address        string `json:"address"`
	DepartmentID   int64  `json:"department_id"`
}

type progressRequest struct {
	Status       string    `json:"status"`
	StartDate    core.Date `json:"start_date"`
	DeliveryDate core.Date `json:"delivery_date"`
}

type progressView struct {
	Status       string    `json:"status"`
	StartDate    core.Date `json:"start_date"`
	DeliveryDate core.Date `json:"delivery_date"`
	LastUpdated  string    `json:"last_updated"`
	ProjectID    int64     `json:"project_id"`
}

func projectFromRequest(req projectRequest) core.Project {
	return core.Project{
		Name:           req.Name,
		Object:         req.Object,
		Municipality:   req.Municipality,
		ContractNumber: req.ContractNumber,
		ContractSource: req.ContractSource,
		ServiceOrder:   req.ServiceOrder,
		Period:         req.Period,
		Address:        req.Address,
		DepartmentID:   req.DepartmentID,
	}
}

func newProjectView(p core.Project) projectView {
	return projectView{
		ID:             p.ID,
		Name:           p.Name,
		Object:         p.Object,
		Municipality:   p.Municipality,
		ContractNumber: p.ContractNumber,
		ContractSource: p.ContractSource,
		ServiceOrder:   p.ServiceOrder,
		Period:         p.Period,
		Address:        p.Address,
		DepartmentID:   p.DepartmentID,
	}
}

// handleCreateProject persists the project and its initial progress record
// atomically.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	p := projectFromRequest(req)
	if err := p.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if _, err := s.repo.GetDepartment(r.Context(), p.DepartmentID); err != nil {
		writeStorageError(w, r, err)
		return
	}
	created, err := s.repo.CreateProject(r.Context(), p)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProjectView(created))
}

// handleListProjects supports ?q= substring search over name/contract
// number, ?department_id= exact filter and ?order=name|spent_asc|spent_desc.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	filter := storage.ProjectFilter{
		Query: r.URL.Query().Get("q"),
		Order: storage.OrderByName,
	}
	if v := r.URL.Query().Get("department_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "department_id inválido")
			return
		}
		filter.DepartmentID = id
	}
	switch r.URL.Query().Get("order") {
	case "", "name":
	case "spent_asc":
		filter.Order = storage.OrderBySpentAsc
	case "spent_desc":
		filter.Order = storage.OrderBySpentDesc
	default:
		writeError(w, http.StatusBadRequest, "ordenação inválida")
		return
	}

	projects, err := s.repo.ListProjects(r.Context(), filter)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, newProjectView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.repo.GetProject(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req projectRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	p := projectFromRequest(req)
	p.ID = id
	if err := p.Validate(); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if _, err := s.repo.GetDepartment(r.Context(), p.DepartmentID); err != nil {
		writeStorageError(w, r, err)
		return
	}
	if err := s.repo.UpdateProject(r.Context(), p); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.repo.DeleteProject(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusUnprocessableEntity, "status é obrigatório")
		return
	}
	pr := core.Progress{
		Status:       req.Status,
		StartDate:    req.StartDate,
		DeliveryDate: req.DeliveryDate,
		ProjectID:    id,
	}
	if err := s.repo.UpdateProgress(r.Context(), pr); err != nil {
		writeStorageError(w, r, err)
		return
	}
	updated, err := s.repo.GetProgress(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressView{
		Status:       updated.Status,
		StartDate:    updated.StartDate,
		DeliveryDate: updated.DeliveryDate,
		LastUpdated:  updated.LastUpdated.Format("2006-01-02 15:04:05"),
		ProjectID:    updated.ProjectID,
	})
}

// handleProjectChart feeds the per-project pie widget: the project's own
// total against the whole department's remaining balance.
func (s *Server) handleProjectChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.repo.GetProject(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	spent, err := budget.ProjectTotalSpent(r.Context(), s.repo, id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	remaining, err := budget.RemainingBudget(r.Context(), s.repo, p.DepartmentID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"gasto_da_obra":       spent.BRL(),
		"saldo_da_secretaria": remaining.BRL(),
	})
}
