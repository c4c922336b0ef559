package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/service"
)

// OrgHandler handles the org structure endpoints: departments, job
// titles, positions and reporting lines.
type OrgHandler struct {
	org         *service.OrgService
	employments *service.EmploymentService
	authz       *security.AuthorizationService
	logger      *slog.Logger
}

// NewOrgHandler creates a new org structure handler
func NewOrgHandler(org *service.OrgService, employments *service.EmploymentService, authz *security.AuthorizationService, logger *slog.Logger) *OrgHandler {
	return &OrgHandler{
		org:         org,
		employments: employments,
		authz:       authz,
		logger:      logger,
	}
}

func (h *OrgHandler) requireManageStructure(w http.ResponseWriter, r *http.Request) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return false
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageStructure); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// DepartmentRequest represents a new department
type DepartmentRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
}

// DepartmentResponse is the wire form of a department
type DepartmentResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
}

func departmentResponse(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID, Name: d.Name, ParentID: d.ParentID}
}

// CreateDepartment handles POST /api/departments
func (h *OrgHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	if !h.requireManageStructure(w, r) {
		return
	}
	var req DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}
	d, err := h.org.CreateDepartment(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, departmentResponse(d))
}

// ListDepartments handles GET /api/departments
func (h *OrgHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.org.Departments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		items = append(items, departmentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": items})
}

// JobTitleRequest represents a new job title
type JobTitleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateJobTitle handles POST /api/job-titles
func (h *OrgHandler) CreateJobTitle(w http.ResponseWriter, r *http.Request) {
	if !h.requireManageStructure(w, r) {
		return
	}
	var req JobTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}
	t, err := h.org.CreateJobTitle(r.Context(), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, JobTitleResponse{ID: t.ID, Name: t.Name, Description: t.Description})
}

// JobTitleResponse is the wire form of a job title
type JobTitleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PositionRequest represents a new position
type PositionRequest struct {
	DepartmentID int64   `json:"departmentId"`
	JobTitleID   int64   `json:"jobTitleId"`
	Name         string  `json:"name,omitempty"`
	Vacancies    int     `json:"vacancies"`
	IsManager    bool    `json:"isManager,omitempty"`
	ManagerIDs   []int64 `json:"managerIds,omitempty"`
}

// PositionResponse is the wire form of a position
type PositionResponse struct {
	ID           int64   `json:"id"`
	DepartmentID int64   `json:"departmentId"`
	JobTitleID   int64   `json:"jobTitleId"`
	Name         string  `json:"name,omitempty"`
	Vacancies    int     `json:"vacancies"`
	IsManager    bool    `json:"isManager"`
	ManagerIDs   []int64 `json:"managerIds"`
}

func positionResponse(p *domain.Position) PositionResponse {
	managerIDs := p.ManagerPositionIDs
	if managerIDs == nil {
		managerIDs = []int64{}
	}
	return PositionResponse{
		ID:           p.ID,
		DepartmentID: p.DepartmentID,
		JobTitleID:   p.JobTitleID,
		Name:         p.Name,
		Vacancies:    p.Vacancies,
		IsManager:    p.IsManager,
		ManagerIDs:   managerIDs,
	}
}

// CreatePosition handles POST /api/positions
func (h *OrgHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	if !h.requireManageStructure(w, r) {
		return
	}
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.DepartmentID == 0 || req.JobTitleID == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "departmentId and jobTitleId are required"})
		return
	}
	p, err := h.org.CreatePosition(r.Context(), service.PositionRequest{
		DepartmentID: req.DepartmentID,
		JobTitleID:   req.JobTitleID,
		Name:         req.Name,
		Vacancies:    req.Vacancies,
		IsManager:    req.IsManager,
		ManagerIDs:   req.ManagerIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, positionResponse(p))
}

// ListPositions handles GET /api/positions, optionally filtered by department
func (h *OrgHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []*domain.Position
		err       error
	)
	if deptParam := r.URL.Query().Get("department"); deptParam != "" {
		deptID, convErr := parseID(deptParam)
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid department filter"})
			return
		}
		positions, err = h.org.PositionsByDepartment(r.Context(), deptID)
	} else {
		positions, err = h.org.Positions(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		items = append(items, positionResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": items})
}

// GetPosition handles GET /api/positions/{id}
func (h *OrgHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	p, err := h.org.Position(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse(p))
}

// Vacancies handles GET /api/positions/{id}/vacancies
func (h *OrgHandler) Vacancies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	summary, err := h.employments.Vacancies(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VacancyResponse{
		PositionID: summary.PositionID,
		Capacity:   summary.Capacity,
		Occupied:   summary.Occupied,
		Vacant:     summary.Remaining,
	})
}

// VacancyResponse reports seat usage for one position
type VacancyResponse struct {
	PositionID int64 `json:"positionId"`
	Capacity   int   `json:"capacity"`
	Occupied   int   `json:"occupied"`
	Vacant     int   `json:"vacant"`
}

// ReportingLinesRequest replaces a position's manager set
type ReportingLinesRequest struct {
	ManagerIDs []int64 `json:"managerIds"`
}

// SetReportingLines handles PUT /api/positions/{id}/managers
func (h *OrgHandler) SetReportingLines(w http.ResponseWriter, r *http.Request) {
	if !h.requireManageStructure(w, r) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	var req ReportingLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if err := h.org.SetReportingLines(r.Context(), id, req.ManagerIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reporting lines updated"})
}
