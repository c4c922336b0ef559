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

// DeptRoleHandler handles department role assignments
type DeptRoleHandler struct {
	roles  *service.DeptRoleService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewDeptRoleHandler creates a new department role handler
func NewDeptRoleHandler(roles *service.DeptRoleService, authz *security.AuthorizationService, logger *slog.Logger) *DeptRoleHandler {
	return &DeptRoleHandler{
		roles:  roles,
		authz:  authz,
		logger: logger,
	}
}

// RoleAssignRequest represents a role assignment
type RoleAssignRequest struct {
	PersonID     int64   `json:"personId"`
	DepartmentID int64   `json:"departmentId"`
	Role         string  `json:"role"`
	StartDate    string  `json:"startDate,omitempty"`
	EndDate      *string `json:"endDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// RoleResponse is the wire form of a role row
type RoleResponse struct {
	ID           int64   `json:"id"`
	PersonID     int64   `json:"personId"`
	DepartmentID int64   `json:"departmentId"`
	Role         string  `json:"role"`
	StartDate    string  `json:"startDate"`
	EndDate      *string `json:"endDate,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

func roleResponse(role *domain.PersonDepartmentRole) RoleResponse {
	resp := RoleResponse{
		ID:           role.ID,
		PersonID:     role.PersonID,
		DepartmentID: role.DepartmentID,
		Role:         string(role.Role),
		StartDate:    role.StartDate.Format(dateLayout),
		Notes:        role.Notes,
	}
	if role.EndDate != nil {
		d := role.EndDate.Format(dateLayout)
		resp.EndDate = &d
	}
	return resp
}

// Assign handles POST /api/department-roles
func (h *DeptRoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermAssignRoles); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}

	var req RoleAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.PersonID == 0 || req.DepartmentID == 0 || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "personId, departmentId, and role are required"})
		return
	}

	start, err := parseOptionalDate(&req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "startDate must be YYYY-MM-DD"})
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "endDate must be YYYY-MM-DD"})
		return
	}

	request := service.RoleRequest{
		PersonID:     req.PersonID,
		DepartmentID: req.DepartmentID,
		Role:         domain.HierarchicalRole(req.Role),
		EndDate:      end,
		Notes:        req.Notes,
	}
	if start != nil {
		request.StartDate = *start
	}

	role, err := h.roles.Assign(r.Context(), request)
	if err != nil {
		h.logger.Info("role assignment rejected", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roleResponse(role))
}

// ListByPerson handles GET /api/people/{id}/department-roles
func (h *DeptRoleHandler) ListByPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	roles, err := h.roles.ListByPerson(r.Context(), personID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeRoles(w, roles)
}

// ListByDepartment handles GET /api/departments/{id}/roles
func (h *DeptRoleHandler) ListByDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	roles, err := h.roles.ListByDepartment(r.Context(), departmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeRoles(w, roles)
}

// CurrentManagers handles GET /api/managers
func (h *DeptRoleHandler) CurrentManagers(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.CurrentManagers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeRoles(w, roles)
}

func (h *DeptRoleHandler) writeRoles(w http.ResponseWriter, roles []*domain.PersonDepartmentRole) {
	items := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		items = append(items, roleResponse(role))
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": items})
}
