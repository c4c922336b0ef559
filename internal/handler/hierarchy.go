package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/service"
)

// HierarchyHandler serves the reporting-line views
type HierarchyHandler struct {
	hierarchy *service.HierarchyService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewHierarchyHandler creates a new hierarchy handler
func NewHierarchyHandler(hierarchy *service.HierarchyService, authz *security.AuthorizationService, logger *slog.Logger) *HierarchyHandler {
	return &HierarchyHandler{
		hierarchy: hierarchy,
		authz:     authz,
		logger:    logger,
	}
}

// OrgChart handles GET /api/people/{id}/org-chart
func (h *HierarchyHandler) OrgChart(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermViewOrgChart); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}

	personID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	chart, err := h.hierarchy.OrgChartFor(r.Context(), personID)
	if err != nil {
		h.logger.Debug("org chart lookup failed",
			slog.Int64("person_id", personID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// Supervisor handles GET /api/positions/{id}/supervisor
func (h *HierarchyHandler) Supervisor(w http.ResponseWriter, r *http.Request) {
	positionID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	boss, err := h.hierarchy.SupervisorOf(r.Context(), positionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if boss == nil {
		writeJSON(w, http.StatusOK, map[string]any{"supervisor": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supervisor": boss})
}

// DepartmentManager handles GET /api/departments/{id}/manager
func (h *HierarchyHandler) DepartmentManager(w http.ResponseWriter, r *http.Request) {
	departmentID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	member, err := h.hierarchy.DepartmentManagerOccupant(r.Context(), departmentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
