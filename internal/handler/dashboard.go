package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/service"
)

// DashboardHandler serves the workforce aggregates
type DashboardHandler struct {
	dashboard *service.DashboardService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *service.DashboardService, authz *security.AuthorizationService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles GET /api/dashboard
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermViewDashboard); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}

	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute dashboard", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to compute dashboard"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
