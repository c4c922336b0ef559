package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/service"
)

const dateLayout = "2006-01-02"

// EmploymentHandler handles the contract lifecycle endpoints
type EmploymentHandler struct {
	employments *service.EmploymentService
	accounts    *service.AuthService
	authz       *security.AuthorizationService
	logger      *slog.Logger
}

// NewEmploymentHandler creates a new employment handler. accounts may be
// nil; it is only used to deactivate a person's login on termination.
func NewEmploymentHandler(employments *service.EmploymentService, accounts *service.AuthService, authz *security.AuthorizationService, logger *slog.Logger) *EmploymentHandler {
	return &EmploymentHandler{
		employments: employments,
		accounts:    accounts,
		authz:       authz,
		logger:      logger,
	}
}

// HireRequest represents a new contract request
type HireRequest struct {
	PersonID       int64   `json:"personId"`
	PositionID     int64   `json:"positionId"`
	Role           string  `json:"role,omitempty"`
	EmploymentType string  `json:"employmentType,omitempty"`
	Status         string  `json:"status,omitempty"`
	HireDate       string  `json:"hireDate"`
	EndDate        *string `json:"endDate,omitempty"`
}

// StatusChangeRequest represents a transition request
type StatusChangeRequest struct {
	Status     string  `json:"status"`
	EndDate    *string `json:"endDate,omitempty"`
	ExitReason *string `json:"exitReason,omitempty"`
	ExitNotes  string  `json:"exitNotes,omitempty"`
}

// TerminateRequest represents a termination request
type TerminateRequest struct {
	ExitReason string  `json:"exitReason"`
	EndDate    *string `json:"endDate,omitempty"`
	ExitNotes  string  `json:"exitNotes,omitempty"`
	// DeactivateUser also disables the person's login. Defaults to true.
	DeactivateUser *bool `json:"deactivateUser,omitempty"`
}

// EmploymentResponse is the wire form of a contract
type EmploymentResponse struct {
	ID             int64   `json:"id"`
	PersonID       int64   `json:"personId"`
	PositionID     int64   `json:"positionId"`
	Role           string  `json:"role"`
	EmploymentType string  `json:"employmentType"`
	Status         string  `json:"status"`
	StatusName     string  `json:"statusName"`
	HireDate       string  `json:"hireDate"`
	EndDate        *string `json:"endDate,omitempty"`
	ExitReason     *string `json:"exitReason,omitempty"`
	ExitNotes      string  `json:"exitNotes,omitempty"`
}

func employmentResponse(e *domain.Employment) EmploymentResponse {
	resp := EmploymentResponse{
		ID:             e.ID,
		PersonID:       e.PersonID,
		PositionID:     e.PositionID,
		Role:           e.Role,
		EmploymentType: e.EmploymentType,
		Status:         string(e.CurrentStatus),
		StatusName:     e.CurrentStatus.Name(),
		HireDate:       e.HireDate.Format(dateLayout),
		ExitNotes:      e.ExitNotes,
	}
	if e.EndDate != nil {
		d := e.EndDate.Format(dateLayout)
		resp.EndDate = &d
	}
	if e.ExitReason != nil {
		r := string(*e.ExitReason)
		resp.ExitReason = &r
	}
	return resp
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *EmploymentHandler) requirePermission(w http.ResponseWriter, r *http.Request, perm security.Permission) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return false
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), perm); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// Create handles POST /api/employments
func (h *EmploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requirePermission(w, r, security.PermHire) {
		return
	}

	var req HireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode hire request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.PersonID == 0 || req.PositionID == 0 || req.HireDate == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "personId, positionId, and hireDate are required"})
		return
	}

	hireDate, err := parseDate(req.HireDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "hireDate must be YYYY-MM-DD"})
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "endDate must be YYYY-MM-DD"})
		return
	}

	role := req.Role
	if role == "" {
		role = domain.ContractRoleEmployee
	}
	employmentType := req.EmploymentType
	if employmentType == "" {
		employmentType = domain.TypePermanent
	}

	created, err := h.employments.Hire(r.Context(), service.HireRequest{
		PersonID:       req.PersonID,
		PositionID:     req.PositionID,
		Role:           role,
		EmploymentType: employmentType,
		Status:         domain.Status(req.Status),
		HireDate:       hireDate,
		EndDate:        endDate,
	})
	if err != nil {
		h.logger.Info("hire rejected", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, employmentResponse(created))
}

// Get handles GET /api/employments/{id}
func (h *EmploymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	e, err := h.employments.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.allowRecordRead(w, r, e.PersonID) {
		return
	}

	writeJSON(w, http.StatusOK, employmentResponse(e))
}

// List handles GET /api/employments, optionally filtered by person
func (h *EmploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.requirePermission(w, r, security.PermReadContracts) {
		return
	}
	claims := middleware.GetClaimsFromContext(r.Context())

	var (
		contracts []*domain.Employment
		err       error
	)
	if personParam := r.URL.Query().Get("person"); personParam != "" {
		personID, convErr := parseID(personParam)
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid person filter"})
			return
		}
		if err := h.authz.ValidateRecordAccess(security.Role(claims.Role), claims.PersonID, personID); err != nil {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
			return
		}
		contracts, err = h.employments.ListByPerson(r.Context(), personID)
	} else {
		if security.Role(claims.Role) != security.RoleHRAdmin {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "listing all contracts requires hr_admin"})
			return
		}
		contracts, err = h.employments.List(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list contracts", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	items := make([]EmploymentResponse, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, employmentResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"employments": items})
}

// ChangeStatus handles POST /api/employments/{id}/status
func (h *EmploymentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requirePermission(w, r, security.PermChangeStatus) {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	var req StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "status is required"})
		return
	}

	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "endDate must be YYYY-MM-DD"})
		return
	}
	var exitReason *domain.ExitReason
	if req.ExitReason != nil && *req.ExitReason != "" {
		er := domain.ExitReason(*req.ExitReason)
		exitReason = &er
	}

	updated, err := h.employments.ChangeStatus(r.Context(), id, service.StatusChangeRequest{
		NewStatus:  domain.Status(req.Status),
		EndDate:    endDate,
		ExitReason: exitReason,
		ExitNotes:  req.ExitNotes,
	})
	if err != nil {
		h.logger.Info("status change rejected",
			slog.Int64("employment_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, employmentResponse(updated))
}

// Terminate handles POST /api/employments/{id}/terminate
func (h *EmploymentHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	if !h.requirePermission(w, r, security.PermChangeStatus) {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	var req TerminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.ExitReason == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "exitReason is required"})
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "endDate must be YYYY-MM-DD"})
		return
	}

	updated, err := h.employments.Terminate(r.Context(), id, domain.ExitReason(req.ExitReason), endDate, req.ExitNotes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The login goes with the contract unless the caller keeps it.
	deactivate := req.DeactivateUser == nil || *req.DeactivateUser
	if deactivate && h.accounts != nil {
		if err := h.accounts.DeactivateForPerson(r.Context(), updated.PersonID); err != nil {
			h.logger.Error("failed to deactivate account on termination",
				slog.Int64("person_id", updated.PersonID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, employmentResponse(updated))
}

// Delete handles DELETE /api/employments/{id}
func (h *EmploymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requirePermission(w, r, security.PermDeleteContract) {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	if err := h.employments.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "employment deleted"})
}

// History handles GET /api/employments/{id}/history
func (h *EmploymentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}

	e, err := h.employments.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.allowRecordRead(w, r, e.PersonID) {
		return
	}

	logs, err := h.employments.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type logEntry struct {
		Status     string `json:"status"`
		StatusName string `json:"statusName"`
		StartDate  string `json:"startDate"`
		Reason     string `json:"reason"`
	}
	items := make([]logEntry, 0, len(logs))
	for _, l := range logs {
		items = append(items, logEntry{
			Status:     string(l.Status),
			StatusName: l.Status.Name(),
			StartDate:  l.StartDate.Format(dateLayout),
			Reason:     l.Reason,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

// allowRecordRead enforces the own-records rule for non-admin readers.
func (h *EmploymentHandler) allowRecordRead(w http.ResponseWriter, r *http.Request, personID int64) bool {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return false
	}
	if err := h.authz.ValidateRecordAccess(security.Role(claims.Role), claims.PersonID, personID); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}
