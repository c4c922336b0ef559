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

// PersonHandler handles the person catalog endpoints
type PersonHandler struct {
	persons *service.PersonService
	authz   *security.AuthorizationService
	logger  *slog.Logger
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(persons *service.PersonService, authz *security.AuthorizationService, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{
		persons: persons,
		authz:   authz,
		logger:  logger,
	}
}

// PersonRequest represents a new person
type PersonRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName,omitempty"`
	Birthdate *string `json:"birthdate,omitempty"`
}

// PersonResponse is the wire form of a person
type PersonResponse struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName,omitempty"`
	FullName  string  `json:"fullName"`
	Birthdate *string `json:"birthdate,omitempty"`
}

func personResponse(p *domain.Person) PersonResponse {
	resp := PersonResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.FullName(),
	}
	if p.Birthdate != nil {
		d := p.Birthdate.Format(dateLayout)
		resp.Birthdate = &d
	}
	return resp
}

// Create handles POST /api/people
func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(security.Role(claims.Role), security.PermManageStructure); err != nil {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}

	var req PersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	if req.FirstName == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "firstName is required"})
		return
	}
	birthdate, err := parseOptionalDate(req.Birthdate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "birthdate must be YYYY-MM-DD"})
		return
	}

	p, err := h.persons.Create(r.Context(), req.FirstName, req.LastName, birthdate)
	if err != nil {
		h.logger.Info("person creation rejected", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, personResponse(p))
}

// Get handles GET /api/people/{id}
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return
	}
	p, err := h.persons.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, personResponse(p))
}

// List handles GET /api/people
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.persons.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]PersonResponse, 0, len(people))
	for _, p := range people {
		items = append(items, personResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": items})
}
