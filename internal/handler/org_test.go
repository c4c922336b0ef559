package handler

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCreateStructureAndVacancies(t *testing.T) {
	r := newRig(t)

	rec := r.do(t, adminClaims(), http.MethodPost, "/api/departments", DepartmentRequest{Name: "Finance"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create department: %d %s", rec.Code, rec.Body.String())
	}
	var dept DepartmentResponse
	decodeBody(t, rec, &dept)

	rec = r.do(t, adminClaims(), http.MethodPost, "/api/job-titles", JobTitleRequest{Name: "Accountant"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job title: %d %s", rec.Code, rec.Body.String())
	}
	var title JobTitleResponse
	decodeBody(t, rec, &title)

	rec = r.do(t, adminClaims(), http.MethodPost, "/api/positions", PositionRequest{
		DepartmentID: dept.ID,
		JobTitleID:   title.ID,
		Vacancies:    3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create position: %d %s", rec.Code, rec.Body.String())
	}
	var position PositionResponse
	decodeBody(t, rec, &position)

	rec = r.do(t, adminClaims(), http.MethodGet, fmt.Sprintf("/api/positions/%d/vacancies", position.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("vacancies: %d %s", rec.Code, rec.Body.String())
	}
	var summary VacancyResponse
	decodeBody(t, rec, &summary)
	if summary.Capacity != 3 || summary.Occupied != 0 || summary.Vacant != 3 {
		t.Fatalf("unexpected vacancy summary: %+v", summary)
	}
}

func TestStructureWritesRequireAdmin(t *testing.T) {
	r := newRig(t)
	person := r.seedPerson(t, "Ana")

	rec := r.do(t, employeeClaims(person.ID), http.MethodPost, "/api/departments", DepartmentRequest{Name: "Ops"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee creating a department, got %d", rec.Code)
	}
}

func TestSetReportingLinesRejectsSelfReference(t *testing.T) {
	r := newRig(t)
	position := r.seedPosition(t, 1)

	rec := r.do(t, adminClaims(), http.MethodPut,
		fmt.Sprintf("/api/positions/%d/managers", position.ID),
		ReportingLinesRequest{ManagerIDs: []int64{position.ID}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-reporting position, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSupervisorEndpoint(t *testing.T) {
	r := newRig(t)
	position := r.seedPosition(t, 1)

	// No reporting lines configured: the supervisor is null, not an error.
	rec := r.do(t, adminClaims(), http.MethodGet, fmt.Sprintf("/api/positions/%d/supervisor", position.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("supervisor: %d %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Supervisor any `json:"supervisor"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Supervisor != nil {
		t.Fatalf("expected null supervisor, got %v", envelope.Supervisor)
	}
}
