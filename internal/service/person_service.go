package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/workforce/internal/domain"
)

// PersonService manages the person catalog. The ledger treats people as
// opaque identities; this service only covers the writes seeding and
// onboarding need.
type PersonService struct {
	persons domain.PersonRepository
	logger  *slog.Logger
}

// NewPersonService creates a new person service.
func NewPersonService(persons domain.PersonRepository, logger *slog.Logger) *PersonService {
	return &PersonService{persons: persons, logger: logger}
}

// Create adds a person record.
func (s *PersonService) Create(ctx context.Context, firstName, lastName string, birthdate *time.Time) (*domain.Person, error) {
	if firstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	if birthdate != nil && birthdate.After(time.Now()) {
		return nil, fmt.Errorf("birthdate in the future")
	}
	p, err := s.persons.Create(ctx, &domain.Person{
		FirstName: firstName,
		LastName:  lastName,
		Birthdate: birthdate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	s.logger.Info("person created", slog.Int64("person_id", p.ID))
	return p, nil
}

// Get retrieves a person.
func (s *PersonService) Get(ctx context.Context, id int64) (*domain.Person, error) {
	return s.persons.GetByID(ctx, id)
}

// List returns all people.
func (s *PersonService) List(ctx context.Context) ([]*domain.Person, error) {
	return s.persons.List(ctx)
}
