package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/workforce/internal/domain"
)

// PostgresPersonRepository implements domain.PersonRepository.
type PostgresPersonRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPersonRepository creates a new person repository.
func NewPostgresPersonRepository(db *sql.DB, logger *slog.Logger) *PostgresPersonRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPersonRepository{db: db, logger: logger}
}

// GetByID retrieves a person by id.
func (r *PostgresPersonRepository) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	p := &domain.Person{}
	var birthdate sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, birthdate, created_at FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &birthdate, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("person", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	if birthdate.Valid {
		p.Birthdate = &birthdate.Time
	}
	return p, nil
}

// Create inserts a person.
func (r *PostgresPersonRepository) Create(ctx context.Context, p *domain.Person) (*domain.Person, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO persons (first_name, last_name, birthdate) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.FirstName, p.LastName, p.Birthdate).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return p, nil
}

// List returns all persons ordered by id.
func (r *PostgresPersonRepository) List(ctx context.Context) ([]*domain.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, birthdate, created_at FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []*domain.Person
	for rows.Next() {
		p := &domain.Person{}
		var birthdate sql.NullTime
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &birthdate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		if birthdate.Valid {
			p.Birthdate = &birthdate.Time
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}
