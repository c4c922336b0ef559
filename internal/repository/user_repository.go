package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/workforce/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository.
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

const userColumns = `id, email, username, password_hash, person_id, is_staff, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	var personID sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &personID,
		&u.IsStaff, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if personID.Valid {
		u.PersonID = &personID.Int64
	}
	return u, nil
}

// Create creates a new user account.
func (r *PostgresUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash, person_id, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Username, u.PasswordHash, u.PersonID, u.IsStaff, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", u.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByEmail retrieves an active user by email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, `email = $1 AND is_active`, email)
}

// GetByUsername retrieves an active user by username.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, `username = $1 AND is_active`, username)
}

// GetByPerson retrieves the active account linked to a person.
func (r *PostgresUserRepository) GetByPerson(ctx context.Context, personID int64) (*domain.User, error) {
	return r.getBy(ctx, `person_id = $1 AND is_active`, personID)
}

// Update updates an existing user.
func (r *PostgresUserRepository) Update(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET email = $2, username = $3, password_hash = $4, person_id = $5,
		    is_staff = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.Email, u.Username, u.PasswordHash, u.PersonID, u.IsStaff, u.IsActive,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError("user", u.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a user account.
func (r *PostgresUserRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFoundError("user", id)
	}
	return nil
}

// PersonIDsWithAccounts returns the persons holding an active account.
func (r *PostgresUserRepository) PersonIDsWithAccounts(ctx context.Context) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT person_id FROM users WHERE person_id IS NOT NULL AND is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to list account holders: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan person id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
