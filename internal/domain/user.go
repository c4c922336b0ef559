package domain

import (
	"context"
	"time"
)

// User is a login account, optionally linked to a person. Persons without
// a user account show up as "pending accounts" on the dashboard.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string // bcrypt, never serialized
	PersonID     *int64
	IsStaff      bool // staff accounts can administer the ledger
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByPerson(ctx context.Context, personID int64) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id int64) error
	// PersonIDsWithAccounts returns the ids of persons holding an active
	// account, for the pending-accounts dashboard stat.
	PersonIDsWithAccounts(ctx context.Context) (map[int64]bool, error)
}
