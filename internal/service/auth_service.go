package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/auth"
)

const tokenLifetime = 15 * time.Minute

// AuthService handles authentication operations
type AuthService struct {
	userRepo   domain.UserRepository
	personRepo domain.PersonRepository
	ledger     domain.LedgerRepository
	tokens     *auth.TokenManager
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	personRepo domain.PersonRepository,
	ledger domain.LedgerRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo:   userRepo,
		personRepo: personRepo,
		ledger:     ledger,
		tokens:     tokens,
		logger:     logger,
	}
}

// RegisterResult represents registration response
type RegisterResult struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// LoginResult represents login response
type LoginResult struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// RoleFor maps an account to its authorization role.
func RoleFor(user *domain.User) security.Role {
	if user.IsStaff {
		return security.RoleHRAdmin
	}
	return security.RoleEmployee
}

// Register creates a new user account, optionally linked to a person
// record. A person may hold at most one active account.
func (s *AuthService) Register(ctx context.Context, email, username, password string, personID *int64) (*RegisterResult, error) {
	// Validate input
	if email == "" || password == "" || username == "" {
		return nil, errors.New("email, username, and password are required")
	}

	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	// Check if user already exists
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}
	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, errors.New("username already taken")
	}

	if personID != nil {
		if _, err := s.personRepo.GetByID(ctx, *personID); err != nil {
			return nil, fmt.Errorf("failed to load person: %w", err)
		}
		if existing, err := s.userRepo.GetByPerson(ctx, *personID); err == nil && existing != nil {
			return nil, errors.New("person already has an account")
		}
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		PersonID:     personID,
		IsActive:     true,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	token, err := s.generateToken(created)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		UserID:   created.ID,
		Email:    created.Email,
		Username: created.Username,
		Token:    token,
	}, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	// Validate input
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, errors.New("invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &LoginResult{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(RoleFor(user)),
		Token:     token,
		ExpiresIn: int(tokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// VerifyToken verifies and parses a JWT token
func (s *AuthService) VerifyToken(tokenString string) (*auth.Claims, error) {
	return s.tokens.ValidateToken(tokenString)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(RoleFor(user)), user.PersonID, tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return "", errors.New("failed to generate token")
	}
	return token, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return errors.New("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	s.logger.Info("user changed password", slog.Int64("user_id", userID))
	return nil
}

// PendingAccounts lists active people who have no login account yet,
// the provisioning queue an administrator works through.
func (s *AuthService) PendingAccounts(ctx context.Context) ([]*domain.Person, error) {
	withAccounts, err := s.userRepo.PersonIDsWithAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list account holders: %w", err)
	}
	contracts, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	seen := map[int64]bool{}
	var pending []*domain.Person
	for _, c := range contracts {
		if !c.CurrentStatus.IsActive() || withAccounts[c.PersonID] || seen[c.PersonID] {
			continue
		}
		seen[c.PersonID] = true
		person, err := s.personRepo.GetByID(ctx, c.PersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load person: %w", err)
		}
		pending = append(pending, person)
	}
	return pending, nil
}

// Deactivate disables an account.
func (s *AuthService) Deactivate(ctx context.Context, userID int64) error {
	if err := s.userRepo.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	s.logger.Info("user deactivated", slog.Int64("user_id", userID))
	return nil
}

// DeactivateForPerson disables the account linked to a person, if one
// exists. Persons without an account are a no-op, not an error; this
// runs on termination where an account is optional.
func (s *AuthService) DeactivateForPerson(ctx context.Context, personID int64) error {
	user, err := s.userRepo.GetByPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}
	return s.Deactivate(ctx, user.ID)
}
