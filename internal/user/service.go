package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrInvalidRole         = errors.New("invalid role")
	ErrCannotChangeOwnRole = errors.New("cannot change own role")
	ErrEmptyPassword       = errors.New("password cannot be empty")
)

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, username, password string) (*User, auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateRole(ctx context.Context, actor *auth.Principal, id uuid.UUID, role auth.Role) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	tokens *auth.TokenManager
}

func NewService(repo Repository, tokens *auth.TokenManager) Service {
	return &service{repo: repo, tokens: tokens}
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return "", fmt.Errorf("internal error hashing password: %w", err)
	}
	return string(hash), nil
}

// Register always creates a customer; roles are raised by an admin later.
func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		Role:         auth.RoleCustomer,
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, ErrUsernameExists
		}
		log.Error().Err(err).Str("username", input.Username).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Str("username", u.Username).Msg("service: user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*User, auth.TokenPair, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		log.Error().Err(err).Str("username", username).Msg("service: failed to load user for login")
		return nil, auth.TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}

	if !u.IsActive {
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("username", username).Msg("service: password mismatch")
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(u.Principal())
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return u, pair, nil
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return err
	}
	jti, err := claims.JTI()
	if err != nil {
		return auth.ErrInvalidToken
	}

	if err := s.repo.RevokeToken(ctx, jti, claims.ExpiresAt.Time); err != nil {
		log.Error().Err(err).Stringer("jti", jti).Msg("service: failed to revoke refresh token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	jti, err := claims.JTI()
	if err != nil {
		return "", auth.ErrInvalidToken
	}

	revoked, err := s.repo.IsTokenRevoked(ctx, jti)
	if err != nil {
		return "", fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	principal, err := claims.Principal()
	if err != nil {
		return "", err
	}

	// Role may have changed since the refresh token was issued.
	u, err := s.repo.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", auth.ErrInvalidToken
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if !u.IsActive {
		return "", auth.ErrInvalidToken
	}

	return s.tokens.IssueAccess(u.Principal())
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}
	return u, nil
}

func (s *service) UpdateRole(ctx context.Context, actor *auth.Principal, id uuid.UUID, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actor != nil && actor.UserID == id {
		return nil, ErrCannotChangeOwnRole
	}

	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update role of user '%s': %w", id, err)
	}

	log.Info().Stringer("user_id", id).Stringer("role", role).Msg("service: user role updated")
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Email = update.Email
	u.FirstName = update.FirstName
	u.LastName = update.LastName
	u.Phone = update.Phone
	u.Address = update.Address

	if update.Password != nil {
		hash, err := hashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update profile")
		return nil, fmt.Errorf("failed to update user by id '%s': %w", id, err)
	}
	return u, nil
}

func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("failed to delete user by id '%s': %w", id, err)
	}
	return nil
}
