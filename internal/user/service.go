package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"booktrack/internal/auth"
)

// Service provides registration and login.
type Service struct {
	repo     Repository
	secret   string
	tokenTTL time.Duration
}

func NewService(repo Repository, secret string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and returns a signed token with the
// user. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.secret, u.ID, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// GetByID returns the account behind an authenticated request.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
