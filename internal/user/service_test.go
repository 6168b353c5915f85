package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktrack/internal/auth"
)

// memRepo is a map-backed Repository for service tests.
type memRepo struct {
	byID    map[string]*User
	byEmail map[string]*User
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*User{}, byEmail: map[string]*User{}}
}

func (m *memRepo) Create(_ context.Context, u *User) error {
	if _, taken := m.byEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	u.ID = "user-" + u.Email
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, "test-secret", time.Hour), repo
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	u, err := svc.Register(ctx, "  Ana  ", "  ANA@Example.COM ", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "senha123", u.PasswordHash)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), "Ana", "ana@example.com", "12345")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "senha123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Outra Ana", "Ana@Example.com", "senha456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	registered, err := svc.Register(ctx, "Ana", "ana@example.com", "senha123")
	require.NoError(t, err)

	token, u, err := svc.Login(ctx, "ANA@example.com", "senha123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, registered.ID, u.ID)

	claims, err := auth.ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.Sub)
}

func TestLogin_BadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "senha123")
	require.NoError(t, err)

	// Wrong password and unknown user look identical to the caller.
	_, _, err = svc.Login(ctx, "ana@example.com", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ninguem@example.com", "senha123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
