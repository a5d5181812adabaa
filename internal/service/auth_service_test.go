package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", utils.ErrNotFound, email)
	}
	return u, nil
}

func (m *memoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[u.Email] = u
	return nil
}

func TestLoginIssuesRoleToken(t *testing.T) {
	users := &memoryUsers{users: map[string]*models.User{}}
	signer := utils.NewJWTSigner("test-secret", time.Hour)
	svc := NewAuthService(users, signer)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "Ops@Example.com", "correct-horse", "Ops", models.RoleOperator)
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "ops@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, user.Role)

	claims, err := signer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "operator", claims.Role)

	_, _, err = svc.Login(ctx, "ops@example.com", "wrong-password")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	users.users["ops@example.com"].IsActive = false
	_, _, err = svc.Login(ctx, "ops@example.com", "correct-horse")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewAuthService(&memoryUsers{users: map[string]*models.User{}}, utils.NewJWTSigner("s", time.Hour))

	_, err := svc.CreateUser(context.Background(), "a@b.c", "longenough", "A", "pilot")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = svc.CreateUser(context.Background(), "a@b.c", "short", "A", models.RoleAgent)
	assert.ErrorIs(t, err, utils.ErrValidation)
}
