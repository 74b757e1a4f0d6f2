package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/storefront"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	nextID int64
	users  map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (m *memUserStore) CreateUser(_ context.Context, user *models.User) error {
	if _, exists := m.users[user.Email]; exists {
		return fmt.Errorf("email already registered: %w", storefront.ErrInvalidInput)
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, storefront.ErrNotFound)
	}
	cp := *user
	return &cp, nil
}

func newTestService() (*Service, *memUserStore) {
	store := newMemUserStore()
	return NewService(store, "test-secret", time.Hour), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "hunter22", "Alice")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter22", store.users["alice@example.com"].PasswordHash)

	token, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "pw", "")
	assert.ErrorIs(t, err, storefront.ErrInvalidInput)

	_, err = svc.Register(ctx, "a@b.com", "", "")
	assert.ErrorIs(t, err, storefront.ErrInvalidInput)

	_, err = svc.Register(ctx, "a@b.com", "pw", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@b.com", "pw", "")
	assert.ErrorIs(t, err, storefront.ErrInvalidInput)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "right", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, storefront.ErrUnauthenticated)

	_, err = svc.Login(ctx, "nobody@b.com", "right")
	assert.ErrorIs(t, err, storefront.ErrUnauthenticated)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestService()

	token, err := svc.GenerateToken(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)

	other := NewService(newMemUserStore(), "other-secret", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	store := newMemUserStore()
	svc := NewService(store, "test-secret", -time.Minute)

	token, err := svc.GenerateToken(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
