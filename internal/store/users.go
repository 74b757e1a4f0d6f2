package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/storefront"

	"github.com/lib/pq"
)

// CreateUser inserts a user. A duplicate email surfaces as InvalidInput.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, user, query, user.Email, user.PasswordHash, user.Name)
	})

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("email already registered: %w", storefront.ErrInvalidInput)
	}
	return err
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, storefront.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
