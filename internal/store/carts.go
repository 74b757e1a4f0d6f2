package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/storefront"

	"github.com/jmoiron/sqlx"
)

// GetCartID returns the cart id for a user, or ErrNotFound if the user has
// never added anything.
func (s *Store) GetCartID(ctx context.Context, userID int64) (int64, error) {
	var cartID int64
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &cartID, "SELECT id FROM carts WHERE user_id = $1", userID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("cart for user %d: %w", userID, storefront.ErrNotFound)
	}
	return cartID, err
}

// EnsureCart returns the user's cart id, creating the cart if it does not
// exist yet. The upsert keeps lazy creation race-free.
func (s *Store) EnsureCart(ctx context.Context, userID int64) (int64, error) {
	query := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id`

	var cartID int64
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &cartID, query, userID)
	})
	return cartID, err
}

// GetCartLines returns the cart's items left-joined against the live
// catalog. Lines whose product was deleted come back with Missing set; the
// caller decides what to do with them.
func (s *Store) GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.product_id,
		       ci.quantity,
		       (p.id IS NULL)      AS missing,
		       COALESCE(p.name, '')  AS name,
		       COALESCE(p.price, 0)  AS price,
		       COALESCE(p.image, '') AS image
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	lines := []models.CartLine{}
	err := s.withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &lines, query, cartID)
	})
	return lines, err
}

// AddCartItem adds quantity to a cart line, creating the line if absent.
// The increment happens inside the database so concurrent adds cannot lose
// updates.
func (s *Store) AddCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`

	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, cartID, productID, quantity)
		return err
	})
}

// SetCartItemQuantity overwrites a line's quantity. ErrNotFound when the
// line does not exist; absolute set never creates lines.
func (s *Store) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE cart_id = $1 AND product_id = $2",
			cartID, productID, quantity)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("cart item %d: %w", productID, storefront.ErrNotFound)
	}
	return nil
}

// RemoveCartItem drops a line if present. Removing an absent line is not an
// error.
func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID int64) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
		return err
	})
}

// RemoveCartItems drops several lines at once; used by the self-healing read
// to persist dropped dangling references.
func (s *Store) RemoveCartItems(ctx context.Context, cartID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM cart_items WHERE cart_id = ? AND product_id IN (?)", cartID, productIDs)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
