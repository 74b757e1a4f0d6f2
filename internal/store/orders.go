package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/storefront"
)

// CreateOrderFromCart inserts the order with its frozen items and clears the
// cart in a single transaction: checkout is all-or-nothing.
func (s *Store) CreateOrderFromCart(ctx context.Context, order *models.Order, items []models.OrderItem, cartID int64) error {
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		query := `
			INSERT INTO orders (user_id, total_amount, status)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`

		if err := tx.GetContext(ctx, order, query,
			order.UserID, order.TotalAmount, order.Status); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.GetContext(ctx, &items[i].ID, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].UnitPrice); err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return tx.Commit()
	})
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, storefront.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUserID retrieves a user's orders, newest first.
func (s *Store) ListOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	})
	return orders, err
}

// GetOrderLines returns an order's frozen items with live product data
// joined in for display. Deleted products keep their line; Missing flags
// them for the placeholder rendering.
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	query := `
		SELECT oi.product_id,
		       oi.quantity,
		       oi.unit_price,
		       (p.id IS NULL)      AS missing,
		       COALESCE(p.name, '')  AS name,
		       COALESCE(p.image, '') AS image
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	lines := []models.OrderLine{}
	err := s.withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &lines, query, orderID)
	})
	return lines, err
}

// AdvanceOrderStatus moves an order from one status to the next. The
// condition on the current status makes concurrent double-advances lose
// cleanly instead of skipping a step.
func (s *Store) AdvanceOrderStatus(ctx context.Context, orderID int64, from, to string) error {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			to, orderID, from)
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
		return fmt.Errorf("order %d no longer in status %q: %w", orderID, from, storefront.ErrInvalidInput)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	})
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			eventID, eventType)
		return err
	})
}
