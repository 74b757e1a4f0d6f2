package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/storefront"
)

// CreateProduct inserts a product and fills in its generated fields.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, product, query,
			product.Name, product.Description, product.Price, product.Image)
	})
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, storefront.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns products newest first, optionally filtered by a
// case-insensitive substring match on name or description.
func (s *Store) ListProducts(ctx context.Context, search string, limit, offset int) ([]models.Product, error) {
	query := `
		SELECT * FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	products := []models.Product{}
	err := s.withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &products, query, search, limit, offset)
	})
	return products, err
}

// UpdateProduct overwrites all mutable fields of a product.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, image = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING id, created_at, updated_at`

	err := s.withRetry(ctx, func() error {
		return s.db.GetContext(ctx, product, query,
			product.Name, product.Description, product.Price, product.Image, product.ID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", product.ID, storefront.ErrNotFound)
	}
	return err
}

// DeleteProduct removes a product. Cart and order references are left
// dangling on purpose; readers handle them.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
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
		return fmt.Errorf("product %d: %w", id, storefront.ErrNotFound)
	}
	return nil
}
