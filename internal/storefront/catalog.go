package storefront

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogService exposes product reads to the rest of the system and CRUD to
// administrative callers. Reads are always live lookups; price changes show
// up in cart views immediately.
type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ProductInput carries the mutable fields of a product.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("product name is required: %w", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

// ListProducts returns a page of products, newest first, optionally filtered
// by a case-insensitive substring match on name or description.
func (s *CatalogService) ListProducts(ctx context.Context, search string, page, pageSize int) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.store.ListProducts(ctx, strings.TrimSpace(search), pageSize, (page-1)*pageSize)
}

// GetProduct retrieves a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	if id <= 0 {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	return s.store.GetProductByID(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := input.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

// UpdateProduct overwrites a product's fields, image included.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, input *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if id <= 0 {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product without cascading. Carts referencing it
// self-heal on their next read; orders keep the frozen line.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if id <= 0 {
		return fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}
