package storefront

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService maintains the per-user cart and presents it as a denormalized,
// display-ready item list. Mutations are serialized per user through the
// Locker, so two concurrent adds for the same user cannot lose an increment.
type CartService struct {
	store   CartStore
	catalog CatalogStore
	locks   Locker
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, catalog CatalogStore, locks Locker) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		locks:   locks,
		logger:  util.GetLogger(),
	}
}

// GetCart returns the user's denormalized cart. A user without a cart gets
// an empty view, never an error. Lines referencing deleted products are
// dropped from the view and from the stored cart (self-healing read): the
// client is never shown an item it cannot check out.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	cartID, err := s.store.GetCartID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &CartView{Items: []CartItemView{}}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.resolveCart(ctx, cartID)
}

// AddItem adds quantity to the user's cart line for the product, creating
// the cart and the line as needed. Repeated adds accumulate.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if productID <= 0 {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}
	if _, err := s.catalog.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}

	var view *CartView
	err := s.withUserLock(ctx, userID, func() error {
		cartID, err := s.store.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.store.AddCartItem(ctx, cartID, productID, quantity); err != nil {
			return err
		}
		view, err = s.resolveCart(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	return view, nil
}

// SetQuantity overwrites a line's quantity; unlike AddItem it never
// accumulates. Zero removes the line. The cart and the line must exist.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if productID <= 0 {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative: %w", ErrInvalidInput)
	}

	var view *CartView
	err := s.withUserLock(ctx, userID, func() error {
		cartID, err := s.store.GetCartID(ctx, userID)
		if err != nil {
			return err
		}
		if quantity == 0 {
			lines, err := s.store.GetCartLines(ctx, cartID)
			if err != nil {
				return err
			}
			if !containsProduct(lines, productID) {
				return fmt.Errorf("cart item %d: %w", productID, ErrNotFound)
			}
			if err := s.store.RemoveCartItem(ctx, cartID, productID); err != nil {
				return err
			}
		} else if err := s.store.SetCartItemQuantity(ctx, cartID, productID, quantity); err != nil {
			return err
		}
		view, err = s.resolveCart(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("set").Inc()
	return view, nil
}

// RemoveItem drops a line from the user's cart. Removing a line that is not
// there succeeds; the same call twice lands in the same state.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	if productID <= 0 {
		return nil, fmt.Errorf("invalid product id: %w", ErrInvalidInput)
	}

	var view *CartView
	err := s.withUserLock(ctx, userID, func() error {
		cartID, err := s.store.GetCartID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.store.RemoveCartItem(ctx, cartID, productID); err != nil {
			return err
		}
		view, err = s.resolveCart(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return view, nil
}

// resolveCart builds the denormalized view and persists the removal of any
// dangling lines it finds.
func (s *CartService) resolveCart(ctx context.Context, cartID int64) (*CartView, error) {
	lines, err := s.store.GetCartLines(ctx, cartID)
	if err != nil {
		return nil, err
	}

	items := make([]CartItemView, 0, len(lines))
	var dangling []int64
	for _, line := range lines {
		if line.Missing {
			dangling = append(dangling, line.ProductID)
			continue
		}
		items = append(items, CartItemView{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
		})
	}

	if len(dangling) > 0 {
		if err := s.store.RemoveCartItems(ctx, cartID, dangling); err != nil {
			return nil, fmt.Errorf("failed to drop dangling cart items: %w", err)
		}
		util.CartSelfHealsTotal.Add(float64(len(dangling)))
		s.logger.Info("Dropped dangling cart items",
			zap.Int64("cart_id", cartID),
			zap.Int64s("product_ids", dangling))
	}

	return &CartView{Items: items}, nil
}

func (s *CartService) withUserLock(ctx context.Context, userID int64, fn func() error) error {
	return withUserLock(ctx, s.locks, s.logger, userID, fn)
}

func containsProduct(lines []models.CartLine, productID int64) bool {
	for _, line := range lines {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}
