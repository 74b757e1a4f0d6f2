package storefront

import (
	"context"
	"time"

	"storefront/internal/models"
)

// CatalogStore is the persistence surface the catalog service needs.
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, search string, limit, offset int) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// CartStore is the persistence surface for per-user carts.
type CartStore interface {
	GetCartID(ctx context.Context, userID int64) (int64, error)
	EnsureCart(ctx context.Context, userID int64) (int64, error)
	GetCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	AddCartItem(ctx context.Context, cartID, productID int64, quantity int) error
	SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, productID int64) error
	RemoveCartItems(ctx context.Context, cartID int64, productIDs []int64) error
}

// OrderStore is the persistence surface for orders. CreateOrderFromCart must
// clear the cart and create the order atomically.
type OrderStore interface {
	CreateOrderFromCart(ctx context.Context, order *models.Order, items []models.OrderItem, cartID int64) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	AdvanceOrderStatus(ctx context.Context, orderID int64, from, to string) error
}

// Locker serializes cart writers per user.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// OrderEvents publishes order lifecycle events. Publishing is best-effort;
// callers log failures and move on.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}
