package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item. Deleting one does not cascade into
// carts or orders; references simply stop resolving.
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Image       string          `db:"image" json:"image"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// User is a registered customer. The password hash never leaves the process.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Cart is the per-user mutable cart document. At most one per user.
type Cart struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CartItem is a stored cart line: product reference plus quantity.
// product_id is unique within a cart.
type CartItem struct {
	ID        int64 `db:"id" json:"id"`
	CartID    int64 `db:"cart_id" json:"cartId"`
	ProductID int64 `db:"product_id" json:"productId"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// CartLine is a cart item left-joined against the live catalog. Missing is
// set when the referenced product has been deleted.
type CartLine struct {
	ProductID int64           `db:"product_id"`
	Quantity  int             `db:"quantity"`
	Missing   bool            `db:"missing"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Image     string          `db:"image"`
}

// Order is an immutable checkout snapshot. Items and total_amount are
// write-once; only status ever changes afterwards.
type Order struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"userId"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderItem is a frozen order line; unit_price is the catalog price at the
// moment the order was placed and is never re-derived.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"orderId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"price"`
}

// OrderLine is an order item left-joined against the live catalog for
// display. Unlike cart lines, missing products never drop the line.
type OrderLine struct {
	ProductID int64           `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Missing   bool            `db:"missing"`
	Name      string          `db:"name"`
	Image     string          `db:"image"`
}

// Order statuses, strictly forward-only.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
)

// NextOrderStatus maps each status to the only status it may advance to.
var NextOrderStatus = map[string]string{
	OrderStatusPending: OrderStatusPaid,
	OrderStatusPaid:    OrderStatusShipped,
	OrderStatusShipped: OrderStatusDelivered,
}

// ProcessedEvent records a consumed domain event for idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
