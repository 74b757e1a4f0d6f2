package storefront

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeletedProductName is rendered for order lines whose product no longer
// exists. Order lines are never dropped; the total must stay explainable.
const DeletedProductName = "[deleted product]"

// CartItemView is a cart line with its product resolved inline. Raw stored
// rows never cross the API boundary.
type CartItemView struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// CartView is the denormalized cart returned by every cart read and write.
type CartView struct {
	Items []CartItemView `json:"items"`
}

// OrderLineView is a frozen order line; Price is the unit price at the time
// the order was placed.
type OrderLineView struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderView is an order with product references resolved for display.
type OrderView struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Items       []OrderLineView `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
