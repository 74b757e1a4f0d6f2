package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"
)

// memStore is an in-memory stand-in for the SQL store, mirroring its
// contract: ErrNotFound sentinels, additive upserts, transactional
// checkout, dangling references when a product disappears.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	products    map[int64]*models.Product
	cartByUser  map[int64]int64
	cartItems   map[int64]map[int64]int // cartID -> productID -> quantity
	cartItemSeq map[int64][]int64       // cartID -> productID insertion order
	orders      []*models.Order
	orderItems  map[int64][]models.OrderItem
}

func newMemStore() *memStore {
	return &memStore{
		products:    map[int64]*models.Product{},
		cartByUser:  map[int64]int64{},
		cartItems:   map[int64]map[int64]int{},
		cartItemSeq: map[int64][]int64{},
		orderItems:  map[int64][]models.OrderItem{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateProduct(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = m.id()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProducts(_ context.Context, _ string, _, _ int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) UpdateProduct(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[product.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", product.ID, ErrNotFound)
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.Image = product.Image
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) GetCartID(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cartID, ok := m.cartByUser[userID]
	if !ok {
		return 0, fmt.Errorf("cart for user %d: %w", userID, ErrNotFound)
	}
	return cartID, nil
}

func (m *memStore) EnsureCart(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cartID, ok := m.cartByUser[userID]; ok {
		return cartID, nil
	}
	cartID := m.id()
	m.cartByUser[userID] = cartID
	m.cartItems[cartID] = map[int64]int{}
	return cartID, nil
}

func (m *memStore) GetCartLines(_ context.Context, cartID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []models.CartLine{}
	for _, productID := range m.cartItemSeq[cartID] {
		qty, ok := m.cartItems[cartID][productID]
		if !ok {
			continue
		}
		line := models.CartLine{ProductID: productID, Quantity: qty}
		if p, ok := m.products[productID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Image = p.Image
		} else {
			line.Missing = true
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *memStore) AddCartItem(_ context.Context, cartID, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.cartItems[cartID]
	if !ok {
		return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
	}
	if _, exists := items[productID]; !exists {
		m.cartItemSeq[cartID] = append(m.cartItemSeq[cartID], productID)
	}
	items[productID] += quantity
	return nil
}

func (m *memStore) SetCartItemQuantity(_ context.Context, cartID, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.cartItems[cartID]
	if !ok {
		return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
	}
	if _, exists := items[productID]; !exists {
		return fmt.Errorf("cart item %d: %w", productID, ErrNotFound)
	}
	items[productID] = quantity
	return nil
}

func (m *memStore) RemoveCartItem(_ context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cartItems[cartID], productID)
	return nil
}

func (m *memStore) RemoveCartItems(_ context.Context, cartID int64, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, productID := range productIDs {
		delete(m.cartItems[cartID], productID)
	}
	return nil
}

func (m *memStore) CreateOrderFromCart(_ context.Context, order *models.Order, items []models.OrderItem, cartID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	m.orders = append(m.orders, &cp)
	stored := make([]models.OrderItem, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].ID = m.id()
		stored[i].OrderID = order.ID
	}
	m.orderItems[order.ID] = stored
	m.cartItems[cartID] = map[int64]int{}
	m.cartItemSeq[cartID] = nil
	return nil
}

func (m *memStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
}

func (m *memStore) ListOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, *m.orders[i])
		}
	}
	return out, nil
}

func (m *memStore) GetOrderLines(_ context.Context, orderID int64) ([]models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []models.OrderLine{}
	for _, item := range m.orderItems[orderID] {
		line := models.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if p, ok := m.products[item.ProductID]; ok {
			line.Name = p.Name
			line.Image = p.Image
		} else {
			line.Missing = true
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *memStore) AdvanceOrderStatus(_ context.Context, orderID int64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == orderID {
			if o.Status != from {
				return fmt.Errorf("order %d no longer in status %q: %w", orderID, from, ErrInvalidInput)
			}
			o.Status = to
			o.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
}

// cartQuantities reads the persisted cart state directly, bypassing the
// service, for assertions about what was actually stored.
func (m *memStore) cartQuantities(userID int64) map[int64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cartID, ok := m.cartByUser[userID]
	if !ok {
		return nil
	}
	out := map[int64]int{}
	for productID, qty := range m.cartItems[cartID] {
		out[productID] = qty
	}
	return out
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// noopLocker always grants the lock; the unit tests are single-writer.
type noopLocker struct{}

func (noopLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (noopLocker) ReleaseLock(context.Context, string) error { return nil }

// captureEvents records published events for assertions.
type captureEvents struct {
	mu            sync.Mutex
	placed        []*models.OrderPlacedEvent
	statusChanged []*models.OrderStatusChangedEvent
}

func (c *captureEvents) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, event)
	return nil
}

func (c *captureEvents) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusChanged = append(c.statusChanged, event)
	return nil
}
