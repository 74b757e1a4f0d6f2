package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService converts carts into immutable orders and reads them back for
// display.
type OrderService struct {
	store  OrderStore
	carts  CartStore
	locks  Locker
	events OrderEvents
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, carts CartStore, locks Locker, events OrderEvents) *OrderService {
	return &OrderService{
		store:  store,
		carts:  carts,
		locks:  locks,
		events: events,
		logger: util.GetLogger(),
	}
}

// PlaceOrder converts the user's cart into an order. Current catalog prices
// are read one last time here; the created order freezes them permanently.
// Order creation and cart clearing happen in one transaction, and the cart
// lock serializes checkout against concurrent adds for the same user.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	var view *OrderView
	err := s.withUserLock(ctx, userID, func() error {
		cartID, err := s.carts.GetCartID(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("no cart for user %d: %w", userID, ErrEmptyCart)
		}
		if err != nil {
			return err
		}

		lines, err := s.carts.GetCartLines(ctx, cartID)
		if err != nil {
			return err
		}

		resolved := make([]models.CartLine, 0, len(lines))
		var dangling []int64
		for _, line := range lines {
			if line.Missing {
				dangling = append(dangling, line.ProductID)
				continue
			}
			resolved = append(resolved, line)
		}
		if len(dangling) > 0 {
			if err := s.carts.RemoveCartItems(ctx, cartID, dangling); err != nil {
				return fmt.Errorf("failed to drop dangling cart items: %w", err)
			}
			util.CartSelfHealsTotal.Add(float64(len(dangling)))
		}
		if len(resolved) == 0 {
			util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
			return ErrEmptyCart
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(resolved))
		for _, line := range resolved {
			total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.Price,
			})
		}

		order := &models.Order{
			UserID:      userID,
			TotalAmount: total,
			Status:      models.OrderStatusPending,
		}
		if err := s.store.CreateOrderFromCart(ctx, order, items, cartID); err != nil {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
			return fmt.Errorf("failed to create order: %w", err)
		}

		util.OrdersPlacedTotal.Inc()
		s.logger.Info("Order placed",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", userID),
			zap.String("total", total.String()))

		s.publishOrderPlaced(ctx, order, items)

		itemViews := make([]OrderLineView, 0, len(resolved))
		for _, line := range resolved {
			itemViews = append(itemViews, OrderLineView{
				ProductID: line.ProductID,
				Name:      line.Name,
				Image:     line.Image,
				Quantity:  line.Quantity,
				Price:     line.Price,
			})
		}
		view = s.orderView(order, itemViews)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListOrders returns the user's orders, newest first, with product
// references resolved for display. Lines whose product was deleted render a
// placeholder instead of being dropped.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.store.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		lines, err := s.store.GetOrderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}

		itemViews := make([]OrderLineView, 0, len(lines))
		for _, line := range lines {
			name, image := line.Name, line.Image
			if line.Missing {
				name, image = DeletedProductName, ""
			}
			itemViews = append(itemViews, OrderLineView{
				ProductID: line.ProductID,
				Name:      name,
				Image:     image,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
			})
		}
		views = append(views, s.orderView(&orders[i], itemViews))
	}
	return views, nil
}

// AdvanceStatus moves an order one step forward: pending, paid, shipped,
// delivered, in that order, no skipping, no going back.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID int64, to string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdvanceStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextOrderStatus[order.Status]
	if !ok || next != to {
		return nil, fmt.Errorf("cannot move order from %q to %q: %w", order.Status, to, ErrInvalidInput)
	}

	if err := s.store.AdvanceOrderStatus(ctx, orderID, order.Status, to); err != nil {
		return nil, err
	}

	s.logger.Info("Order status advanced",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", to))

	if s.events != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID:    orderID,
			FromStatus: order.Status,
			ToStatus:   to,
		}
		if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	order.Status = to
	return order, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.events == nil {
		return
	}

	lineData := make([]models.OrderLineData, 0, len(items))
	for _, item := range items {
		lineData = append(lineData, models.OrderLineData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       lineData,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func (s *OrderService) orderView(order *models.Order, items []OrderLineView) *OrderView {
	return &OrderView{
		ID:          order.ID,
		UserID:      order.UserID,
		Items:       items,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func (s *OrderService) withUserLock(ctx context.Context, userID int64, fn func() error) error {
	return withUserLock(ctx, s.locks, s.logger, userID, fn)
}
