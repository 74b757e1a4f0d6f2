package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventLog is the piece of the store the worker needs to deduplicate events.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// OrderEventWorker consumes order lifecycle events and records them in the
// processed-events log. Consumption is idempotent: redelivered events are
// acknowledged without being recorded twice.
type OrderEventWorker struct {
	consumer *broker.Consumer
	events   EventLog
	logger   *zap.Logger
}

// NewOrderEventWorker creates a new order event worker
func NewOrderEventWorker(consumer *broker.Consumer, events EventLog) *OrderEventWorker {
	return &OrderEventWorker{
		consumer: consumer,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *OrderEventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order event worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *OrderEventWorker) Stop() error {
	w.logger.Info("Stopping order event worker")
	return w.consumer.Close()
}

func (w *OrderEventWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	processed, err := w.events.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	switch base.EventType {
	case models.EventTypeOrderPlaced:
		var event models.OrderPlacedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
		}
		w.logger.Info("Order placed",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("user_id", event.UserID),
			zap.String("total", event.TotalAmount.String()),
			zap.Int("items", len(event.Items)))

	case models.EventTypeOrderStatusChanged:
		var event models.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
		}
		w.logger.Info("Order status changed",
			zap.Int64("order_id", event.OrderID),
			zap.String("from", event.FromStatus),
			zap.String("to", event.ToStatus))

	default:
		w.logger.Warn("Unhandled event type", zap.String("event_type", base.EventType))
		return nil
	}

	return w.events.MarkEventProcessed(ctx, base.EventID, base.EventType)
}
