package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"commerce-api/internal/broker"
	"commerce-api/internal/mailer"
	"commerce-api/internal/models"
	"commerce-api/internal/service"
	"commerce-api/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes domain events and performs the side
// effects the request path only enqueued: customer emails, the async
// low-stock check, and the gated vendor alert email.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	inventory    *service.InventoryService
	orders       *service.OrderService
	mail         mailer.Mailer
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	inventory *service.InventoryService,
	orders *service.OrderService,
	mail mailer.Mailer,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:  consumer,
		inventory: inventory,
		orders:    orders,
		mail:      mail,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(w.handleOrderCreated)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	eventHandler.OnOrderCancelled(w.handleOrderCancelled)
	eventHandler.OnStockChanged(w.handleStockChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	customer, err := w.orders.CustomerForOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Thank you for your order %s.\n\nItems: %d\nTotal: %d\n\nWe will notify you when it ships.",
		event.OrderNumber, len(event.Items), event.TotalAmount)

	if err := w.mail.Send(customer.Email, "Order confirmation "+event.OrderNumber, body); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("order_created").Inc()
		return err
	}
	util.NotificationsSentTotal.WithLabelValues("order_created").Inc()
	return nil
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	customer, err := w.orders.CustomerForOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your order %s is now %s.", event.OrderNumber, event.ToStatus)
	if err := w.mail.Send(customer.Email, "Order update "+event.OrderNumber, body); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("status_changed").Inc()
		return err
	}
	util.NotificationsSentTotal.WithLabelValues("status_changed").Inc()
	return nil
}

func (w *NotificationWorker) handleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	customer, err := w.orders.CustomerForOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your order %s has been cancelled. Reserved stock was returned.", event.OrderNumber)
	if err := w.mail.Send(customer.Email, "Order cancelled "+event.OrderNumber, body); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("order_cancelled").Inc()
		return err
	}
	util.NotificationsSentTotal.WithLabelValues("order_cancelled").Inc()
	return nil
}

// handleStockChanged runs the low-stock check for the mutated variant.
// The vendor email goes out at most once per unresolved episode: the
// check upserts one unresolved alert, and notified_at gates the send.
func (w *NotificationWorker) handleStockChanged(ctx context.Context, event *models.StockChangedEvent) error {
	alert, err := w.inventory.CheckLowStock(ctx, event.ProductVariantID, 0)
	if err != nil {
		if err == service.ErrVariantNotFound {
			return nil
		}
		return err
	}
	if alert == nil || alert.NotifiedAt.Valid {
		return nil
	}

	vendor, variant, err := w.inventory.VendorForVariant(ctx, event.ProductVariantID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Stock for %s (%s) is down to %d units (threshold %d). Consider restocking.",
		variant.Name, variant.SKU, alert.CurrentStock, alert.Threshold)

	if err := w.mail.Send(vendor.Email, "Low stock alert: "+variant.SKU, body); err != nil {
		util.NotificationsFailedTotal.WithLabelValues("low_stock").Inc()
		return err
	}

	stamped, err := w.inventory.MarkAlertNotified(ctx, alert.ID)
	if err != nil {
		return err
	}
	if stamped {
		util.NotificationsSentTotal.WithLabelValues("low_stock").Inc()
	}
	return nil
}

// RetentionWorker periodically prunes aged ledger entries and stale
// resolved alerts.
type RetentionWorker struct {
	inventory      *service.InventoryService
	interval       time.Duration
	logRetention   time.Duration
	alertRetention time.Duration
	logger         *zap.Logger
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(inventory *service.InventoryService, logRetention, alertRetention time.Duration) *RetentionWorker {
	return &RetentionWorker{
		inventory:      inventory,
		interval:       24 * time.Hour,
		logRetention:   logRetention,
		alertRetention: alertRetention,
		logger:         util.GetLogger(),
	}
}

// Start runs the retention loop until ctx is cancelled
func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.inventory.PruneRetention(ctx, w.logRetention, w.alertRetention); err != nil {
				w.logger.Error("Retention pass failed", zap.Error(err))
			}
		}
	}
}
