package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/store"
	"commerce-api/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// validTransitions encodes the order state machine:
// pending -> processing -> shipped -> delivered, with cancellation
// allowed from pending and processing only.
var validTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService drives the order lifecycle
type OrderService struct {
	store     *store.Store
	inventory *InventoryService
	publisher EventPublisher
	pricing   PricingConfig
	prefix    string
	logger    *zap.Logger
}

// PricingConfig carries the defaults applied when a request omits
// explicit amounts
type PricingConfig struct {
	TaxRatePercent    int
	ShippingFlatCents int64
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, inventory *InventoryService, publisher EventPublisher, pricing PricingConfig, orderNumberPrefix string) *OrderService {
	return &OrderService{
		store:     store,
		inventory: inventory,
		publisher: publisher,
		pricing:   pricing,
		prefix:    orderNumberPrefix,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	BillingAddress  string             `json:"billing_address"`
	Notes           string             `json:"notes"`
	TaxAmount       *int64             `json:"tax_amount"`
	ShippingAmount  *int64             `json:"shipping_amount"`
}

// OrderItemRequest represents one line of an order request
type OrderItemRequest struct {
	VariantID int64 `json:"variant_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrder places an order in one transaction: lock and validate
// every variant, snapshot prices and names, write the order, its items
// and the ledger deductions. Nothing survives a mid-transaction failure.
func (s *OrderService) CreateOrder(ctx context.Context, actor models.Actor, req *CreateOrderRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, nil, ErrEmptyOrder
	}

	var (
		order   *models.Order
		items   []models.OrderItem
		entries []*models.InventoryLog
	)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		requests := make([]StockRequest, len(req.Items))
		for i, item := range req.Items {
			requests[i] = StockRequest{VariantID: item.VariantID, Quantity: item.Quantity}
		}
		// lock all variant rows up front, in ascending ID order
		sorted := sortStockRequests(requests)

		variants := make(map[int64]*models.ProductVariant, len(req.Items))
		products := make(map[int64]*models.Product)
		var subtotal int64

		for _, item := range sorted {
			variant, err := s.store.GetVariantForUpdateTx(ctx, tx, item.VariantID)
			if err != nil {
				return fmt.Errorf("failed to lock variant: %w", err)
			}
			if variant == nil {
				return ErrVariantNotFound
			}
			if !variant.IsActive {
				return ErrVariantInactive
			}
			if !variant.HasStock(item.Quantity) {
				return &InsufficientStockError{
					SKU:       variant.SKU,
					Available: variant.StockQuantity,
					Required:  item.Quantity,
				}
			}
			variants[item.VariantID] = variant

			if _, ok := products[variant.ProductID]; !ok {
				product, err := s.store.GetProductByID(ctx, variant.ProductID)
				if err != nil {
					return err
				}
				if product == nil {
					return ErrProductNotFound
				}
				products[variant.ProductID] = product
			}

			subtotal += variant.Price * int64(item.Quantity)
		}

		taxAmount := subtotal * int64(s.pricing.TaxRatePercent) / 100
		if req.TaxAmount != nil {
			taxAmount = *req.TaxAmount
		}
		shippingAmount := s.pricing.ShippingFlatCents
		if req.ShippingAmount != nil {
			shippingAmount = *req.ShippingAmount
		}

		billing := req.BillingAddress
		if billing == "" {
			billing = req.ShippingAddress
		}

		order = &models.Order{
			OrderNumber:     s.generateOrderNumber(),
			UserID:          actor.ID,
			Status:          models.OrderStatusPending,
			TotalAmount:     subtotal + taxAmount + shippingAmount,
			TaxAmount:       taxAmount,
			ShippingAmount:  shippingAmount,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  billing,
			Notes:           sql.NullString{String: req.Notes, Valid: req.Notes != ""},
		}

		if err := s.store.CreateOrderTx(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range req.Items {
			variant := variants[line.VariantID]
			item := models.OrderItem{
				OrderID:          order.ID,
				ProductID:        variant.ProductID,
				ProductVariantID: variant.ID,
				ProductName:      products[variant.ProductID].Name,
				VariantName:      variant.Name,
				Price:            variant.Price,
				Quantity:         line.Quantity,
				Subtotal:         variant.Price * int64(line.Quantity),
			}
			if err := s.store.CreateOrderItemTx(ctx, tx, &item); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			items = append(items, item)
		}

		// the rows are already locked and validated; this writes the
		// deductions and ledger entries through the same funnel as
		// every other stock mutation
		var err error
		entries, err = s.inventory.ReserveBatchTx(ctx, tx, actor, requests, order.ID, "Order placed")
		return err
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("customer_id", actor.ID))

	for _, entry := range entries {
		s.inventory.publishStockChanged(ctx, entry, models.LogTypeDeduction)
	}

	eventItems := make([]models.OrderItemData, len(items))
	for i, item := range items {
		eventItems[i] = models.OrderItemData{
			ProductVariantID: item.ProductVariantID,
			ProductName:      item.ProductName,
			VariantName:      item.VariantName,
			Quantity:         item.Quantity,
			Price:            item.Price,
		}
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, items, nil
}

// UpdateStatus moves an order along the state machine, stamping the
// milestone timestamp for the target status.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Actor, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if actor.Role == models.RoleCustomer {
		return nil, ErrForbidden
	}
	if _, known := validTransitions[newStatus]; !known {
		return nil, ErrInvalidStatus
	}
	if newStatus == models.OrderStatusCancelled {
		// cancellation restores stock; it has its own entry point
		return s.Cancel(ctx, actor, orderID)
	}

	var (
		order      *models.Order
		fromStatus string
	)
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = s.store.GetOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		fromStatus = order.Status
		if !CanTransition(fromStatus, newStatus) {
			return &InvalidTransitionError{From: fromStatus, To: newStatus}
		}

		return s.store.UpdateOrderStatusTx(ctx, tx, orderID, newStatus)
	})
	if err != nil {
		return nil, err
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(fromStatus, newStatus).Inc()
	order.Status = newStatus

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		FromStatus:  fromStatus,
		ToStatus:    newStatus,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return order, nil
}

// Cancel cancels a pending or processing order, restoring stock for
// every line item in the same transaction.
func (s *OrderService) Cancel(ctx context.Context, actor models.Actor, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	var (
		order   *models.Order
		entries []*models.InventoryLog
	)
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = s.store.GetOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if actor.Role == models.RoleCustomer && order.UserID != actor.ID {
			return ErrForbidden
		}
		if !order.CanBeCancelled() {
			return &NotCancellableError{Status: order.Status}
		}

		items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range items {
			variant, err := s.store.GetVariantForUpdateTx(ctx, tx, item.ProductVariantID)
			if err != nil {
				return fmt.Errorf("failed to lock variant: %w", err)
			}
			if variant == nil {
				continue
			}

			oid := orderID
			entry, err := s.inventory.applyTx(ctx, tx, actor, variant, models.LogTypeReturn, item.Quantity, &oid, "Order cancelled")
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		return s.store.UpdateOrderStatusTx(ctx, tx, orderID, models.OrderStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	order.Status = models.OrderStatusCancelled
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))

	for _, entry := range entries {
		s.inventory.publishStockChanged(ctx, entry, models.LogTypeReturn)
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Reason:      "Cancelled by user",
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return order, nil
}

// GetOrder retrieves an order with its items. Customers see only their
// own orders; vendors only orders containing their products.
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		if order.UserID != actor.ID {
			return nil, nil, ErrForbidden
		}
	case models.RoleVendor:
		owns := false
		for _, item := range items {
			product, err := s.store.GetProductByID(ctx, item.ProductID)
			if err != nil {
				return nil, nil, err
			}
			if product != nil && product.UserID == actor.ID {
				owns = true
				break
			}
		}
		if !owns {
			return nil, nil, ErrForbidden
		}
	default:
		return nil, nil, ErrForbidden
	}

	return order, items, nil
}

// ListOrders retrieves orders visible to the actor, optionally filtered
// by status
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, status string, limit, offset int) ([]models.Order, int, error) {
	if status != "" {
		if _, known := validTransitions[status]; !known {
			return nil, 0, ErrInvalidStatus
		}
	}

	filter := store.OrderListFilter{Status: status, Limit: limit, Offset: offset}
	switch actor.Role {
	case models.RoleCustomer:
		filter.CustomerID = &actor.ID
	case models.RoleVendor:
		filter.VendorID = &actor.ID
	}

	return s.store.ListOrders(ctx, filter)
}

// CustomerForOrder resolves the account that placed an order. Used by
// the notification worker.
func (s *OrderService) CustomerForOrder(ctx context.Context, orderID int64) (*models.User, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	customer, err := s.store.GetUserByID(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrUserNotFound
	}
	return customer, nil
}

// generateOrderNumber builds a unique human-readable order number
func (s *OrderService) generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:12]
	return s.prefix + suffix
}
