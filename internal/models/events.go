package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeStockChanged       = "STOCK_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after an order is committed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published on every legal status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
}

// OrderCancelledEvent published after stock restoration commits
type OrderCancelledEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	Reason      string `json:"reason"`
}

// StockChangedEvent published after any committed stock mutation.
// The notification worker runs the low-stock check off this event.
type StockChangedEvent struct {
	BaseEvent
	ProductVariantID int64  `json:"product_variant_id"`
	SKU              string `json:"sku"`
	PreviousStock    int    `json:"previous_stock"`
	NewStock         int    `json:"new_stock"`
	LogType          string `json:"log_type"`
}

// OrderItemData represents item data carried in events
type OrderItemData struct {
	ProductVariantID int64  `json:"product_variant_id"`
	ProductName      string `json:"product_name"`
	VariantName      string `json:"variant_name"`
	Quantity         int    `json:"quantity"`
	Price            int64  `json:"price"`
}
