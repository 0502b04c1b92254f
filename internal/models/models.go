package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleVendor || r == RoleCustomer
}

// Actor identifies who is performing an operation. It is threaded
// explicitly into every service call; there is no ambient auth state.
type Actor struct {
	ID   int64
	Role Role
}

// User represents an account
type User struct {
	ID           int64        `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Role         Role         `db:"role" json:"role"`
	LastLoginAt  sql.NullTime `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Product represents a catalog product owned by a vendor
type Product struct {
	ID          int64            `db:"id" json:"id"`
	UserID      int64            `db:"user_id" json:"user_id"`
	Name        string           `db:"name" json:"name"`
	Slug        string           `db:"slug" json:"slug"`
	Description sql.NullString   `db:"description" json:"description,omitempty"`
	BasePrice   int64            `db:"base_price" json:"base_price"`
	SKU         string           `db:"sku" json:"sku"`
	IsActive    bool             `db:"is_active" json:"is_active"`
	DeletedAt   sql.NullTime     `db:"deleted_at" json:"-"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
	Variants    []ProductVariant `db:"-" json:"variants,omitempty"`
}

// ProductVariant is the sellable SKU-level unit. Stock is mutated only
// through the inventory ledger, never by direct assignment.
type ProductVariant struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	Name          string          `db:"name" json:"name"`
	SKU           string          `db:"sku" json:"sku"`
	Price         int64           `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Attributes    json.RawMessage `db:"attributes" json:"attributes,omitempty"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// HasStock reports whether the variant can satisfy quantity.
func (v *ProductVariant) HasStock(quantity int) bool {
	return v.StockQuantity >= quantity
}

// IsLowStock reports whether stock is at or below threshold.
func (v *ProductVariant) IsLowStock(threshold int) bool {
	return v.StockQuantity <= threshold
}

// Inventory log entry types
const (
	LogTypeAddition   = "addition"
	LogTypeDeduction  = "deduction"
	LogTypeAdjustment = "adjustment"
	LogTypeReturn     = "return"
)

// InventoryLog is an immutable audit record of one stock mutation.
// Invariant: NewStock == PreviousStock + Quantity.
type InventoryLog struct {
	ID               int64          `db:"id" json:"id"`
	ProductVariantID int64          `db:"product_variant_id" json:"product_variant_id"`
	OrderID          sql.NullInt64  `db:"order_id" json:"order_id,omitempty"`
	Type             string         `db:"type" json:"type"`
	Quantity         int            `db:"quantity" json:"quantity"`
	PreviousStock    int            `db:"previous_stock" json:"previous_stock"`
	NewStock         int            `db:"new_stock" json:"new_stock"`
	Reason           sql.NullString `db:"reason" json:"reason,omitempty"`
	PerformedBy      int64          `db:"performed_by" json:"performed_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// LowStockAlert is derived state: at most one unresolved alert exists per
// variant at any time (enforced by a partial unique index).
type LowStockAlert struct {
	ID               int64        `db:"id" json:"id"`
	ProductVariantID int64        `db:"product_variant_id" json:"product_variant_id"`
	CurrentStock     int          `db:"current_stock" json:"current_stock"`
	Threshold        int          `db:"threshold" json:"threshold"`
	IsResolved       bool         `db:"is_resolved" json:"is_resolved"`
	NotifiedAt       sql.NullTime `db:"notified_at" json:"notified_at,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is the aggregate root for a customer purchase. Amounts are in
// cents and frozen at creation time.
type Order struct {
	ID              int64          `db:"id" json:"id"`
	OrderNumber     string         `db:"order_number" json:"order_number"`
	UserID          int64          `db:"user_id" json:"user_id"`
	Status          string         `db:"status" json:"status"`
	TotalAmount     int64          `db:"total_amount" json:"total_amount"`
	TaxAmount       int64          `db:"tax_amount" json:"tax_amount"`
	ShippingAmount  int64          `db:"shipping_amount" json:"shipping_amount"`
	ShippingAddress string         `db:"shipping_address" json:"shipping_address"`
	BillingAddress  string         `db:"billing_address" json:"billing_address"`
	Notes           sql.NullString `db:"notes" json:"notes,omitempty"`
	ConfirmedAt     sql.NullTime   `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ShippedAt       sql.NullTime   `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt     sql.NullTime   `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt     sql.NullTime   `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// CanBeCancelled reports whether the order may still be cancelled.
// Once shipped, goods are in transit and stock cannot be auto-restored.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// OrderItem is a line item with price and names snapshotted at creation
// time so later catalog edits do not rewrite historical orders.
type OrderItem struct {
	ID               int64  `db:"id" json:"id"`
	OrderID          int64  `db:"order_id" json:"order_id"`
	ProductID        int64  `db:"product_id" json:"product_id"`
	ProductVariantID int64  `db:"product_variant_id" json:"product_variant_id"`
	ProductName      string `db:"product_name" json:"product_name"`
	VariantName      string `db:"variant_name" json:"variant_name"`
	Price            int64  `db:"price" json:"price"`
	Quantity         int    `db:"quantity" json:"quantity"`
	Subtotal         int64  `db:"subtotal" json:"subtotal"`
}

// StockSummary aggregates variant stock levels
type StockSummary struct {
	TotalVariants   int `db:"total_variants" json:"total_variants"`
	InStock         int `db:"in_stock" json:"in_stock"`
	LowStock        int `db:"low_stock" json:"low_stock"`
	OutOfStock      int `db:"out_of_stock" json:"out_of_stock"`
	TotalStockUnits int `db:"total_stock_units" json:"total_stock_units"`
}
