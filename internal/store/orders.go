package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-api/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderTx inserts a new order inside tx
func (s *Store) CreateOrderTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, status, total_amount, tax_amount,
		                    shipping_amount, shipping_address, billing_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return tx.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.Status, order.TotalAmount,
		order.TaxAmount, order.ShippingAmount, order.ShippingAddress,
		order.BillingAddress, order.Notes)
}

// CreateOrderItemTx inserts an order line item inside tx
func (s *Store) CreateOrderItemTx(ctx context.Context, tx *sqlx.Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_variant_id, product_name,
		                         variant_name, price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.ProductVariantID, item.ProductName,
		item.VariantName, item.Price, item.Quantity, item.Subtotal)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdateTx locks an order row so concurrent transitions
// serialize on it.
func (s *Store) GetOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// OrderListFilter narrows ListOrders
type OrderListFilter struct {
	CustomerID *int64
	VendorID   *int64
	Status     string
	Limit      int
	Offset     int
}

// ListOrders retrieves a page of orders with the total count. Vendor
// filtering matches orders containing at least one of the vendor's
// products.
func (s *Store) ListOrders(ctx context.Context, f OrderListFilter) ([]models.Order, int, error) {
	where := "1=1"
	args := []interface{}{}

	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		where += fmt.Sprintf(" AND o.user_id = $%d", len(args))
	}
	if f.VendorID != nil {
		args = append(args, *f.VendorID)
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.user_id = $%d)`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND o.status = $%d", len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM orders o WHERE "+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(
		"SELECT o.* FROM orders o WHERE %s ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var orders []models.Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// milestone timestamp column per target status; cancelled_at is set by
// the cancel path only
var statusTimestampColumn = map[string]string{
	models.OrderStatusProcessing: "confirmed_at",
	models.OrderStatusShipped:    "shipped_at",
	models.OrderStatusDelivered:  "delivered_at",
	models.OrderStatusCancelled:  "cancelled_at",
}

// UpdateOrderStatusTx sets the status and its milestone timestamp inside tx
func (s *Store) UpdateOrderStatusTx(ctx context.Context, tx *sqlx.Tx, orderID int64, status string) error {
	query := "UPDATE orders SET status = $1, updated_at = NOW()"
	if col, ok := statusTimestampColumn[status]; ok {
		query += ", " + col + " = NOW()"
	}
	query += " WHERE id = $2"

	_, err := tx.ExecContext(ctx, query, status, orderID)
	return err
}
