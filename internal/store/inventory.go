package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"commerce-api/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertInventoryLogTx appends a ledger entry inside tx. Entries are
// never updated or deleted outside retention pruning.
func (s *Store) InsertInventoryLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.InventoryLog) error {
	query := `
		INSERT INTO inventory_logs (product_variant_id, order_id, type, quantity,
		                            previous_stock, new_stock, reason, performed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return tx.GetContext(ctx, entry, query,
		entry.ProductVariantID, entry.OrderID, entry.Type, entry.Quantity,
		entry.PreviousStock, entry.NewStock, entry.Reason, entry.PerformedBy)
}

// ListInventoryLogs retrieves a page of ledger entries for a variant
func (s *Store) ListInventoryLogs(ctx context.Context, variantID int64, limit, offset int) ([]models.InventoryLog, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM inventory_logs WHERE product_variant_id = $1", variantID); err != nil {
		return nil, 0, err
	}

	var logs []models.InventoryLog
	err := s.db.SelectContext(ctx, &logs, `
		SELECT * FROM inventory_logs
		WHERE product_variant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, variantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// GetLatestInventoryLog retrieves the most recent ledger entry for a variant
func (s *Store) GetLatestInventoryLog(ctx context.Context, variantID int64) (*models.InventoryLog, error) {
	var entry models.InventoryLog
	err := s.db.GetContext(ctx, &entry, `
		SELECT * FROM inventory_logs
		WHERE product_variant_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`, variantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertLowStockAlertTx creates or refreshes the single unresolved alert
// for a variant. The partial unique index on (product_variant_id) WHERE
// NOT is_resolved makes repeated checks idempotent.
func (s *Store) UpsertLowStockAlertTx(ctx context.Context, tx *sqlx.Tx, variantID int64, currentStock, threshold int) (*models.LowStockAlert, error) {
	var alert models.LowStockAlert
	query := `
		INSERT INTO low_stock_alerts (product_variant_id, current_stock, threshold, is_resolved)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (product_variant_id) WHERE NOT is_resolved
		DO UPDATE SET current_stock = EXCLUDED.current_stock,
		              threshold = EXCLUDED.threshold,
		              updated_at = NOW()
		RETURNING *`

	if err := tx.GetContext(ctx, &alert, query, variantID, currentStock, threshold); err != nil {
		return nil, err
	}
	return &alert, nil
}

// ResolveAlertsTx resolves every unresolved alert for a variant
func (s *Store) ResolveAlertsTx(ctx context.Context, tx *sqlx.Tx, variantID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE low_stock_alerts
		SET is_resolved = TRUE, updated_at = NOW()
		WHERE product_variant_id = $1 AND is_resolved = FALSE`, variantID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetAlertByID retrieves an alert by ID
func (s *Store) GetAlertByID(ctx context.Context, id int64) (*models.LowStockAlert, error) {
	var alert models.LowStockAlert
	err := s.db.GetContext(ctx, &alert, "SELECT * FROM low_stock_alerts WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// GetUnresolvedAlert retrieves the unresolved alert for a variant, if any
func (s *Store) GetUnresolvedAlert(ctx context.Context, variantID int64) (*models.LowStockAlert, error) {
	var alert models.LowStockAlert
	err := s.db.GetContext(ctx, &alert, `
		SELECT * FROM low_stock_alerts
		WHERE product_variant_id = $1 AND is_resolved = FALSE`, variantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ResolveAlertByID marks a single alert resolved
func (s *Store) ResolveAlertByID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE low_stock_alerts SET is_resolved = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

// MarkAlertNotified stamps notified_at after a successful send, but only
// if it has not been stamped yet. Returns whether this call won the stamp.
func (s *Store) MarkAlertNotified(ctx context.Context, alertID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE low_stock_alerts SET notified_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND notified_at IS NULL`, alertID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListUnresolvedAlerts retrieves a page of unresolved alerts, optionally
// narrowed to one vendor's products
func (s *Store) ListUnresolvedAlerts(ctx context.Context, vendorID *int64, limit, offset int) ([]models.LowStockAlert, int, error) {
	where := "a.is_resolved = FALSE"
	args := []interface{}{}

	if vendorID != nil {
		args = append(args, *vendorID)
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = a.product_variant_id AND p.user_id = $%d)`, len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM low_stock_alerts a WHERE "+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT a.* FROM low_stock_alerts a WHERE %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var alerts []models.LowStockAlert
	if err := s.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// GetStockSummary aggregates variant stock levels, optionally narrowed
// to one vendor's products
func (s *Store) GetStockSummary(ctx context.Context, vendorID *int64, threshold int) (*models.StockSummary, error) {
	where := "1=1"
	args := []interface{}{threshold}

	if vendorID != nil {
		args = append(args, *vendorID)
		where = fmt.Sprintf(`EXISTS (
			SELECT 1 FROM products p WHERE p.id = v.product_id AND p.user_id = $%d)`, len(args))
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) AS total_variants,
		       COUNT(*) FILTER (WHERE stock_quantity > $1) AS in_stock,
		       COUNT(*) FILTER (WHERE stock_quantity > 0 AND stock_quantity <= $1) AS low_stock,
		       COUNT(*) FILTER (WHERE stock_quantity = 0) AS out_of_stock,
		       COALESCE(SUM(stock_quantity), 0) AS total_stock_units
		FROM product_variants v WHERE %s`, where)

	var summary models.StockSummary
	if err := s.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, err
	}
	return &summary, nil
}

// PruneInventoryLogs deletes ledger entries older than the retention window
func (s *Store) PruneInventoryLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM inventory_logs WHERE created_at < NOW() - $1::interval",
		fmt.Sprintf("%d seconds", int64(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneResolvedAlerts deletes resolved alerts stale past the retention window
func (s *Store) PruneResolvedAlerts(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM low_stock_alerts
		WHERE is_resolved = TRUE AND updated_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
