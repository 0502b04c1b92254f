package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/redisclient"
	"commerce-api/internal/store"
	"commerce-api/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// EventPublisher is the single explicit dependency the services enqueue
// side-effect work through.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error
}

// InventoryService is the ledger: every stock mutation funnels through it,
// holds the variant row lock for one transaction, and appends exactly one
// log entry.
type InventoryService struct {
	store     *store.Store
	redis     *redisclient.Client
	publisher EventPublisher
	threshold int
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store *store.Store, redis *redisclient.Client, publisher EventPublisher, lowStockThreshold int) *InventoryService {
	return &InventoryService{
		store:     store,
		redis:     redis,
		publisher: publisher,
		threshold: lowStockThreshold,
		logger:    util.GetLogger(),
	}
}

// StockRequest is one (variant, quantity) line of a batch reservation
type StockRequest struct {
	VariantID int64
	Quantity  int
}

// computeStockChange derives the new stock level and the signed log delta
// for one mutation. For adjustments, quantity is the absolute target.
func computeStockChange(logType string, previous, quantity int) (newStock, delta int, err error) {
	switch logType {
	case models.LogTypeDeduction:
		if previous < quantity {
			return 0, 0, fmt.Errorf("insufficient stock: available %d, required %d", previous, quantity)
		}
		return previous - quantity, -quantity, nil
	case models.LogTypeAddition, models.LogTypeReturn:
		return previous + quantity, quantity, nil
	case models.LogTypeAdjustment:
		if quantity < 0 {
			return 0, 0, fmt.Errorf("adjusted stock must not be negative: %d", quantity)
		}
		return quantity, quantity - previous, nil
	default:
		return 0, 0, fmt.Errorf("invalid inventory log type: %s", logType)
	}
}

// Deduct removes stock for an order line. Fails with
// InsufficientStockError when the variant cannot cover quantity.
func (s *InventoryService) Deduct(ctx context.Context, actor models.Actor, variantID int64, quantity int, orderID *int64, reason string) (*models.InventoryLog, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Deduct")
	defer span.End()

	if reason == "" {
		reason = "Stock deducted"
	}
	return s.mutate(ctx, actor, variantID, models.LogTypeDeduction, quantity, orderID, reason)
}

// Restore puts stock back after a cancellation. No upper bound.
func (s *InventoryService) Restore(ctx context.Context, actor models.Actor, variantID int64, quantity int, orderID *int64, reason string) (*models.InventoryLog, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Restore")
	defer span.End()

	if reason == "" {
		reason = "Stock restored"
	}
	return s.mutate(ctx, actor, variantID, models.LogTypeReturn, quantity, orderID, reason)
}

// AddStock records a manual restock. Admin or owning vendor only.
func (s *InventoryService) AddStock(ctx context.Context, actor models.Actor, variantID int64, quantity int, reason string) (*models.InventoryLog, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddStock")
	defer span.End()

	if err := s.requireVariantManager(ctx, actor, variantID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Stock added manually"
	}
	return s.mutate(ctx, actor, variantID, models.LogTypeAddition, quantity, nil, reason)
}

// AdjustStock sets stock to an absolute value; the logged delta is
// newQuantity - previous. Admin or owning vendor only.
func (s *InventoryService) AdjustStock(ctx context.Context, actor models.Actor, variantID int64, newQuantity int, reason string) (*models.InventoryLog, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock")
	defer span.End()

	if err := s.requireVariantManager(ctx, actor, variantID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Stock adjusted manually"
	}
	return s.mutate(ctx, actor, variantID, models.LogTypeAdjustment, newQuantity, nil, reason)
}

// mutate performs one ledger transaction: lock variant row, compute the
// change, write the counter and the log entry. Alerts are resolved
// in-transaction when stock recovers; low-stock detection rides the
// stock-changed event published after commit.
func (s *InventoryService) mutate(ctx context.Context, actor models.Actor, variantID int64, logType string, quantity int, orderID *int64, reason string) (*models.InventoryLog, error) {
	if quantity <= 0 && logType != models.LogTypeAdjustment {
		return nil, ErrInvalidQuantity
	}

	start := time.Now()
	defer func() {
		util.StockMutationLatency.Observe(time.Since(start).Seconds())
	}()

	var entry *models.InventoryLog
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		variant, err := s.store.GetVariantForUpdateTx(ctx, tx, variantID)
		if err != nil {
			return fmt.Errorf("failed to lock variant: %w", err)
		}
		if variant == nil {
			return ErrVariantNotFound
		}
		if !variant.IsActive {
			return ErrVariantInactive
		}

		entry, err = s.applyTx(ctx, tx, actor, variant, logType, quantity, orderID, reason)
		return err
	})
	if err != nil {
		util.StockMutationsFailed.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.StockMutationsTotal.WithLabelValues(logType).Inc()
	s.publishStockChanged(ctx, entry, logType)

	return entry, nil
}

// applyTx writes one stock change and its log entry inside an already
// open transaction holding the variant's row lock.
func (s *InventoryService) applyTx(ctx context.Context, tx *sqlx.Tx, actor models.Actor, variant *models.ProductVariant, logType string, quantity int, orderID *int64, reason string) (*models.InventoryLog, error) {
	newStock, delta, err := computeStockChange(logType, variant.StockQuantity, quantity)
	if err != nil {
		if logType == models.LogTypeDeduction {
			return nil, &InsufficientStockError{
				SKU:       variant.SKU,
				Available: variant.StockQuantity,
				Required:  quantity,
			}
		}
		return nil, err
	}

	if err := s.store.UpdateVariantStockTx(ctx, tx, variant.ID, newStock); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	entry := &models.InventoryLog{
		ProductVariantID: variant.ID,
		Type:             logType,
		Quantity:         delta,
		PreviousStock:    variant.StockQuantity,
		NewStock:         newStock,
		Reason:           sql.NullString{String: reason, Valid: reason != ""},
		PerformedBy:      actor.ID,
	}
	if orderID != nil {
		entry.OrderID = sql.NullInt64{Int64: *orderID, Valid: true}
	}

	if err := s.store.InsertInventoryLogTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to write inventory log: %w", err)
	}

	// recovery above threshold resolves the open alert in the same tx
	if newStock > s.threshold {
		if n, err := s.store.ResolveAlertsTx(ctx, tx, variant.ID); err != nil {
			return nil, fmt.Errorf("failed to resolve alerts: %w", err)
		} else if n > 0 {
			util.LowStockAlertsResolvedTotal.Add(float64(n))
		}
	}

	// keep a copy of the new level for callers still holding the struct
	variant.StockQuantity = newStock

	return entry, nil
}

// ReserveBatch deducts stock for every line of a multi-item order in one
// transaction: validate all, then apply all. Rows are locked in ascending
// variant ID order so concurrent batches cannot deadlock and the apply
// phase cannot re-discover insufficiency.
func (s *InventoryService) ReserveBatch(ctx context.Context, actor models.Actor, items []StockRequest, orderID int64, reason string) ([]*models.InventoryLog, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReserveBatch")
	defer span.End()

	var entries []*models.InventoryLog
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		entries, err = s.ReserveBatchTx(ctx, tx, actor, items, orderID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		s.publishStockChanged(ctx, entry, models.LogTypeDeduction)
	}
	return entries, nil
}

// sortStockRequests returns a copy ordered by ascending variant ID.
// Every multi-row locking path must iterate this order; mixed orders
// across concurrent transactions deadlock in Postgres.
func sortStockRequests(items []StockRequest) []StockRequest {
	sorted := make([]StockRequest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })
	return sorted
}

// ReserveBatchTx is the transactional body of ReserveBatch, exposed so
// order creation can run it inside its own transaction. The caller is
// responsible for publishing the stock-changed events after commit.
func (s *InventoryService) ReserveBatchTx(ctx context.Context, tx *sqlx.Tx, actor models.Actor, items []StockRequest, orderID int64, reason string) ([]*models.InventoryLog, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	if reason == "" {
		reason = fmt.Sprintf("Reserved for order #%d", orderID)
	}

	sorted := sortStockRequests(items)

	// phase 1: lock and validate every row before touching any
	variants := make(map[int64]*models.ProductVariant, len(sorted))
	for _, item := range sorted {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		variant, err := s.store.GetVariantForUpdateTx(ctx, tx, item.VariantID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock variant: %w", err)
		}
		if variant == nil {
			return nil, ErrVariantNotFound
		}
		if !variant.IsActive {
			return nil, ErrVariantInactive
		}
		if !variant.HasStock(item.Quantity) {
			util.StockMutationsFailed.WithLabelValues("insufficient_stock").Inc()
			return nil, &InsufficientStockError{
				SKU:       variant.SKU,
				Available: variant.StockQuantity,
				Required:  item.Quantity,
			}
		}
		variants[item.VariantID] = variant
	}

	// phase 2: apply every deduction
	entries := make([]*models.InventoryLog, 0, len(sorted))
	oid := orderID
	for _, item := range sorted {
		entry, err := s.applyTx(ctx, tx, actor, variants[item.VariantID], models.LogTypeDeduction, item.Quantity, &oid, reason)
		if err != nil {
			return nil, err
		}
		util.StockMutationsTotal.WithLabelValues(models.LogTypeDeduction).Inc()
		entries = append(entries, entry)
	}

	return entries, nil
}

// CheckLowStock upserts the unresolved alert for a variant whose stock is
// at or below threshold. Idempotent while the episode lasts. Returns nil
// when stock is above threshold.
func (s *InventoryService) CheckLowStock(ctx context.Context, variantID int64, threshold int) (*models.LowStockAlert, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.CheckLowStock")
	defer span.End()

	if threshold <= 0 {
		threshold = s.threshold
	}

	variant, err := s.store.GetVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, ErrVariantNotFound
	}
	if !variant.IsLowStock(threshold) {
		return nil, nil
	}

	var alert *models.LowStockAlert
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.store.GetUnresolvedAlert(ctx, variantID)
		if err != nil {
			return err
		}
		alert, err = s.store.UpsertLowStockAlertTx(ctx, tx, variantID, variant.StockQuantity, threshold)
		if err != nil {
			return err
		}
		if existing == nil {
			util.LowStockAlertsTotal.Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Low stock alert active",
		zap.Int64("variant_id", variantID),
		zap.String("sku", variant.SKU),
		zap.Int("stock", variant.StockQuantity),
		zap.Int("threshold", threshold))

	return alert, nil
}

// ResolveAlert marks one alert resolved on operator request
func (s *InventoryService) ResolveAlert(ctx context.Context, actor models.Actor, alertID int64) error {
	alert, err := s.store.GetAlertByID(ctx, alertID)
	if err != nil {
		return err
	}
	if alert == nil {
		return ErrAlertNotFound
	}

	if err := s.requireVariantManager(ctx, actor, alert.ProductVariantID); err != nil {
		return err
	}

	if err := s.store.ResolveAlertByID(ctx, alertID); err != nil {
		return err
	}
	util.LowStockAlertsResolvedTotal.Inc()
	return nil
}

// MarkAlertNotified stamps notified_at after the alert email went out.
// Returns false when another dispatcher already stamped it.
func (s *InventoryService) MarkAlertNotified(ctx context.Context, alertID int64) (bool, error) {
	return s.store.MarkAlertNotified(ctx, alertID)
}

// GetLogs retrieves the ledger for a variant. Vendors see only their
// own products' logs.
func (s *InventoryService) GetLogs(ctx context.Context, actor models.Actor, variantID int64, limit, offset int) ([]models.InventoryLog, int, error) {
	if actor.Role != models.RoleAdmin {
		if err := s.requireVariantManager(ctx, actor, variantID); err != nil {
			return nil, 0, err
		}
	}
	return s.store.ListInventoryLogs(ctx, variantID, limit, offset)
}

// ListAlerts retrieves unresolved alerts; vendors see only their own
func (s *InventoryService) ListAlerts(ctx context.Context, actor models.Actor, limit, offset int) ([]models.LowStockAlert, int, error) {
	var vendorID *int64
	if actor.Role == models.RoleVendor {
		vendorID = &actor.ID
	}
	return s.store.ListUnresolvedAlerts(ctx, vendorID, limit, offset)
}

// GetStockSummary aggregates stock levels, cached briefly in Redis
func (s *InventoryService) GetStockSummary(ctx context.Context, actor models.Actor) (*models.StockSummary, error) {
	var vendorID *int64
	cacheKey := "stock-summary:all"
	if actor.Role == models.RoleVendor {
		vendorID = &actor.ID
		cacheKey = fmt.Sprintf("stock-summary:vendor:%d", actor.ID)
	}

	if s.redis != nil {
		var cached models.StockSummary
		if ok, err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	summary, err := s.store.GetStockSummary(ctx, vendorID, s.threshold)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, cacheKey, summary, 30*time.Second); err != nil {
			s.logger.Warn("Failed to cache stock summary", zap.Error(err))
		}
	}
	return summary, nil
}

// VendorForVariant resolves the vendor owning a variant's product
func (s *InventoryService) VendorForVariant(ctx context.Context, variantID int64) (*models.User, *models.ProductVariant, error) {
	variant, err := s.store.GetVariantByID(ctx, variantID)
	if err != nil {
		return nil, nil, err
	}
	if variant == nil {
		return nil, nil, ErrVariantNotFound
	}

	product, err := s.store.GetProductByID(ctx, variant.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, variant, ErrProductNotFound
	}

	vendor, err := s.store.GetUserByID(ctx, product.UserID)
	if err != nil {
		return nil, variant, err
	}
	if vendor == nil {
		return nil, variant, ErrUserNotFound
	}
	return vendor, variant, nil
}

// PruneRetention deletes ledger entries and resolved alerts past their
// retention windows
func (s *InventoryService) PruneRetention(ctx context.Context, logRetention, alertRetention time.Duration) error {
	logs, err := s.store.PruneInventoryLogs(ctx, logRetention)
	if err != nil {
		return fmt.Errorf("failed to prune inventory logs: %w", err)
	}
	alerts, err := s.store.PruneResolvedAlerts(ctx, alertRetention)
	if err != nil {
		return fmt.Errorf("failed to prune resolved alerts: %w", err)
	}
	if logs > 0 || alerts > 0 {
		s.logger.Info("Retention pass completed",
			zap.Int64("logs_pruned", logs),
			zap.Int64("alerts_pruned", alerts))
	}
	return nil
}

// requireVariantManager allows admins, or the vendor owning the
// variant's product. Evaluated once at the service boundary.
func (s *InventoryService) requireVariantManager(ctx context.Context, actor models.Actor, variantID int64) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleVendor {
		return ErrForbidden
	}

	variant, err := s.store.GetVariantByID(ctx, variantID)
	if err != nil {
		return err
	}
	if variant == nil {
		return ErrVariantNotFound
	}

	product, err := s.store.GetProductByID(ctx, variant.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if product.UserID != actor.ID {
		return ErrForbidden
	}
	return nil
}

func (s *InventoryService) publishStockChanged(ctx context.Context, entry *models.InventoryLog, logType string) {
	variant, err := s.store.GetVariantByID(ctx, entry.ProductVariantID)
	sku := ""
	if err == nil && variant != nil {
		sku = variant.SKU
	}

	event := &models.StockChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockChanged,
			Timestamp: time.Now(),
		},
		ProductVariantID: entry.ProductVariantID,
		SKU:              sku,
		PreviousStock:    entry.PreviousStock,
		NewStock:         entry.NewStock,
		LogType:          logType,
	}

	if err := s.publisher.PublishStockChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockChanged event",
			zap.Int64("variant_id", entry.ProductVariantID),
			zap.Error(err))
	}
}

func failureReason(err error) string {
	switch err.(type) {
	case *InsufficientStockError:
		return "insufficient_stock"
	}
	switch err {
	case ErrVariantNotFound:
		return "variant_not_found"
	case ErrVariantInactive:
		return "variant_inactive"
	case ErrInvalidQuantity:
		return "invalid_quantity"
	default:
		return "error"
	}
}
