package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"commerce-api/internal/models"
	"commerce-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopPublisher swallows events in integration tests
type noopPublisher struct{}

func (noopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error { return nil }
func (noopPublisher) PublishOrderStatusChanged(context.Context, *models.OrderStatusChangedEvent) error {
	return nil
}
func (noopPublisher) PublishOrderCancelled(context.Context, *models.OrderCancelledEvent) error {
	return nil
}
func (noopPublisher) PublishStockChanged(context.Context, *models.StockChangedEvent) error {
	return nil
}

func newIntegrationStore(t *testing.T) *store.Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - set TEST_DATABASE_URL to run")
	}

	db, err := store.NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *store.Store, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Name:         fmt.Sprintf("Test %s", role),
		Email:        fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func seedVariant(t *testing.T, db *store.Store, vendorID int64, stock int) *models.ProductVariant {
	t.Helper()
	ctx := context.Background()

	suffix := time.Now().UnixNano()
	product := &models.Product{
		UserID:    vendorID,
		Name:      "Widget",
		Slug:      fmt.Sprintf("widget-%d", suffix),
		BasePrice: 2500,
		SKU:       fmt.Sprintf("WGT-%d", suffix),
		IsActive:  true,
	}
	require.NoError(t, db.CreateProduct(ctx, product))

	variant := &models.ProductVariant{
		ProductID:     product.ID,
		Name:          "Standard",
		SKU:           fmt.Sprintf("WGT-STD-%d", suffix),
		Price:         2500,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.CreateVariant(ctx, variant))
	return variant
}

// Concurrent single-unit deductions against a 10-unit variant: exactly
// ten succeed, the rest fail with insufficient stock, and the row lock
// keeps the ledger consistent.
func TestConcurrentDeduction(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	vendor := seedUser(t, db, models.RoleVendor)
	variant := seedVariant(t, db, vendor.ID, 10)
	inventory := NewInventoryService(db, nil, noopPublisher{}, 0)
	actor := models.Actor{ID: vendor.ID, Role: models.RoleVendor}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inventory.Deduct(ctx, actor, variant.ID, 1, nil, "concurrency test")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var stockErr *InsufficientStockError
		assert.True(t, errors.As(err, &stockErr), "unexpected error: %v", err)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, failed)

	loaded, err := db.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.StockQuantity)

	logs, total, err := db.ListInventoryLogs(ctx, variant.ID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	for _, entry := range logs {
		assert.Equal(t, entry.NewStock, entry.PreviousStock+entry.Quantity)
	}
}

// The full create-then-cancel path: stock drops at placement, is
// restored at cancellation, and the ledger records both sides.
func TestOrderCreateCancelScenario(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	vendor := seedUser(t, db, models.RoleVendor)
	customer := seedUser(t, db, models.RoleCustomer)
	variant := seedVariant(t, db, vendor.ID, 10)

	inventory := NewInventoryService(db, nil, noopPublisher{}, 5)
	orders := NewOrderService(db, inventory, noopPublisher{}, PricingConfig{
		TaxRatePercent:    10,
		ShippingFlatCents: 1000,
	}, "ORD-")

	actor := models.Actor{ID: customer.ID, Role: models.RoleCustomer}
	order, items, err := orders.CreateOrder(ctx, actor, &CreateOrderRequest{
		Items:           []OrderItemRequest{{VariantID: variant.ID, Quantity: 3}},
		ShippingAddress: "1 Test Street",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	// subtotal 7500, tax 750, shipping 1000
	assert.Equal(t, int64(9250), order.TotalAmount)
	assert.Equal(t, "1 Test Street", order.BillingAddress)

	loaded, err := db.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.StockQuantity)

	cancelled, err := orders.Cancel(ctx, actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	loaded, err = db.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.StockQuantity)

	logs, total, err := db.ListInventoryLogs(ctx, variant.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	// newest first: the return, then the deduction
	assert.Equal(t, models.LogTypeReturn, logs[0].Type)
	assert.Equal(t, 3, logs[0].Quantity)
	assert.Equal(t, models.LogTypeDeduction, logs[1].Type)
	assert.Equal(t, -3, logs[1].Quantity)
}

// An order whose second line exceeds stock leaves nothing behind
func TestOrderCreationAtomicity(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	vendor := seedUser(t, db, models.RoleVendor)
	customer := seedUser(t, db, models.RoleCustomer)
	plentiful := seedVariant(t, db, vendor.ID, 100)
	scarce := seedVariant(t, db, vendor.ID, 1)

	inventory := NewInventoryService(db, nil, noopPublisher{}, 5)
	orders := NewOrderService(db, inventory, noopPublisher{}, PricingConfig{}, "ORD-")

	actor := models.Actor{ID: customer.ID, Role: models.RoleCustomer}
	_, _, err := orders.CreateOrder(ctx, actor, &CreateOrderRequest{
		Items: []OrderItemRequest{
			{VariantID: plentiful.ID, Quantity: 2},
			{VariantID: scarce.ID, Quantity: 5},
		},
		ShippingAddress: "1 Test Street",
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.SKU, stockErr.SKU)

	// the passing line was rolled back with the failing one
	loaded, err := db.GetVariantByID(ctx, plentiful.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.StockQuantity)

	_, total, err := db.ListInventoryLogs(ctx, plentiful.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

// Two concurrent multi-item orders naming the same variants in opposite
// order must both commit; row locks are taken in ascending variant ID
// order on every path, so neither transaction can deadlock the other.
func TestConcurrentReversedOrderPlacement(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	vendor := seedUser(t, db, models.RoleVendor)
	customer := seedUser(t, db, models.RoleCustomer)
	first := seedVariant(t, db, vendor.ID, 100)
	second := seedVariant(t, db, vendor.ID, 100)

	inventory := NewInventoryService(db, nil, noopPublisher{}, 5)
	orders := NewOrderService(db, inventory, noopPublisher{}, PricingConfig{}, "ORD-")
	actor := models.Actor{ID: customer.ID, Role: models.RoleCustomer}

	const rounds = 10
	var wg sync.WaitGroup
	results := make(chan error, rounds*2)

	place := func(items []OrderItemRequest) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, err := orders.CreateOrder(ctx, actor, &CreateOrderRequest{
				Items:           items,
				ShippingAddress: "1 Test Street",
			})
			results <- err
		}
	}

	wg.Add(2)
	go place([]OrderItemRequest{
		{VariantID: first.ID, Quantity: 1},
		{VariantID: second.ID, Quantity: 1},
	})
	go place([]OrderItemRequest{
		{VariantID: second.ID, Quantity: 1},
		{VariantID: first.ID, Quantity: 1},
	})
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}

	for _, variant := range []*models.ProductVariant{first, second} {
		loaded, err := db.GetVariantByID(ctx, variant.ID)
		require.NoError(t, err)
		assert.Equal(t, 100-rounds*2, loaded.StockQuantity)
	}
}

// Malformed and unmatched CSV rows are skipped and reported without
// aborting the batch
func TestImportProductsCSVSkipsBadRows(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	suffix := time.Now().UnixNano()

	// CSV rows match vendors by exact name, so this one must be unique
	vendor := &models.User{
		Name:         fmt.Sprintf("CSV Vendor %d", suffix),
		Email:        fmt.Sprintf("csv-vendor-%d@example.com", suffix),
		PasswordHash: "x",
		Role:         models.RoleVendor,
	}
	require.NoError(t, db.CreateUser(ctx, vendor))

	products := NewProductService(db)
	actor := models.Actor{ID: vendor.ID, Role: models.RoleVendor}
	csvData := fmt.Sprintf(
		"name,sku,base_price,description,vendor\n"+
			"Good Widget,CSV-%d,1500,A widget,%s\n"+
			"Bad Price,CSV-BAD-%d,not-a-number,broken,%s\n"+
			"No Vendor,CSV-NV-%d,1000,orphan,Nobody Inc\n",
		suffix, vendor.Name, suffix, vendor.Name, suffix)

	result, err := products.ImportProductsCSV(ctx, actor, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Errors, 2)

	imported, err := db.GetProductBySKU(ctx, fmt.Sprintf("CSV-%d", suffix))
	require.NoError(t, err)
	require.NotNil(t, imported)
	assert.Equal(t, vendor.ID, imported.UserID)
}

// Stock recovery above threshold resolves the open alert in the same
// transaction as the mutation
func TestAlertResolutionOnRecovery(t *testing.T) {
	db := newIntegrationStore(t)
	ctx := context.Background()

	vendor := seedUser(t, db, models.RoleVendor)
	variant := seedVariant(t, db, vendor.ID, 3)
	inventory := NewInventoryService(db, nil, noopPublisher{}, 5)
	actor := models.Actor{ID: vendor.ID, Role: models.RoleVendor}

	alert, err := inventory.CheckLowStock(ctx, variant.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.False(t, alert.IsResolved)

	// a second check refreshes the same alert
	again, err := inventory.CheckLowStock(ctx, variant.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, alert.ID, again.ID)

	_, err = inventory.AddStock(ctx, actor, variant.ID, 20, "restock")
	require.NoError(t, err)

	open, err := db.GetUnresolvedAlert(ctx, variant.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	// back above threshold, the check is a no-op
	none, err := inventory.CheckLowStock(ctx, variant.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}
