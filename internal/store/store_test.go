package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"commerce-api/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to the database named by TEST_DATABASE_URL,
// skipping the test when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - set TEST_DATABASE_URL to run")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestVendor(t *testing.T, store *Store) *models.User {
	t.Helper()

	user := &models.User{
		Name:         "Test Vendor",
		Email:        fmt.Sprintf("vendor-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         models.RoleVendor,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func createTestVariant(t *testing.T, store *Store, vendorID int64, stock int) *models.ProductVariant {
	t.Helper()
	ctx := context.Background()

	suffix := time.Now().UnixNano()
	product := &models.Product{
		UserID:    vendorID,
		Name:      "Test Product",
		Slug:      fmt.Sprintf("test-product-%d", suffix),
		BasePrice: 1000,
		SKU:       fmt.Sprintf("TP-%d", suffix),
		IsActive:  true,
	}
	require.NoError(t, store.CreateProduct(ctx, product))

	variant := &models.ProductVariant{
		ProductID:     product.ID,
		Name:          "Default",
		SKU:           fmt.Sprintf("TPV-%d", suffix),
		Price:         1000,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, store.CreateVariant(ctx, variant))
	return variant
}

func TestProductLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vendor := createTestVendor(t, store)
	variant := createTestVariant(t, store, vendor.ID, 20)

	loaded, err := store.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 20, loaded.StockQuantity)

	product, err := store.GetProductByID(ctx, variant.ProductID)
	require.NoError(t, err)
	require.NotNil(t, product)

	require.NoError(t, store.SoftDeleteProduct(ctx, product.ID))

	// tombstoned products disappear from reads
	gone, err := store.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// and their variants are deactivated
	loaded, err = store.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.IsActive)
}

func TestUpsertLowStockAlertIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vendor := createTestVendor(t, store)
	variant := createTestVariant(t, store, vendor.ID, 5)

	var first, second *models.LowStockAlert
	require.NoError(t, store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		first, err = store.UpsertLowStockAlertTx(ctx, tx, variant.ID, 5, 10)
		return err
	}))
	require.NoError(t, store.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		second, err = store.UpsertLowStockAlertTx(ctx, tx, variant.ID, 3, 10)
		return err
	}))

	// the second check updates the open alert instead of creating a new one
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.CurrentStock)

	var open int
	require.NoError(t, store.GetDB().GetContext(ctx, &open,
		`SELECT COUNT(*) FROM low_stock_alerts WHERE product_variant_id = $1 AND NOT is_resolved`,
		variant.ID))
	assert.Equal(t, 1, open)
}

func TestInventoryLogLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	vendor := createTestVendor(t, store)
	variant := createTestVariant(t, store, vendor.ID, 10)

	require.NoError(t, store.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := store.GetVariantForUpdateTx(ctx, tx, variant.ID)
		if err != nil {
			return err
		}
		if err := store.UpdateVariantStockTx(ctx, tx, variant.ID, locked.StockQuantity-4); err != nil {
			return err
		}
		return store.InsertInventoryLogTx(ctx, tx, &models.InventoryLog{
			ProductVariantID: variant.ID,
			Type:             models.LogTypeDeduction,
			Quantity:         -4,
			PreviousStock:    locked.StockQuantity,
			NewStock:         locked.StockQuantity - 4,
			PerformedBy:      vendor.ID,
		})
	}))

	entry, err := store.GetLatestInventoryLog(ctx, variant.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, entry.NewStock, entry.PreviousStock+entry.Quantity)

	loaded, err := store.GetVariantByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.NewStock, loaded.StockQuantity)
}
