package service

import (
	"testing"

	"commerce-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeStockChange(t *testing.T) {
	tests := []struct {
		name      string
		logType   string
		previous  int
		quantity  int
		wantStock int
		wantDelta int
		wantErr   bool
	}{
		{"deduction", models.LogTypeDeduction, 10, 3, 7, -3, false},
		{"deduction to zero", models.LogTypeDeduction, 5, 5, 0, -5, false},
		{"deduction insufficient", models.LogTypeDeduction, 2, 3, 0, 0, true},
		{"addition", models.LogTypeAddition, 10, 5, 15, 5, false},
		{"return", models.LogTypeReturn, 0, 4, 4, 4, false},
		{"adjustment up", models.LogTypeAdjustment, 10, 25, 25, 15, false},
		{"adjustment down", models.LogTypeAdjustment, 10, 3, 3, -7, false},
		{"adjustment to zero", models.LogTypeAdjustment, 10, 0, 0, -10, false},
		{"adjustment negative", models.LogTypeAdjustment, 10, -1, 0, 0, true},
		{"unknown type", "restock", 10, 5, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newStock, delta, err := computeStockChange(tt.logType, tt.previous, tt.quantity)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStock, newStock)
			assert.Equal(t, tt.wantDelta, delta)
			// ledger invariant
			assert.Equal(t, newStock, tt.previous+delta)
			assert.GreaterOrEqual(t, newStock, 0)
		})
	}
}

func TestSortStockRequests(t *testing.T) {
	items := []StockRequest{
		{VariantID: 9, Quantity: 1},
		{VariantID: 2, Quantity: 3},
		{VariantID: 5, Quantity: 2},
	}

	sorted := sortStockRequests(items)

	ids := make([]int64, len(sorted))
	for i, item := range sorted {
		ids[i] = item.VariantID
	}
	assert.Equal(t, []int64{2, 5, 9}, ids)

	// quantities stay attached to their variant
	assert.Equal(t, 3, sorted[0].Quantity)
	assert.Equal(t, 2, sorted[1].Quantity)
	assert.Equal(t, 1, sorted[2].Quantity)

	// the caller's slice is untouched
	assert.Equal(t, int64(9), items[0].VariantID)

	assert.Empty(t, sortStockRequests(nil))
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "insufficient_stock", failureReason(&InsufficientStockError{SKU: "A", Available: 1, Required: 2}))
	assert.Equal(t, "variant_not_found", failureReason(ErrVariantNotFound))
	assert.Equal(t, "variant_inactive", failureReason(ErrVariantInactive))
	assert.Equal(t, "invalid_quantity", failureReason(ErrInvalidQuantity))
	assert.Equal(t, "error", failureReason(assert.AnError))
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{SKU: "TSHIRT-M", Available: 2, Required: 5}
	assert.Equal(t, "insufficient stock for TSHIRT-M: available 2, required 5", err.Error())
}
