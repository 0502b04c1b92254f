package service

import (
	"strings"
	"testing"

	"commerce-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]string]bool{
		{models.OrderStatusPending, models.OrderStatusProcessing}:   true,
		{models.OrderStatusPending, models.OrderStatusCancelled}:    true,
		{models.OrderStatusProcessing, models.OrderStatusShipped}:   true,
		{models.OrderStatusProcessing, models.OrderStatusCancelled}: true,
		{models.OrderStatusShipped, models.OrderStatusDelivered}:    true,
	}

	statuses := []string{
		models.OrderStatusPending,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]string{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("returned", models.OrderStatusPending))
	assert.False(t, CanTransition(models.OrderStatusPending, "returned"))
}

func TestCanBeCancelled(t *testing.T) {
	assert.True(t, (&models.Order{Status: models.OrderStatusPending}).CanBeCancelled())
	assert.True(t, (&models.Order{Status: models.OrderStatusProcessing}).CanBeCancelled())
	assert.False(t, (&models.Order{Status: models.OrderStatusShipped}).CanBeCancelled())
	assert.False(t, (&models.Order{Status: models.OrderStatusDelivered}).CanBeCancelled())
	assert.False(t, (&models.Order{Status: models.OrderStatusCancelled}).CanBeCancelled())
}

func TestGenerateOrderNumber(t *testing.T) {
	s := &OrderService{prefix: "ORD-"}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		num := s.generateOrderNumber()
		assert.True(t, strings.HasPrefix(num, "ORD-"))
		assert.Len(t, num, len("ORD-")+12)
		assert.Equal(t, strings.ToUpper(num), num)
		assert.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
}
