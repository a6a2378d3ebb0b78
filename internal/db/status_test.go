package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusCanTransition(t *testing.T) {
	t.Run("pending edges", func(t *testing.T) {
		assert.True(t, OrderPending.CanTransition(OrderConfirmed))
		assert.True(t, OrderPending.CanTransition(OrderCancelled))
		assert.False(t, OrderPending.CanTransition(OrderInProgress))
		assert.False(t, OrderPending.CanTransition(OrderCompleted))
	})

	t.Run("confirmed edges", func(t *testing.T) {
		assert.True(t, OrderConfirmed.CanTransition(OrderInProgress))
		assert.True(t, OrderConfirmed.CanTransition(OrderCancelled))
		assert.False(t, OrderConfirmed.CanTransition(OrderCompleted))
		assert.False(t, OrderConfirmed.CanTransition(OrderPending))
	})

	t.Run("in_progress edges", func(t *testing.T) {
		assert.True(t, OrderInProgress.CanTransition(OrderCompleted))
		assert.False(t, OrderInProgress.CanTransition(OrderCancelled))
		assert.False(t, OrderInProgress.CanTransition(OrderConfirmed))
	})

	t.Run("terminal statuses have no edges", func(t *testing.T) {
		for _, terminal := range []OrderStatus{OrderCompleted, OrderCancelled} {
			for _, next := range []OrderStatus{OrderPending, OrderConfirmed, OrderInProgress, OrderCompleted, OrderCancelled} {
				assert.False(t, terminal.CanTransition(next), "%s -> %s must be rejected", terminal, next)
			}
		}
	})
}

func TestOrderStatusBlocking(t *testing.T) {
	assert.True(t, OrderPending.Blocking())
	assert.True(t, OrderConfirmed.Blocking())
	assert.True(t, OrderInProgress.Blocking())
	assert.False(t, OrderCompleted.Blocking())
	assert.False(t, OrderCancelled.Blocking())
}

func TestPaymentStatusCanTransition(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentCompleted))
	assert.True(t, PaymentPending.CanTransition(PaymentFailed))
	assert.True(t, PaymentPending.CanTransition(PaymentCancelled))
	assert.True(t, PaymentCompleted.CanTransition(PaymentRefunded))

	assert.False(t, PaymentCompleted.CanTransition(PaymentPending))
	assert.False(t, PaymentFailed.CanTransition(PaymentCompleted))
	assert.False(t, PaymentRefunded.CanTransition(PaymentCompleted))
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus("pending"))
	assert.True(t, ValidOrderStatus("in_progress"))
	assert.False(t, ValidOrderStatus("finished"))
	assert.False(t, ValidOrderStatus(""))
}
