package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusShipping))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusShipping.CanTransitionTo(OrderStatusDelivered))

	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipping))
	assert.False(t, OrderStatusShipping.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPaid))
}

func TestOrderStatusIsValid(t *testing.T) {
	assert.True(t, OrderStatusPending.IsValid())
	assert.False(t, OrderStatus("archived").IsValid())
}
