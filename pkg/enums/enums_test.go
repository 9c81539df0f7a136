package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusDelivered: true,
		OrderStatusRejected:  true,
		OrderStatusCancelled: true,
	}
	for _, status := range validOrderStatuses {
		assert.Equal(t, terminal[status], status.IsTerminal(), status.String())
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("ready-for-pickup")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusReadyForPickup, got)

	_, err = ParseOrderStatus("ready_for_pickup")
	assert.Error(t, err)
}

func TestParseDeliveryMethodIsCaseInsensitive(t *testing.T) {
	got, err := ParseDeliveryMethod(" Pickup ")
	require.NoError(t, err)
	assert.Equal(t, DeliveryMethodPickup, got)

	_, err = ParseDeliveryMethod("drone")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	got, err := ParseRole("RIDER")
	require.NoError(t, err)
	assert.Equal(t, RoleRider, got)
	assert.False(t, Role("courier").IsValid())
}
