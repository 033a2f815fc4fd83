package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusCompleted:      true,
		OrderStatusCancelled:      true,
		OrderStatusVendorRejected: true,
	}
	for _, status := range validOrderStatuses {
		assert.Equal(t, terminal[status], status.IsTerminal(), status.String())
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("IN_TRANSIT")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusInTransit, status)

	_, err = ParseOrderStatus("in_transit")
	assert.Error(t, err)
}

func TestParseActorRoleIsCaseInsensitive(t *testing.T) {
	role, err := ParseActorRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, ActorRoleManager, role)

	_, err = ParseActorRole("courier")
	assert.Error(t, err)
}

func TestPaymentEnums(t *testing.T) {
	method, err := ParsePaymentMethod("wallet")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodWallet, method)
	_, err = ParsePaymentMethod("card")
	assert.Error(t, err)

	assert.True(t, PaymentStatusPaid.Refundable())
	assert.False(t, PaymentStatusUnpaid.Refundable())
	assert.False(t, PaymentStatusRefunded.Refundable())
	_, err = ParsePaymentStatus("PAID")
	assert.Error(t, err)
}
