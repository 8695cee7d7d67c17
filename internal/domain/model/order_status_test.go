package model_test

import (
	"testing"

	"seifenshop/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		want bool
	}{
		{model.OrderStatusNew, model.OrderStatusPaid, true},
		{model.OrderStatusPaid, model.OrderStatusConfirmed, true},
		{model.OrderStatusConfirmed, model.OrderStatusPacked, true},
		{model.OrderStatusPacked, model.OrderStatusShipped, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusDelivered, model.OrderStatusCompleted, true},

		// 飛ばしはだめ
		{model.OrderStatusNew, model.OrderStatusShipped, false},
		{model.OrderStatusNew, model.OrderStatusConfirmed, false},
		{model.OrderStatusPaid, model.OrderStatusPacked, false},

		// storniert は発送前だけ
		{model.OrderStatusNew, model.OrderStatusCancelled, true},
		{model.OrderStatusPacked, model.OrderStatusCancelled, true},
		{model.OrderStatusShipped, model.OrderStatusCancelled, false},

		// abgelehnt は neu / bezahlt だけ
		{model.OrderStatusPaid, model.OrderStatusRejected, true},
		{model.OrderStatusConfirmed, model.OrderStatusRejected, false},

		// 戻れない
		{model.OrderStatusPaid, model.OrderStatusNew, false},
		{model.OrderStatusCancelled, model.OrderStatusNew, false},
		{model.OrderStatusCompleted, model.OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, model.OrderStatusCompleted.IsTerminal())
	assert.True(t, model.OrderStatusCancelled.IsTerminal())
	assert.True(t, model.OrderStatusRejected.IsTerminal())
	assert.False(t, model.OrderStatusShipped.IsTerminal())
}

func TestOrderStatus_SuccessorsIsCopy(t *testing.T) {
	next := model.OrderStatusNew.Successors()
	require.NotEmpty(t, next)
	next[0] = model.OrderStatusCompleted

	assert.True(t, model.OrderStatusNew.CanTransitionTo(model.OrderStatusPaid))
	assert.False(t, model.OrderStatusNew.CanTransitionTo(model.OrderStatusCompleted))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := model.ParseOrderStatus("  Verschickt ")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, s)

	_, err = model.ParseOrderStatus("shipped")
	assert.ErrorIs(t, err, model.ErrInvalidOrderStatus)
}

func TestParseRole(t *testing.T) {
	r, err := model.ParseRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, r)

	// rolle / 他の値は受け付けない
	_, err = model.ParseRole("superuser")
	assert.ErrorIs(t, err, model.ErrInvalidRole)
	_, err = model.ParseRole("")
	assert.ErrorIs(t, err, model.ErrInvalidRole)
}

func TestStockItem_CriticalAndDosage(t *testing.T) {
	item := model.StockItem{Kind: model.KindRawSoap}
	item.Quantity = dec("500")
	item.MinimumThreshold = dec("500")
	assert.True(t, item.IsCritical())

	item.Quantity = dec("500.5")
	assert.False(t, item.IsCritical())

	// 1滴/50g、端数切り上げ
	assert.True(t, model.FragranceDropsForSoap(dec("100")).Equal(dec("2")))
	assert.True(t, model.FragranceDropsForSoap(dec("120")).Equal(dec("3")))
	assert.True(t, model.FragranceDropsForSoap(dec("0")).IsZero())
}
