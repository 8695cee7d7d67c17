package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartUsecase_AddMergesSameProduct(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	_, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	cart, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(5), cart.Items[0].Quantity)
	assertDecEqual(t, "32.50", cart.Items[0].LineTotal)
	assertDecEqual(t, "32.50", cart.Subtotal)
	assertDecEqual(t, "4.90", cart.ShippingCost)
}

func TestCartUsecase_QuantityLimit(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	_, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 98})
	require.NoError(t, err)

	_, err = e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 2})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "quantity limit exceeded", he.Message)

	cart, err := e.carts.Cart(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(98), cart.Items[0].Quantity)

	_, err = e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 100})
	he, ok = usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestCartUsecase_ItemsOfOtherCustomersAreNotFound(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	other := e.createCustomer(t, "other@example.com", model.RoleCustomer)
	ctx := context.Background()

	cart, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = e.carts.SetItemQuantity(ctx, other.ID, itemID, 4)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)

	_, err = e.carts.RemoveItem(ctx, other.ID, itemID)
	he, ok = usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)

	cart, err = e.carts.SetItemQuantity(ctx, f.customer.ID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cart.Items[0].Quantity)

	cart, err = e.carts.RemoveItem(ctx, f.customer.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartUsecase_OrderedCartIsClosed(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	before, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{IdempotencyKey: "cart-closed"})
	require.NoError(t, err)

	// 注文済みカートの明細は触れない
	_, err = e.carts.RemoveItem(ctx, f.customer.ID, before.Items[0].ID)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)

	after, err := e.carts.Cart(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.CartID, after.CartID)
	assert.Empty(t, after.Items)
}
