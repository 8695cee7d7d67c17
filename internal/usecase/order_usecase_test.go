package usecase_test

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderUsecase_PlaceOrder(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)

	out := e.placeOrder(t, f.customer.ID, f.product.ID, 3, "checkout-1")

	assert.Regexp(t, regexp.MustCompile(`^ORD-20260314-[A-Z0-9]{6}$`), out.OrderNumber)
	assert.Equal(t, "Erika Muster", out.BuyerName)
	assert.Equal(t, "Erika Muster", out.ShippingAddress.Name)
	assert.Equal(t, model.PaymentStatusOpen, out.Payment.Status)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Lavendelseife", out.Items[0].Name)
	assertDecEqual(t, "19.50", out.Items[0].LineTotal)

	assertDecEqual(t, "19.50", out.Subtotal)
	assertDecEqual(t, "3.71", out.Tax)
	assertDecEqual(t, "4.90", out.ShippingCost)
	assertDecEqual(t, "28.11", out.GrandTotal)

	// カートは空になる
	cart, err := e.carts.Cart(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestOrderUsecase_PlaceOrderIsIdempotent(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	first := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "same-key")

	again, err := e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{IdempotencyKey: "same-key"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	list, err := e.orders.ListMyOrders(ctx, f.customer.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}

// 先頭から順に返し、尽きたら連番
type scriptedIDs struct {
	next []string
	seq  seqIDs
}

func (s *scriptedIDs) NewID() string {
	if len(s.next) > 0 {
		id := s.next[0]
		s.next = s.next[1:]
		return id
	}
	return s.seq.NewID()
}

func TestOrderUsecase_PlaceOrderRedrawsTakenNumber(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	e.orders = usecase.NewOrderUsecase(e.tx, e.workflow, e.pricing, e.clock, &scriptedIDs{
		next: []string{"aaaaaa-1", "aaaaaa-2", "bbbbbb-3"},
	})

	first := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "n-1")
	assert.Equal(t, "ORD-20260314-AAAAAA", first.OrderNumber)

	// 2回目はAAAAAAを引くが使用済みなので引き直す
	second := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "n-2")
	assert.Equal(t, "ORD-20260314-BBBBBB", second.OrderNumber)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestOrderUsecase_PlaceOrderValidation(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	_, err := e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{IdempotencyKey: "empty"})
	he := assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "cart empty", he.Message)

	_, err = e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{
		IdempotencyKey:  "no-city",
		ShippingAddress: &model.Address{Street: "Weg 2", PostalCode: "20095"},
	})
	he = assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "shipping address incomplete", he.Message)
}

func TestOrderUsecase_InactiveProductCannotBeOrdered(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()

	_, err := e.carts.AddItem(ctx, f.customer.ID, usecase.CartItemInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, e.products.AdminDeleteProduct(ctx, adminID, f.product.ID))

	_, err = e.orders.PlaceOrder(ctx, f.customer.ID, usecase.PlaceOrderInput{IdempotencyKey: "gone"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestOrderUsecase_OtherCustomersOrderIsHidden(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	other := e.createCustomer(t, "andere@example.com", model.RoleCustomer)
	ctx := context.Background()

	order := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "mine")

	_, err := e.orders.GetMyOrderDetail(ctx, other.ID, order.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)

	_, err = e.orders.Pay(ctx, other.ID, order.ID, usecase.PaymentInput{TransactionID: "X"})
	assertHTTPStatus(t, err, http.StatusNotFound)

	got, err := e.orders.GetMyOrderDetail(ctx, f.customer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
}

func TestOrderUsecase_Pay(t *testing.T) {
	e := newEnv(t)
	f := newSoapFixture(t, e)
	ctx := context.Background()
	order := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "pay")

	_, err := e.orders.Pay(ctx, f.customer.ID, order.ID, usecase.PaymentInput{Provider: "paypal"})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	paid := e.pay(t, f.customer.ID, order.ID)
	assert.Equal(t, string(model.OrderStatusPaid), paid.Status)
	assert.Equal(t, model.PaymentStatusCompleted, paid.Payment.Status)
	assert.Equal(t, "paypal", paid.Payment.Provider)
	require.NotNil(t, paid.Payment.PaidAt)

	// 2回目は払えない
	_, err = e.orders.Pay(ctx, f.customer.ID, order.ID, usecase.PaymentInput{TransactionID: "again"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}
