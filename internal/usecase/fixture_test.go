package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/infra/db"
	infrarepo "seifenshop/internal/infra/repository"
	repo "seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// 連番のID（注文番号が読めるように）
type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string {
	return fmt.Sprintf("%06d-seq", s.n.Add(1))
}

type env struct {
	repos    repo.TxRepos
	tx       repo.TransactionManager
	clock    fixedClock
	pricing  usecase.Pricing
	workflow *usecase.OrderWorkflow

	stock      *usecase.StockUsecase
	products   *usecase.ProductUsecase
	carts      *usecase.CartUsecase
	orders     *usecase.OrderUsecase
	adminOrder *usecase.AdminOrderUsecase
	inquiries  *usecase.InquiryUsecase
	queries    *usecase.AdminQueryUsecase
}

const adminID int64 = 1

func newEnv(t *testing.T) *env {
	t.Helper()

	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })

	e := &env{
		repos: infrarepo.NewRepos(gdb),
		tx:    infrarepo.NewTxManagerGorm(gdb),
		clock: fixedClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
		pricing: usecase.Pricing{
			TaxRate:          decimal.RequireFromString("0.19"),
			ShippingFlat:     decimal.RequireFromString("4.90"),
			FreeShippingFrom: decimal.RequireFromString("50"),
		},
	}
	ids := &seqIDs{}
	e.workflow = usecase.NewOrderWorkflow(e.clock, ids)
	e.stock = usecase.NewStockUsecase(e.tx, e.clock)
	e.products = usecase.NewProductUsecase(e.tx, e.repos.Products(), e.clock)
	e.carts = usecase.NewCartUsecase(e.repos.Carts(), e.repos.CartItems(), e.repos.Products(), e.pricing)
	e.orders = usecase.NewOrderUsecase(e.tx, e.workflow, e.pricing, e.clock, ids)
	e.adminOrder = usecase.NewAdminOrderUsecase(e.tx, e.workflow)
	e.inquiries = usecase.NewInquiryUsecase(e.tx, e.workflow, e.pricing, e.clock, ids)
	e.queries = usecase.NewAdminQueryUsecase(e.tx)

	// 管理者はID=1
	e.createCustomer(t, "admin@example.com", model.RoleAdmin)
	return e
}

func (e *env) createCustomer(t *testing.T, email string, role model.Role) *model.Customer {
	t.Helper()
	c := &model.Customer{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Erika",
		LastName:     "Muster",
		Phone:        "+49301234567",
		Address: model.Address{
			Street:     "Hauptstr. 1",
			PostalCode: "10115",
			City:       "Berlin",
			Country:    "DE",
		},
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.repos.Customers().Create(context.Background(), c))
	return c
}

func (e *env) createStock(t *testing.T, kind model.MaterialKind, name string, qty string, unitCost string) usecase.StockItemOutput {
	t.Helper()
	out, err := e.stock.Create(context.Background(), adminID, kind, usecase.StockItemInput{
		Name:             name,
		Quantity:         dec(qty),
		UnitCost:         dec(unitCost),
		MinimumThreshold: dec("0"),
	})
	require.NoError(t, err)
	return out
}

func (e *env) stockQty(t *testing.T, kind model.MaterialKind, id int64) decimal.Decimal {
	t.Helper()
	out, err := e.stock.Get(context.Background(), kind, id)
	require.NoError(t, err)
	return out.Quantity
}

func (e *env) createProduct(t *testing.T, name string, price string, recipe ...usecase.RecipeLineInput) usecase.ProductDetailOutput {
	t.Helper()
	out, err := e.products.AdminCreateProduct(context.Background(), adminID, usecase.AdminProductInput{
		Name:        name,
		Category:    "seife",
		Price:       dec(price),
		WeightGrams: 100,
		IsActive:    true,
		Recipe:      recipe,
	})
	require.NoError(t, err)
	return out
}

// カートに入れて注文する
func (e *env) placeOrder(t *testing.T, customerID int64, productID int64, qty int64, key string) usecase.OrderOutput {
	t.Helper()
	ctx := context.Background()
	_, err := e.carts.AddItem(ctx, customerID, usecase.CartItemInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	out, err := e.orders.PlaceOrder(ctx, customerID, usecase.PlaceOrderInput{IdempotencyKey: key})
	require.NoError(t, err)
	return out
}

func (e *env) pay(t *testing.T, customerID int64, orderID int64) usecase.OrderOutput {
	t.Helper()
	out, err := e.orders.Pay(context.Background(), customerID, orderID, usecase.PaymentInput{
		Provider:      "paypal",
		TransactionID: fmt.Sprintf("PAY-%d", orderID),
	})
	require.NoError(t, err)
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertHTTPStatus(t *testing.T, err error, status int) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status, he.Message)
	return he
}

