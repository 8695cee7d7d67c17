package repository_test

import (
	"context"
	"testing"
	"time"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/infra/db"
	infrarepo "seifenshop/internal/infra/repository"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func newStockItem(t *testing.T, r repo.StockRepository, name string, qty string) model.StockItem {
	t.Helper()
	item, err := r.Create(context.Background(), model.StockItem{
		Kind:      model.KindRawSoap,
		Name:      name,
		Quantity:  decimal.RequireFromString(qty),
		Available: true,
	})
	require.NoError(t, err)
	return item
}

func TestStockGormRepository_DecreaseIfEnough(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Stock()
	ctx := context.Background()
	item := newStockItem(t, r, "Glycerinseife", "10.5")

	ok, err := r.DecreaseIfEnough(ctx, item.ID, decimal.RequireFromString("10.5"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DecreaseIfEnough(ctx, item.ID, decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.IsZero(), got.Quantity.String())
}

func TestStockGormRepository_UniqueNamePerKind(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Stock()
	ctx := context.Background()
	newStockItem(t, r, "Olive", "1")

	_, err := r.Create(ctx, model.StockItem{Kind: model.KindRawSoap, Name: "Olive"})
	assert.ErrorIs(t, err, repo.ErrConflict)

	_, err = r.Create(ctx, model.StockItem{Kind: model.KindRawSoap, Name: " OLIVE "})
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := r.FindByName(ctx, model.KindRawSoap, "oLiVe")
	require.NoError(t, err)
	assert.Equal(t, "Olive", got.Name)

	// 別の種類なら同じ名前でもよい
	_, err = r.Create(ctx, model.StockItem{Kind: model.KindFragranceOil, Name: "Olive"})
	assert.NoError(t, err)
}

func TestStockGormRepository_KeepsUnavailableFlag(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Stock()
	ctx := context.Background()

	item, err := r.Create(ctx, model.StockItem{Kind: model.KindPackaging, Name: "Tüte", Available: false})
	require.NoError(t, err)

	got, err := r.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)
}

func TestStockGormRepository_ListEscapesWildcards(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Stock()
	newStockItem(t, r, "Kokos 100%", "1")
	newStockItem(t, r, "Kokos 1000", "1")

	list, total, err := r.List(context.Background(), repo.StockListQuery{Kind: model.KindRawSoap, Q: "100%"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Kokos 100%", list[0].Name)
}

func newOrder(t *testing.T, r repo.OrderRepository, number string) int64 {
	t.Helper()
	id, err := r.Create(context.Background(), model.Order{
		OrderNumber:  number,
		CustomerID:   1,
		BuyerName:    "Erika Muster",
		BuyerEmail:   "erika@example.com",
		Subtotal:     decimal.RequireFromString("10"),
		Tax:          decimal.RequireFromString("1.90"),
		ShippingCost: decimal.RequireFromString("4.90"),
		GrandTotal:   decimal.RequireFromString("16.80"),
		Status:       model.OrderStatusNew,
		Payment:      model.PaymentDetails{Status: model.PaymentStatusOpen},
	})
	require.NoError(t, err)
	return id
}

func TestOrderGormRepository_UpdateStatusIsCompareAndSwap(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Orders()
	ctx := context.Background()
	id := newOrder(t, r, "ORD-20260314-AAAAAA")

	require.NoError(t, r.UpdateStatus(ctx, id, model.OrderStatusNew, model.OrderStatusPaid))

	// 古い状態を前提にした更新は負ける
	err := r.UpdateStatus(ctx, id, model.OrderStatusNew, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, repo.ErrConflict)

	err = r.UpdateStatus(ctx, 999, model.OrderStatusNew, model.OrderStatusPaid)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	got, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
}

func TestOrderGormRepository_DuplicateOrderNumber(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Orders()
	newOrder(t, r, "ORD-20260314-BBBBBB")

	_, err := r.Create(context.Background(), model.Order{
		OrderNumber: "ORD-20260314-BBBBBB",
		CustomerID:  2,
		BuyerName:   "x",
		BuyerEmail:  "x@example.com",
		Status:      model.OrderStatusNew,
	})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestCartRepositories_AddCapAndCheckOut(t *testing.T) {
	gdb := openTestDB(t)
	repos := infrarepo.NewRepos(gdb)
	ctx := context.Background()
	price := decimal.RequireFromString("6.50")

	cart, err := repos.Carts().OpenFor(ctx, 7)
	require.NoError(t, err)
	again, err := repos.Carts().OpenFor(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	require.NoError(t, repos.CartItems().Add(ctx, cart.ID, 1, 5, 10, price))
	require.NoError(t, repos.CartItems().Add(ctx, cart.ID, 1, 5, 10, price))
	assert.ErrorIs(t, repos.CartItems().Add(ctx, cart.ID, 1, 1, 10, price), repo.ErrConflict)

	items, err := repos.CartItems().ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(10), items[0].Quantity)

	_, err = repos.CartItems().SetQuantity(ctx, 8, items[0].ID, 2)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, repos.Carts().CheckOut(ctx, cart.ID))
	assert.ErrorIs(t, repos.Carts().CheckOut(ctx, cart.ID), repo.ErrConflict)

	items, err = repos.CartItems().ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = repos.Carts().FindOpen(ctx, 7)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestTxManagerGorm_RollsBackOnError(t *testing.T) {
	gdb := openTestDB(t)
	tm := infrarepo.NewTxManagerGorm(gdb)
	ctx := context.Background()
	item := newStockItem(t, infrarepo.NewRepos(gdb).Stock(), "Aloe", "5")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Stock().DecreaseIfEnough(ctx, item.ID, decimal.NewFromInt(3))
		require.NoError(t, err)
		require.True(t, ok)
		return repo.ErrConflict
	})
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := infrarepo.NewRepos(gdb).Stock().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(got.Quantity))
}

func TestEmailOutboxGormRepository_ClaimBatch(t *testing.T) {
	gdb := openTestDB(t)
	r := infrarepo.NewRepos(gdb).Emails()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	lease := time.Minute

	for _, id := range []string{"e-1", "e-2"} {
		_, err := r.Enqueue(ctx, model.EmailOut{
			EventID:      id,
			Event:        model.EmailEventOrderConfirmed,
			Recipient:    "kunde@example.com",
			TemplateData: "{}",
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		require.NoError(t, err)
	}

	claimed, err := r.ClaimBatch(ctx, now, lease, 3, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, m := range claimed {
		assert.Equal(t, model.DeliveryStatusSending, m.Status)
	}

	// リース中は誰も取れない
	again, err := r.ClaimBatch(ctx, now.Add(30*time.Second), lease, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, r.MarkSent(ctx, claimed[0].ID, now))
	require.NoError(t, r.MarkFailed(ctx, claimed[1].ID, "smtp down", now))

	// 失敗した方だけ、リースが切れたら再送対象
	retry, err := r.ClaimBatch(ctx, now.Add(2*lease), lease, 3, 10)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, claimed[1].ID, retry[0].ID)
	assert.Equal(t, 1, retry[0].Attempts)

	// 上限回数に達したら取らない
	require.NoError(t, r.MarkFailed(ctx, retry[0].ID, "smtp down", now.Add(2*lease)))
	none, err := r.ClaimBatch(ctx, now.Add(10*lease), lease, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	sent := string(model.DeliveryStatusSent)
	list, total, err := r.List(ctx, repo.EmailListFilter{Status: sent})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "e-1", list[0].EventID)
}
