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

func TestStockUsecase_ReserveThenInsufficient(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	item := e.createStock(t, model.KindRawSoap, "Glycerinseife", "100", "0.02")

	out, err := e.stock.AdjustStock(ctx, adminID, model.KindRawSoap, usecase.StockAdjustInput{
		ItemID: item.ID,
		Action: usecase.StockActionReduce,
		Amount: dec("30"),
		Reason: "Produktion",
	})
	require.NoError(t, err)
	assertDecEqual(t, "70", out.Quantity)

	// 80 > 70 なので失敗、在庫はそのまま
	_, err = e.stock.AdjustStock(ctx, adminID, model.KindRawSoap, usecase.StockAdjustInput{
		ItemID: item.ID,
		Action: usecase.StockActionReduce,
		Amount: dec("80"),
	})
	he := assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Message, "insufficient stock")
	assertDecEqual(t, "70", e.stockQty(t, model.KindRawSoap, item.ID))
}

func TestStockUsecase_RestockStampsLastRestocked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	item := e.createStock(t, model.KindFragranceOil, "Lavendel", "0", "0.05")
	require.Nil(t, item.LastRestockedAt)

	out, err := e.stock.AdjustStock(ctx, adminID, model.KindFragranceOil, usecase.StockAdjustInput{
		ItemID: item.ID,
		Action: usecase.StockActionIncrease,
		Amount: dec("25"),
		Reason: "Lieferung",
	})
	require.NoError(t, err)
	assertDecEqual(t, "25", out.Quantity)
	require.NotNil(t, out.LastRestockedAt)

	moves, err := e.stock.Movements(ctx, model.KindFragranceOil, item.ID, 1, 20)
	require.NoError(t, err)
	// 初期在庫0は履歴に残さない
	require.Len(t, moves.Items, 1)
	assertDecEqual(t, "25", moves.Items[0].Delta)
}

func TestStockUsecase_PackagingWholeUnitsAndByName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createStock(t, model.KindPackaging, "Karton klein", "20", "0.30")

	_, err := e.stock.AdjustStock(ctx, adminID, model.KindPackaging, usecase.StockAdjustInput{
		Name:   "Karton klein",
		Action: usecase.StockActionReduce,
		Amount: dec("1.5"),
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)

	out, err := e.stock.AdjustStock(ctx, adminID, model.KindPackaging, usecase.StockAdjustInput{
		Name:   "Karton klein",
		Action: usecase.StockActionReduce,
		Amount: dec("5"),
	})
	require.NoError(t, err)
	assertDecEqual(t, "15", out.Quantity)

	_, err = e.stock.AdjustStock(ctx, adminID, model.KindPackaging, usecase.StockAdjustInput{
		Name:   "Karton gross",
		Action: usecase.StockActionIncrease,
		Amount: dec("5"),
	})
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestStockUsecase_KindMismatchIsNotFound(t *testing.T) {
	e := newEnv(t)
	item := e.createStock(t, model.KindRawSoap, "Sheabutter", "100", "0.04")

	_, err := e.stock.Get(context.Background(), model.KindFragranceOil, item.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestStockUsecase_Calculate(t *testing.T) {
	e := newEnv(t)
	e.createStock(t, model.KindFragranceOil, "Oel A", "100", "0.05")
	e.createStock(t, model.KindFragranceOil, "Oel B", "3", "0.08")

	out, err := e.stock.Calculate(context.Background(), model.KindFragranceOil, []usecase.CalculationLineInput{
		{Name: "Oel A", Amount: dec("10")},
		{Name: "Oel B", Amount: dec("5")},
		{Name: "Oel C", Amount: dec("1")},
	})
	require.NoError(t, err)

	require.Len(t, out.Lines, 3)
	assertDecEqual(t, "0.5", out.Lines[0].Cost)
	assert.True(t, out.Lines[0].Sufficient)

	// 足りなくても計算はする
	assertDecEqual(t, "0.4", out.Lines[1].Cost)
	assert.False(t, out.Lines[1].Sufficient)
	assert.Equal(t, "insufficient stock", out.Lines[1].Message)

	assert.False(t, out.Lines[2].Found)
	assert.Equal(t, "unknown material", out.Lines[2].Message)

	assertDecEqual(t, "0.9", out.Total)
	assert.Equal(t, "0.90", out.TotalDisplay)
	assert.False(t, out.AllSufficient)

	// 在庫は変わらない
	list, err := e.stock.List(context.Background(), model.KindFragranceOil, usecase.StockListInput{})
	require.NoError(t, err)
	for _, it := range list.Items {
		switch it.Name {
		case "Oel A":
			assertDecEqual(t, "100", it.Quantity)
		case "Oel B":
			assertDecEqual(t, "3", it.Quantity)
		}
	}
}

func TestStockUsecase_CalculateIsAdditive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createStock(t, model.KindRawSoap, "Olivenseife", "1000", "0.0125")
	e.createStock(t, model.KindRawSoap, "Ziegenmilch", "1000", "0.0333")

	a := usecase.CalculationLineInput{Name: "Olivenseife", Amount: dec("37")}
	b := usecase.CalculationLineInput{Name: "Ziegenmilch", Amount: dec("121")}

	both, err := e.stock.Calculate(ctx, model.KindRawSoap, []usecase.CalculationLineInput{a, b})
	require.NoError(t, err)
	onlyA, err := e.stock.Calculate(ctx, model.KindRawSoap, []usecase.CalculationLineInput{a})
	require.NoError(t, err)
	onlyB, err := e.stock.Calculate(ctx, model.KindRawSoap, []usecase.CalculationLineInput{b})
	require.NoError(t, err)

	assert.True(t, both.Total.Equal(onlyA.Total.Add(onlyB.Total)))
}

func TestStockUsecase_DeleteSoftVsHard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	soap := e.createStock(t, model.KindRawSoap, "Aloe", "10", "0.01")
	box := e.createStock(t, model.KindPackaging, "Banderole", "10", "0.10")

	require.NoError(t, e.stock.Delete(ctx, adminID, model.KindRawSoap, soap.ID))
	got, err := e.stock.Get(ctx, model.KindRawSoap, soap.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	require.NoError(t, e.stock.Delete(ctx, adminID, model.KindPackaging, box.ID))
	_, err = e.stock.Get(ctx, model.KindPackaging, box.ID)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestStockUsecase_OverviewCriticalIsComputedOnRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := e.stock.Create(ctx, adminID, model.KindRawSoap, usecase.StockItemInput{
		Name:             "Kokos",
		Quantity:         dec("600"),
		UnitCost:         dec("0.01"),
		MinimumThreshold: dec("500"),
	})
	require.NoError(t, err)
	assert.False(t, out.Critical)

	ov, err := e.stock.Overview(ctx, model.KindRawSoap)
	require.NoError(t, err)
	assert.Empty(t, ov.CriticalItems)

	_, err = e.stock.AdjustStock(ctx, adminID, model.KindRawSoap, usecase.StockAdjustInput{
		ItemID: out.ID, Action: usecase.StockActionReduce, Amount: dec("100"),
	})
	require.NoError(t, err)

	ov, err = e.stock.Overview(ctx, model.KindRawSoap)
	require.NoError(t, err)
	require.Len(t, ov.CriticalItems, 1)
	assert.Equal(t, "Kokos", ov.CriticalItems[0].Name)
}

func TestStockUsecase_DeleteRefusesPackagingUsedByRecipe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := newSoapFixture(t, e)

	order := e.placeOrder(t, f.customer.ID, f.product.ID, 1, "k-del")
	e.pay(t, f.customer.ID, order.ID)

	err := e.stock.Delete(ctx, adminID, model.KindPackaging, f.box.ID)
	he := assertHTTPStatus(t, err, http.StatusConflict)
	assert.Contains(t, he.Message, "Karton")

	// 箱が残っているので確定できる
	_, err = e.setStatus(t, order.ID, model.OrderStatusConfirmed, "")
	require.NoError(t, err)
	assertDecEqual(t, "9", e.stockQty(t, model.KindPackaging, f.box.ID))

	est, err := e.products.EstimateCost(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Len(t, est.Lines, 3)
}

func TestStockUsecase_NamesAreUniqueIgnoringCase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createStock(t, model.KindFragranceOil, "Lavendel", "100", "0.05")
	rose := e.createStock(t, model.KindFragranceOil, "Rose", "100", "0.08")

	_, err := e.stock.Create(ctx, adminID, model.KindFragranceOil, usecase.StockItemInput{Name: "lavendel", UnitCost: dec("0.01")})
	he := assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Message, "already exists")

	_, err = e.stock.Update(ctx, adminID, model.KindFragranceOil, rose.ID, usecase.StockItemInput{Name: " LAVENDEL ", UnitCost: dec("0.08")})
	he = assertHTTPStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Message, "already exists")

	// 大文字小文字を変えるだけの改名はできる
	renamed, err := e.stock.Update(ctx, adminID, model.KindFragranceOil, rose.ID, usecase.StockItemInput{Name: "ROSE", UnitCost: dec("0.08")})
	require.NoError(t, err)
	assert.Equal(t, "ROSE", renamed.Name)

	out, err := e.stock.Calculate(ctx, model.KindFragranceOil, []usecase.CalculationLineInput{{Name: "LAVENDEL", Amount: dec("10")}})
	require.NoError(t, err)
	assertDecEqual(t, "0.5", out.Total)
}

func TestStockUsecase_AdjustUnknownNameMentionsKind(t *testing.T) {
	e := newEnv(t)

	_, err := e.stock.AdjustStock(context.Background(), adminID, model.KindPackaging, usecase.StockAdjustInput{
		Name:   "Schachtel",
		Action: usecase.StockActionReduce,
		Amount: dec("1"),
	})
	he := assertHTTPStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "verpackung item not found: Schachtel", he.Message)
}
