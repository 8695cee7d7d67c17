package usecase

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
)

// 在庫の増減はここだけを通す（増減履歴も必ず残す）
type stockChange struct {
	Item    model.StockItem
	Amount  decimal.Decimal
	Reason  string
	ActorID *int64
	OrderID *int64
}

// reserve: 足りるときだけ減らす。足りなければ何も変えずに400
func reserveStock(ctx context.Context, r repo.TxRepos, c stockChange, now time.Time) error {
	ok, err := r.Stock().DecreaseIfEnough(ctx, c.Item.ID, c.Amount)
	if err != nil {
		return dbError(err, "stock item not found")
	}
	if !ok {
		return badRequest("insufficient stock: %s (requested %s %s, available %s)",
			c.Item.Name, c.Amount.String(), c.Item.Kind.Unit(), c.Item.Quantity.String())
	}
	if err := r.Stock().CreateMovement(ctx, model.StockMovement{
		StockItemID: c.Item.ID,
		Kind:        c.Item.Kind,
		Delta:       c.Amount.Neg(),
		Reason:      c.Reason,
		ActorUserID: c.ActorID,
		OrderID:     c.OrderID,
		CreatedAt:   now,
	}); err != nil {
		return dbError(err, "")
	}
	return nil
}

// restock: 常に成功。最終補充日時も更新する
func restockStock(ctx context.Context, r repo.TxRepos, c stockChange, now time.Time) error {
	if err := r.Stock().Increase(ctx, c.Item.ID, c.Amount, &now); err != nil {
		return dbError(err, "stock item not found")
	}
	if err := r.Stock().CreateMovement(ctx, model.StockMovement{
		StockItemID: c.Item.ID,
		Kind:        c.Item.Kind,
		Delta:       c.Amount,
		Reason:      c.Reason,
		ActorUserID: c.ActorID,
		OrderID:     c.OrderID,
		CreatedAt:   now,
	}); err != nil {
		return dbError(err, "")
	}
	return nil
}

// 数量のチェック（梱包材は整数のみ）
func validateStockAmount(kind model.MaterialKind, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return badRequest("amount must be > 0")
	}
	if kind.WholeUnits() && !amount.Equal(amount.Truncate(0)) {
		return badRequest("amount must be a whole number for %s", kind)
	}
	return nil
}
