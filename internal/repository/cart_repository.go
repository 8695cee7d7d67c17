package repository

import (
	"context"

	"seifenshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartRepository interface {
	// 無ければ offen のカートを作る
	OpenFor(ctx context.Context, customerID int64) (model.Cart, error)
	FindOpen(ctx context.Context, customerID int64) (model.Cart, error)
	// offen → bestellt にして明細を消す。既に bestellt なら ErrConflict。
	CheckOut(ctx context.Context, cartID int64) error
}

// 明細の更新系は customerID で所有者を絞る。該当なしは ErrNotFound。
type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同一商品は数量加算。加算後が maxQty を超えるなら ErrConflict。
	Add(ctx context.Context, cartID, productID, qty, maxQty int64, unitPrice decimal.Decimal) error
	SetQuantity(ctx context.Context, customerID, itemID, qty int64) (cartID int64, err error)
	Remove(ctx context.Context, customerID, itemID int64) (cartID int64, err error)
}
