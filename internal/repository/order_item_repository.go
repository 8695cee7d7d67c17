package repository

import (
	"context"

	"seifenshop/internal/domain/model"
)

// 明細は注文作成時に一度だけ書く
type OrderItemRepository interface {
	Attach(ctx context.Context, orderID int64, items []model.OrderItem) error
	ForOrder(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧用。キーは注文ID
	ForOrders(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
