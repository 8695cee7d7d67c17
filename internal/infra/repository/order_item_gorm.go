package repository

import (
	"context"

	"seifenshop/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// 明細はスナップショットなので、商品側の変更はあとから反映されない
func (r *OrderItemGormRepository) Attach(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]model.OrderItem, len(items))
	for i, it := range items {
		it.ID = 0
		it.OrderID = orderID
		rows[i] = it
	}
	return translateError(r.db.WithContext(ctx).CreateInBatches(rows, 100).Error)
}

func (r *OrderItemGormRepository) ForOrder(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	grouped, err := r.ForOrders(ctx, []int64{orderID})
	if err != nil {
		return []model.OrderItem{}, err
	}
	if items, found := grouped[orderID]; found {
		return items, nil
	}
	return []model.OrderItem{}, nil
}

func (r *OrderItemGormRepository) ForOrders(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	grouped := make(map[int64][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}

	var rows []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id asc").Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, it := range rows {
		grouped[it.OrderID] = append(grouped[it.OrderID], it)
	}
	return grouped, nil
}
