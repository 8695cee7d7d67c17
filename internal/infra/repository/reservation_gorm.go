package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"

	"gorm.io/gorm"
)

type ReservationGormRepository struct {
	db *gorm.DB
}

func NewReservationGormRepository(db *gorm.DB) *ReservationGormRepository {
	return &ReservationGormRepository{db: db}
}

func (r *ReservationGormRepository) CreateBulk(ctx context.Context, rs []model.StockReservation) error {
	if len(rs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&rs).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *ReservationGormRepository) ListOpenByOrderID(ctx context.Context, orderID int64) ([]model.StockReservation, error) {
	var list []model.StockReservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND released_at IS NULL", orderID).
		Order("stock_item_id asc").
		Find(&list).Error
	if err != nil {
		return []model.StockReservation{}, translateError(err)
	}
	return list, nil
}

// 戻し済みにする（二重に戻さないため）
func (r *ReservationGormRepository) ReleaseByOrderID(ctx context.Context, orderID int64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.StockReservation{}).
		Where("order_id = ? AND released_at IS NULL", orderID).
		Update("released_at", at).Error
	return translateError(err)
}
