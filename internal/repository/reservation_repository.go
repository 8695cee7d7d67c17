package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
)

// 注文ごとの資材引当
type ReservationRepository interface {
	CreateBulk(ctx context.Context, rs []model.StockReservation) error
	//まだ戻していない引当
	ListOpenByOrderID(ctx context.Context, orderID int64) ([]model.StockReservation, error)
	ReleaseByOrderID(ctx context.Context, orderID int64, at time.Time) error
}
