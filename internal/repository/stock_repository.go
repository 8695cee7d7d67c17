package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type StockListQuery struct {
	Kind          model.MaterialKind
	Q             string
	OnlyAvailable bool
	OnlyCritical  bool
	Page          int
	Limit         int
}

// 種類ごとの在庫サマリ（読むたびに集計する）
type StockOverview struct {
	Kind           model.MaterialKind `json:"kind"`
	TotalItems     int64              `json:"total_items"`
	AvailableItems int64              `json:"available_items"`
	CriticalItems  []model.StockItem  `json:"critical_items"`
	TotalValue     decimal.Decimal    `json:"total_value"`
}

// 資材在庫の永続化と増減履歴をまとめた約束。
type StockRepository interface {
	List(ctx context.Context, q StockListQuery) ([]model.StockItem, int64, error)
	FindByID(ctx context.Context, id int64) (model.StockItem, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.StockItem, error)
	FindByName(ctx context.Context, kind model.MaterialKind, name string) (model.StockItem, error)

	//同じ種類・同じ名前はErrConflict
	Create(ctx context.Context, item model.StockItem) (model.StockItem, error)
	//在庫数以外のマスタ項目だけ更新
	UpdateMaster(ctx context.Context, item model.StockItem) error
	SetAvailable(ctx context.Context, id int64, available bool) error
	Delete(ctx context.Context, id int64) error

	// 在庫が足りるときだけ減算（1本のUPDATEで判定と減算をする）
	DecreaseIfEnough(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
	// 在庫戻し・補充。restockedAtがあれば最終補充日時も更新
	Increase(ctx context.Context, id int64, amount decimal.Decimal, restockedAt *time.Time) error

	CreateMovement(ctx context.Context, m model.StockMovement) error
	ListMovements(ctx context.Context, stockItemID int64, limit int, offset int) ([]model.StockMovement, int64, error)

	Overview(ctx context.Context, kind model.MaterialKind) (StockOverview, error)
}
