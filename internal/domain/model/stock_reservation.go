package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文確定時に引き当てた資材。キャンセル時はこの量をそのまま戻す。
type StockReservation struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	StockItemID int64           `gorm:"not null;index" json:"stock_item_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	ReservedAt  time.Time       `gorm:"not null" json:"reserved_at"`
	ReleasedAt  *time.Time      `gorm:"index" json:"released_at,omitempty"`
}
