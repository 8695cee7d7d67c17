package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 在庫の増減履歴（追記のみ）
type StockMovement struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StockItemID int64           `gorm:"not null;index" json:"stock_item_id"`
	Kind        MaterialKind    `gorm:"type:varchar(20);not null;index" json:"kind"`
	Delta       decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"delta"`
	Reason      string          `gorm:"type:varchar(255);not null" json:"grund"`
	ActorUserID *int64          `gorm:"index" json:"actor_user_id,omitempty"`
	OrderID     *int64          `gorm:"index" json:"order_id,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
}
