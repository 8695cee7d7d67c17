package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line は確定時点の商品名・単価を写したもの。注文明細と見積明細で共通
type Line struct {
	ProductID   int64           `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
}

func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// SumLines は明細の小計
func SumLines(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

type OrderItem struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`
	Line
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
