package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusOpen    CartStatus = "offen"
	CartStatusOrdered CartStatus = "bestellt"
)

// Warenkorb。顧客ごとに offen は最大1つ。
type Cart struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID   int64      `gorm:"not null;index:idx_carts_customer_status" json:"customer_id"`
	Status       CartStatus `gorm:"type:varchar(16);not null;index:idx_carts_customer_status" json:"status"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 価格は追加時点のもの
type CartItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64           `gorm:"not null;uniqueIndex:ux_cart_items_cart_product" json:"cart_id"`
	ProductID         int64           `gorm:"not null;uniqueIndex:ux_cart_items_cart_product" json:"product_id"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price_snapshot"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// LineTotal は単価×数量
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(i.Quantity))
}
