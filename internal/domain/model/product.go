package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	WeightGrams int64           `gorm:"not null;default:0" json:"weight_grams"`
	IsActive    bool            `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 商品1個を作るのに使う資材（レシピ）
// 香料でAmountが0の行は、原価見積もりの時だけ石鹸の重量から滴数を計算する。
type RecipeLine struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64           `gorm:"not null;index" json:"product_id"`
	StockItemID int64           `gorm:"not null;index" json:"stock_item_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (RecipeLine) TableName() string {
	return "product_materials"
}
