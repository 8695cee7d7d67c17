package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 資材の種類。種類ごとに在庫の単位が違う。
type MaterialKind string

const (
	KindRawSoap      MaterialKind = "rohseife"   // グラム
	KindFragranceOil MaterialKind = "duftoel"    // 滴
	KindPackaging    MaterialKind = "verpackung" // 個数
)

var ErrInvalidMaterialKind = errors.New("invalid material kind")

// 香料は石鹸50gにつき1滴（原価見積もり専用。在庫の引当には使わない）
var GramsPerFragranceDrop = decimal.NewFromInt(50)

func (k MaterialKind) Valid() bool {
	switch k {
	case KindRawSoap, KindFragranceOil, KindPackaging:
		return true
	}
	return false
}

func ParseMaterialKind(s string) (MaterialKind, error) {
	k := MaterialKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidMaterialKind
	}
	return k, nil
}

// 在庫の単位
func (k MaterialKind) Unit() string {
	switch k {
	case KindRawSoap:
		return "g"
	case KindFragranceOil:
		return "Tropfen"
	case KindPackaging:
		return "Stück"
	}
	return ""
}

// 梱包材は整数個のみ
func (k MaterialKind) WholeUnits() bool {
	return k == KindPackaging
}

// 梱包材は物理削除、それ以外は「利用不可」にするだけ
func (k MaterialKind) HardDelete() bool {
	return k == KindPackaging
}

// 在庫品目（石鹸素地・香料・梱包材）
type StockItem struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind        MaterialKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_kind_name_key" json:"kind"`
	Name        string       `gorm:"type:varchar(255);not null" json:"bezeichnung"`
	NameKey     string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_stock_kind_name_key" json:"-"`
	Description string       `gorm:"type:text" json:"beschreibung"`
	Supplier    string       `gorm:"type:varchar(255)" json:"lieferant"`

	//現在の在庫（0未満にはならない）
	Quantity decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"vorrat"`

	//1単位あたりの仕入れ値
	UnitCost decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"einkaufspreis"`

	MinimumThreshold decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"mindestbestand"`

	Available       bool       `gorm:"not null;index" json:"verfuegbar"`
	LastRestockedAt *time.Time `json:"letzte_auffuellung,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// 名前の照合キー。"Lavendel" と "lavendel" は同じ品目
func StockNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	s.NameKey = StockNameKey(s.Name)
	return nil
}

// 最低在庫以下なら「要補充」。保存はせず、読むたびに計算する。
func (s StockItem) IsCritical() bool {
	return s.Quantity.LessThanOrEqual(s.MinimumThreshold)
}

// 在庫金額
func (s StockItem) StockValue() decimal.Decimal {
	return s.Quantity.Mul(s.UnitCost)
}

// 石鹸の重量から香料の滴数を見積もる（端数は切り上げ）
func FragranceDropsForSoap(grams decimal.Decimal) decimal.Decimal {
	if grams.Sign() <= 0 {
		return decimal.Zero
	}
	return grams.Div(GramsPerFragranceDrop).Ceil()
}
