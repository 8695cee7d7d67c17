package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusOpen      PaymentStatus = "offen"
	PaymentStatusCompleted PaymentStatus = "abgeschlossen"
	PaymentStatusRefunded  PaymentStatus = "erstattet"
)

// 決済情報（PayPalなど）
type PaymentDetails struct {
	Provider      string        `gorm:"type:varchar(50)" json:"provider"`
	TransactionID string        `gorm:"type:varchar(255);index" json:"transaction_id"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'offen'" json:"status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// 発送情報（verschickt への遷移でだけ書く）
type Shipment struct {
	Carrier        string     `gorm:"type:varchar(100)" json:"carrier"`
	TrackingNumber string     `gorm:"type:varchar(100)" json:"tracking_number"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
}

// 注文。会計記録なので削除しない。
// GrandTotal = Subtotal + Tax + ShippingCost は作成時に確定し、再計算しない。
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	CustomerID  int64  `gorm:"not null;index" json:"customer_id"`
	InquiryID   *int64 `gorm:"index" json:"inquiry_id,omitempty"`

	BuyerName       string  `gorm:"type:varchar(255);not null" json:"buyer_name"`
	BuyerEmail      string  `gorm:"type:varchar(255);not null" json:"buyer_email"`
	BuyerPhone      string  `gorm:"type:varchar(30)" json:"buyer_phone"`
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	GrandTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`

	Status   OrderStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	Payment  PaymentDetails `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Shipment Shipment       `gorm:"embedded;embeddedPrefix:shipment_" json:"shipment"`

	//bestaetigt で資材を引き当て済みか
	StockReserved bool `gorm:"not null;default:false" json:"stock_reserved"`

	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	Note           string  `gorm:"type:text" json:"note"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
