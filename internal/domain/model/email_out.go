package model

import "time"

type EmailEvent string

const (
	EmailEventOrderConfirmed  EmailEvent = "order_confirmed"
	EmailEventOrderRejected   EmailEvent = "order_rejected"
	EmailEventOrderCancelled  EmailEvent = "order_cancelled"
	EmailEventOrderShipped    EmailEvent = "order_shipped"
	EmailEventInquiryAccepted EmailEvent = "inquiry_accepted"
	EmailEventInquiryRejected EmailEvent = "inquiry_rejected"
)

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSending DeliveryStatus = "sending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// 送信メールのアウトボックス兼ログ。
// 作成後に変わるのは配送状態の列だけで、削除はしない。
type EmailOut struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	Event        EmailEvent `gorm:"type:varchar(50);not null;index" json:"event"`
	Recipient    string     `gorm:"type:varchar(255);not null" json:"recipient"`
	TemplateData string     `gorm:"type:text;not null" json:"template_data"`
	OrderID      *int64     `gorm:"index" json:"order_id,omitempty"`
	InquiryID    *int64     `gorm:"index" json:"inquiry_id,omitempty"`

	Status        DeliveryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     string         `gorm:"type:text" json:"last_error"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EmailOut) TableName() string {
	return "email_out"
}
