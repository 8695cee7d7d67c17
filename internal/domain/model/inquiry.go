package model

import (
	"errors"
	"strings"
	"time"
)

// 問い合わせ（注文前の相談）。承認されると支払い可能になり、支払いで注文になる。
type InquiryStatus string

const (
	InquiryStatusPending  InquiryStatus = "pending"
	InquiryStatusAccepted InquiryStatus = "accepted"
	InquiryStatusRejected InquiryStatus = "rejected"
)

var ErrInvalidInquiryStatus = errors.New("invalid inquiry status")

func ParseInquiryStatus(s string) (InquiryStatus, error) {
	st := InquiryStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case InquiryStatusPending, InquiryStatusAccepted, InquiryStatusRejected:
		return st, nil
	}
	return "", ErrInvalidInquiryStatus
}

type Inquiry struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID  int64         `gorm:"not null;index" json:"customer_id"`
	Message     string        `gorm:"type:text" json:"message"`
	Status      InquiryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AdminNote   string        `gorm:"type:text" json:"admin_note"`
	OrderID     *int64        `gorm:"index" json:"order_id,omitempty"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 承認済みで、まだ注文になっていない
func (i Inquiry) Payable() bool {
	return i.Status == InquiryStatusAccepted && i.OrderID == nil
}

type InquiryItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	InquiryID int64 `gorm:"not null;index" json:"inquiry_id"`
	Line
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
