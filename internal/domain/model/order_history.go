package model

import "time"

// ステータス遷移の履歴（追記のみ、上書きしない）
type OrderHistoryEntry struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64       `gorm:"not null;index" json:"order_id"`
	FromStatus  OrderStatus `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus    OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	Note        string      `gorm:"type:text" json:"admin_note"`
	ActorUserID int64       `gorm:"not null;index" json:"actor_user_id"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
}

func (OrderHistoryEntry) TableName() string {
	return "order_history"
}
