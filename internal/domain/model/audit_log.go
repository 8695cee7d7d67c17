package model

import "time"

type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "stock.adjust"
	AuditActionUpdateMaterial    AuditAction = "stock.edit"
	AuditActionUpdateOrderStatus AuditAction = "order.status"
	AuditActionRespondInquiry    AuditAction = "inquiry.respond"
	AuditActionUpdateCustomer    AuditAction = "customer.edit"
	AuditActionDisableCustomer   AuditAction = "customer.disable"
	AuditActionUpdateProduct     AuditAction = "product.edit"
)

type AuditResourceType string

const (
	AuditResourceStockItem AuditResourceType = "stock_item"
	AuditResourceProduct   AuditResourceType = "product"
	AuditResourceOrder     AuditResourceType = "order"
	AuditResourceInquiry   AuditResourceType = "inquiry"
	AuditResourceCustomer  AuditResourceType = "customer"
)

// 管理者の変更操作を1件1行で残す。Before/After は対象のJSON（作成時の Before・削除時の After は空）
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(32);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(32);not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	Before       string            `gorm:"type:text" json:"before,omitempty"`
	After        string            `gorm:"type:text" json:"after,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
