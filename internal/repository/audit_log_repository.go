package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
)

// ゼロ値の項目は絞り込みに使わない。Since/Until は両端を含む
type AuditLogFilter struct {
	Actor      int64
	Action     model.AuditAction
	Resource   model.AuditResourceType
	ResourceID int64
	Since      time.Time
	Until      time.Time

	Limit  int
	Offset int
}

// 追記のみ
type AuditLogRepository interface {
	Append(ctx context.Context, entry model.AuditLog) error
	// 新しい順。total は Limit/Offset をかける前の件数
	Search(ctx context.Context, f AuditLogFilter) (entries []model.AuditLog, total int64, err error)
}
