package repository

import (
	"context"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Append(ctx context.Context, entry model.AuditLog) error {
	entry.ID = 0
	return translateError(r.db.WithContext(ctx).Create(&entry).Error)
}

func (r *AuditLogGormRepository) Search(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	q := auditScope(r.db.WithContext(ctx).Model(&model.AuditLog{}), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.AuditLog{}, 0, translateError(err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := max(f.Offset, 0)

	entries := []model.AuditLog{}
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return []model.AuditLog{}, 0, translateError(err)
	}
	return entries, total, nil
}

func auditScope(q *gorm.DB, f repo.AuditLogFilter) *gorm.DB {
	eq := map[string]any{}
	if f.Actor > 0 {
		eq["actor_user_id"] = f.Actor
	}
	if f.Action != "" {
		eq["action"] = f.Action
	}
	if f.Resource != "" {
		eq["resource_type"] = f.Resource
	}
	if f.ResourceID > 0 {
		eq["resource_id"] = f.ResourceID
	}
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at <= ?", f.Until)
	}
	return q
}
