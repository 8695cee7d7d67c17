package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type EmailOutboxGormRepository struct {
	db *gorm.DB
}

func NewEmailOutboxGormRepository(db *gorm.DB) *EmailOutboxGormRepository {
	return &EmailOutboxGormRepository{db: db}
}

func (r *EmailOutboxGormRepository) Enqueue(ctx context.Context, m model.EmailOut) (model.EmailOut, error) {
	if m.Status == "" {
		m.Status = model.DeliveryStatusPending
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.EmailOut{}, translateError(err)
	}
	return m, nil
}

// 候補を読んでから1件ずつ条件付きUPDATEで取る。
// 複数ワーカーが同じ行を取った場合、UPDATEが通った方だけが送る。
func (r *EmailOutboxGormRepository) ClaimBatch(ctx context.Context, now time.Time, lease time.Duration, maxAttempts int, limit int) ([]model.EmailOut, error) {
	if limit <= 0 {
		limit = 10
	}
	cutoff := now.Add(-lease)

	var candidates []model.EmailOut
	err := r.db.WithContext(ctx).
		Where("status = ?", model.DeliveryStatusPending).
		Or("status = ? AND attempts < ? AND last_attempt_at < ?", model.DeliveryStatusFailed, maxAttempts, cutoff).
		Or("status = ? AND last_attempt_at < ?", model.DeliveryStatusSending, cutoff).
		Order("id asc").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, translateError(err)
	}

	claimed := make([]model.EmailOut, 0, len(candidates))
	for _, c := range candidates {
		q := r.db.WithContext(ctx).Model(&model.EmailOut{}).Where("id = ? AND status = ?", c.ID, c.Status)
		switch c.Status {
		case model.DeliveryStatusFailed:
			q = q.Where("attempts = ? AND last_attempt_at < ?", c.Attempts, cutoff)
		case model.DeliveryStatusSending:
			q = q.Where("last_attempt_at < ?", cutoff)
		}
		res := q.Updates(map[string]interface{}{
			"status":          model.DeliveryStatusSending,
			"last_attempt_at": now,
			"updated_at":      now,
		})
		if res.Error != nil {
			return claimed, translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		c.Status = model.DeliveryStatusSending
		c.LastAttemptAt = &now
		claimed = append(claimed, c)
	}
	return claimed, nil
}

func (r *EmailOutboxGormRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.EmailOut{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.DeliveryStatusSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"sent_at":    at,
			"last_error": "",
			"updated_at": at,
		})
	return affected(res)
}

func (r *EmailOutboxGormRepository) MarkFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.EmailOut{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.DeliveryStatusFailed,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      reason,
			"last_attempt_at": at,
			"updated_at":      at,
		})
	return affected(res)
}

func (r *EmailOutboxGormRepository) List(ctx context.Context, f repo.EmailListFilter) ([]model.EmailOut, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 200)

	q := r.db.WithContext(ctx).Model(&model.EmailOut{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Event != "" {
		q = q.Where("event = ?", f.Event)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.EmailOut{}, 0, translateError(err)
	}
	var list []model.EmailOut
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&list).Error; err != nil {
		return []model.EmailOut{}, 0, translateError(err)
	}
	return list, total, nil
}
