package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type InquiryGormRepository struct {
	db *gorm.DB
}

func NewInquiryGormRepository(db *gorm.DB) *InquiryGormRepository {
	return &InquiryGormRepository{db: db}
}

// 問い合わせと明細をまとめて作る
func (r *InquiryGormRepository) Create(ctx context.Context, inquiry model.Inquiry, items []model.InquiryItem) (model.Inquiry, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inquiry).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].InquiryID = inquiry.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return model.Inquiry{}, translateError(err)
	}
	return inquiry, nil
}

func (r *InquiryGormRepository) FindByID(ctx context.Context, id int64) (model.Inquiry, error) {
	var inq model.Inquiry
	if err := r.db.WithContext(ctx).First(&inq, id).Error; err != nil {
		return model.Inquiry{}, translateError(err)
	}
	return inq, nil
}

func (r *InquiryGormRepository) ListItems(ctx context.Context, inquiryID int64) ([]model.InquiryItem, error) {
	var items []model.InquiryItem
	if err := r.db.WithContext(ctx).Where("inquiry_id = ?", inquiryID).Order("id asc").Find(&items).Error; err != nil {
		return []model.InquiryItem{}, translateError(err)
	}
	return items, nil
}

func (r *InquiryGormRepository) List(ctx context.Context, f repo.InquiryListFilter) ([]model.Inquiry, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.Inquiry{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Inquiry{}, 0, translateError(err)
	}
	var list []model.Inquiry
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&list).Error; err != nil {
		return []model.Inquiry{}, 0, translateError(err)
	}
	return list, total, nil
}

func (r *InquiryGormRepository) Respond(ctx context.Context, id int64, status model.InquiryStatus, note string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Inquiry{}).
		Where("id = ? AND status = ?", id, model.InquiryStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"admin_note":   note,
			"responded_at": at,
		})
	return r.casResult(ctx, id, res)
}

func (r *InquiryGormRepository) AttachOrder(ctx context.Context, id int64, orderID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Inquiry{}).
		Where("id = ? AND order_id IS NULL", id).
		Update("order_id", orderID)
	return r.casResult(ctx, id, res)
}

// 0件更新なら、存在しないのか条件が合わなかったのかを分ける
func (r *InquiryGormRepository) casResult(ctx context.Context, id int64, res *gorm.DB) error {
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Inquiry{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}
