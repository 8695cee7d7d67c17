package repository

import (
	"context"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	domainrepo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type customerGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewCustomerGormRepository(db *gorm.DB) domainrepo.CustomerRepository {
	return &customerGormRepository{db: db}
}

// Create は顧客を新規作成
func (r *customerGormRepository) Create(ctx context.Context, customer *model.Customer) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// emailで顧客を1件取得
func (r *customerGormRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var c model.Customer

	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&c).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// IDで顧客を1件取得
func (r *customerGormRepository) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// 顧客を更新。
func (r *customerGormRepository) Update(ctx context.Context, customer *model.Customer) error {
	if customer.ID == 0 {
		return domainrepo.ErrNotFound
	}
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// token_versionを+1 します。
func (r *customerGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
	return affected(res)
}

func (r *customerGormRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at)
	return affected(res)
}

func (r *customerGormRepository) List(ctx context.Context, f domainrepo.CustomerListFilter) ([]model.Customer, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 200)

	q := r.db.WithContext(ctx).Model(&model.Customer{})
	if strings.TrimSpace(f.Q) != "" {
		like := likePattern(f.Q)
		q = q.Where("LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(first_name) LIKE ? ESCAPE '\\' OR LOWER(last_name) LIKE ? ESCAPE '\\'", like, like, like)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Customer{}, 0, translateError(err)
	}

	var list []model.Customer
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&list).Error; err != nil {
		return []model.Customer{}, 0, translateError(err)
	}
	return list, total, nil
}
