package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) OpenFor(ctx context.Context, customerID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where(model.Cart{CustomerID: customerID, Status: model.CartStatusOpen}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return model.Cart{}, translateError(err)
	}
	return cart, nil
}

func (r *CartGormRepository) FindOpen(ctx context.Context, customerID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, model.CartStatusOpen).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translateError(err)
	}
	return cart, nil
}

func (r *CartGormRepository) CheckOut(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Cart{}).
			Where("id = ? AND status = ?", cartID, model.CartStatusOpen).
			Updates(map[string]any{
				"status":         model.CartStatusOrdered,
				"checked_out_at": time.Now(),
			})
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return repo.ErrConflict
		}
		return translateError(tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error)
	})
}
