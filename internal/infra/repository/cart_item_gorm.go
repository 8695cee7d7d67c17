package repository

import (
	"context"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	items := []model.CartItem{}
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// ux_cart_items_cart_product への upsert。上限超えは更新されず0行になる。
func (r *CartItemGormRepository) Add(ctx context.Context, cartID, productID, qty, maxQty int64, unitPrice decimal.Decimal) error {
	item := model.CartItem{
		CartID:            cartID,
		ProductID:         productID,
		Quantity:          qty,
		UnitPriceSnapshot: unitPrice,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":            gorm.Expr("cart_items.quantity + excluded.quantity"),
			"unit_price_snapshot": gorm.Expr("excluded.unit_price_snapshot"),
			"updated_at":          gorm.Expr("excluded.updated_at"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("cart_items.quantity + excluded.quantity <= ?", maxQty),
		}},
	}).Create(&item)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (r *CartItemGormRepository) SetQuantity(ctx context.Context, customerID, itemID, qty int64) (int64, error) {
	var cartID int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := ownedOpenItem(tx, customerID, itemID)
		if err != nil {
			return err
		}
		cartID = item.CartID
		return affected(tx.Model(&item).Update("quantity", qty))
	})
	return cartID, err
}

func (r *CartItemGormRepository) Remove(ctx context.Context, customerID, itemID int64) (int64, error) {
	var cartID int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := ownedOpenItem(tx, customerID, itemID)
		if err != nil {
			return err
		}
		cartID = item.CartID
		return affected(tx.Delete(&item))
	})
	return cartID, err
}

// 他人の明細と注文済みカートの明細は見えない
func ownedOpenItem(tx *gorm.DB, customerID, itemID int64) (model.CartItem, error) {
	var item model.CartItem
	err := tx.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.customer_id = ? AND carts.status = ?", itemID, customerID, model.CartStatusOpen).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, translateError(err)
	}
	return item, nil
}
