package repository

import (
	"context"
	"strings"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var productSorts = map[string]string{
	"price_asc":  "price ASC, id ASC",
	"price_desc": "price DESC, id DESC",
	"name":       "name ASC, id ASC",
	"":           "created_at DESC, id DESC",
}

// 並び順は productSorts のキーのみ。未知の値は新着順
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit, 20, 100)
	base := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(productScope(q))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	order, known := productSorts[q.Sort]
	if !known {
		order = productSorts[""]
	}
	products := []model.Product{}
	err := base.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&products).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return products, total, nil
}

func productScope(q repo.ProductListQuery) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if !q.IncludeInactive {
			tx = tx.Where("is_active = ?", true)
		}
		if term := strings.TrimSpace(q.Q); term != "" {
			like := likePattern(term)
			tx = tx.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", like, like)
		}
		if c := strings.TrimSpace(q.Category); c != "" {
			tx = tx.Where("category = ?", c)
		}
		if q.MinPrice != nil {
			tx = tx.Where("price >= ?", *q.MinPrice)
		}
		if q.MaxPrice != nil {
			tx = tx.Where("price <= ?", *q.MaxPrice)
		}
		return tx
	}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	var list []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&list).Error; err != nil {
		return []model.Product{}, translateError(err)
	}
	return list, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translateError(err)
	}
	return p, nil
}

// 商品の更新
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":         p.Name,
		"description":  p.Description,
		"category":     p.Category,
		"price":        p.Price,
		"weight_grams": p.WeightGrams,
		"is_active":    p.IsActive,
	})
	return affected(res)
}

// 商品削除（deleted_atを入れるだけ）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	return affected(res)
}

// レシピを入れ替える
func (r *ProductGormRepository) ReplaceRecipe(ctx context.Context, productID int64, lines []model.RecipeLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.RecipeLine{}).Error; err != nil {
			return translateError(err)
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].ID = 0
			lines[i].ProductID = productID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
}

func (r *ProductGormRepository) ListRecipe(ctx context.Context, productID int64) ([]model.RecipeLine, error) {
	return r.ListRecipesByProductIDs(ctx, []int64{productID})
}

func (r *ProductGormRepository) ListRecipesByProductIDs(ctx context.Context, productIDs []int64) ([]model.RecipeLine, error) {
	if len(productIDs) == 0 {
		return []model.RecipeLine{}, nil
	}
	var lines []model.RecipeLine
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("product_id asc, id asc").
		Find(&lines).Error
	if err != nil {
		return []model.RecipeLine{}, translateError(err)
	}
	return lines, nil
}

func (r *ProductGormRepository) CountRecipeUses(ctx context.Context, stockItemID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.RecipeLine{}).
		Where("stock_item_id = ?", stockItemID).
		Count(&n).Error
	if err != nil {
		return 0, translateError(err)
	}
	return n, nil
}
