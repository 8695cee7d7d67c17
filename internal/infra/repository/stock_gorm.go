package repository

import (
	"context"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

func (r *StockGormRepository) List(ctx context.Context, q repo.StockListQuery) ([]model.StockItem, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit, 50, 200)

	tx := r.db.WithContext(ctx).Model(&model.StockItem{})
	if q.Kind != "" {
		tx = tx.Where("kind = ?", q.Kind)
	}
	if strings.TrimSpace(q.Q) != "" {
		like := likePattern(q.Q)
		tx = tx.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(supplier) LIKE ? ESCAPE '\\'", like, like)
	}
	if q.OnlyAvailable {
		tx = tx.Where("available = ?", true)
	}
	if q.OnlyCritical {
		tx = tx.Where("quantity <= minimum_threshold")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.StockItem{}, 0, translateError(err)
	}

	var items []model.StockItem
	if err := tx.Order("name asc").Order("id asc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&items).Error; err != nil {
		return []model.StockItem{}, 0, translateError(err)
	}
	return items, total, nil
}

func (r *StockGormRepository) FindByID(ctx context.Context, id int64) (model.StockItem, error) {
	var item model.StockItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return model.StockItem{}, translateError(err)
	}
	return item, nil
}

func (r *StockGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.StockItem, error) {
	if len(ids) == 0 {
		return []model.StockItem{}, nil
	}
	var items []model.StockItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&items).Error; err != nil {
		return []model.StockItem{}, translateError(err)
	}
	return items, nil
}

// 種類と名前で取得（名前は大文字小文字を区別しない）
func (r *StockGormRepository) FindByName(ctx context.Context, kind model.MaterialKind, name string) (model.StockItem, error) {
	var item model.StockItem
	err := r.db.WithContext(ctx).
		Where("kind = ? AND name_key = ?", kind, model.StockNameKey(name)).
		First(&item).Error
	if err != nil {
		return model.StockItem{}, translateError(err)
	}
	return item, nil
}

func (r *StockGormRepository) Create(ctx context.Context, item model.StockItem) (model.StockItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.StockItem{}, translateError(err)
	}
	return item, nil
}

// 在庫数は DecreaseIfEnough / Increase でしか変えない
func (r *StockGormRepository) UpdateMaster(ctx context.Context, item model.StockItem) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"name":              item.Name,
		"name_key":          model.StockNameKey(item.Name),
		"description":       item.Description,
		"supplier":          item.Supplier,
		"unit_cost":         item.UnitCost,
		"minimum_threshold": item.MinimumThreshold,
		"available":         item.Available,
	})
	return affected(res)
}

func (r *StockGormRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("id = ?", id).
		Update("available", available)
	return affected(res)
}

func (r *StockGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.StockItem{}, id)
	return affected(res)
}

// 在庫が足りるときだけ減らす
func (r *StockGormRepository) DecreaseIfEnough(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("id = ? AND quantity >= ?", id, amount).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return false, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）・補充
func (r *StockGormRepository) Increase(ctx context.Context, id int64, amount decimal.Decimal, restockedAt *time.Time) error {
	values := map[string]interface{}{
		"quantity":   gorm.Expr("quantity + ?", amount),
		"updated_at": time.Now(),
	}
	if restockedAt != nil {
		values["last_restocked_at"] = *restockedAt
	}
	res := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("id = ?", id).
		Updates(values)
	return affected(res)
}

// 増減履歴作成
func (r *StockGormRepository) CreateMovement(ctx context.Context, m model.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *StockGormRepository) ListMovements(ctx context.Context, stockItemID int64, limit int, offset int) ([]model.StockMovement, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&model.StockMovement{}).Where("stock_item_id = ?", stockItemID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.StockMovement{}, 0, translateError(err)
	}

	var list []model.StockMovement
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.StockMovement{}, 0, translateError(err)
	}
	return list, total, nil
}

// 要補充（quantity <= minimum_threshold）は保存せず毎回ここで数える
func (r *StockGormRepository) Overview(ctx context.Context, kind model.MaterialKind) (repo.StockOverview, error) {
	out := repo.StockOverview{Kind: kind, CriticalItems: []model.StockItem{}, TotalValue: decimal.Zero}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.StockItem{}).Where("kind = ?", kind)
	}

	if err := base().Count(&out.TotalItems).Error; err != nil {
		return repo.StockOverview{}, translateError(err)
	}
	if err := base().Where("available = ?", true).Count(&out.AvailableItems).Error; err != nil {
		return repo.StockOverview{}, translateError(err)
	}
	if err := base().
		Where("available = ?", true).
		Where("quantity <= minimum_threshold").
		Order("quantity asc").Order("id asc").
		Find(&out.CriticalItems).Error; err != nil {
		return repo.StockOverview{}, translateError(err)
	}

	var value decimal.NullDecimal
	if err := base().
		Select("SUM(quantity * unit_cost)").
		Row().Scan(&value); err != nil {
		return repo.StockOverview{}, translateError(err)
	}
	if value.Valid {
		out.TotalValue = value.Decimal.Round(2)
	}
	return out, nil
}
