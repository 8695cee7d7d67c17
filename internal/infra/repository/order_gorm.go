package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 売上に数えないステータス
var nonRevenueStatuses = []model.OrderStatus{
	model.OrderStatusNew,
	model.OrderStatusCancelled,
	model.OrderStatusRejected,
}

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) ListByCustomerID(ctx context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	return items, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, translateError(err)
	}
	return order.ID, nil
}

func (r *OrderGormRepository) OrderNumberTaken(ctx context.Context, number string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("order_number = ?", number).Count(&n).Error; err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

// 今のステータスがfromのときだけ更新する
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	//0件: 注文が無いのか、先に誰かが変えたのか
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}

func (r *OrderGormRepository) SetStockReserved(ctx context.Context, orderID int64, reserved bool) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("stock_reserved", reserved)
	return affected(res)
}

func (r *OrderGormRepository) SetPayment(ctx context.Context, orderID int64, p model.PaymentDetails) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_provider":       p.Provider,
			"payment_transaction_id": p.TransactionID,
			"payment_status":         p.Status,
			"payment_paid_at":        p.PaidAt,
		})
	return affected(res)
}

func (r *OrderGormRepository) SetShipment(ctx context.Context, orderID int64, s model.Shipment) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"shipment_carrier":         s.Carrier,
			"shipment_tracking_number": s.TrackingNumber,
			"shipment_shipped_at":      s.ShippedAt,
		})
	return affected(res)
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, translateError(err)
	}
	return o, true, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//customer_id 絞り込み
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}

	if strings.TrimSpace(f.Q) != "" {
		like := likePattern(f.Q)
		q = q.Where("LOWER(order_number) LIKE ? ESCAPE '\\' OR LOWER(buyer_name) LIKE ? ESCAPE '\\' OR LOWER(buyer_email) LIKE ? ESCAPE '\\'", like, like, like)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, translateError(err)
	}

	return items, total, nil
}

func (r *OrderGormRepository) AppendHistory(ctx context.Context, e model.OrderHistoryEntry) error {
	e.ID = 0
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderGormRepository) ListHistory(ctx context.Context, orderID int64) ([]model.OrderHistoryEntry, error) {
	var list []model.OrderHistoryEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&list).Error
	if err != nil {
		return []model.OrderHistoryEntry{}, translateError(err)
	}
	return list, nil
}

func (r *OrderGormRepository) Stats(ctx context.Context, from *time.Time, to *time.Time) (repo.OrderStats, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Order{})
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at <= ?", *to)
		}
		return q
	}

	type statusCount struct {
		Status model.OrderStatus
		Count  int64
	}
	var rows []statusCount
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return repo.OrderStats{}, translateError(err)
	}

	out := repo.OrderStats{
		ByStatus:          map[model.OrderStatus]int64{},
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Count
		out.TotalOrders += row.Count
	}

	var revenue decimal.NullDecimal
	var paid int64
	if err := base().
		Where("status NOT IN ?", nonRevenueStatuses).
		Select("SUM(grand_total)").
		Row().Scan(&revenue); err != nil {
		return repo.OrderStats{}, translateError(err)
	}
	if err := base().Where("status NOT IN ?", nonRevenueStatuses).Count(&paid).Error; err != nil {
		return repo.OrderStats{}, translateError(err)
	}
	if revenue.Valid {
		out.Revenue = revenue.Decimal.Round(2)
	}
	if paid > 0 {
		out.AverageOrderValue = out.Revenue.Div(decimal.NewFromInt(paid)).Round(2)
	}
	return out, nil
}

// 売れている商品（数量順）
func (r *OrderGormRepository) TopProducts(ctx context.Context, limit int) ([]repo.ProductSales, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	var rows []repo.ProductSales
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id AS product_id, MAX(order_items.product_name) AS name, " +
			"SUM(order_items.quantity) AS quantity, SUM(order_items.unit_price * order_items.quantity) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status NOT IN ?", nonRevenueStatuses).
		Group("order_items.product_id").
		Order("quantity desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.ProductSales{}, translateError(err)
	}
	if rows == nil {
		rows = []repo.ProductSales{}
	}
	return rows, nil
}
