package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	//注文番号・購入者名・メールの部分一致
	Q    string
	From *time.Time
	To   *time.Time
}

type OrderStats struct {
	TotalOrders int64                       `json:"total_orders"`
	ByStatus    map[model.OrderStatus]int64 `json:"by_status"`
	//neu・storniert・abgelehnt を除いた合計
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

type ProductSales struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByCustomerID(ctx context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	OrderNumberTaken(ctx context.Context, number string) (bool, error)

	// fromのときだけtoにする。ほかの更新と競合したらErrConflict
	UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error
	SetStockReserved(ctx context.Context, orderID int64, reserved bool) error
	SetPayment(ctx context.Context, orderID int64, p model.PaymentDetails) error
	SetShipment(ctx context.Context, orderID int64, s model.Shipment) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	//履歴は追記のみ
	AppendHistory(ctx context.Context, e model.OrderHistoryEntry) error
	ListHistory(ctx context.Context, orderID int64) ([]model.OrderHistoryEntry, error)

	Stats(ctx context.Context, from *time.Time, to *time.Time) (OrderStats, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
}
