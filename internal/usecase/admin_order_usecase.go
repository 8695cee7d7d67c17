package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	workflow *OrderWorkflow
}

func NewAdminOrderUsecase(tx repo.TransactionManager, workflow *OrderWorkflow) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, workflow: workflow}
}

// PUT /orders/:id/status の入力
type AdminUpdateOrderStatusInput struct {
	Status         string
	AdminNote      string
	Carrier        string
	TrackingNumber string
}

type OrderStatsOutput struct {
	repo.OrderStats
	TopProducts []repo.ProductSales `json:"top_products"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		if _, err := model.ParseOrderStatus(f.Status); err != nil {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	}

	out := OrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(err, "")
		}
		items, err := loadOrderList(ctx, r, orders)
		if err != nil {
			return err
		}
		out.Items = items
		out.Total = total
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		out, err = loadOrderDetail(ctx, r, orderID)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ステータス更新（副作用はOrderWorkflowで行う）
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	target, err := model.ParseOrderStatus(in.Status)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	//支払いは顧客の決済でだけ記録する
	if target == model.OrderStatusPaid {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment is recorded by the payment endpoint")
	}
	if len(in.AdminNote) > 2000 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "adminNote too long")
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err, "order not found")
		}

		if _, err := u.workflow.Transition(ctx, r, o, TransitionRequest{
			Target:         target,
			ActorUserID:    actorAdminUserID,
			Note:           in.AdminNote,
			Carrier:        in.Carrier,
			TrackingNumber: in.TrackingNumber,
		}); err != nil {
			return err
		}

		out, err = loadOrderDetail(ctx, r, orderID)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// GET /orders/stats/overview
func (u *AdminOrderUsecase) Stats(ctx context.Context, from *time.Time, to *time.Time) (OrderStatsOutput, error) {
	if from != nil && to != nil && from.After(*to) {
		return OrderStatsOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}
	var out OrderStatsOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stats, err := r.Orders().Stats(ctx, from, to)
		if err != nil {
			return dbError(err, "")
		}
		top, err := r.Orders().TopProducts(ctx, 5)
		if err != nil {
			return dbError(err, "")
		}
		out = OrderStatsOutput{OrderStats: stats, TopProducts: top}
		return nil
	})
	if err != nil {
		return OrderStatsOutput{}, err
	}
	return out, nil
}

// 期間パラメータはhandlerでここを通してtime.Timeにする
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
