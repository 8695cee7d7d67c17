package usecase

import (
	"context"
	"net/http"
	"strings"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"
)

// 管理画面の読み取り専用の集計・一覧
type AdminQueryUsecase struct {
	tx repo.TransactionManager
}

func NewAdminQueryUsecase(tx repo.TransactionManager) *AdminQueryUsecase {
	return &AdminQueryUsecase{tx: tx}
}

type DashboardOutput struct {
	Orders OrderStatsOutput     `json:"orders"`
	Stock  []repo.StockOverview `json:"stock"`
	//全種類の要補充の件数
	CriticalTotal int `json:"critical_total"`
}

type AuditLogListOutput struct {
	Items  []model.AuditLog `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type EmailListOutput struct {
	Items []model.EmailOut `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

var materialKinds = []model.MaterialKind{model.KindRawSoap, model.KindFragranceOil, model.KindPackaging}

func (u *AdminQueryUsecase) Dashboard(ctx context.Context) (DashboardOutput, error) {
	var out DashboardOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stats, err := r.Orders().Stats(ctx, nil, nil)
		if err != nil {
			return dbError(err, "")
		}
		top, err := r.Orders().TopProducts(ctx, 5)
		if err != nil {
			return dbError(err, "")
		}
		out.Orders = OrderStatsOutput{OrderStats: stats, TopProducts: top}

		out.Stock = make([]repo.StockOverview, 0, len(materialKinds))
		for _, k := range materialKinds {
			o, err := r.Stock().Overview(ctx, k)
			if err != nil {
				return dbError(err, "")
			}
			out.Stock = append(out.Stock, o)
			out.CriticalTotal += len(o.CriticalItems)
		}
		return nil
	})
	if err != nil {
		return DashboardOutput{}, err
	}
	return out, nil
}

func (u *AdminQueryUsecase) AuditLogs(ctx context.Context, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Since.After(f.Until) {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	var out AuditLogListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, total, err := r.AuditLogs().Search(ctx, f)
		if err != nil {
			return dbError(err, "")
		}
		out = AuditLogListOutput{Items: logs, Total: total, Limit: f.Limit, Offset: f.Offset}
		return nil
	})
	if err != nil {
		return AuditLogListOutput{}, err
	}
	return out, nil
}

func (u *AdminQueryUsecase) Emails(ctx context.Context, f repo.EmailListFilter) (EmailListOutput, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	switch model.DeliveryStatus(f.Status) {
	case "", model.DeliveryStatusPending, model.DeliveryStatusSending, model.DeliveryStatusSent, model.DeliveryStatusFailed:
	default:
		return EmailListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	out := EmailListOutput{Page: f.Page, Limit: f.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, total, err := r.Emails().List(ctx, f)
		if err != nil {
			return dbError(err, "")
		}
		out.Items = list
		out.Total = total
		return nil
	})
	if err != nil {
		return EmailListOutput{}, err
	}
	return out, nil
}
