package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
)

type InquiryListFilter struct {
	Status     string
	CustomerID *int64
	Page       int
	Limit      int
}

type InquiryRepository interface {
	Create(ctx context.Context, inquiry model.Inquiry, items []model.InquiryItem) (model.Inquiry, error)
	FindByID(ctx context.Context, id int64) (model.Inquiry, error)
	ListItems(ctx context.Context, inquiryID int64) ([]model.InquiryItem, error)
	List(ctx context.Context, f InquiryListFilter) ([]model.Inquiry, int64, error)

	// pendingのときだけ回答できる（それ以外はErrConflict）
	Respond(ctx context.Context, id int64, status model.InquiryStatus, note string, at time.Time) error
	// 注文が未作成のときだけ紐付ける（それ以外はErrConflict）
	AttachOrder(ctx context.Context, id int64, orderID int64) error
}
