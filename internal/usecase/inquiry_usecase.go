package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"
)

// 問い合わせ（注文前の相談）。
// pending → accepted/rejected は管理者、accepted の支払いで注文を作る。
type InquiryUsecase struct {
	tx       repo.TransactionManager
	workflow *OrderWorkflow
	pricing  Pricing
	clock    Clock
	ids      IDGenerator
}

func NewInquiryUsecase(tx repo.TransactionManager, workflow *OrderWorkflow, pricing Pricing, clock Clock, ids IDGenerator) *InquiryUsecase {
	return &InquiryUsecase{tx: tx, workflow: workflow, pricing: pricing, clock: clock, ids: ids}
}

type InquiryItemInput struct {
	ProductID int64
	Quantity  int64
}

type CreateInquiryInput struct {
	Message string
	Items   []InquiryItemInput
}

type RespondInquiryInput struct {
	Status    string
	AdminNote string
}

type InquiryOutput struct {
	model.Inquiry
	Items  []model.InquiryItem `json:"items"`
	Totals OrderTotals         `json:"totals"`
}

type InquiryListOutput struct {
	Items []InquiryOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *InquiryUsecase) Create(ctx context.Context, customerID int64, in CreateInquiryInput) (InquiryOutput, error) {
	if customerID <= 0 {
		return InquiryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	msg := strings.TrimSpace(in.Message)
	if len(msg) > 5000 {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "message too long")
	}
	if len(in.Items) == 0 {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	if len(in.Items) > 50 {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "too many items")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity < 1 {
			return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	var out InquiryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		items := make([]model.InquiryItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
				return badRequest("product %d not available", it.ProductID)
			}
			if err != nil {
				return dbError(err, "")
			}
			items = append(items, model.InquiryItem{
				Line:      model.Line{ProductID: p.ID, ProductName: p.Name, UnitPrice: p.Price, Quantity: it.Quantity},
				CreatedAt: now,
			})
		}

		inq, err := r.Inquiries().Create(ctx, model.Inquiry{
			CustomerID: customerID,
			Message:    msg,
			Status:     model.InquiryStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, items)
		if err != nil {
			return dbError(err, "")
		}

		out, err = u.loadInquiry(ctx, r, inq)
		return err
	})
	if err != nil {
		return InquiryOutput{}, err
	}
	return out, nil
}

func (u *InquiryUsecase) ListMine(ctx context.Context, customerID int64, page int, limit int) (InquiryListOutput, error) {
	if customerID <= 0 {
		return InquiryListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.list(ctx, repo.InquiryListFilter{CustomerID: &customerID, Page: page, Limit: limit})
}

func (u *InquiryUsecase) ListAdmin(ctx context.Context, f repo.InquiryListFilter) (InquiryListOutput, error) {
	if f.Status != "" {
		if _, err := model.ParseInquiryStatus(f.Status); err != nil {
			return InquiryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}
	return u.list(ctx, f)
}

func (u *InquiryUsecase) list(ctx context.Context, f repo.InquiryListFilter) (InquiryListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	out := InquiryListOutput{Page: f.Page, Limit: f.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, total, err := r.Inquiries().List(ctx, f)
		if err != nil {
			return dbError(err, "")
		}
		out.Items = make([]InquiryOutput, 0, len(list))
		for _, inq := range list {
			o, err := u.loadInquiry(ctx, r, inq)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, o)
		}
		out.Total = total
		return nil
	})
	if err != nil {
		return InquiryListOutput{}, err
	}
	return out, nil
}

// 回答はpendingのときだけ（二重回答は409）
func (u *InquiryUsecase) Respond(ctx context.Context, actorID int64, inquiryID int64, in RespondInquiryInput) (InquiryOutput, error) {
	if inquiryID <= 0 {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status, err := model.ParseInquiryStatus(in.Status)
	if err != nil || status == model.InquiryStatusPending {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "status must be accepted or rejected")
	}
	note := strings.TrimSpace(in.AdminNote)
	if len(note) > 2000 {
		return InquiryOutput{}, NewHTTPError(http.StatusBadRequest, "admin note too long")
	}

	var out InquiryOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Inquiries().FindByID(ctx, inquiryID)
		if err != nil {
			return dbError(err, "inquiry not found")
		}
		if before.Status != model.InquiryStatusPending {
			return badRequest("inquiry already %s", before.Status)
		}

		now := u.clock.Now()
		if err := r.Inquiries().Respond(ctx, inquiryID, status, note, now); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "inquiry was modified concurrently")
			}
			return dbError(err, "inquiry not found")
		}

		after, err := r.Inquiries().FindByID(ctx, inquiryID)
		if err != nil {
			return dbError(err, "inquiry not found")
		}
		out, err = u.loadInquiry(ctx, r, after)
		if err != nil {
			return err
		}

		customer, err := r.Customers().FindByID(ctx, after.CustomerID)
		if err != nil {
			return dbError(err, "")
		}
		event := model.EmailEventInquiryAccepted
		if status == model.InquiryStatusRejected {
			event = model.EmailEventInquiryRejected
		}
		if err := enqueueEmail(ctx, r, u.ids, now, emailJob{
			Event:     event,
			Recipient: customer.Email,
			Data: map[string]any{
				"customer_name": customer.FullName(),
				"inquiry_id":    inquiryID,
				"admin_note":    note,
				"grand_total":   out.Totals.GrandTotal.StringFixed(2),
			},
			InquiryID: &inquiryID,
		}); err != nil {
			return dbError(err, "")
		}

		return writeAudit(ctx, r, actorID, model.AuditActionRespondInquiry, model.AuditResourceInquiry, inquiryID,
			map[string]any{"status": before.Status},
			map[string]any{"status": status, "admin_note": note},
			now)
	})
	if err != nil {
		return InquiryOutput{}, err
	}
	return out, nil
}

// 承認済みの問い合わせを支払うと注文を作り、すぐbezahltにする
func (u *InquiryUsecase) Pay(ctx context.Context, customerID int64, inquiryID int64, in PaymentInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if inquiryID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payment, err := paymentDetails(in)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		inq, err := r.Inquiries().FindByID(ctx, inquiryID)
		if err != nil {
			return dbError(err, "inquiry not found")
		}
		if inq.CustomerID != customerID {
			return NewHTTPError(http.StatusNotFound, "inquiry not found")
		}
		if !inq.Payable() {
			return badRequest("inquiry is not payable (status %s)", inq.Status)
		}

		customer, err := r.Customers().FindByID(ctx, customerID)
		if err != nil {
			return dbError(err, "customer not found")
		}
		addr := customer.Address
		if strings.TrimSpace(addr.Name) == "" {
			addr.Name = customer.FullName()
		}
		if !addr.Complete() {
			return NewHTTPError(http.StatusBadRequest, "shipping address incomplete")
		}

		items, err := r.Inquiries().ListItems(ctx, inquiryID)
		if err != nil {
			return dbError(err, "")
		}

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(items))
		lines := make([]model.Line, 0, len(items))
		for _, it := range items {
			orderItems = append(orderItems, model.OrderItem{Line: it.Line, CreatedAt: now})
			lines = append(lines, it.Line)
		}
		totals := u.pricing.Totals(model.SumLines(lines))

		number, err := allocateOrderNumber(ctx, r, now, u.ids)
		if err != nil {
			return err
		}
		order := model.Order{
			OrderNumber:     number,
			CustomerID:      customerID,
			InquiryID:       &inquiryID,
			BuyerName:       customer.FullName(),
			BuyerEmail:      customer.Email,
			BuyerPhone:      customer.Phone,
			ShippingAddress: addr,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			ShippingCost:    totals.ShippingCost,
			GrandTotal:      totals.GrandTotal,
			Status:          model.OrderStatusNew,
			Payment:         model.PaymentDetails{Status: model.PaymentStatusOpen},
			Note:            inq.Message,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return dbError(err, "")
		}
		order.ID = orderID

		// 同じ問い合わせから2つ注文ができないようにする
		if err := r.Inquiries().AttachOrder(ctx, inquiryID, orderID); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "inquiry already paid")
			}
			return dbError(err, "inquiry not found")
		}

		if err := r.OrderItems().Attach(ctx, orderID, orderItems); err != nil {
			return dbError(err, "")
		}
		if err := r.Orders().AppendHistory(ctx, model.OrderHistoryEntry{
			OrderID:     orderID,
			ToStatus:    model.OrderStatusNew,
			Note:        "created from inquiry",
			ActorUserID: customerID,
			CreatedAt:   now,
		}); err != nil {
			return dbError(err, "")
		}

		if _, err := u.workflow.Transition(ctx, r, order, TransitionRequest{
			Target:      model.OrderStatusPaid,
			ActorUserID: customerID,
			Note:        "payment received via " + payment.Provider,
			Payment:     &payment,
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

func (u *InquiryUsecase) loadInquiry(ctx context.Context, r repo.TxRepos, inq model.Inquiry) (InquiryOutput, error) {
	items, err := r.Inquiries().ListItems(ctx, inq.ID)
	if err != nil {
		return InquiryOutput{}, dbError(err, "")
	}
	lines := make([]model.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line)
	}
	return InquiryOutput{Inquiry: inq, Items: items, Totals: u.pricing.Totals(model.SumLines(lines))}, nil
}

