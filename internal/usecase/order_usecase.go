package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	workflow *OrderWorkflow
	pricing  Pricing
	clock    Clock
	ids      IDGenerator
}

func NewOrderUsecase(tx repo.TransactionManager, workflow *OrderWorkflow, pricing Pricing, clock Clock, ids IDGenerator) *OrderUsecase {
	return &OrderUsecase{tx: tx, workflow: workflow, pricing: pricing, clock: clock, ids: ids}
}

type PlaceOrderInput struct {
	IdempotencyKey string
	//空なら顧客の登録住所を使う
	ShippingAddress *model.Address
	Phone           string
	Note            string
}

type PaymentInput struct {
	Provider      string
	TransactionID string
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, customerID int64, in PlaceOrderInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	if len(in.Note) > 2000 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "note too long")
	}

	var out OrderOutput

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, customerID, key)
		if err != nil {
			return dbError(err, "")
		}
		if found {
			out, err = loadOrderDetail(ctx, r, existing.ID)
			return err
		}

		customer, err := r.Customers().FindByID(ctx, customerID)
		if err != nil {
			return dbError(err, "customer not found")
		}

		addr := customer.Address
		if in.ShippingAddress != nil {
			addr = *in.ShippingAddress
		}
		if strings.TrimSpace(addr.Name) == "" {
			addr.Name = customer.FullName()
		}
		if !addr.Complete() {
			return NewHTTPError(http.StatusBadRequest, "shipping address incomplete")
		}

		cart, err := r.Carts().FindOpen(ctx, customerID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return dbError(err, "")
		}

		//カート明細取得
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError(err, "")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		subtotal := decimal.Zero

		for _, ci := range cartItems {
			//商品取得（非公開・削除済みは注文できない）
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
				return badRequest("product %d is no longer available", ci.ProductID)
			}
			if err != nil {
				return dbError(err, "")
			}

			// 単価はカートに入れた時点のもの
			line := model.Line{ProductID: ci.ProductID, ProductName: p.Name, UnitPrice: ci.UnitPriceSnapshot, Quantity: ci.Quantity}
			orderItems = append(orderItems, model.OrderItem{Line: line, CreatedAt: now})
			subtotal = subtotal.Add(line.LineTotal())
		}

		phone := strings.TrimSpace(in.Phone)
		if phone == "" {
			phone = customer.Phone
		}
		totals := u.pricing.Totals(subtotal)

		// 注文作成
		number, err := allocateOrderNumber(ctx, r, now, u.ids)
		if err != nil {
			return err
		}
		order := model.Order{
			OrderNumber:     number,
			CustomerID:      customerID,
			BuyerName:       customer.FullName(),
			BuyerEmail:      customer.Email,
			BuyerPhone:      phone,
			ShippingAddress: addr,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			ShippingCost:    totals.ShippingCost,
			GrandTotal:      totals.GrandTotal,
			Status:          model.OrderStatusNew,
			Payment:         model.PaymentDetails{Status: model.PaymentStatusOpen},
			IdempotencyKey:  &key,
			Note:            strings.TrimSpace(in.Note),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "idempotency conflict")
			}
			return dbError(err, "")
		}

		//注文明細一括作成
		if err := r.OrderItems().Attach(ctx, orderID, orderItems); err != nil {
			return dbError(err, "")
		}

		if err := r.Orders().AppendHistory(ctx, model.OrderHistoryEntry{
			OrderID:     orderID,
			FromStatus:  "",
			ToStatus:    model.OrderStatusNew,
			Note:        "order placed",
			ActorUserID: customerID,
			CreatedAt:   now,
		}); err != nil {
			return dbError(err, "")
		}

		// 同じカートからの二重注文は ErrConflict で落ちる
		if err := r.Carts().CheckOut(ctx, cart.ID); err != nil {
			return dbError(err, "")
		}

		out, err = loadOrderDetail(ctx, r, orderID)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, customerID int64, page int, limit int) (OrderListOutput, error) {
	if customerID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	out := OrderListOutput{Page: page, Limit: limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByCustomerID(ctx, customerID, page, limit)
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

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, customerID int64, orderID int64) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err, "order not found")
		}
		if o.CustomerID != customerID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "order not found")
		}

		out, err = loadOrderDetail(ctx, r, orderID)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 決済の記録（neu → bezahlt）
func (u *OrderUsecase) Pay(ctx context.Context, customerID int64, orderID int64, in PaymentInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payment, err := paymentDetails(in)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err, "order not found")
		}
		if o.CustomerID != customerID {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if o.Status != model.OrderStatusNew {
			return badRequest("order cannot be paid in status %s", o.Status)
		}

		if _, err := u.workflow.Transition(ctx, r, o, TransitionRequest{
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

func paymentDetails(in PaymentInput) (model.PaymentDetails, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	txID := strings.TrimSpace(in.TransactionID)
	if provider == "" {
		provider = "paypal"
	}
	if len(provider) > 50 {
		return model.PaymentDetails{}, NewHTTPError(http.StatusBadRequest, "invalid provider")
	}
	if txID == "" || len(txID) > 255 {
		return model.PaymentDetails{}, NewHTTPError(http.StatusBadRequest, "transaction_id required")
	}
	return model.PaymentDetails{
		Provider:      provider,
		TransactionID: txID,
		Status:        model.PaymentStatusOpen,
	}, nil
}

// 日付ごとに6桁なので衝突はありうる。空いている番号が出るまで引き直す
const orderNumberAttempts = 5

func allocateOrderNumber(ctx context.Context, r repo.TxRepos, now time.Time, ids IDGenerator) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		number := newOrderNumber(now, ids)
		taken, err := r.Orders().OrderNumberTaken(ctx, number)
		if err != nil {
			return "", dbError(err, "")
		}
		if !taken {
			return number, nil
		}
	}
	return "", NewHTTPError(http.StatusServiceUnavailable, "could not allocate order number, retry")
}

// ORD-YYYYMMDD-XXXXXX
func newOrderNumber(now time.Time, ids IDGenerator) string {
	raw := strings.ToUpper(strings.ReplaceAll(ids.NewID(), "-", ""))
	if len(raw) > 6 {
		raw = raw[:6]
	}
	return "ORD-" + now.Format("20060102") + "-" + raw
}
