package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ステータス遷移の入力
type TransitionRequest struct {
	Target      model.OrderStatus
	ActorUserID int64
	//管理者メモ（履歴に残る）
	Note string

	//verschicktのときだけ使う
	Carrier        string
	TrackingNumber string

	//bezahltのときだけ使う
	Payment *model.PaymentDetails
}

// OrderWorkflow は注文ステータスの遷移と、その副作用（資材の引当/戻し、履歴、メール、監査ログ）を行う。
// 呼び出し側のトランザクションの中で動くので、途中で失敗すると全部巻き戻る。
type OrderWorkflow struct {
	clock Clock
	ids   IDGenerator
}

func NewOrderWorkflow(clock Clock, ids IDGenerator) *OrderWorkflow {
	return &OrderWorkflow{clock: clock, ids: ids}
}

func (w *OrderWorkflow) Transition(ctx context.Context, r repo.TxRepos, order model.Order, req TransitionRequest) (model.Order, error) {
	from := order.Status
	to := req.Target

	if !to.Valid() {
		return model.Order{}, badRequest("invalid status")
	}
	if from == to {
		return model.Order{}, badRequest("order is already %s", to)
	}
	if !from.CanTransitionTo(to) {
		return model.Order{}, badRequest("invalid status transition %s -> %s (allowed: %s)", from, to, joinStatuses(from.Successors()))
	}

	carrier := strings.TrimSpace(req.Carrier)
	tracking := strings.TrimSpace(req.TrackingNumber)
	if to == model.OrderStatusShipped && tracking == "" {
		return model.Order{}, badRequest("tracking number required")
	}
	if to == model.OrderStatusPaid && req.Payment == nil {
		return model.Order{}, badRequest("payment details required")
	}

	now := w.clock.Now()
	before := statusSnapshot(order)

	//先にステータスを取る（同時に2つの遷移が走っても片方だけが進む）
	if err := r.Orders().UpdateStatus(ctx, order.ID, from, to); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.Order{}, &HTTPError{Status: http.StatusConflict, Message: "order was modified concurrently", Err: err}
		}
		return model.Order{}, dbError(err, "order not found")
	}
	order.Status = to

	switch to {
	case model.OrderStatusPaid:
		p := *req.Payment
		p.Status = model.PaymentStatusCompleted
		if p.PaidAt == nil {
			p.PaidAt = &now
		}
		if err := r.Orders().SetPayment(ctx, order.ID, p); err != nil {
			return model.Order{}, dbError(err, "")
		}
		order.Payment = p

	case model.OrderStatusConfirmed:
		reserved, err := w.reserveMaterials(ctx, r, order, req.ActorUserID, now)
		if err != nil {
			return model.Order{}, err
		}
		order.StockReserved = reserved

	case model.OrderStatusShipped:
		s := model.Shipment{Carrier: carrier, TrackingNumber: tracking, ShippedAt: &now}
		if err := r.Orders().SetShipment(ctx, order.ID, s); err != nil {
			return model.Order{}, dbError(err, "")
		}
		order.Shipment = s

	case model.OrderStatusCancelled, model.OrderStatusRejected:
		if order.StockReserved {
			if err := w.restoreMaterials(ctx, r, order, req.ActorUserID, now); err != nil {
				return model.Order{}, err
			}
			order.StockReserved = false
		}
		//支払い済みなら返金扱いにする
		if order.Payment.Status == model.PaymentStatusCompleted {
			order.Payment.Status = model.PaymentStatusRefunded
			if err := r.Orders().SetPayment(ctx, order.ID, order.Payment); err != nil {
				return model.Order{}, dbError(err, "")
			}
		}
	}

	if err := r.Orders().AppendHistory(ctx, model.OrderHistoryEntry{
		OrderID:     order.ID,
		FromStatus:  from,
		ToStatus:    to,
		Note:        strings.TrimSpace(req.Note),
		ActorUserID: req.ActorUserID,
		CreatedAt:   now,
	}); err != nil {
		return model.Order{}, dbError(err, "")
	}

	if event, ok := emailEventFor(to); ok {
		if err := enqueueEmail(ctx, r, w.ids, now, emailJob{
			Event:     event,
			Recipient: order.BuyerEmail,
			Data:      orderEmailData(order, req.Note),
			OrderID:   &order.ID,
		}); err != nil {
			return model.Order{}, dbError(err, "")
		}
	}

	if err := writeAudit(ctx, r, req.ActorUserID,
		model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, order.ID,
		before, statusSnapshot(order), now); err != nil {
		return model.Order{}, dbError(err, "")
	}

	log.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("actor", req.ActorUserID).
		Msg("order status changed")

	return order, nil
}

// 明細×レシピで必要な資材をまとめて引き当てる。
// 1つでも足りなければエラーを返す（呼び出し側のTxで全部戻る）
func (w *OrderWorkflow) reserveMaterials(ctx context.Context, r repo.TxRepos, order model.Order, actorID int64, now time.Time) (bool, error) {
	items, err := r.OrderItems().ForOrder(ctx, order.ID)
	if err != nil {
		return false, dbError(err, "")
	}
	need, err := materialNeeds(ctx, r, items)
	if err != nil {
		return false, err
	}
	if len(need) == 0 {
		return false, nil
	}

	//デッドロックを避けるためID順に更新する
	ids := make([]int64, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	stockItems, err := r.Stock().FindByIDs(ctx, ids)
	if err != nil {
		return false, dbError(err, "")
	}
	byID := make(map[int64]model.StockItem, len(stockItems))
	for _, s := range stockItems {
		byID[s.ID] = s
	}

	reason := "order " + order.OrderNumber + " confirmed"
	reservations := make([]model.StockReservation, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return false, badRequest("material %d referenced by recipe does not exist", id)
		}
		if !item.Available {
			return false, badRequest("material not available: %s", item.Name)
		}
		if err := reserveStock(ctx, r, stockChange{
			Item:    item,
			Amount:  need[id],
			Reason:  reason,
			ActorID: &actorID,
			OrderID: &order.ID,
		}, now); err != nil {
			return false, err
		}
		reservations = append(reservations, model.StockReservation{
			OrderID:     order.ID,
			StockItemID: id,
			Amount:      need[id],
			ReservedAt:  now,
		})
	}

	if err := r.Reservations().CreateBulk(ctx, reservations); err != nil {
		return false, dbError(err, "")
	}
	if err := r.Orders().SetStockReserved(ctx, order.ID, true); err != nil {
		return false, dbError(err, "")
	}
	return true, nil
}

// 確定時に引き当てた量をそのまま戻す
func (w *OrderWorkflow) restoreMaterials(ctx context.Context, r repo.TxRepos, order model.Order, actorID int64, now time.Time) error {
	reservations, err := r.Reservations().ListOpenByOrderID(ctx, order.ID)
	if err != nil {
		return dbError(err, "")
	}

	ids := make([]int64, 0, len(reservations))
	for _, res := range reservations {
		ids = append(ids, res.StockItemID)
	}
	stockItems, err := r.Stock().FindByIDs(ctx, ids)
	if err != nil {
		return dbError(err, "")
	}
	byID := make(map[int64]model.StockItem, len(stockItems))
	for _, s := range stockItems {
		byID[s.ID] = s
	}

	reason := "order " + order.OrderNumber + " " + string(order.Status)
	for _, res := range reservations {
		item, ok := byID[res.StockItemID]
		if !ok {
			//資材が物理削除されていたら戻し先が無い
			log.Warn().Int64("order_id", order.ID).Int64("stock_item_id", res.StockItemID).Msg("reserved material no longer exists")
			continue
		}
		if err := restockStock(ctx, r, stockChange{
			Item:    item,
			Amount:  res.Amount,
			Reason:  reason,
			ActorID: &actorID,
			OrderID: &order.ID,
		}, now); err != nil {
			return err
		}
	}

	if err := r.Reservations().ReleaseByOrderID(ctx, order.ID, now); err != nil {
		return dbError(err, "")
	}
	if err := r.Orders().SetStockReserved(ctx, order.ID, false); err != nil {
		return dbError(err, "")
	}
	return nil
}

// 資材ID => 必要量。レシピに量が無い行（香料の見積もり用）は引き当てない
func materialNeeds(ctx context.Context, r repo.TxRepos, items []model.OrderItem) (map[int64]decimal.Decimal, error) {
	productIDs := make([]int64, 0, len(items))
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
	}
	lines, err := r.Products().ListRecipesByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, dbError(err, "")
	}
	recipes := map[int64][]model.RecipeLine{}
	for _, l := range lines {
		recipes[l.ProductID] = append(recipes[l.ProductID], l)
	}

	need := map[int64]decimal.Decimal{}
	for _, it := range items {
		qty := decimal.NewFromInt(it.Quantity)
		for _, l := range recipes[it.ProductID] {
			if !l.Amount.IsPositive() {
				continue
			}
			need[l.StockItemID] = need[l.StockItemID].Add(l.Amount.Mul(qty))
		}
	}
	return need, nil
}

func emailEventFor(status model.OrderStatus) (model.EmailEvent, bool) {
	switch status {
	case model.OrderStatusConfirmed:
		return model.EmailEventOrderConfirmed, true
	case model.OrderStatusRejected:
		return model.EmailEventOrderRejected, true
	case model.OrderStatusShipped:
		return model.EmailEventOrderShipped, true
	case model.OrderStatusCancelled:
		return model.EmailEventOrderCancelled, true
	}
	return "", false
}

func orderEmailData(o model.Order, note string) map[string]any {
	return map[string]any{
		"order_number":    o.OrderNumber,
		"buyer_name":      o.BuyerName,
		"status":          o.Status,
		"grand_total":     o.GrandTotal.StringFixed(2),
		"carrier":         o.Shipment.Carrier,
		"tracking_number": o.Shipment.TrackingNumber,
		"admin_note":      strings.TrimSpace(note),
	}
}

func statusSnapshot(o model.Order) map[string]any {
	return map[string]any{
		"status":          o.Status,
		"stock_reserved":  o.StockReserved,
		"payment_status":  o.Payment.Status,
		"tracking_number": o.Shipment.TrackingNumber,
	}
}

func joinStatuses(list []model.OrderStatus) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(list))
	for _, s := range list {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}
