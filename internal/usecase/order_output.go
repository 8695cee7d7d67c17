package usecase

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID              int64                     `json:"id"`
	OrderNumber     string                    `json:"order_number"`
	CustomerID      int64                     `json:"customer_id"`
	InquiryID       *int64                    `json:"inquiry_id,omitempty"`
	Status          string                    `json:"status"`
	NextStatuses    []model.OrderStatus       `json:"next_statuses"`
	BuyerName       string                    `json:"buyer_name"`
	BuyerEmail      string                    `json:"buyer_email"`
	BuyerPhone      string                    `json:"buyer_phone"`
	ShippingAddress model.Address             `json:"shipping_address"`
	Subtotal        decimal.Decimal           `json:"subtotal"`
	Tax             decimal.Decimal           `json:"tax"`
	ShippingCost    decimal.Decimal           `json:"shipping_cost"`
	GrandTotal      decimal.Decimal           `json:"grand_total"`
	Payment         model.PaymentDetails      `json:"payment"`
	Shipment        model.Shipment            `json:"versand"`
	StockReserved   bool                      `json:"stock_reserved"`
	Note            string                    `json:"note"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	Items           []OrderItemOutput         `json:"items"`
	History         []model.OrderHistoryEntry `json:"history,omitempty"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		InquiryID:       o.InquiryID,
		Status:          string(o.Status),
		NextStatuses:    o.Status.Successors(),
		BuyerName:       o.BuyerName,
		BuyerEmail:      o.BuyerEmail,
		BuyerPhone:      o.BuyerPhone,
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		ShippingCost:    o.ShippingCost,
		GrandTotal:      o.GrandTotal,
		Payment:         o.Payment,
		Shipment:        o.Shipment,
		StockReserved:   o.StockReserved,
		Note:            o.Note,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           outItems,
	}
}

// 明細と履歴つきで読み直す
func loadOrderDetail(ctx context.Context, r repo.TxRepos, orderID int64) (OrderOutput, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, dbError(err, "order not found")
	}
	items, err := r.OrderItems().ForOrder(ctx, orderID)
	if err != nil {
		return OrderOutput{}, dbError(err, "")
	}
	history, err := r.Orders().ListHistory(ctx, orderID)
	if err != nil {
		return OrderOutput{}, dbError(err, "")
	}
	out := toOrderOutput(o, items)
	out.History = history
	return out, nil
}

// 明細は1回のクエリでまとめて読む
func loadOrderList(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemsByOrder, err := r.OrderItems().ForOrders(ctx, ids)
	if err != nil {
		return nil, dbError(err, "")
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, itemsByOrder[o.ID]))
	}
	return outs, nil
}
