package model

import (
	"errors"
	"strings"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "neu"
	OrderStatusPaid      OrderStatus = "bezahlt"
	OrderStatusConfirmed OrderStatus = "bestaetigt"
	OrderStatusPacked    OrderStatus = "verpackt"
	OrderStatusShipped   OrderStatus = "verschickt"
	OrderStatusDelivered OrderStatus = "zugestellt"
	OrderStatusCompleted OrderStatus = "abgeschlossen"
	OrderStatusCancelled OrderStatus = "storniert"
	OrderStatusRejected  OrderStatus = "abgelehnt"
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

// 直接遷移できる次のステータス。
// storniert は発送前ならどこからでも、abgelehnt は neu / bezahlt からだけ。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:       {OrderStatusPaid, OrderStatusCancelled, OrderStatusRejected},
	OrderStatusPaid:      {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusRejected},
	OrderStatusConfirmed: {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {OrderStatusCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPaid, OrderStatusConfirmed, OrderStatusPacked,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidOrderStatus
	}
	return st, nil
}

func (s OrderStatus) Successors() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// これ以上遷移できない
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// 売上に数えないステータス
func (s OrderStatus) IsVoid() bool {
	return s == OrderStatusCancelled || s == OrderStatusRejected
}
