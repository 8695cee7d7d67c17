package usecase

import (
	"github.com/shopspring/decimal"
)

// 税・送料の計算ルール
type Pricing struct {
	TaxRate          decimal.Decimal
	ShippingFlat     decimal.Decimal
	FreeShippingFrom decimal.Decimal
}

type OrderTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// 合計は注文作成時に1回だけ計算する（あとから再計算しない）
func (p Pricing) Totals(subtotal decimal.Decimal) OrderTotals {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingFlat.Round(2)
	if p.FreeShippingFrom.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingFrom) {
		shipping = decimal.Zero
	}
	if subtotal.IsZero() {
		shipping = decimal.Zero
	}

	return OrderTotals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		GrandTotal:   subtotal.Add(tax).Add(shipping),
	}
}
