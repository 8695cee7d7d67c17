package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
)

// 1明細あたりの上限
const maxCartQuantity = 99

// CartUsecase は Warenkorb の操作。資材の在庫は注文確定時に引き当てるので見ない。
type CartUsecase struct {
	carts    repo.CartRepository
	items    repo.CartItemRepository
	products repo.ProductRepository
	pricing  Pricing
}

func NewCartUsecase(carts repo.CartRepository, items repo.CartItemRepository, products repo.ProductRepository, pricing Pricing) *CartUsecase {
	return &CartUsecase{carts: carts, items: items, products: products, pricing: pricing}
}

// Price は追加時点の単価
type CartLine struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	CartID int64      `json:"cart_id"`
	Items  []CartLine `json:"items"`
	OrderTotals
}

type CartItemInput struct {
	ProductID int64
	Quantity  int64
}

func (u *CartUsecase) Cart(ctx context.Context, customerID int64) (CartView, error) {
	if customerID <= 0 {
		return CartView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	cart, err := u.carts.OpenFor(ctx, customerID)
	if err != nil {
		return CartView{}, dbError(err, "")
	}
	return u.view(ctx, cart.ID)
}

// AddItem は同じ商品なら数量を足す
func (u *CartUsecase) AddItem(ctx context.Context, customerID int64, in CartItemInput) (CartView, error) {
	if customerID <= 0 {
		return CartView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if err := checkCartQuantity(in.Quantity); err != nil {
		return CartView{}, err
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	if err != nil {
		return CartView{}, dbError(err, "")
	}

	cart, err := u.carts.OpenFor(ctx, customerID)
	if err != nil {
		return CartView{}, dbError(err, "")
	}
	err = u.items.Add(ctx, cart.ID, p.ID, in.Quantity, maxCartQuantity, p.Price)
	if errors.Is(err, repo.ErrConflict) {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "quantity limit exceeded")
	}
	if err != nil {
		return CartView{}, dbError(err, "")
	}
	return u.view(ctx, cart.ID)
}

func (u *CartUsecase) SetItemQuantity(ctx context.Context, customerID, itemID, qty int64) (CartView, error) {
	if customerID <= 0 {
		return CartView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := checkCartQuantity(qty); err != nil {
		return CartView{}, err
	}

	cartID, err := u.items.SetQuantity(ctx, customerID, itemID, qty)
	if err != nil {
		return CartView{}, dbError(err, "cart item not found")
	}
	return u.view(ctx, cartID)
}

func (u *CartUsecase) RemoveItem(ctx context.Context, customerID, itemID int64) (CartView, error) {
	if customerID <= 0 {
		return CartView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	cartID, err := u.items.Remove(ctx, customerID, itemID)
	if err != nil {
		return CartView{}, dbError(err, "cart item not found")
	}
	return u.view(ctx, cartID)
}

func checkCartQuantity(qty int64) error {
	if qty < 1 || qty > maxCartQuantity {
		return badRequest("quantity must be between 1 and %d", maxCartQuantity)
	}
	return nil
}

// 非公開になった商品の明細は表示も合計もしない
func (u *CartUsecase) view(ctx context.Context, cartID int64) (CartView, error) {
	items, err := u.items.ListByCartID(ctx, cartID)
	if err != nil {
		return CartView{}, dbError(err, "")
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.products.FindByIDs(ctx, ids)
	if err != nil {
		return CartView{}, dbError(err, "")
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		if p.IsActive {
			names[p.ID] = p.Name
		}
	}

	out := CartView{CartID: cartID, Items: make([]CartLine, 0, len(items))}
	subtotal := decimal.Zero
	for _, it := range items {
		name, ok := names[it.ProductID]
		if !ok {
			continue
		}
		line := it.LineTotal()
		out.Items = append(out.Items, CartLine{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      name,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: line,
		})
		subtotal = subtotal.Add(line)
	}
	out.OrderTotals = u.pricing.Totals(subtotal)
	return out, nil
}
