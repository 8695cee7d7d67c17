package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	clock       Clock
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	clock Clock,
) *ProductUsecase {
	return &ProductUsecase{
		tx:          tx,
		productRepo: productRepo,
		clock:       clock,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	//管理者だけtrueにできる
	IncludeInactive bool
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductDetailOutput struct {
	model.Product
	Recipe []model.RecipeLine `json:"recipe"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:            in.Page,
		Limit:           in.Limit,
		Q:               strings.TrimSpace(in.Q),
		Category:        strings.TrimSpace(in.Category),
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		Sort:            in.Sort,
		IncludeInactive: in.IncludeInactive,
	})
	if err != nil {
		return ProductListOutput{}, dbError(err, "")
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 非公開の商品は管理者以外には404
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64, includeInactive bool) (ProductDetailOutput, error) {
	if productID <= 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductDetailOutput{}, dbError(err, "not found")
	}
	if !p.IsActive && !includeInactive {
		return ProductDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	recipe, err := u.productRepo.ListRecipe(ctx, productID)
	if err != nil {
		return ProductDetailOutput{}, dbError(err, "")
	}
	return ProductDetailOutput{Product: p, Recipe: recipe}, nil
}

type RecipeLineInput struct {
	StockItemID int64
	Amount      decimal.Decimal
}

type AdminProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	WeightGrams int64
	IsActive    bool
	//nilならレシピは変更しない
	Recipe []RecipeLineInput
}

func (in AdminProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if len(in.Name) > 255 {
		return NewHTTPError(http.StatusBadRequest, "name too long")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.WeightGrams < 0 {
		return NewHTTPError(http.StatusBadRequest, "weight_grams must be >= 0")
	}
	seen := map[int64]bool{}
	for _, l := range in.Recipe {
		if l.StockItemID <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid stock_item_id")
		}
		if l.Amount.IsNegative() {
			return NewHTTPError(http.StatusBadRequest, "recipe amount must be >= 0")
		}
		if seen[l.StockItemID] {
			return badRequest("stock item %d listed twice", l.StockItemID)
		}
		seen[l.StockItemID] = true
	}
	return nil
}

func (in AdminProductInput) toProduct() model.Product {
	return model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price.Round(2),
		WeightGrams: in.WeightGrams,
		IsActive:    in.IsActive,
	}
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (ProductDetailOutput, error) {
	if adminUserID <= 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return ProductDetailOutput{}, err
	}

	var out ProductDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		p := in.toProduct()
		p.CreatedAt = now
		p.UpdatedAt = now

		created, err := r.Products().Create(ctx, p)
		if err != nil {
			return dbError(err, "")
		}
		recipe, err := saveRecipe(ctx, r, created.ID, in.Recipe)
		if err != nil {
			return err
		}

		out = ProductDetailOutput{Product: created, Recipe: recipe}
		return writeAudit(ctx, r, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, created.ID, nil, out, now)
	})
	if err != nil {
		return ProductDetailOutput{}, err
	}
	return out, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (ProductDetailOutput, error) {
	if adminUserID <= 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return ProductDetailOutput{}, err
	}

	var out ProductDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbError(err, "not found")
		}

		p := in.toProduct()
		p.ID = productID
		if err := r.Products().Update(ctx, p); err != nil {
			return dbError(err, "not found")
		}

		recipe, err := r.Products().ListRecipe(ctx, productID)
		if err != nil {
			return dbError(err, "")
		}
		if in.Recipe != nil {
			if recipe, err = saveRecipe(ctx, r, productID, in.Recipe); err != nil {
				return err
			}
		}

		after, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbError(err, "not found")
		}
		out = ProductDetailOutput{Product: after, Recipe: recipe}
		return writeAudit(ctx, r, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, out, u.clock.Now())
	})
	if err != nil {
		return ProductDetailOutput{}, err
	}
	return out, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbError(err, "not found")
		}
		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			return dbError(err, "not found")
		}
		return writeAudit(ctx, r, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, nil, u.clock.Now())
	})
}

// レシピの資材が存在するかを確認してから入れ替える
func saveRecipe(ctx context.Context, r repo.TxRepos, productID int64, in []RecipeLineInput) ([]model.RecipeLine, error) {
	if len(in) == 0 {
		if err := r.Products().ReplaceRecipe(ctx, productID, nil); err != nil {
			return nil, dbError(err, "")
		}
		return []model.RecipeLine{}, nil
	}

	ids := make([]int64, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.StockItemID)
	}
	items, err := r.Stock().FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(err, "")
	}
	byID := make(map[int64]model.StockItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	lines := make([]model.RecipeLine, 0, len(in))
	for _, l := range in {
		item, ok := byID[l.StockItemID]
		if !ok {
			return nil, badRequest("stock item %d not found", l.StockItemID)
		}
		if item.Kind.WholeUnits() && !l.Amount.Equal(l.Amount.Truncate(0)) {
			return nil, badRequest("amount for %s must be a whole number", item.Name)
		}
		lines = append(lines, model.RecipeLine{
			ProductID:   productID,
			StockItemID: l.StockItemID,
			Amount:      l.Amount,
		})
	}
	if err := r.Products().ReplaceRecipe(ctx, productID, lines); err != nil {
		return nil, dbError(err, "")
	}
	return r.Products().ListRecipe(ctx, productID)
}

type CostEstimateLine struct {
	StockItemID int64              `json:"stock_item_id"`
	Name        string             `json:"bezeichnung"`
	Kind        model.MaterialKind `json:"kind"`
	Amount      decimal.Decimal    `json:"amount"`
	Unit        string             `json:"unit"`
	UnitCost    decimal.Decimal    `json:"einkaufspreis"`
	Cost        decimal.Decimal    `json:"kosten"`
	//滴数を重量から見積もった行
	Derived bool `json:"derived"`
}

type CostEstimateOutput struct {
	ProductID int64              `json:"product_id"`
	Price     decimal.Decimal    `json:"price"`
	Lines     []CostEstimateLine `json:"lines"`
	TotalCost decimal.Decimal    `json:"gesamtkosten"`
	Margin    decimal.Decimal    `json:"marge"`
	//価格に対する割合（%）。価格0なら0
	MarginPercent decimal.Decimal `json:"marge_prozent"`
}

// 商品1個あたりの原価見積もり（在庫は変えない）
func (u *ProductUsecase) EstimateCost(ctx context.Context, productID int64) (CostEstimateOutput, error) {
	if productID <= 0 {
		return CostEstimateOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var out CostEstimateOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbError(err, "not found")
		}
		recipe, err := r.Products().ListRecipe(ctx, productID)
		if err != nil {
			return dbError(err, "")
		}

		ids := make([]int64, 0, len(recipe))
		for _, l := range recipe {
			ids = append(ids, l.StockItemID)
		}
		items, err := r.Stock().FindByIDs(ctx, ids)
		if err != nil {
			return dbError(err, "")
		}
		byID := make(map[int64]model.StockItem, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}

		out = CostEstimateOutput{ProductID: p.ID, Price: p.Price, Lines: make([]CostEstimateLine, 0, len(recipe))}
		total := decimal.Zero
		for _, l := range recipe {
			item, ok := byID[l.StockItemID]
			if !ok {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("material %d referenced by recipe does not exist", l.StockItemID))
			}
			amount := l.Amount
			derived := false
			if item.Kind == model.KindFragranceOil && amount.IsZero() {
				amount = model.FragranceDropsForSoap(decimal.NewFromInt(p.WeightGrams))
				derived = true
			}
			cost := amount.Mul(item.UnitCost).Round(4)
			total = total.Add(cost)
			out.Lines = append(out.Lines, CostEstimateLine{
				StockItemID: item.ID,
				Name:        item.Name,
				Kind:        item.Kind,
				Amount:      amount,
				Unit:        item.Kind.Unit(),
				UnitCost:    item.UnitCost,
				Cost:        cost,
				Derived:     derived,
			})
		}

		out.TotalCost = total.Round(2)
		out.Margin = p.Price.Sub(total).Round(2)
		out.MarginPercent = decimal.Zero
		if p.Price.IsPositive() {
			out.MarginPercent = p.Price.Sub(total).Div(p.Price).Mul(decimal.NewFromInt(100)).Round(2)
		}
		return nil
	})
	if err != nil {
		return CostEstimateOutput{}, err
	}
	return out, nil
}

