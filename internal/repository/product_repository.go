package repository

import (
	"context"

	"seifenshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string

	//管理画面では非公開商品も出す
	IncludeInactive bool
}

// 商品とレシピの永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	//レシピは丸ごと入れ替える
	ReplaceRecipe(ctx context.Context, productID int64, lines []model.RecipeLine) error
	ListRecipe(ctx context.Context, productID int64) ([]model.RecipeLine, error)
	ListRecipesByProductIDs(ctx context.Context, productIDs []int64) ([]model.RecipeLine, error)
	//この資材を使っているレシピ行の数（削除済み商品も含む）
	CountRecipeUses(ctx context.Context, stockItemID int64) (int64, error)
}
