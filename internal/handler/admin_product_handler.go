package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type RecipeLineRequest struct {
	StockItemID int64           `json:"stock_item_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// 作成・更新で共通。recipeを省略すると更新時はレシピを変えない
type ProductRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Price       decimal.Decimal     `json:"price"`
	WeightGrams int64               `json:"weight_grams"`
	IsActive    *bool               `json:"is_active"`
	Recipe      []RecipeLineRequest `json:"recipe"`
}

func (r ProductRequest) toInput() usecase.AdminProductInput {
	in := usecase.AdminProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		WeightGrams: r.WeightGrams,
		IsActive:    true,
	}
	if r.IsActive != nil {
		in.IsActive = *r.IsActive
	}
	if r.Recipe != nil {
		in.Recipe = make([]usecase.RecipeLineInput, 0, len(r.Recipe))
		for _, l := range r.Recipe {
			in.Recipe = append(in.Recipe, usecase.RecipeLineInput{StockItemID: l.StockItemID, Amount: l.Amount})
		}
	}
	return in
}

// 商品の管理API（/products配下、管理者限定）
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	admin := adminOnly(cfg, customers)

	e.POST("/products", h.createProduct, admin...)
	e.PUT("/products/:id", h.updateProduct, admin...)
	e.DELETE("/products/:id", h.deleteProduct, admin...)
	e.GET("/products/:id/kalkulation", h.costEstimate, admin...)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, out)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}

	return okMessage(c, "deleted")
}

// 原価と利益の見積もり
func (h *AdminProductHandler) costEstimate(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.EstimateCost(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}
