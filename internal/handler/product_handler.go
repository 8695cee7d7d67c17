package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/middleware"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products の公開API。管理者のトークンがあれば非公開商品も見える
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	g := e.Group("/products",
		middleware.OptionalAuthJWT(cfg),
		middleware.TokenVersionGuard(customers),
	)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	minPrice, err := parseOptionalDecimal(c.QueryParam("min_price"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid min_price")
	}
	maxPrice, err := parseOptionalDecimal(c.QueryParam("max_price"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid max_price")
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:            page,
		Limit:           limit,
		Q:               c.QueryParam("q"),
		Category:        c.QueryParam("category"),
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		Sort:            c.QueryParam("sort"),
		IncludeInactive: middleware.IsAdmin(c) && c.QueryParam("alle") == "true",
	})
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id, middleware.IsAdmin(c))
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, p)
}

func parseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
