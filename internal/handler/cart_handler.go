package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Warenkorb。レスポンスは常にカート全体。
type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// PATCH では product_id を無視する
type CartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	g := e.Group("/cart", customerOnly(cfg, customers)...)

	g.GET("", h.show)
	g.POST("", h.add)
	g.PATCH("/:id", h.setQuantity)
	g.DELETE("/:id", h.remove)
}

func (h *CartHandler) show(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	return cartReply(c)(h.uc.Cart(c.Request().Context(), userID))
}

func (h *CartHandler) add(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	in := usecase.CartItemInput{ProductID: req.ProductID, Quantity: req.Quantity}
	return cartReply(c)(h.uc.AddItem(c.Request().Context(), userID, in))
}

func (h *CartHandler) setQuantity(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	itemID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	return cartReply(c)(h.uc.SetItemQuantity(c.Request().Context(), userID, itemID, req.Quantity))
}

func (h *CartHandler) remove(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	itemID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	return cartReply(c)(h.uc.RemoveItem(c.Request().Context(), userID, itemID))
}

func cartReply(c echo.Context) func(usecase.CartView, error) error {
	return func(v usecase.CartView, err error) error {
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, v)
	}
}
