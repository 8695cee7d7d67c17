package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 顧客の注文API
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// 配送先を省略すると登録済みの住所を使う
type OrderCreateRequest struct {
	ShippingAddress *model.Address `json:"shipping_address"`
	Phone           string         `json:"phone"`
	Note            string         `json:"note"`
}

type PaymentRequest struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	mw := customerOnly(cfg, customers)

	e.POST("/orders", h.create, mw...)
	e.GET("/orders/mine", h.list, mw...)
	e.GET("/orders/mine/:id", h.detail, mw...)
	e.POST("/orders/:id/payment", h.pay, mw...)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		IdempotencyKey:  idemKey,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		Note:            req.Note,
	})
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

// 決済完了の通知（neu → bezahlt）
func (h *OrderHandler) pay(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Pay(c.Request().Context(), userID, orderID, usecase.PaymentInput{
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
