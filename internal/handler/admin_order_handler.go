package handler

import (
	"net/http"
	"strconv"

	"seifenshop/internal/config"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type ShipmentRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
}

// PUT /orders/:id/status
type OrderStatusUpdateRequest struct {
	Status    string           `json:"status"`
	AdminNote string           `json:"adminNote"`
	Versand   *ShipmentRequest `json:"versand"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	admin := adminOnly(cfg, customers)

	e.GET("/orders", h.list, admin...)
	e.GET("/orders/stats/overview", h.stats, admin...)
	e.GET("/orders/:id", h.detail, admin...)
	e.PUT("/orders/:id/status", h.updateStatus, admin...)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	var customerID *int64
	if v := c.QueryParam("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid customer_id")
		}
		customerID = &id
	}

	fromPtr, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("from"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	toPtr, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("to"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid to")
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:       page,
		Limit:      limit,
		Status:     c.QueryParam("status"),
		CustomerID: customerID,
		Q:          c.QueryParam("q"),
		From:       fromPtr,
		To:         toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	// 操作した管理者ID（履歴と監査ログ用）
	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	in := usecase.AdminUpdateOrderStatusInput{
		Status:    req.Status,
		AdminNote: req.AdminNote,
	}
	if req.Versand != nil {
		in.Carrier = req.Versand.Carrier
		in.TrackingNumber = req.Versand.TrackingNumber
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), adminID, orderID, in)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) stats(c echo.Context) error {
	fromPtr, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("from"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	toPtr, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("to"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid to")
	}

	out, err := h.uc.Stats(c.Request().Context(), fromPtr, toPtr)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
