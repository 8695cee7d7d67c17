package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 問い合わせ（見積もり依頼）と、承認後の支払い
type InquiryHandler struct {
	uc *usecase.InquiryUsecase
}

func NewInquiryHandler(uc *usecase.InquiryUsecase) *InquiryHandler {
	return &InquiryHandler{uc: uc}
}

type InquiryCreateRequest struct {
	Message string `json:"message"`
	Items   []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	} `json:"items"`
}

type InquiryRespondRequest struct {
	Status    string `json:"status"`
	AdminNote string `json:"adminNote"`
}

func (h *InquiryHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	mw := customerOnly(cfg, customers)
	admin := adminOnly(cfg, customers)

	e.POST("/inquiries", h.create, mw...)
	e.GET("/inquiries/mine", h.listMine, mw...)
	e.POST("/inquiries/:id/payment", h.pay, mw...)

	e.GET("/inquiries", h.listAdmin, admin...)
	e.PUT("/inquiries/:id/status", h.respond, admin...)
}

func (h *InquiryHandler) create(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req InquiryCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	in := usecase.CreateInquiryInput{Message: req.Message}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.InquiryItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	out, err := h.uc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, out)
}

func (h *InquiryHandler) listMine(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	out, err := h.uc.ListMine(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *InquiryHandler) pay(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	inquiryID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Pay(c.Request().Context(), userID, inquiryID, usecase.PaymentInput{
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, out)
}

func (h *InquiryHandler) listAdmin(c echo.Context) error {
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	out, err := h.uc.ListAdmin(c.Request().Context(), repository.InquiryListFilter{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *InquiryHandler) respond(c echo.Context) error {
	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	inquiryID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req InquiryRespondRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Respond(c.Request().Context(), adminID, inquiryID, usecase.RespondInquiryInput{
		Status:    req.Status,
		AdminNote: req.AdminNote,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
