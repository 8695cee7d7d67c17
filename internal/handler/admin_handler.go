package handler

import (
	"net/http"
	"strconv"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin 配下（ダッシュボード・監査ログ・メール・顧客管理）
type AdminHandler struct {
	queries   *usecase.AdminQueryUsecase
	customers *usecase.CustomerUsecase
}

func NewAdminHandler(queries *usecase.AdminQueryUsecase, customers *usecase.CustomerUsecase) *AdminHandler {
	return &AdminHandler{queries: queries, customers: customers}
}

type AdminCustomerRequest struct {
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	// /admin 配下は全部「JWT必須 + token_version一致 + admin限定」
	admin := e.Group("/admin", adminOnly(cfg, customers)...)

	admin.GET("/dashboard", h.dashboard)
	admin.GET("/audit-logs", h.auditLogs)
	admin.GET("/emails", h.emails)
	admin.GET("/customers", h.listCustomers)
	admin.PUT("/customers/:id", h.updateCustomer)
	admin.POST("/customers/:id/disable", h.disableCustomer)
}

func (h *AdminHandler) dashboard(c echo.Context) error {
	out, err := h.queries.Dashboard(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminHandler) auditLogs(c echo.Context) error {
	var f repository.AuditLogFilter

	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid actor_user_id")
		}
		f.Actor = id
	}
	f.Action = model.AuditAction(c.QueryParam("action"))
	f.Resource = model.AuditResourceType(c.QueryParam("resource_type"))
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid resource_id")
		}
		f.ResourceID = id
	}

	from, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("from"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid from")
	}
	to, valid := usecase.ParseDateTimeRFC3339(c.QueryParam("to"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid to")
	}
	if from != nil {
		f.Since = *from
	}
	if to != nil {
		f.Until = *to
	}

	f.Limit = 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid limit")
		}
		f.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid offset")
		}
		f.Offset = n
	}

	out, err := h.queries.AuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

// 送信待ち・失敗メールの確認用
func (h *AdminHandler) emails(c echo.Context) error {
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	f := repository.EmailListFilter{
		Status: c.QueryParam("status"),
		Event:  c.QueryParam("event"),
		Page:   page,
		Limit:  limit,
	}
	if v := c.QueryParam("order_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid order_id")
		}
		f.OrderID = &id
	}

	out, err := h.queries.Emails(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminHandler) listCustomers(c echo.Context) error {
	page, limit, valid := parsePaging(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid page or limit")
	}

	f := repository.CustomerListFilter{Page: page, Limit: limit, Q: c.QueryParam("q")}
	if v := c.QueryParam("role"); v != "" {
		role, err := model.ParseRole(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid role")
		}
		f.Role = &role
	}
	active, valid := parseOptionalBool(c.QueryParam("active"))
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid active")
	}
	f.Active = active

	out, err := h.customers.AdminList(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *AdminHandler) updateCustomer(c echo.Context) error {
	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	customerID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req AdminCustomerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.customers.AdminUpdate(c.Request().Context(), adminID, customerID, usecase.AdminCustomerInput{
		Role:      req.Role,
		IsActive:  req.IsActive,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

// 停止すると発行済みトークンも無効になる
func (h *AdminHandler) disableCustomer(c echo.Context) error {
	adminID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	customerID, valid := parseIDParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.customers.AdminDisable(c.Request().Context(), adminID, customerID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
