package handler

import (
	"net/http"
	"strconv"

	"seifenshop/internal/config"
	"seifenshop/internal/middleware"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// APIの返却形式 {success, data} / {success:false, message}
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func okMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: msg})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, Response{Success: false, Message: msg})
}

// usecaseのHTTPErrorはそのまま返す。
// 5xxと想定外のエラーはechoのHTTPErrorHandlerに任せる（ログと本番用のメッセージ）
func writeError(c echo.Context, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok && he.Status < 500 {
		return fail(c, he.Status, he.Message)
	}
	return err
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limitの共通パース。無ければ1と20
func parsePaging(c echo.Context) (int, int, bool) {
	page, limit := 1, 20
	if s := c.QueryParam("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		page = v
	}
	if s := c.QueryParam("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		limit = v
	}
	return page, limit, true
}

func parseOptionalBool(s string) (*bool, bool) {
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &b, true
}

// ログイン必須
func customerOnly(cfg config.Config, customers repository.CustomerRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(customers),
	}
}

// 管理者限定
func adminOnly(cfg config.Config, customers repository.CustomerRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(customers),
		middleware.AdminRoleGuard(),
	}
}
