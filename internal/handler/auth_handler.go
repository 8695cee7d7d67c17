package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// 登録・ログイン・自分のプロフィール
type AuthHandler struct {
	uc *usecase.CustomerUsecase
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.CustomerUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Email      string        `json:"email"`
	Password   string        `json:"password"`
	FirstName  string        `json:"first_name"`
	LastName   string        `json:"last_name"`
	Phone      string        `json:"phone"`
	Address    model.Address `json:"address"`
	Newsletter bool          `json:"newsletter"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PUT /me。省略した項目は変更しない
type profileRequest struct {
	FirstName       *string                         `json:"first_name"`
	LastName        *string                         `json:"last_name"`
	Phone           *string                         `json:"phone"`
	Address         *model.Address                  `json:"address"`
	Preferences     *model.CommunicationPreferences `json:"preferences"`
	CurrentPassword string                          `json:"current_password"`
	NewPassword     string                          `json:"new_password"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	// IPごとの回数制限（総当たり対策）
	limiter := echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.AuthRateLimit)),
		ErrorHandler: func(c echo.Context, err error) error {
			return fail(c, http.StatusForbidden, "rate limit identifier missing")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return fail(c, http.StatusTooManyRequests, "too many requests")
		},
	})

	g := e.Group("/auth", limiter)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)

	me := e.Group("/me", customerOnly(cfg, customers)...)
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Address:    req.Address,
		Newsletter: req.Newsletter,
	})
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, out)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, out)
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}

// パスワードを変えると既存のトークンは無効になる
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	userID, valid := getUserIDFromContext(c)
	if !valid {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	out, err := h.uc.UpdateProfile(c.Request().Context(), userID, usecase.ProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Address:         req.Address,
		Preferences:     req.Preferences,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, out)
}
