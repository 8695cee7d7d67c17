package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seifenshop/internal/config"
	"seifenshop/internal/handler"
	"seifenshop/internal/infra/db"
	infrarepo "seifenshop/internal/infra/repository"
	"seifenshop/internal/infra/security"
	"seifenshop/internal/server"
	"seifenshop/internal/usecase"
	"seifenshop/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type app struct {
	t *testing.T
	e *echo.Echo
}

func testConfig() config.Config {
	return config.Config{
		GoEnv:          "development",
		FEURL:          "http://localhost:5173",
		JWTSecret:      "server-test-secret",
		AccessTokenTTL: 15 * time.Minute,
		AuthRateLimit:  1000,
	}
}

// メモリDBで全部を組み立てる
func newApp(t *testing.T, cfg config.Config) *app {
	t.Helper()

	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })

	repos := infrarepo.NewRepos(gdb)
	txm := infrarepo.NewTxManagerGorm(gdb)
	customers := repos.Customers()
	clock := usecase.SystemClock{}
	ids := usecase.UUIDGenerator{}
	pricing := usecase.Pricing{
		TaxRate:          decimal.RequireFromString("0.19"),
		ShippingFlat:     decimal.RequireFromString("4.90"),
		FreeShippingFrom: decimal.RequireFromString("50"),
	}
	issuer, err := security.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	require.NoError(t, err)

	workflow := usecase.NewOrderWorkflow(clock, ids)
	customerUC := usecase.NewCustomerUsecase(txm, customers, validator.NewCustomerValidator(customers), security.NewBcryptHasher(bcrypt.MinCost), issuer, clock)
	productUC := usecase.NewProductUsecase(txm, repos.Products(), clock)

	require.NoError(t, customerUC.SeedAdmin(context.Background(), "admin@seifenshop.test", "adminpasswort"))

	e := server.New(cfg)
	server.RegisterRoutes(e, cfg, customers,
		handler.NewAuthHandler(customerUC),
		handler.NewProductHandler(productUC),
		handler.NewAdminProductHandler(productUC),
		handler.NewCartHandler(usecase.NewCartUsecase(repos.Carts(), repos.CartItems(), repos.Products(), pricing)),
		handler.NewOrderHandler(usecase.NewOrderUsecase(txm, workflow, pricing, clock, ids)),
		handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, workflow)),
		handler.NewStockHandler(usecase.NewStockUsecase(txm, clock)),
		handler.NewInquiryHandler(usecase.NewInquiryUsecase(txm, workflow, pricing, clock, ids)),
		handler.NewAdminHandler(usecase.NewAdminQueryUsecase(txm), customerUC),
	)
	return &app{t: t, e: e}
}

func (a *app) do(method, path, token string, body any, headers ...string) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (a *app) login(email, password string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, env.Message)

	var out struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.Token.AccessToken
}

type idOnly struct {
	ID int64 `json:"id"`
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	a := newApp(t, testConfig())
	code, env := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	a := newApp(t, testConfig())
	admin := a.login("admin@seifenshop.test", "adminpasswort")

	code, env := a.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email":      "kunde@example.com",
		"password":   "geheim123",
		"first_name": "Erika",
		"last_name":  "Muster",
		"address": map[string]string{
			"street":      "Hauptstr. 1",
			"postal_code": "10115",
			"city":        "Berlin",
			"country":     "DE",
		},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	customer := a.login("kunde@example.com", "geheim123")

	code, env = a.do(http.MethodPost, "/rohseife", admin, map[string]any{
		"bezeichnung":   "Olivenseife",
		"vorrat":        "1000",
		"einkaufspreis": "0.012",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	soap := decodeData[idOnly](t, env)

	code, env = a.do(http.MethodPost, "/products", admin, map[string]any{
		"name":         "Olivenseife klassisch",
		"price":        "5.50",
		"weight_grams": 100,
		"recipe":       []map[string]any{{"stock_item_id": soap.ID, "amount": "100"}},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	product := decodeData[idOnly](t, env)

	// 公開一覧は未ログインでも見える
	code, _ = a.do(http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodPost, "/cart", customer, map[string]any{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.do(http.MethodPost, "/orders", customer, map[string]any{}, "X-Idempotency-Key", "http-1")
	require.Equal(t, http.StatusCreated, code, env.Message)
	order := decodeData[idOnly](t, env)

	code, env = a.do(http.MethodPost, fmt.Sprintf("/orders/%d/payment", order.ID), customer, map[string]any{"transaction_id": "PAY-1"})
	require.Equal(t, http.StatusOK, code, env.Message)

	// 顧客は管理APIを使えない
	code, env = a.do(http.MethodPut, fmt.Sprintf("/orders/%d/status", order.ID), customer, map[string]any{"status": "bestaetigt"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	code, env = a.do(http.MethodPut, fmt.Sprintf("/orders/%d/status", order.ID), admin, map[string]any{"status": "bestaetigt", "adminNote": "ok"})
	require.Equal(t, http.StatusOK, code, env.Message)
	confirmed := decodeData[struct {
		Status string `json:"status"`
	}](t, env)
	assert.Equal(t, "bestaetigt", confirmed.Status)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/rohseife/%d", soap.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	stock := decodeData[struct {
		Quantity decimal.Decimal `json:"vorrat"`
	}](t, env)
	assert.True(t, decimal.NewFromInt(800).Equal(stock.Quantity), stock.Quantity.String())

	code, env = a.do(http.MethodGet, "/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, code, env.Message)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newApp(t, testConfig())

	for _, path := range []string{"/cart", "/orders/mine", "/me", "/admin/dashboard"} {
		code, env := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, "unauthorized", env.Message, path)
	}
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 1
	a := newApp(t, cfg)

	body := map[string]string{"email": "x@example.com", "password": "irgendwas"}
	code, _ := a.do(http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := a.do(http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "too many requests", env.Message)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "unknown in production", production: true, err: errors.New("pq: boom"), wantStatus: 500, wantMsg: "internal server error"},
		{name: "unknown in development", production: false, err: errors.New("pq: boom"), wantStatus: 500, wantMsg: "pq: boom"},
		{name: "unavailable in production", production: true, err: usecase.NewHTTPError(http.StatusServiceUnavailable, "database unavailable"), wantStatus: 503, wantMsg: "service unavailable"},
		{name: "client error", production: true, err: usecase.NewHTTPError(http.StatusConflict, "idempotency conflict"), wantStatus: 409, wantMsg: "idempotency conflict"},
		{name: "echo error", production: true, err: echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), wantStatus: 405, wantMsg: "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = server.ErrorHandler(tt.production)
			e.GET("/x", func(c echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

type stockOut struct {
	ID       int64           `json:"id"`
	Quantity decimal.Decimal `json:"vorrat"`
}

func (a *app) createStock(token, prefix, name, qty, cost string) stockOut {
	a.t.Helper()
	code, env := a.do(http.MethodPost, prefix, token, map[string]any{
		"bezeichnung":   name,
		"vorrat":        qty,
		"einkaufspreis": cost,
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	return decodeData[stockOut](a.t, env)
}

func assertStock(t *testing.T, want string, env envelope) {
	t.Helper()
	got := decodeData[stockOut](t, env)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Quantity), "want %s, got %s", want, got.Quantity.String())
}

func TestStockEndpointsOverHTTP(t *testing.T) {
	a := newApp(t, testConfig())
	admin := a.login("admin@seifenshop.test", "adminpasswort")

	soap := a.createStock(admin, "/rohseife", "Olivenseife", "1000", "0.012")
	oilA := a.createStock(admin, "/duftoele", "Lavendel", "100", "0.05")
	a.createStock(admin, "/duftoele", "Rose", "100", "0.08")
	box := a.createStock(admin, "/verpackungen", "Karton", "10", "0.30")

	t.Run("rohseife uses menge", func(t *testing.T) {
		path := fmt.Sprintf("/rohseife/%d/vorrat", soap.ID)
		code, env := a.do(http.MethodPut, path, admin, map[string]any{"aktion": "reduzieren", "menge": "300"})
		require.Equal(t, http.StatusOK, code, env.Message)
		assertStock(t, "700", env)

		code, env = a.do(http.MethodPut, path, admin, map[string]any{"aktion": "reduzieren", "tropfen": "300"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "menge required", env.Message)
	})

	t.Run("duftoele uses tropfen", func(t *testing.T) {
		code, env := a.do(http.MethodPut, fmt.Sprintf("/duftoele/%d/vorrat", oilA.ID), admin, map[string]any{"aktion": "erhoehen", "tropfen": "20"})
		require.Equal(t, http.StatusOK, code, env.Message)
		assertStock(t, "120", env)
	})

	t.Run("verpackungen take aktion from path", func(t *testing.T) {
		code, env := a.do(http.MethodPut, "/verpackungen/vorrat/reduzieren", admin, map[string]any{"bezeichnung": "Karton", "anzahl": "3"})
		require.Equal(t, http.StatusOK, code, env.Message)
		assertStock(t, "7", env)

		code, env = a.do(http.MethodPut, "/verpackungen/vorrat/erhoehen", admin, map[string]any{"id": box.ID, "anzahl": "1"})
		require.Equal(t, http.StatusOK, code, env.Message)
		assertStock(t, "8", env)

		code, env = a.do(http.MethodPut, "/verpackungen/vorrat/reduzieren", admin, map[string]any{"bezeichnung": "Karton", "anzahl": "30"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, env.Message, "insufficient stock")

		code, _ = a.do(http.MethodPut, "/verpackungen/vorrat/wegwerfen", admin, map[string]any{"bezeichnung": "Karton", "anzahl": "1"})
		assert.Equal(t, http.StatusBadRequest, code)

		code, env = a.do(http.MethodGet, fmt.Sprintf("/verpackungen/%d", box.ID), "", nil)
		require.Equal(t, http.StatusOK, code)
		assertStock(t, "8", env)
	})

	t.Run("calculate", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/duftoele/calculate", admin, map[string]any{
			"materials": []map[string]any{
				{"bezeichnung": "Lavendel", "amount": "10"},
				{"bezeichnung": "rose", "amount": "5"},
			},
		})
		require.Equal(t, http.StatusOK, code, env.Message)
		out := decodeData[struct {
			Display string `json:"gesamtkosten_anzeige"`
		}](t, env)
		assert.Equal(t, "0.90", out.Display)
	})

	t.Run("overview", func(t *testing.T) {
		code, env := a.do(http.MethodGet, "/duftoele/stats/overview", admin, nil)
		require.Equal(t, http.StatusOK, code, env.Message)
		out := decodeData[struct {
			TotalItems int64 `json:"total_items"`
		}](t, env)
		assert.EqualValues(t, 2, out.TotalItems)
	})

	t.Run("packaging in a recipe cannot be deleted", func(t *testing.T) {
		code, env := a.do(http.MethodPost, "/products", admin, map[string]any{
			"name":         "Olivenseife im Karton",
			"price":        "6.00",
			"weight_grams": 100,
			"recipe": []map[string]any{
				{"stock_item_id": soap.ID, "amount": "100"},
				{"stock_item_id": box.ID, "amount": "1"},
			},
		})
		require.Equal(t, http.StatusCreated, code, env.Message)

		code, env = a.do(http.MethodDelete, fmt.Sprintf("/verpackungen/%d", box.ID), admin, nil)
		assert.Equal(t, http.StatusConflict, code)
		assert.False(t, env.Success)
	})
}
