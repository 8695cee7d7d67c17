package handler

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 資材の種類ごとのパス
var stockRoutes = []struct {
	prefix string
	kind   model.MaterialKind
}{
	{"/rohseife", model.KindRawSoap},
	{"/duftoele", model.KindFragranceOil},
	{"/verpackungen", model.KindPackaging},
}

// 資材（石鹸素地・香料・梱包材）の在庫API
type StockHandler struct {
	uc *usecase.StockUsecase
}

func NewStockHandler(uc *usecase.StockUsecase) *StockHandler {
	return &StockHandler{uc: uc}
}

type StockItemRequest struct {
	Name             string          `json:"bezeichnung"`
	Description      string          `json:"beschreibung"`
	Supplier         string          `json:"lieferant"`
	Quantity         decimal.Decimal `json:"vorrat"`
	UnitCost         decimal.Decimal `json:"einkaufspreis"`
	MinimumThreshold decimal.Decimal `json:"mindestbestand"`
	Available        *bool           `json:"verfuegbar"`
}

// 数量のキーは種類ごとに違う（menge / tropfen / anzahl）
type StockAdjustRequest struct {
	Action  string           `json:"aktion"`
	Menge   *decimal.Decimal `json:"menge"`
	Tropfen *decimal.Decimal `json:"tropfen"`
	Anzahl  *decimal.Decimal `json:"anzahl"`
	Reason  string           `json:"grund"`
	//梱包材はIDか名前で指定できる
	ID   int64  `json:"id"`
	Name string `json:"bezeichnung"`
}

func (r StockAdjustRequest) amount(kind model.MaterialKind) (decimal.Decimal, bool) {
	var v *decimal.Decimal
	switch kind {
	case model.KindRawSoap:
		v = r.Menge
	case model.KindFragranceOil:
		v = r.Tropfen
	case model.KindPackaging:
		v = r.Anzahl
	}
	if v == nil {
		return decimal.Zero, false
	}
	return *v, true
}

func amountKey(kind model.MaterialKind) string {
	switch kind {
	case model.KindRawSoap:
		return "menge"
	case model.KindFragranceOil:
		return "tropfen"
	}
	return "anzahl"
}

type CalculationRequest struct {
	Materials []struct {
		Name   string          `json:"bezeichnung"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"materials"`
}

func (h *StockHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository) {
	admin := adminOnly(cfg, customers)

	for _, r := range stockRoutes {
		kind := r.kind
		g := e.Group(r.prefix)

		g.GET("", h.list(kind))
		g.GET("/:id", h.detail(kind))

		g.POST("", h.create(kind), admin...)
		g.PUT("/:id", h.update(kind), admin...)
		g.DELETE("/:id", h.delete(kind), admin...)
		g.POST("/calculate", h.calculate(kind), admin...)
		g.GET("/stats/overview", h.overview(kind), admin...)
		g.GET("/:id/bewegungen", h.movements(kind), admin...)

		if kind == model.KindPackaging {
			g.PUT("/vorrat/:aktion", h.adjust(kind), admin...)
		} else {
			g.PUT("/:id/vorrat", h.adjust(kind), admin...)
		}
	}
}

func (h *StockHandler) list(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, limit, valid := parsePaging(c)
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid page or limit")
		}

		out, err := h.uc.List(c.Request().Context(), kind, usecase.StockListInput{
			Q:             c.QueryParam("q"),
			OnlyAvailable: c.QueryParam("verfuegbar") == "true",
			OnlyCritical:  c.QueryParam("kritisch") == "true",
			Page:          page,
			Limit:         limit,
		})
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

func (h *StockHandler) detail(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, valid := parseIDParam(c, "id")
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid id")
		}

		out, err := h.uc.Get(c.Request().Context(), kind, id)
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

func (r StockItemRequest) toInput() usecase.StockItemInput {
	return usecase.StockItemInput{
		Name:             r.Name,
		Description:      r.Description,
		Supplier:         r.Supplier,
		Quantity:         r.Quantity,
		UnitCost:         r.UnitCost,
		MinimumThreshold: r.MinimumThreshold,
		Available:        r.Available,
	}
}

func (h *StockHandler) create(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		adminID, valid := getUserIDFromContext(c)
		if !valid {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}

		var req StockItemRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}

		out, err := h.uc.Create(c.Request().Context(), adminID, kind, req.toInput())
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusCreated, out)
	}
}

// 在庫数は変更しない（/vorrat を使う）
func (h *StockHandler) update(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		adminID, valid := getUserIDFromContext(c)
		if !valid {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}
		id, valid := parseIDParam(c, "id")
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid id")
		}

		var req StockItemRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}

		out, err := h.uc.Update(c.Request().Context(), adminID, kind, id, req.toInput())
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

func (h *StockHandler) delete(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		adminID, valid := getUserIDFromContext(c)
		if !valid {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}
		id, valid := parseIDParam(c, "id")
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid id")
		}

		if err := h.uc.Delete(c.Request().Context(), adminID, kind, id); err != nil {
			return writeError(c, err)
		}
		return okMessage(c, "deleted")
	}
}

func (h *StockHandler) adjust(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		adminID, valid := getUserIDFromContext(c)
		if !valid {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}

		var req StockAdjustRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}

		in := usecase.StockAdjustInput{Reason: req.Reason}

		rawAction := req.Action
		if kind == model.KindPackaging {
			//梱包材はパスでaktionを受ける
			rawAction = c.Param("aktion")
			in.ItemID = req.ID
			in.Name = req.Name
		} else {
			id, valid := parseIDParam(c, "id")
			if !valid {
				return fail(c, http.StatusBadRequest, "invalid id")
			}
			in.ItemID = id
		}

		action, valid := usecase.ParseStockAction(rawAction)
		if !valid {
			return fail(c, http.StatusBadRequest, "aktion must be reduzieren or erhoehen")
		}
		in.Action = action

		amount, valid := req.amount(kind)
		if !valid {
			return fail(c, http.StatusBadRequest, amountKey(kind)+" required")
		}
		in.Amount = amount

		out, err := h.uc.AdjustStock(c.Request().Context(), adminID, kind, in)
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

// 原価計算（在庫は変えない）
func (h *StockHandler) calculate(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req CalculationRequest
		if err := c.Bind(&req); err != nil {
			return fail(c, http.StatusBadRequest, "invalid body")
		}

		lines := make([]usecase.CalculationLineInput, 0, len(req.Materials))
		for _, m := range req.Materials {
			lines = append(lines, usecase.CalculationLineInput{Name: m.Name, Amount: m.Amount})
		}

		out, err := h.uc.Calculate(c.Request().Context(), kind, lines)
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

func (h *StockHandler) overview(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := h.uc.Overview(c.Request().Context(), kind)
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}

func (h *StockHandler) movements(kind model.MaterialKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, valid := parseIDParam(c, "id")
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid id")
		}
		page, limit, valid := parsePaging(c)
		if !valid {
			return fail(c, http.StatusBadRequest, "invalid page or limit")
		}

		out, err := h.uc.Movements(c.Request().Context(), kind, id, page, limit)
		if err != nil {
			return writeError(c, err)
		}
		return ok(c, http.StatusOK, out)
	}
}
