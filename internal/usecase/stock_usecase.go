package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// 資材在庫（石鹸素地・香料・梱包材）の業務ロジック。
// 種類はパスで決まるので、すべての操作でkindを受け取る。
type StockUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewStockUsecase(tx repo.TransactionManager, clock Clock) *StockUsecase {
	return &StockUsecase{tx: tx, clock: clock}
}

// 在庫を減らす/増やす
type StockAction string

const (
	StockActionReduce   StockAction = "reduzieren"
	StockActionIncrease StockAction = "erhoehen"
)

func ParseStockAction(s string) (StockAction, bool) {
	a := StockAction(strings.ToLower(strings.TrimSpace(s)))
	return a, a == StockActionReduce || a == StockActionIncrease
}

type StockItemOutput struct {
	model.StockItem
	Unit     string          `json:"einheit"`
	Critical bool            `json:"kritisch"`
	Value    decimal.Decimal `json:"lagerwert"`
}

func toStockItemOutput(s model.StockItem) StockItemOutput {
	return StockItemOutput{
		StockItem: s,
		Unit:      s.Kind.Unit(),
		Critical:  s.IsCritical(),
		Value:     s.StockValue().Round(2),
	}
}

type StockListInput struct {
	Q             string
	OnlyAvailable bool
	OnlyCritical  bool
	Page          int
	Limit         int
}

type StockListOutput struct {
	Items []StockItemOutput `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type StockItemInput struct {
	Name             string
	Description      string
	Supplier         string
	Quantity         decimal.Decimal
	UnitCost         decimal.Decimal
	MinimumThreshold decimal.Decimal
	//nilなら利用可
	Available *bool
}

func (in StockItemInput) validate(kind model.MaterialKind) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "bezeichnung required")
	}
	if len(in.Name) > 255 {
		return NewHTTPError(http.StatusBadRequest, "bezeichnung too long")
	}
	if in.Quantity.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "vorrat must be >= 0")
	}
	if in.UnitCost.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "einkaufspreis must be >= 0")
	}
	if in.MinimumThreshold.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "mindestbestand must be >= 0")
	}
	if kind.WholeUnits() {
		if !in.Quantity.Equal(in.Quantity.Truncate(0)) || !in.MinimumThreshold.Equal(in.MinimumThreshold.Truncate(0)) {
			return badRequest("%s is counted in whole pieces", kind)
		}
	}
	return nil
}

// 在庫調整の入力。梱包材はIDかbezeichnungで指定できる
type StockAdjustInput struct {
	ItemID int64
	Name   string
	Action StockAction
	Amount decimal.Decimal
	Reason string
}

func checkKind(kind model.MaterialKind) error {
	if !kind.Valid() {
		return NewHTTPError(http.StatusNotFound, "unknown material kind")
	}
	return nil
}

func (u *StockUsecase) List(ctx context.Context, kind model.MaterialKind, in StockListInput) (StockListOutput, error) {
	if err := checkKind(kind); err != nil {
		return StockListOutput{}, err
	}
	if len(in.Q) > 100 {
		return StockListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 200 {
		in.Limit = 50
	}

	out := StockListOutput{Page: in.Page, Limit: in.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Stock().List(ctx, repo.StockListQuery{
			Kind:          kind,
			Q:             strings.TrimSpace(in.Q),
			OnlyAvailable: in.OnlyAvailable,
			OnlyCritical:  in.OnlyCritical,
			Page:          in.Page,
			Limit:         in.Limit,
		})
		if err != nil {
			return dbError(err, "")
		}
		out.Items = make([]StockItemOutput, 0, len(items))
		for _, it := range items {
			out.Items = append(out.Items, toStockItemOutput(it))
		}
		out.Total = total
		return nil
	})
	if err != nil {
		return StockListOutput{}, err
	}
	return out, nil
}

func (u *StockUsecase) Get(ctx context.Context, kind model.MaterialKind, id int64) (StockItemOutput, error) {
	if err := checkKind(kind); err != nil {
		return StockItemOutput{}, err
	}
	if id <= 0 {
		return StockItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out StockItemOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := findStockItem(ctx, r, kind, id)
		if err != nil {
			return err
		}
		out = toStockItemOutput(item)
		return nil
	})
	if err != nil {
		return StockItemOutput{}, err
	}
	return out, nil
}

func (u *StockUsecase) Create(ctx context.Context, actorID int64, kind model.MaterialKind, in StockItemInput) (StockItemOutput, error) {
	if err := checkKind(kind); err != nil {
		return StockItemOutput{}, err
	}
	if err := in.validate(kind); err != nil {
		return StockItemOutput{}, err
	}

	var out StockItemOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		available := true
		if in.Available != nil {
			available = *in.Available
		}
		item := model.StockItem{
			Kind:             kind,
			Name:             strings.TrimSpace(in.Name),
			Description:      in.Description,
			Supplier:         strings.TrimSpace(in.Supplier),
			Quantity:         in.Quantity,
			UnitCost:         in.UnitCost,
			MinimumThreshold: in.MinimumThreshold,
			Available:        available,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if in.Quantity.IsPositive() {
			item.LastRestockedAt = &now
		}

		created, err := r.Stock().Create(ctx, item)
		if errors.Is(err, repo.ErrConflict) {
			return badRequest("%s already exists: %s", kind, item.Name)
		}
		if err != nil {
			return dbError(err, "")
		}

		//初期在庫も履歴に残す
		if created.Quantity.IsPositive() {
			if err := r.Stock().CreateMovement(ctx, model.StockMovement{
				StockItemID: created.ID,
				Kind:        kind,
				Delta:       created.Quantity,
				Reason:      "initial stock",
				ActorUserID: &actorID,
				CreatedAt:   now,
			}); err != nil {
				return dbError(err, "")
			}
		}

		out = toStockItemOutput(created)
		return writeAudit(ctx, r, actorID, model.AuditActionUpdateMaterial, model.AuditResourceStockItem, created.ID, nil, created, now)
	})
	if err != nil {
		return StockItemOutput{}, err
	}
	return out, nil
}

// マスタ項目だけ更新する。在庫数は AdjustStock でしか変えない
func (u *StockUsecase) Update(ctx context.Context, actorID int64, kind model.MaterialKind, id int64, in StockItemInput) (StockItemOutput, error) {
	if err := checkKind(kind); err != nil {
		return StockItemOutput{}, err
	}
	if id <= 0 {
		return StockItemOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	in.Quantity = decimal.Zero
	if err := in.validate(kind); err != nil {
		return StockItemOutput{}, err
	}

	var out StockItemOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := findStockItem(ctx, r, kind, id)
		if err != nil {
			return err
		}

		next := before
		next.Name = strings.TrimSpace(in.Name)
		next.Description = in.Description
		next.Supplier = strings.TrimSpace(in.Supplier)
		next.UnitCost = in.UnitCost
		next.MinimumThreshold = in.MinimumThreshold
		if in.Available != nil {
			next.Available = *in.Available
		}

		if err := r.Stock().UpdateMaster(ctx, next); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return badRequest("%s already exists: %s", kind, next.Name)
			}
			return dbError(err, "not found")
		}

		after, err := r.Stock().FindByID(ctx, id)
		if err != nil {
			return dbError(err, "not found")
		}
		out = toStockItemOutput(after)
		return writeAudit(ctx, r, actorID, model.AuditActionUpdateMaterial, model.AuditResourceStockItem, id, before, after, u.clock.Now())
	})
	if err != nil {
		return StockItemOutput{}, err
	}
	return out, nil
}

// 梱包材は物理削除、それ以外は利用不可にするだけ
func (u *StockUsecase) Delete(ctx context.Context, actorID int64, kind model.MaterialKind, id int64) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := findStockItem(ctx, r, kind, id)
		if err != nil {
			return err
		}

		var after any
		if kind.HardDelete() {
			uses, err := r.Products().CountRecipeUses(ctx, id)
			if err != nil {
				return dbError(err, "")
			}
			if uses > 0 {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("%s %s is used by %d recipe line(s)", kind, before.Name, uses))
			}
			if err := r.Stock().Delete(ctx, id); err != nil {
				return dbError(err, "not found")
			}
		} else {
			if err := r.Stock().SetAvailable(ctx, id, false); err != nil {
				return dbError(err, "not found")
			}
			next := before
			next.Available = false
			after = next
		}
		return writeAudit(ctx, r, actorID, model.AuditActionUpdateMaterial, model.AuditResourceStockItem, id, before, after, u.clock.Now())
	})
}

// 在庫の手動調整（reduzieren = reserve, erhoehen = restock）
func (u *StockUsecase) AdjustStock(ctx context.Context, actorID int64, kind model.MaterialKind, in StockAdjustInput) (StockItemOutput, error) {
	if err := checkKind(kind); err != nil {
		return StockItemOutput{}, err
	}
	if in.Action != StockActionReduce && in.Action != StockActionIncrease {
		return StockItemOutput{}, NewHTTPError(http.StatusBadRequest, "aktion must be reduzieren or erhoehen")
	}
	if err := validateStockAmount(kind, in.Amount); err != nil {
		return StockItemOutput{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > 255 {
		return StockItemOutput{}, NewHTTPError(http.StatusBadRequest, "grund too long")
	}
	if in.ItemID <= 0 && strings.TrimSpace(in.Name) == "" {
		return StockItemOutput{}, NewHTTPError(http.StatusBadRequest, "id or bezeichnung required")
	}

	var out StockItemOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var item model.StockItem
		var err error
		if in.ItemID > 0 {
			item, err = findStockItem(ctx, r, kind, in.ItemID)
		} else {
			item, err = r.Stock().FindByName(ctx, kind, in.Name)
			if err != nil {
				err = dbError(err, string(kind)+" item not found: "+strings.TrimSpace(in.Name))
			}
		}
		if err != nil {
			return err
		}

		if reason == "" {
			reason = "manual " + string(in.Action)
		}
		now := u.clock.Now()
		change := stockChange{Item: item, Amount: in.Amount, Reason: reason, ActorID: &actorID}

		if in.Action == StockActionReduce {
			err = reserveStock(ctx, r, change, now)
		} else {
			err = restockStock(ctx, r, change, now)
		}
		if err != nil {
			return err
		}

		after, err := r.Stock().FindByID(ctx, item.ID)
		if err != nil {
			return dbError(err, "not found")
		}
		out = toStockItemOutput(after)

		log.Info().
			Int64("stock_item_id", item.ID).
			Str("kind", string(kind)).
			Str("action", string(in.Action)).
			Str("amount", in.Amount.String()).
			Str("quantity", after.Quantity.String()).
			Msg("stock adjusted")

		return writeAudit(ctx, r, actorID, model.AuditActionUpdateStock, model.AuditResourceStockItem, item.ID,
			map[string]any{"vorrat": item.Quantity},
			map[string]any{"vorrat": after.Quantity, "aktion": in.Action, "grund": reason},
			now)
	})
	if err != nil {
		return StockItemOutput{}, err
	}
	return out, nil
}

type CalculationLineInput struct {
	Name   string
	Amount decimal.Decimal
}

type CalculationLine struct {
	Name      string          `json:"bezeichnung"`
	Amount    decimal.Decimal `json:"amount"`
	Unit      string          `json:"einheit"`
	UnitCost  decimal.Decimal `json:"einkaufspreis"`
	Cost      decimal.Decimal `json:"kosten"`
	Available decimal.Decimal `json:"vorrat"`
	//在庫が足りるか（計算自体は失敗させない）
	Sufficient bool   `json:"ausreichend"`
	Found      bool   `json:"gefunden"`
	Message    string `json:"hinweis,omitempty"`
}

type CalculationOutput struct {
	Kind  model.MaterialKind `json:"kind"`
	Lines []CalculationLine  `json:"positionen"`
	//4桁で保持、表示用は2桁
	Total         decimal.Decimal `json:"gesamtkosten"`
	TotalDisplay  string          `json:"gesamtkosten_anzeige"`
	AllSufficient bool            `json:"alle_ausreichend"`
}

// 原価計算。在庫は変えない
func (u *StockUsecase) Calculate(ctx context.Context, kind model.MaterialKind, lines []CalculationLineInput) (CalculationOutput, error) {
	if err := checkKind(kind); err != nil {
		return CalculationOutput{}, err
	}
	if len(lines) == 0 {
		return CalculationOutput{}, NewHTTPError(http.StatusBadRequest, "materials required")
	}
	if len(lines) > 100 {
		return CalculationOutput{}, NewHTTPError(http.StatusBadRequest, "too many materials")
	}
	for _, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			return CalculationOutput{}, NewHTTPError(http.StatusBadRequest, "bezeichnung required")
		}
		if !l.Amount.IsPositive() {
			return CalculationOutput{}, badRequest("amount for %s must be > 0", strings.TrimSpace(l.Name))
		}
	}

	var out CalculationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		out = CalculationOutput{Kind: kind, Lines: make([]CalculationLine, 0, len(lines)), AllSufficient: true}
		total := decimal.Zero

		for _, l := range lines {
			line := CalculationLine{
				Name:   strings.TrimSpace(l.Name),
				Amount: l.Amount,
				Unit:   kind.Unit(),
			}
			item, err := r.Stock().FindByName(ctx, kind, l.Name)
			if errors.Is(err, repo.ErrNotFound) {
				line.Message = "unknown material"
				line.Cost = decimal.Zero
				out.AllSufficient = false
				out.Lines = append(out.Lines, line)
				continue
			}
			if err != nil {
				return dbError(err, "")
			}

			line.Found = true
			line.Name = item.Name
			line.UnitCost = item.UnitCost
			line.Available = item.Quantity
			line.Cost = l.Amount.Mul(item.UnitCost).Round(4)
			line.Sufficient = item.Available && item.Quantity.GreaterThanOrEqual(l.Amount)
			if !line.Sufficient {
				out.AllSufficient = false
				if !item.Available {
					line.Message = "material not available"
				} else {
					line.Message = "insufficient stock"
				}
			}
			total = total.Add(line.Cost)
			out.Lines = append(out.Lines, line)
		}

		out.Total = total.Round(4)
		out.TotalDisplay = total.StringFixed(2)
		return nil
	})
	if err != nil {
		return CalculationOutput{}, err
	}
	return out, nil
}

// 件数・要補充リスト・在庫金額（読むたびに集計）
func (u *StockUsecase) Overview(ctx context.Context, kind model.MaterialKind) (repo.StockOverview, error) {
	if err := checkKind(kind); err != nil {
		return repo.StockOverview{}, err
	}
	var out repo.StockOverview
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Stock().Overview(ctx, kind)
		if err != nil {
			return dbError(err, "")
		}
		out = o
		return nil
	})
	if err != nil {
		return repo.StockOverview{}, err
	}
	return out, nil
}

type MovementListOutput struct {
	Items []model.StockMovement `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (u *StockUsecase) Movements(ctx context.Context, kind model.MaterialKind, id int64, page int, limit int) (MovementListOutput, error) {
	if err := checkKind(kind); err != nil {
		return MovementListOutput{}, err
	}
	if id <= 0 {
		return MovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	out := MovementListOutput{Page: page, Limit: limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := findStockItem(ctx, r, kind, id); err != nil {
			return err
		}
		items, total, err := r.Stock().ListMovements(ctx, id, limit, (page-1)*limit)
		if err != nil {
			return dbError(err, "")
		}
		out.Items = items
		out.Total = total
		return nil
	})
	if err != nil {
		return MovementListOutput{}, err
	}
	return out, nil
}

// 別の種類のIDは404にする
func findStockItem(ctx context.Context, r repo.TxRepos, kind model.MaterialKind, id int64) (model.StockItem, error) {
	item, err := r.Stock().FindByID(ctx, id)
	if err != nil {
		return model.StockItem{}, dbError(err, "stock item not found")
	}
	if item.Kind != kind {
		return model.StockItem{}, NewHTTPError(http.StatusNotFound, "stock item not found")
	}
	return item, nil
}
