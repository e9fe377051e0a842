package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/logger"
	repo "tableorder/internal/repository"
)

// 注文番号の採番リトライ回数
const maxOrderNumberAttempts = 5

type OrderUsecase struct {
	tx        repo.TransactionManager
	validator OrderValidator
	sessions  SessionResolver
	rates     RateSource
	payments  PaymentGateway
	clock     Clock
	log       *logger.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	validator OrderValidator,
	sessions SessionResolver,
	rates RateSource,
	payments PaymentGateway,
	clock Clock,
	log *logger.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		validator: validator,
		sessions:  sessions,
		rates:     rates,
		payments:  payments,
		clock:     clock,
		log:       log,
	}
}

type PlaceOrderItem struct {
	MenuID   int64   `json:"menu_id"`
	Quantity int64   `json:"quantity"`
	Notes    string  `json:"notes"`
	AddOnIDs []int64 `json:"add_on_ids"`
}

// POST /orders の入力DTO
type PlaceOrderInput struct {
	SessionToken   string              `json:"session_token"`
	Items          []PlaceOrderItem    `json:"items"`
	Notes          string              `json:"notes"`
	PaymentMethod  model.PaymentMethod `json:"payment_method"`
	Email          string              `json:"email"`
	IdempotencyKey string              `json:"-"`
}

type PlaceOrderOutput struct {
	OrderID            int64               `json:"order_id"`
	OrderNumber        string              `json:"order_number"`
	Status             model.OrderStatus   `json:"status"`
	PaymentStatus      model.PaymentStatus `json:"payment_status"`
	Totals             TotalsOutput        `json:"totals"`
	PaymentRedirectURL string              `json:"payment_redirect_url,omitempty"`
	PaymentError       string              `json:"payment_error,omitempty"`
	// 冪等キーで既存注文を返したとき
	Replayed bool `json:"-"`
}

// 注文の参照権限：客はセッショントークン、スタッフはJWT
type OrderAccess struct {
	SessionToken string
	Staff        bool
}

// PlaceOrder はカートの内容を注文として確定する。
// 在庫は確定時にサーバー側でまとめて確保し、足りない明細はすべて返す。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if err := u.validator.ValidatePlaceOrder(in); err != nil {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := u.sessions.Resolve(ctx, in.SessionToken)
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	rates, err := u.rates.Current(ctx)
	if err != nil {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "rates unavailable")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	now := u.clock.Now()

	var order model.Order
	var replayed bool

	//注文処理はトランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, key)
			if err != nil {
				return dbError()
			}
			if found {
				if existing.SessionToken != sess.Token {
					return newCodedError(http.StatusConflict, CodePreconditionFailed, "idempotency key already used")
				}
				order, replayed = existing, true
				return nil
			}
		}

		//在庫を確定時にまとめて確保（足りない明細は全部集める）
		conflicts, err := reserveStock(ctx, r.Inventory(), aggregateQuantities(in.Items))
		if err != nil {
			return dbError()
		}
		if len(conflicts) > 0 {
			return newStockConflict(conflicts)
		}

		//価格はサーバー側のメニューから
		lines, items, err := priceLines(ctx, r.Menu(), in.Items)
		if err != nil {
			return err
		}
		b := pricing.Calculate(lines, rates)

		order = model.Order{
			TableNumber:         sess.TableNumber,
			SessionToken:        sess.Token,
			Subtotal:            b.Subtotal,
			ServiceChargeRate:   b.ServiceChargeRate,
			ServiceChargeAmount: b.ServiceCharge,
			TaxRate:             b.TaxRate,
			TaxAmount:           b.Tax,
			TotalAmount:         b.Total,
			PaymentMethod:       in.PaymentMethod,
			PaymentStatus:       model.PaymentStatusPending,
			Status:              model.OrderStatusUnpaid,
			Notes:               strings.TrimSpace(in.Notes),
			CustomerEmail:       strings.TrimSpace(in.Email),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		created, err := createWithOrderNumber(ctx, r.Orders(), order, now)
		if errors.Is(err, repo.ErrDuplicate) && key != "" {
			//同時に同じキーが入った
			existing, found, err2 := r.Orders().FindByIdempotencyKey(ctx, key)
			if err2 == nil && found {
				order, replayed = existing, true
				return errReplay
			}
		}
		if err != nil {
			return dbError()
		}
		order = created

		//注文明細一括作成
		if _, err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return dbError()
		}

		actor := Actor{Role: "customer", ID: fmt.Sprintf("table:%d", sess.TableNumber)}
		after := map[string]any{
			"order_number": order.OrderNumber,
			"total":        order.TotalAmount,
			"items":        len(items),
			"method":       order.PaymentMethod,
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionCreateOrder, orderTarget(order.ID), nil, after, now); err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil && !errors.Is(err, errReplay) {
		return PlaceOrderOutput{}, err
	}

	out := PlaceOrderOutput{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Totals:        totalsOf(order),
		Replayed:      replayed,
	}

	//キャッシュレスはコミット後に決済ページを用意する（注文はunpaidのまま）
	if order.PaymentMethod == model.PaymentMethodNonCash && order.PaymentStatus == model.PaymentStatusPending {
		redirect, err := u.payments.Initiate(ctx, order)
		if err != nil {
			u.log.Warn("payment_initiate_failed", logger.RequestIDFrom(ctx), "payment initiation failed",
				slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
			out.PaymentError = "payment initiation failed"
		} else {
			out.PaymentRedirectURL = redirect
		}
	}

	return out, nil
}

// Tx内で既存注文に切り替えたことを知らせる（ロールバックさせる）
var errReplay = errors.New("idempotent replay")

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64, access OrderAccess) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var token string
	if !access.Staff {
		sess, err := u.sessions.Resolve(ctx, access.SessionToken)
		if err != nil {
			return OrderOutput{}, err
		}
		token = sess.Token
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if !access.Staff && o.SessionToken != token {
			//他のテーブルの注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError()
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 同じメニューの行は合算して確保する
func aggregateQuantities(items []PlaceOrderItem) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, it := range items {
		out[it.MenuID] += it.Quantity
	}
	return out
}

// ID順に確保する（同時注文でのデッドロック回避）
func reserveStock(ctx context.Context, inv repo.InventoryRepository, qty map[int64]int64) ([]StockError, error) {
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var conflicts []StockError
	for _, id := range ids {
		ok, available, err := inv.DecreaseStockIfEnough(ctx, id, qty[id])
		if err != nil {
			return nil, err
		}
		if !ok {
			conflicts = append(conflicts, StockError{MenuID: id, Requested: qty[id], Available: available})
		}
	}
	return conflicts, nil
}

func priceLines(ctx context.Context, menu repo.MenuRepository, in []PlaceOrderItem) ([]pricing.Line, []model.OrderItem, error) {
	lines := make([]pricing.Line, 0, len(in))
	items := make([]model.OrderItem, 0, len(in))

	for _, it := range in {
		m, err := menu.FindByID(ctx, it.MenuID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("menu %d not found", it.MenuID))
		}
		if err != nil {
			return nil, nil, dbError()
		}

		ids := uniqueIDs(it.AddOnIDs)
		addOns, err := menu.FindAddOns(ctx, it.MenuID, ids)
		if err != nil {
			return nil, nil, dbError()
		}
		if len(addOns) != len(ids) {
			return nil, nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid add_on for menu %d", it.MenuID))
		}

		line := pricing.Line{UnitPrice: m.Price, Quantity: it.Quantity}
		snaps := make(model.AddOnSnapshots, 0, len(addOns))
		for _, a := range addOns {
			if !a.IsAvailable {
				return nil, nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("add_on %d is not available", a.ID))
			}
			line.AddOns = append(line.AddOns, pricing.AddOn{ID: a.ID, Price: a.Price})
			snaps = append(snaps, model.AddOnSnapshot{ID: a.ID, Name: a.Name, Price: a.Price})
		}

		lines = append(lines, line)
		items = append(items, model.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Category:   m.Category,
			Quantity:   it.Quantity,
			Price:      line.UnitTotal(),
			Subtotal:   line.Amount(),
			AddOns:     snaps,
			Status:     model.ItemStatusPending,
			Notes:      strings.TrimSpace(it.Notes),
		})
	}

	if err := pricing.ValidateLines(lines); err != nil {
		return nil, nil, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return lines, items, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ORD-YYYYMMDD-NNNN。同時採番で衝突したら次の番号で取り直す。
func createWithOrderNumber(ctx context.Context, orders repo.OrderRepository, order model.Order, now time.Time) (model.Order, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		n, err := orders.CountCreatedBetween(ctx, dayStart, dayEnd)
		if err != nil {
			return model.Order{}, err
		}
		order.OrderNumber = FormatOrderNumber(now, n+1+int64(attempt))

		id, err := orders.Create(ctx, order)
		if err == nil {
			order.ID = id
			return order, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return model.Order{}, err
		}
		lastErr = err
		if order.IdempotencyKey != nil {
			if _, found, _ := orders.FindByIdempotencyKey(ctx, *order.IdempotencyKey); found {
				return model.Order{}, err
			}
		}
	}
	return model.Order{}, lastErr
}

func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}
