package usecase

import (
	"context"
	"errors"
	"net/http"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	repo "tableorder/internal/repository"
)

// PaymentUsecase は決済事業者からの結果を注文に反映する。
type PaymentUsecase struct {
	tx      repo.TransactionManager
	gateway PaymentGateway
	clock   Clock
}

func NewPaymentUsecase(tx repo.TransactionManager, gateway PaymentGateway, clock Clock) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, gateway: gateway, clock: clock}
}

var gatewayActor = Actor{Role: "gateway", ID: "payment"}

// ApplyCallback は署名を確かめてから支払い結果を反映する。
// 同じ結果の再送は何もしない。失敗なら確保した在庫を戻す。
func (u *PaymentUsecase) ApplyCallback(ctx context.Context, body []byte, signature string) (OrderOutput, error) {
	cb, err := u.gateway.ParseCallback(body, signature)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid payment callback")
	}

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := loadForUpdate(ctx, r, cb.OrderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == cb.Status {
			out = toOrderOutput(o, items)
			return nil
		}
		if err := orderstate.CanApplyPaymentResult(o, cb.Status); err != nil {
			return fromGuard(err)
		}

		before := snapshotOf(o)
		now := u.clock.Now()
		o.PaymentStatus = cb.Status
		if cb.Status == model.PaymentStatusPaid {
			o.PaidAt = &now
		} else {
			for menuID, qty := range itemQuantities(items) {
				if err := r.Inventory().IncreaseStock(ctx, menuID, qty); err != nil && !errors.Is(err, repo.ErrNotFound) {
					return dbError()
				}
			}
		}
		o.Status = orderstate.Resolve(o, items)

		if err := r.Orders().UpdateState(ctx, o); err != nil {
			return dbError()
		}
		if err := writeAudit(ctx, r.AuditLogs(), gatewayActor, model.AuditActionApplyPaymentResult, orderTarget(o.ID), before, snapshotOf(o), now); err != nil {
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

func itemQuantities(items []model.OrderItem) map[int64]int64 {
	out := make(map[int64]int64, len(items))
	for _, it := range items {
		out[it.MenuItemID] += it.Quantity
	}
	return out
}
