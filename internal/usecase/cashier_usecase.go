package usecase

import (
	"context"
	"net/http"
	"strings"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	repo "tableorder/internal/repository"
)

// CashierUsecase はレジ：現金支払いの確認と受け渡し完了。
type CashierUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewCashierUsecase(tx repo.TransactionManager, clock Clock) *CashierUsecase {
	return &CashierUsecase{tx: tx, clock: clock}
}

func cashierStatuses(s string) ([]model.OrderStatus, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "active" {
		return []model.OrderStatus{model.OrderStatusUnpaid, model.OrderStatusPending, model.OrderStatusReady}, true
	}
	st := model.OrderStatus(s)
	if !st.Valid() {
		return nil, false
	}
	return []model.OrderStatus{st}, true
}

// 注文一覧（全区分の明細つき）
func (u *CashierUsecase) List(ctx context.Context, status string) ([]OrderOutput, error) {
	statuses, ok := cashierStatuses(status)
	if !ok {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().List(ctx, repo.OrderListFilter{Statuses: statuses})
		if err != nil {
			return dbError()
		}
		grouped, err := r.OrderItems().ListByOrderIDs(ctx, orderIDs(orders))
		if err != nil {
			return dbError()
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, toOrderOutput(o, grouped[o.ID]))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ValidatePayment は現金の受け取りを確認する（Pending→Paid）。
func (u *CashierUsecase) ValidatePayment(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := loadForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := orderstate.CanValidatePayment(o, items); err != nil {
			return fromGuard(err)
		}

		before := snapshotOf(o)
		now := u.clock.Now()
		o.PaymentStatus = model.PaymentStatusPaid
		o.PaidAt = &now
		o.Status = orderstate.Resolve(o, items)

		if err := r.Orders().UpdateState(ctx, o); err != nil {
			return dbError()
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionValidatePayment, orderTarget(o.ID), before, snapshotOf(o), now); err != nil {
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

// Complete は受け渡し完了。ready かつ Paid のときだけ。
func (u *CashierUsecase) Complete(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := loadForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := orderstate.CanComplete(o, items); err != nil {
			return fromGuard(err)
		}

		before := snapshotOf(o)
		now := u.clock.Now()
		o.Status = model.OrderStatusCompleted
		o.CompletedAt = &now

		if err := r.Orders().UpdateState(ctx, o); err != nil {
			return dbError()
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionCompleteOrder, orderTarget(o.ID), before, snapshotOf(o), now); err != nil {
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
