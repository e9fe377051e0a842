package usecase

import (
	"context"
	"net/http"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	repo "tableorder/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

// ReopenPayment は Paid/Failed の支払いを Pending に戻す（管理者のみ）。
// Failed からの差し戻しは在庫を確保し直す。足りなければ在庫不足として返す。
func (u *AdminOrderUsecase) ReopenPayment(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := loadForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := orderstate.CanReopenPayment(o); err != nil {
			return fromGuard(err)
		}

		if o.PaymentStatus == model.PaymentStatusFailed {
			conflicts, err := reserveStock(ctx, r.Inventory(), itemQuantities(items))
			if err != nil {
				return dbError()
			}
			if len(conflicts) > 0 {
				return newStockConflict(conflicts)
			}
		}

		before := snapshotOf(o)
		now := u.clock.Now()
		o.PaymentStatus = model.PaymentStatusPending
		o.PaidAt = nil
		o.Status = orderstate.Resolve(o, items)

		if err := r.Orders().UpdateState(ctx, o); err != nil {
			return dbError()
		}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionReopenPayment, orderTarget(o.ID), before, snapshotOf(o), now); err != nil {
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

type ArchiveOutput struct {
	Archived int64     `json:"archived"`
	Before   time.Time `json:"before"`
}

// 完了・失敗した注文のうち before より古いものを論理削除する
func (u *AdminOrderUsecase) ArchiveBefore(ctx context.Context, actor Actor, before time.Time) (ArchiveOutput, error) {
	now := u.clock.Now()
	if before.IsZero() || before.After(now) {
		return ArchiveOutput{}, NewHTTPError(http.StatusBadRequest, "before must be in the past")
	}

	var n int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		n, err = r.Orders().ArchiveBefore(ctx, before)
		if err != nil {
			return dbError()
		}
		after := map[string]any{"archived": n, "before": before}
		if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionArchiveOrders, auditTarget{Type: model.AuditResourceOrder}, nil, after, now); err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		return ArchiveOutput{}, err
	}
	return ArchiveOutput{Archived: n, Before: before}, nil
}
