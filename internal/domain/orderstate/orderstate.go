// Package orderstate は注文ステータスの導出と遷移ガードをまとめる。
// 注文ステータスは明細と支払いから毎回計算し、単独では保持しない（completed以外）。
package orderstate

import (
	"errors"
	"fmt"

	"tableorder/internal/domain/model"
)

type Kind string

const (
	KindPreconditionFailed Kind = "precondition_failed"
	KindStaleWrite         Kind = "stale_write"
	KindForbidden          Kind = "forbidden"
)

// 遷移が拒否された理由。業務上の条件なのでpanicはしない。
type GuardError struct {
	Kind   Kind
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func guard(kind Kind, format string, args ...any) error {
	return &GuardError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func AsGuardError(err error) (*GuardError, bool) {
	var ge *GuardError
	ok := errors.As(err, &ge)
	return ge, ok
}

func IsKind(err error, kind Kind) bool {
	ge, ok := AsGuardError(err)
	return ok && ge.Kind == kind
}

// Derive は支払いと明細ステータスから注文ステータスを求める純粋関数。
// readyになるのは支払い済みかつ明細がすべてDoneのときだけ。
func Derive(payment model.PaymentStatus, items []model.ItemStatus) model.OrderStatus {
	switch payment {
	case model.PaymentStatusFailed:
		return model.OrderStatusFailed
	case model.PaymentStatusPaid:
	default:
		return model.OrderStatusUnpaid
	}

	if len(items) == 0 {
		return model.OrderStatusPending
	}
	for _, s := range items {
		if s != model.ItemStatusDone {
			return model.OrderStatusPending
		}
	}
	return model.OrderStatusReady
}

// Resolve は保存済みの注文に対する現在のステータス。completedだけは確定値として残る。
func Resolve(o model.Order, items []model.OrderItem) model.OrderStatus {
	if o.Status == model.OrderStatusCompleted {
		return model.OrderStatusCompleted
	}
	return Derive(o.PaymentStatus, ItemStatuses(items))
}

func ItemStatuses(items []model.OrderItem) []model.ItemStatus {
	out := make([]model.ItemStatus, 0, len(items))
	for _, it := range items {
		out = append(out, it.Status)
	}
	return out
}

// CanToggleItem はステーションによる明細ステータス変更のガード。
// 担当外の区分は注文の状態に関係なく拒否する。
func CanToggleItem(station model.Station, o model.Order, items []model.OrderItem, item model.OrderItem, to model.ItemStatus) error {
	if !station.Owns(item.Category) {
		return guard(KindForbidden, "station %s does not own category %s", station, item.Category)
	}
	if item.OrderID != o.ID {
		return guard(KindStaleWrite, "item %d does not belong to order %d", item.ID, o.ID)
	}
	if !to.Valid() {
		return guard(KindPreconditionFailed, "invalid item status %q", to)
	}

	switch current := Resolve(o, items); current {
	case model.OrderStatusPending, model.OrderStatusReady:
		return nil
	case model.OrderStatusCompleted:
		return guard(KindStaleWrite, "order %d is already completed", o.ID)
	default:
		return guard(KindPreconditionFailed, "order %d is %s, items can only change while pending", o.ID, current)
	}
}

// CanValidatePayment は現金支払いの確認（Pending→Paid）のガード。
func CanValidatePayment(o model.Order, items []model.OrderItem) error {
	if Resolve(o, items) == model.OrderStatusCompleted {
		return guard(KindStaleWrite, "order %d is already completed", o.ID)
	}
	if o.PaymentMethod != model.PaymentMethodCash {
		return guard(KindPreconditionFailed, "order %d is paid through the payment processor", o.ID)
	}
	if o.PaymentStatus != model.PaymentStatusPending {
		return guard(KindPreconditionFailed, "payment of order %d is already %s", o.ID, o.PaymentStatus)
	}
	return nil
}

// CanComplete は ready かつ Paid のときだけ通す。
func CanComplete(o model.Order, items []model.OrderItem) error {
	current := Resolve(o, items)
	if o.PaymentStatus != model.PaymentStatusPaid {
		return guard(KindPreconditionFailed, "order %d payment is %s", o.ID, o.PaymentStatus)
	}
	if current != model.OrderStatusReady {
		return guard(KindPreconditionFailed, "order %d is %s, not ready", o.ID, current)
	}
	return nil
}

// CanApplyPaymentResult は決済事業者からの結果反映のガード（前進のみ）。
func CanApplyPaymentResult(o model.Order, to model.PaymentStatus) error {
	if to != model.PaymentStatusPaid && to != model.PaymentStatusFailed {
		return guard(KindPreconditionFailed, "invalid payment result %q", to)
	}
	if o.Status == model.OrderStatusCompleted {
		return guard(KindStaleWrite, "order %d is already completed", o.ID)
	}
	if o.PaymentStatus != model.PaymentStatusPending {
		return guard(KindPreconditionFailed, "payment of order %d is already %s", o.ID, o.PaymentStatus)
	}
	return nil
}

// CanReopenPayment は管理者による支払いの差し戻し。
func CanReopenPayment(o model.Order) error {
	if o.Status == model.OrderStatusCompleted {
		return guard(KindPreconditionFailed, "order %d is already completed", o.ID)
	}
	if o.PaymentStatus == model.PaymentStatusPending {
		return guard(KindPreconditionFailed, "payment of order %d is already Pending", o.ID)
	}
	return nil
}
