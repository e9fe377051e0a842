// Package stationsync はステーション・会計画面の注文表示をポーリングでサーバに合わせる。
// 自分の操作はサーバの返答まで先に反映しておく。
package stationsync

import (
	"context"
	"errors"
	"fmt"

	"tableorder/internal/client"
	"tableorder/internal/domain/model"
	"tableorder/internal/usecase"
)

// 画面が同期層に求めるもの。プッシュ型に差し替えるときもこの形のまま
type Synchronizer interface {
	Run(ctx context.Context) error
	View() []usecase.OrderOutput
	Submit(m Mutation) <-chan error
}

type MutationKind string

const (
	ToggleItem      MutationKind = "toggle_item"
	ValidatePayment MutationKind = "validate_payment"
	Complete        MutationKind = "complete"
)

// 1注文への1操作
type Mutation struct {
	Kind    MutationKind
	OrderID int64
	ItemID  int64            // ToggleItem のみ
	Status  model.ItemStatus // ToggleItem のみ
}

func (m Mutation) String() string {
	if m.Kind == ToggleItem {
		return fmt.Sprintf("%s order=%d item=%d status=%s", m.Kind, m.OrderID, m.ItemID, m.Status)
	}
	return fmt.Sprintf("%s order=%d", m.Kind, m.OrderID)
}

var (
	ErrUnknownOrder = errors.New("order is not in the current view")
	ErrUnknownItem  = errors.New("item is not in the current view")
	ErrQueueFull    = errors.New("too many pending mutations")
	ErrClosed       = errors.New("synchronizer is closed")
)

// サーバが拒否したかタイムアウトしたとき。手元の表示は巻き戻し済み
type MutationError struct {
	Mutation Mutation
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Mutation, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// 1画面分の正とする一覧を返す
type FetchFunc func(ctx context.Context) ([]usecase.OrderOutput, error)

// 操作をサーバに送る。*client.Client が満たす
type Mutator interface {
	SetItemStatus(ctx context.Context, orderID, itemID int64, status model.ItemStatus) (usecase.ItemStatusOutput, error)
	ValidatePayment(ctx context.Context, orderID int64) (usecase.OrderOutput, error)
	CompleteOrder(ctx context.Context, orderID int64) (usecase.OrderOutput, error)
}

// GET /stations/:type/orders
func StationFeed(c *client.Client, station model.Station, status string) FetchFunc {
	return func(ctx context.Context) ([]usecase.OrderOutput, error) {
		return c.ListStationOrders(ctx, station, status)
	}
}

// GET /cashier/orders
func CashierFeed(c *client.Client, status string) FetchFunc {
	return func(ctx context.Context) ([]usecase.OrderOutput, error) {
		return c.ListCashierOrders(ctx, status)
	}
}

// m をサーバで実行し、サーバから見た注文を返す
func send(ctx context.Context, api Mutator, m Mutation) (usecase.OrderOutput, error) {
	switch m.Kind {
	case ToggleItem:
		out, err := api.SetItemStatus(ctx, m.OrderID, m.ItemID, m.Status)
		if err != nil {
			return usecase.OrderOutput{}, err
		}
		return out.Order, nil
	case ValidatePayment:
		return api.ValidatePayment(ctx, m.OrderID)
	case Complete:
		return api.CompleteOrder(ctx, m.OrderID)
	default:
		return usecase.OrderOutput{}, fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
}
