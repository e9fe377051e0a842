package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	repo "tableorder/internal/repository"
)

type StationUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewStationUsecase(tx repo.TransactionManager, clock Clock) *StationUsecase {
	return &StationUsecase{tx: tx, clock: clock}
}

type SetItemStatusInput struct {
	Status model.ItemStatus `json:"status"`
}

// 明細更新の結果。Order は担当区分の明細だけを載せた最新の注文。
type ItemStatusOutput struct {
	Item        OrderItemOutput   `json:"item"`
	OrderStatus model.OrderStatus `json:"order_status"`
	Order       OrderOutput       `json:"order"`
}

// Tx内で注文を行ロックし、明細と一緒に読む
func loadForUpdate(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, []model.OrderItem, error) {
	if orderID <= 0 {
		return model.Order{}, nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, nil, dbError()
	}
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return model.Order{}, nil, dbError()
	}
	return o, items, nil
}

// SetItemStatus はステーションが自分の区分の明細を Pending⇄Done に切り替える。
// 注文ステータスは更新後の明細から導出し直す（ready→pending への戻りもここで起きる）。
func (u *StationUsecase) SetItemStatus(ctx context.Context, actor Actor, station model.Station, orderID, itemID int64, in SetItemStatusInput) (ItemStatusOutput, error) {
	category, ok := station.Category()
	if !ok {
		return ItemStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid station")
	}
	if !in.Status.Valid() {
		return ItemStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out ItemStatusOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, items, err := loadForUpdate(ctx, r, orderID)
		if err != nil {
			return err
		}

		idx := -1
		for i, it := range items {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return NewHTTPError(http.StatusNotFound, "item not found")
		}

		if err := orderstate.CanToggleItem(station, o, items, items[idx], in.Status); err != nil {
			return fromGuard(err)
		}

		// 同じ値なら何もしない
		if items[idx].Status != in.Status {
			before := items[idx].Status
			if err := r.OrderItems().UpdateStatus(ctx, itemID, in.Status); err != nil {
				return dbError()
			}
			items[idx].Status = in.Status

			beforeOrder := snapshotOf(o)
			o.Status = orderstate.Resolve(o, items)
			if o.Status != beforeOrder.Status {
				if err := r.Orders().UpdateState(ctx, o); err != nil {
					return dbError()
				}
			}

			after := map[string]any{"status": in.Status, "order_status": o.Status}
			if err := writeAudit(ctx, r.AuditLogs(), actor, model.AuditActionUpdateItemStatus, itemTarget(orderID, itemID),
				map[string]any{"status": before, "order_status": beforeOrder.Status}, after, u.clock.Now()); err != nil {
				return dbError()
			}
		}

		out = ItemStatusOutput{
			Item:        toItemOutput(items[idx]),
			OrderStatus: orderstate.Resolve(o, items),
			Order:       toStationOrderOutput(o, items, category),
		}
		return nil
	})
	if err != nil {
		return ItemStatusOutput{}, err
	}
	return out, nil
}

// ステーション一覧で指定できるステータス
func stationStatuses(s string) ([]model.OrderStatus, bool) {
	switch strings.TrimSpace(s) {
	case "", string(model.OrderStatusPending):
		return []model.OrderStatus{model.OrderStatusPending}, true
	case string(model.OrderStatusReady):
		return []model.OrderStatus{model.OrderStatusReady}, true
	case "active":
		return []model.OrderStatus{model.OrderStatusPending, model.OrderStatusReady}, true
	}
	return nil, false
}

// ListOrders は担当区分の明細を持つ支払い済み注文を、担当明細だけにして返す。
func (u *StationUsecase) ListOrders(ctx context.Context, station model.Station, status string) ([]OrderOutput, error) {
	category, ok := station.Category()
	if !ok {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid station")
	}
	statuses, ok := stationStatuses(status)
	if !ok {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().List(ctx, repo.OrderListFilter{Statuses: statuses, Category: &category})
		if err != nil {
			return dbError()
		}
		grouped, err := r.OrderItems().ListByOrderIDs(ctx, orderIDs(orders))
		if err != nil {
			return dbError()
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			out := toStationOrderOutput(o, grouped[o.ID], category)
			if len(out.Items) == 0 {
				continue
			}
			outs = append(outs, out)
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func orderIDs(orders []model.Order) []int64 {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
