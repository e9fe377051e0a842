package orderstate

import (
	"testing"

	"tableorder/internal/domain/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func statuses(done []bool) []model.ItemStatus {
	out := make([]model.ItemStatus, 0, len(done))
	for _, d := range done {
		if d {
			out = append(out, model.ItemStatusDone)
		} else {
			out = append(out, model.ItemStatusPending)
		}
	}
	return out
}

func TestDeriveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("paid order is ready iff every item is Done", prop.ForAll(
		func(done []bool) bool {
			all := len(done) > 0
			for _, d := range done {
				all = all && d
			}
			got := Derive(model.PaymentStatusPaid, statuses(done))
			return (got == model.OrderStatusReady) == all
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("flipping any item back to Pending demotes a ready order", prop.ForAll(
		func(n int, idx int) bool {
			done := make([]bool, n)
			for i := range done {
				done[i] = true
			}
			if Derive(model.PaymentStatusPaid, statuses(done)) != model.OrderStatusReady {
				return false
			}
			done[idx%n] = false
			return Derive(model.PaymentStatusPaid, statuses(done)) == model.OrderStatusPending
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.Property("complete succeeds only for ready and Paid", prop.ForAll(
		func(done []bool, paymentIdx int, stored int) bool {
			payments := []model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusFailed}
			storedStatuses := []model.OrderStatus{
				model.OrderStatusUnpaid, model.OrderStatusPending, model.OrderStatusReady,
				model.OrderStatusCompleted, model.OrderStatusFailed,
			}
			o := model.Order{ID: 1, PaymentStatus: payments[paymentIdx], Status: storedStatuses[stored]}
			items := make([]model.OrderItem, 0, len(done))
			for i, st := range statuses(done) {
				items = append(items, model.OrderItem{ID: int64(i + 1), OrderID: 1, Status: st})
			}

			err := CanComplete(o, items)
			ok := Resolve(o, items) == model.OrderStatusReady && o.PaymentStatus == model.PaymentStatusPaid
			if ok {
				return err == nil
			}
			return IsKind(err, KindPreconditionFailed)
		},
		gen.SliceOf(gen.Bool()),
		gen.IntRange(0, 2),
		gen.IntRange(0, 4),
	))

	properties.Property("a station never changes another category's item", prop.ForAll(
		func(stationIdx, catIdx, storedIdx int) bool {
			stations := []model.Station{model.StationKitchen, model.StationBar, model.StationPastry}
			cats := []model.Category{model.CategoryFood, model.CategoryDrink, model.CategoryPastry}
			storedStatuses := []model.OrderStatus{
				model.OrderStatusUnpaid, model.OrderStatusPending, model.OrderStatusReady,
				model.OrderStatusCompleted, model.OrderStatusFailed,
			}
			st := stations[stationIdx]
			it := model.OrderItem{ID: 1, OrderID: 1, Category: cats[catIdx], Status: model.ItemStatusPending}
			o := model.Order{ID: 1, PaymentStatus: model.PaymentStatusPaid, Status: storedStatuses[storedIdx]}

			err := CanToggleItem(st, o, []model.OrderItem{it}, it, model.ItemStatusDone)
			if st.Owns(it.Category) {
				return !IsKind(err, KindForbidden)
			}
			return IsKind(err, KindForbidden)
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, 2),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
