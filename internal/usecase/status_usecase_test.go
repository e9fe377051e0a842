package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setItem(t *testing.T, env *testEnv, actor usecase.Actor, st model.Station, orderID, itemID int64, s model.ItemStatus) (usecase.ItemStatusOutput, error) {
	t.Helper()
	return env.station.SetItemStatus(context.Background(), actor, st, orderID, itemID, usecase.SetItemStatusInput{Status: s})
}

func TestOrderLifecycle_ReadyRegressionAndComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.placeCash(t)
	ids := env.itemsOf(t, order.OrderID)

	// 未払いの間はステーションは触れない
	_, err := setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusDone)
	assertHTTPError(t, err, http.StatusConflict, usecase.CodePreconditionFailed)

	paid, err := env.cashier.ValidatePayment(ctx, cashierActor, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	out, err := setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusDone)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.OrderStatus)
	// ステーションには自分の区分だけ
	require.Len(t, out.Order.Items, 1)
	assert.Equal(t, model.CategoryFood, out.Order.Items[0].Category)

	out, err = setItem(t, env, barActor, model.StationBar, order.OrderID, ids[model.CategoryDrink], model.ItemStatusDone)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReady, out.OrderStatus)

	// 取り消すと pending に戻る
	out, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusPending)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.OrderStatus)

	_, err = env.cashier.Complete(ctx, cashierActor, order.OrderID)
	assertHTTPError(t, err, http.StatusConflict, usecase.CodePreconditionFailed)

	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusDone)
	require.NoError(t, err)

	done, err := env.cashier.Complete(ctx, cashierActor, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	// 完了後の更新は古い画面からの書き込み
	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusPending)
	assertHTTPError(t, err, http.StatusConflict, usecase.CodeStaleWrite)
}

func TestSetItemStatus_OtherStationForbidden(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeCash(t)
	ids := env.itemsOf(t, order.OrderID)
	_, err := env.cashier.ValidatePayment(context.Background(), cashierActor, order.OrderID)
	require.NoError(t, err)

	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryDrink], model.ItemStatusDone)
	assertHTTPError(t, err, http.StatusForbidden, usecase.CodeForbidden)

	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, 999, model.ItemStatusDone)
	assertHTTPError(t, err, http.StatusNotFound, "")
}

func TestValidatePayment_Twice(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeCash(t)

	_, err := env.cashier.ValidatePayment(context.Background(), cashierActor, order.OrderID)
	require.NoError(t, err)
	_, err = env.cashier.ValidatePayment(context.Background(), cashierActor, order.OrderID)
	assertHTTPError(t, err, http.StatusConflict, usecase.CodePreconditionFailed)
}

func TestStationListOrders_FiltersByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mixed := env.placeCash(t)
	foodOnly, err := env.orders.PlaceOrder(ctx, usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)
	unpaid, err := env.orders.PlaceOrder(ctx, usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuLatte, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)

	for _, id := range []int64{mixed.OrderID, foodOnly.OrderID} {
		_, err := env.cashier.ValidatePayment(ctx, cashierActor, id)
		require.NoError(t, err)
	}

	bar, err := env.station.ListOrders(ctx, model.StationBar, "pending")
	require.NoError(t, err)
	require.Len(t, bar, 1)
	assert.Equal(t, mixed.OrderID, bar[0].ID)
	require.Len(t, bar[0].Items, 1)
	assert.Equal(t, model.CategoryDrink, bar[0].Items[0].Category)

	kitchen, err := env.station.ListOrders(ctx, model.StationKitchen, "")
	require.NoError(t, err)
	assert.Len(t, kitchen, 2)

	cashier, err := env.cashier.List(ctx, "unpaid")
	require.NoError(t, err)
	require.Len(t, cashier, 1)
	assert.Equal(t, unpaid.OrderID, cashier[0].ID)

	_, err = env.station.ListOrders(ctx, model.StationBar, "completed")
	assertHTTPError(t, err, http.StatusBadRequest, "")
}

func TestPaymentCallback_PaidThenDuplicate(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeCash(t)
	body := `{"order_id":1,"status":"Paid"}`
	env.gateway.On("ParseCallback", body, "sig").
		Return(model.PaymentCallback{OrderID: order.OrderID, Status: model.PaymentStatusPaid}, nil).Twice()

	out, err := env.payment.ApplyCallback(context.Background(), []byte(body), "sig")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.Status)

	again, err := env.payment.ApplyCallback(context.Background(), []byte(body), "sig")
	require.NoError(t, err)
	assert.Equal(t, out.PaidAt, again.PaidAt)
	env.gateway.AssertExpectations(t)
}

func TestPaymentCallback_FailedRestoresStockAndAdminReopens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.placeCash(t)
	env.gateway.On("ParseCallback", "failed", "sig").
		Return(model.PaymentCallback{OrderID: order.OrderID, Status: model.PaymentStatusFailed}, nil)

	out, err := env.payment.ApplyCallback(ctx, []byte("failed"), "sig")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, out.Status)
	assert.EqualValues(t, 10, env.store.Stock(menuBurger))

	// 前進のみ：Failed から Paid にはできない
	_, err = env.cashier.ValidatePayment(ctx, cashierActor, order.OrderID)
	assertHTTPError(t, err, http.StatusConflict, "")

	reopened, err := env.admin.ReopenPayment(ctx, adminActor, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusUnpaid, reopened.Status)
	assert.Equal(t, model.PaymentStatusPending, reopened.PaymentStatus)
	assert.EqualValues(t, 8, env.store.Stock(menuBurger))
}

func TestAdminReopen_StockGone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order, err := env.orders.PlaceOrder(ctx, usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuCroissant, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)
	env.gateway.On("ParseCallback", "failed", "sig").
		Return(model.PaymentCallback{OrderID: order.OrderID, Status: model.PaymentStatusFailed}, nil)
	_, err = env.payment.ApplyCallback(ctx, []byte("failed"), "sig")
	require.NoError(t, err)

	// 戻した在庫を別の注文が使う
	_, err = env.orders.PlaceOrder(ctx, usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuCroissant, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = env.admin.ReopenPayment(ctx, adminActor, order.OrderID)
	he := assertHTTPError(t, err, http.StatusConflict, usecase.CodeStockConflict)
	assert.Equal(t, menuCroissant, he.StockErrors[0].MenuID)
}

func TestPaymentCallback_BadSignature(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("ParseCallback", "{}", "bad").Return(nil, assert.AnError)

	_, err := env.payment.ApplyCallback(context.Background(), []byte("{}"), "bad")
	assertHTTPError(t, err, http.StatusUnauthorized, "")
}

func TestArchiveBefore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.placeCash(t)
	ids := env.itemsOf(t, order.OrderID)

	_, err := env.cashier.ValidatePayment(ctx, cashierActor, order.OrderID)
	require.NoError(t, err)
	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusDone)
	require.NoError(t, err)
	_, err = setItem(t, env, barActor, model.StationBar, order.OrderID, ids[model.CategoryDrink], model.ItemStatusDone)
	require.NoError(t, err)
	_, err = env.cashier.Complete(ctx, cashierActor, order.OrderID)
	require.NoError(t, err)
	open := env.placeCash(t)

	env.clock.t = env.clock.t.Add(48 * time.Hour)

	_, err = env.admin.ArchiveBefore(ctx, adminActor, env.clock.t.Add(time.Hour))
	assertHTTPError(t, err, http.StatusBadRequest, "")

	res, err := env.admin.ArchiveBefore(ctx, adminActor, env.clock.t.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Archived)

	_, err = env.orders.GetOrder(ctx, order.OrderID, usecase.OrderAccess{Staff: true})
	assertHTTPError(t, err, http.StatusNotFound, "")
	_, err = env.orders.GetOrder(ctx, open.OrderID, usecase.OrderAccess{Staff: true})
	assert.NoError(t, err)
}

func TestSessionBind(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Bind(context.Background(), usecase.BindSessionInput{QRValue: "qr-unknown"})
	assertHTTPError(t, err, http.StatusNotFound, "")

	_, err = env.sessions.Bind(context.Background(), usecase.BindSessionInput{QRValue: ""})
	assertHTTPError(t, err, http.StatusBadRequest, "")

	sess, err := env.sessions.Resolve(context.Background(), env.token)
	require.NoError(t, err)
	assert.Equal(t, 5, sess.TableNumber)
}
