package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_CashTotals(t *testing.T) {
	env := newTestEnv(t)

	out := env.placeCash(t)

	assert.Equal(t, "ORD-20260315-0001", out.OrderNumber)
	assert.Equal(t, model.OrderStatusUnpaid, out.Status)
	assert.Equal(t, model.PaymentStatusPending, out.PaymentStatus)
	assert.EqualValues(t, 78000, out.Totals.Subtotal)
	assert.EqualValues(t, 5460, out.Totals.ServiceCharge)
	assert.EqualValues(t, 8346, out.Totals.Tax)
	assert.EqualValues(t, 91806, out.Totals.Total)
	assert.Empty(t, out.PaymentRedirectURL)

	assert.EqualValues(t, 8, env.store.Stock(menuBurger))
	assert.EqualValues(t, 8, env.store.Stock(menuLatte))

	logs := env.store.AuditEntries()
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionCreateOrder, logs[0].Action)
	assert.Equal(t, "table:5", logs[0].ActorID)

	second := env.placeCash(t)
	assert.Equal(t, "ORD-20260315-0002", second.OrderNumber)
}

func TestPlaceOrder_AddOnsPricedPerUnit(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuLatte, Quantity: 2, AddOnIDs: []int64{addOnShot, addOnShot}}},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 38000, out.Totals.Subtotal)

	got, err := env.orders.GetOrder(context.Background(), out.OrderID, usecase.OrderAccess{SessionToken: env.token})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.EqualValues(t, 19000, got.Items[0].Price)
	assert.EqualValues(t, 38000, got.Items[0].Subtotal)
	require.Len(t, got.Items[0].AddOns, 1)
	assert.Equal(t, "Extra shot", got.Items[0].AddOns[0].Name)
}

func TestPlaceOrder_UnknownAddOn(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1, AddOnIDs: []int64{addOnShot}}},
		PaymentMethod: model.PaymentMethodCash,
	})
	assertHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
	// Txごと戻る
	assert.EqualValues(t, 10, env.store.Stock(menuBurger))
}

func TestPlaceOrder_StockConflictListsEveryLine(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken: env.token,
		Items: []usecase.PlaceOrderItem{
			{MenuID: menuBurger, Quantity: 6},
			{MenuID: menuCroissant, Quantity: 2},
			{MenuID: menuBurger, Quantity: 6},
			{MenuID: menuLatte, Quantity: 1},
		},
		PaymentMethod: model.PaymentMethodCash,
	})
	he := assertHTTPError(t, err, http.StatusConflict, usecase.CodeStockConflict)
	assert.Equal(t, []usecase.StockError{
		{MenuID: menuBurger, Requested: 12, Available: 10},
		{MenuID: menuCroissant, Requested: 2, Available: 1},
	}, he.StockErrors)

	// 何も作られず、在庫も減らない
	assert.EqualValues(t, 10, env.store.Stock(menuBurger))
	assert.EqualValues(t, 10, env.store.Stock(menuLatte))
	assert.EqualValues(t, 1, env.store.Stock(menuCroissant))
	list, err := env.cashier.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlaceOrder_InvalidSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  "unknown",
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	assertHTTPError(t, err, http.StatusUnauthorized, usecase.CodeUnauthorized)
}

func TestPlaceOrder_ExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	env.clock.t = env.clock.t.Add(4 * time.Hour)

	_, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCash,
	})
	assertHTTPError(t, err, http.StatusUnauthorized, "")
}

func TestPlaceOrder_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 0}},
		PaymentMethod: model.PaymentMethodCash,
	})
	assertHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
}

func TestPlaceOrder_NonCashRedirect(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("Initiate", mock.Anything, int64(1)).Return("https://pay.example.com/checkout?order_id=1", nil).Once()

	out, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1}},
		PaymentMethod: model.PaymentMethodNonCash,
		Email:         "guest@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusUnpaid, out.Status)
	assert.Equal(t, "https://pay.example.com/checkout?order_id=1", out.PaymentRedirectURL)
	env.gateway.AssertExpectations(t)
}

func TestPlaceOrder_NonCashInitiateFailureKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("Initiate", mock.Anything, int64(1)).Return("", errors.New("gateway down")).Once()

	out, err := env.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken:  env.token,
		Items:         []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 1}},
		PaymentMethod: model.PaymentMethodNonCash,
		Email:         "guest@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.PaymentError)
	assert.Empty(t, out.PaymentRedirectURL)

	got, err := env.orders.GetOrder(context.Background(), out.OrderID, usecase.OrderAccess{Staff: true})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusUnpaid, got.Status)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	in := usecase.PlaceOrderInput{
		SessionToken:   env.token,
		Items:          []usecase.PlaceOrderItem{{MenuID: menuBurger, Quantity: 3}},
		PaymentMethod:  model.PaymentMethodCash,
		IdempotencyKey: "key-1",
	}

	first, err := env.orders.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	second, err := env.orders.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, second.Replayed)
	assert.EqualValues(t, 7, env.store.Stock(menuBurger))
}

func TestPlaceOrder_RatesSnapshotted(t *testing.T) {
	env := newTestEnv(t)
	out := env.placeCash(t)

	_, err := env.rates.Update(context.Background(), adminActor, usecase.UpdateRatesInput{
		ServiceChargeRate: decimal.RequireFromString("0.10"),
		TaxRate:           decimal.RequireFromString("0.12"),
	})
	require.NoError(t, err)

	got, err := env.orders.GetOrder(context.Background(), out.OrderID, usecase.OrderAccess{Staff: true})
	require.NoError(t, err)
	assert.EqualValues(t, 91806, got.Totals.Total)
	assert.Equal(t, "0.07", got.Totals.ServiceChargeRate.String())

	next := env.placeCash(t)
	// 78000 → 7800 → 85800 → 10296 → 96096
	assert.EqualValues(t, 96096, next.Totals.Total)
}

func TestGetOrder_OtherTableIsHidden(t *testing.T) {
	env := newTestEnv(t)
	out := env.placeCash(t)

	other, err := env.sessions.Bind(context.Background(), usecase.BindSessionInput{QRValue: "qr-5"})
	require.NoError(t, err)

	_, err = env.orders.GetOrder(context.Background(), out.OrderID, usecase.OrderAccess{SessionToken: other.Token})
	assertHTTPError(t, err, http.StatusNotFound, usecase.CodeNotFound)

	_, err = env.orders.GetOrder(context.Background(), out.OrderID, usecase.OrderAccess{})
	assertHTTPError(t, err, http.StatusUnauthorized, "")
}
