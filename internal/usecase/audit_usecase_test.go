package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"tableorder/internal/domain/model"
	"tableorder/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditUsecase_List(t *testing.T) {
	env := newTestEnv(t)
	uc := usecase.NewAuditUsecase(env.store.AuditLogs())

	placed := env.placeCash(t)
	_, err := env.cashier.ValidatePayment(context.Background(), cashierActor, placed.OrderID)
	require.NoError(t, err)

	all, err := uc.List(context.Background(), usecase.ListAuditLogsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyCashier, err := uc.List(context.Background(), usecase.ListAuditLogsInput{ActorRole: "cashier"})
	require.NoError(t, err)
	require.Len(t, onlyCashier, 1)
	assert.Equal(t, model.AuditActionValidatePayment, onlyCashier[0].Action)

	id := placed.OrderID
	byOrder, err := uc.List(context.Background(), usecase.ListAuditLogsInput{ResourceType: "order", ResourceID: &id, Actions: []string{"CREATE_ORDER"}})
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)

	_, err = uc.List(context.Background(), usecase.ListAuditLogsInput{Limit: 1000})
	assertHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
}

func TestAuditUsecase_OrderTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	uc := usecase.NewAuditUsecase(env.store.AuditLogs())

	order := env.placeCash(t)
	other := env.placeCash(t)
	ids := env.itemsOf(t, order.OrderID)

	_, err := env.cashier.ValidatePayment(ctx, cashierActor, order.OrderID)
	require.NoError(t, err)
	_, err = setItem(t, env, kitchenActor, model.StationKitchen, order.OrderID, ids[model.CategoryFood], model.ItemStatusDone)
	require.NoError(t, err)
	_, err = env.rates.Update(ctx, adminActor, usecase.UpdateRatesInput{
		ServiceChargeRate: decimal.RequireFromString("0.05"),
		TaxRate:           decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)

	trail, err := uc.OrderTrail(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, model.AuditActionCreateOrder, trail[0].Action)
	assert.Equal(t, model.AuditActionValidatePayment, trail[1].Action)
	// 明細の更新も親の注文で引ける
	assert.Equal(t, model.AuditActionUpdateItemStatus, trail[2].Action)
	assert.Equal(t, model.AuditResourceOrderItem, trail[2].ResourceType)
	assert.Equal(t, ids[model.CategoryFood], trail[2].ResourceID)
	for _, l := range trail {
		assert.Equal(t, order.OrderID, l.OrderID)
	}

	otherTrail, err := uc.OrderTrail(ctx, other.OrderID)
	require.NoError(t, err)
	assert.Len(t, otherTrail, 1)

	byActions, err := uc.List(ctx, usecase.ListAuditLogsInput{Actions: []string{"UPDATE_RATES", "UPDATE_ITEM_STATUS"}})
	require.NoError(t, err)
	require.Len(t, byActions, 2)
	assert.Equal(t, model.AuditActionUpdateRates, byActions[0].Action, "newest first")
	assert.Equal(t, int64(0), byActions[0].OrderID)

	_, err = uc.OrderTrail(ctx, 999)
	assertHTTPError(t, err, http.StatusNotFound, usecase.CodeNotFound)
	_, err = uc.List(ctx, usecase.ListAuditLogsInput{Actions: []string{"DROP"}})
	assertHTTPError(t, err, http.StatusBadRequest, usecase.CodeValidation)
}
