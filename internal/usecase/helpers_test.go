package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/infra/memory"
	"tableorder/internal/infra/session"
	"tableorder/internal/logger"
	"tableorder/internal/usecase"
	"tableorder/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	menuBurger    int64 = 1
	menuLatte     int64 = 2
	menuCroissant int64 = 3
	addOnShot     int64 = 10
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("tok-%d", g.n)
}

// PaymentGatewayMock は外部決済の代わり
type PaymentGatewayMock struct{ mock.Mock }

func (m *PaymentGatewayMock) Initiate(ctx context.Context, order model.Order) (string, error) {
	args := m.Called(ctx, order.ID)
	return args.String(0), args.Error(1)
}

func (m *PaymentGatewayMock) ParseCallback(body []byte, signature string) (model.PaymentCallback, error) {
	args := m.Called(string(body), signature)
	cb, _ := args.Get(0).(model.PaymentCallback)
	return cb, args.Error(1)
}

type testEnv struct {
	store    *memory.Store
	clock    *fixedClock
	gateway  *PaymentGatewayMock
	sessions *usecase.SessionUsecase
	rates    *usecase.RateUsecase
	orders   *usecase.OrderUsecase
	station  *usecase.StationUsecase
	cashier  *usecase.CashierUsecase
	payment  *usecase.PaymentUsecase
	admin    *usecase.AdminOrderUsecase
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}

	store := memory.NewStore()
	store.SetClock(clock.Now)
	store.PutMenuItem(model.MenuItem{ID: menuBurger, Name: "Burger", Category: model.CategoryFood, Price: 25000, Stock: 10, IsAvailable: true})
	store.PutMenuItem(model.MenuItem{ID: menuLatte, Name: "Latte", Category: model.CategoryDrink, Price: 14000, Stock: 10, IsAvailable: true})
	store.PutMenuItem(model.MenuItem{ID: menuCroissant, Name: "Croissant", Category: model.CategoryPastry, Price: 12000, Stock: 1, IsAvailable: true})
	store.PutAddOn(model.MenuAddOn{ID: addOnShot, MenuItemID: menuLatte, Name: "Extra shot", Price: 5000, IsAvailable: true})
	store.PutTable(model.DiningTable{ID: 1, Number: 5, QRCode: "qr-5", IsActive: true})

	sessStore := session.NewMemoryStore()
	sessStore.SetClock(clock.Now)
	sessions := usecase.NewSessionUsecase(store.Tables(), sessStore, &seqIDs{}, clock, 3*time.Hour)
	rates := usecase.NewRateUsecase(store.Rates(), store.AuditLogs(), pricing.DefaultRates(), clock)
	gateway := &PaymentGatewayMock{}

	env := &testEnv{
		store:    store,
		clock:    clock,
		gateway:  gateway,
		sessions: sessions,
		rates:    rates,
		orders:   usecase.NewOrderUsecase(store, validator.NewOrderValidator(), sessions, rates, gateway, clock, logger.Nop()),
		station:  usecase.NewStationUsecase(store, clock),
		cashier:  usecase.NewCashierUsecase(store, clock),
		payment:  usecase.NewPaymentUsecase(store, gateway, clock),
		admin:    usecase.NewAdminOrderUsecase(store, clock),
	}

	sess, err := sessions.Bind(context.Background(), usecase.BindSessionInput{QRValue: "qr-5"})
	require.NoError(t, err)
	env.token = sess.Token
	return env
}

// 78000（Burger×2 + Latte×2）の現金注文
func (e *testEnv) placeCash(t *testing.T) usecase.PlaceOrderOutput {
	t.Helper()
	out, err := e.orders.PlaceOrder(context.Background(), usecase.PlaceOrderInput{
		SessionToken: e.token,
		Items: []usecase.PlaceOrderItem{
			{MenuID: menuBurger, Quantity: 2},
			{MenuID: menuLatte, Quantity: 2},
		},
		PaymentMethod: model.PaymentMethodCash,
	})
	require.NoError(t, err)
	return out
}

func (e *testEnv) itemsOf(t *testing.T, orderID int64) map[model.Category]int64 {
	t.Helper()
	out, err := e.orders.GetOrder(context.Background(), orderID, usecase.OrderAccess{Staff: true})
	require.NoError(t, err)
	ids := map[model.Category]int64{}
	for _, it := range out.Items {
		ids[it.Category] = it.ID
	}
	return ids
}

var (
	kitchenActor = usecase.Actor{Role: "kitchen", ID: "staff-k"}
	barActor     = usecase.Actor{Role: "bar", ID: "staff-b"}
	cashierActor = usecase.Actor{Role: "cashier", ID: "staff-c"}
	adminActor   = usecase.Actor{Role: "admin", ID: "staff-a"}
)

func assertHTTPError(t *testing.T, err error, status int, code string) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected *HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status)
	if code != "" {
		assert.Equal(t, code, he.Code)
	}
	return he
}

