package usecase

import (
	"context"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	repo "tableorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// OrderRepoMock は採番のリトライだけを見る
type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in order number tests")
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in order number tests")
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	args := m.Called(ctx, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order.OrderNumber)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateState(ctx context.Context, order model.Order) error {
	panic("not used in order number tests")
}

func (m *OrderRepoMock) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	panic("not used in order number tests")
}

func (m *OrderRepoMock) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	panic("not used in order number tests")
}

func TestCreateWithOrderNumber_RetriesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 18, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	m := &OrderRepoMock{}
	m.On("CountCreatedBetween", ctx, dayStart, dayStart.AddDate(0, 0, 1)).Return(int64(4), nil)
	m.On("Create", ctx, "ORD-20260701-0005").Return(int64(0), repo.ErrDuplicate).Once()
	m.On("Create", ctx, "ORD-20260701-0006").Return(int64(42), nil).Once()

	got, err := createWithOrderNumber(ctx, m, model.Order{}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.ID)
	assert.Equal(t, "ORD-20260701-0006", got.OrderNumber)
	m.AssertExpectations(t)
}

func TestCreateWithOrderNumber_IdempotencyRace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 18, 30, 0, 0, time.UTC)
	key := "k-1"

	m := &OrderRepoMock{}
	m.On("CountCreatedBetween", ctx, mock.Anything, mock.Anything).Return(int64(0), nil)
	m.On("Create", ctx, "ORD-20260701-0001").Return(int64(0), repo.ErrDuplicate).Once()
	m.On("FindByIdempotencyKey", ctx, key).Return(model.Order{ID: 9}, true, nil).Once()

	_, err := createWithOrderNumber(ctx, m, model.Order{IdempotencyKey: &key}, now)
	assert.ErrorIs(t, err, repo.ErrDuplicate)
	m.AssertExpectations(t)
}

func TestCreateWithOrderNumber_GivesUp(t *testing.T) {
	ctx := context.Background()
	m := &OrderRepoMock{}
	m.On("CountCreatedBetween", ctx, mock.Anything, mock.Anything).Return(int64(0), nil)
	m.On("Create", ctx, mock.Anything).Return(int64(0), repo.ErrDuplicate)

	_, err := createWithOrderNumber(ctx, m, model.Order{}, time.Now())
	assert.ErrorIs(t, err, repo.ErrDuplicate)
	m.AssertNumberOfCalls(t, "Create", maxOrderNumberAttempts)
}

func TestFromGuard(t *testing.T) {
	o := model.Order{ID: 1, Status: model.OrderStatusCompleted, PaymentStatus: model.PaymentStatusPaid}
	it := model.OrderItem{ID: 1, OrderID: 1, Category: model.CategoryFood}

	err := fromGuard(orderstate.CanToggleItem(model.StationBar, o, []model.OrderItem{it}, it, model.ItemStatusDone))
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, CodeForbidden, he.Code)

	err = fromGuard(orderstate.CanToggleItem(model.StationKitchen, o, []model.OrderItem{it}, it, model.ItemStatusDone))
	he, _ = AsHTTPError(err)
	assert.Equal(t, CodeStaleWrite, he.Code)
	assert.Equal(t, 409, he.Status)
}
