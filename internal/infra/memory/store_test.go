package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	s.PutMenuItem(model.MenuItem{ID: 1, Stock: 5, IsAvailable: true})

	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		ok, _, err := r.Inventory().DecreaseStockIfEnough(context.Background(), 1, 3)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = r.Orders().Create(context.Background(), model.Order{OrderNumber: "ORD-1"})
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	assert.EqualValues(t, 5, s.Stock(1))
	_, err = s.Orders().FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestInventory_ReportsAvailable(t *testing.T) {
	s := NewStore()
	s.PutMenuItem(model.MenuItem{ID: 1, Stock: 2, IsAvailable: true})
	s.PutMenuItem(model.MenuItem{ID: 2, Stock: 9, IsAvailable: false})
	inv := s.Inventory()

	ok, available, err := inv.DecreaseStockIfEnough(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 2, available)

	ok, available, _ = inv.DecreaseStockIfEnough(context.Background(), 2, 1)
	assert.False(t, ok)
	assert.Zero(t, available)

	ok, _, _ = inv.DecreaseStockIfEnough(context.Background(), 404, 1)
	assert.False(t, ok)
}

func TestOrders_DuplicateNumber(t *testing.T) {
	s := NewStore()
	orders := s.Orders()

	_, err := orders.Create(context.Background(), model.Order{OrderNumber: "ORD-20260101-0001"})
	require.NoError(t, err)
	_, err = orders.Create(context.Background(), model.Order{OrderNumber: "ORD-20260101-0001"})
	assert.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestOrders_ListByCategoryAndArchive(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })
	ctx := context.Background()

	id1, _ := s.Orders().Create(ctx, model.Order{OrderNumber: "A", Status: model.OrderStatusPending})
	id2, _ := s.Orders().Create(ctx, model.Order{OrderNumber: "B", Status: model.OrderStatusCompleted})
	_, _ = s.OrderItems().CreateBulk(ctx, id1, []model.OrderItem{{Category: model.CategoryFood}})
	_, _ = s.OrderItems().CreateBulk(ctx, id2, []model.OrderItem{{Category: model.CategoryDrink}})

	food := model.CategoryFood
	got, err := s.Orders().List(ctx, repo.OrderListFilter{Category: &food})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id1, got[0].ID)

	n, err := s.Orders().ArchiveBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Orders().FindByID(ctx, id2)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// 論理削除後も番号は数える
	count, _ := s.Orders().CountCreatedBetween(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	assert.EqualValues(t, 2, count)
}
