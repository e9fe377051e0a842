package repository

import (
	"context"
	"testing"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestInventory_DecreaseStockIfEnough(t *testing.T) {
	ctx := context.Background()

	t.Run("enough stock", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewInventoryGormRepository(gdb)

		mock.ExpectExec(`UPDATE "menu_items" SET "stock"=stock - \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, _, err := r.DecreaseStockIfEnough(ctx, 10, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short returns current stock", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewInventoryGormRepository(gdb)

		mock.ExpectExec(`UPDATE "menu_items" SET "stock"=stock - \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT "id","stock","is_available" FROM "menu_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "stock", "is_available"}).AddRow(10, 1, true))

		ok, available, err := r.DecreaseStockIfEnough(ctx, 10, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.EqualValues(t, 1, available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unavailable item counts as zero", func(t *testing.T) {
		gdb, mock := newMockDB(t)
		r := NewInventoryGormRepository(gdb)

		mock.ExpectExec(`UPDATE "menu_items"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT "id","stock","is_available" FROM "menu_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "stock", "is_available"}).AddRow(10, 5, false))

		ok, available, err := r.DecreaseStockIfEnough(ctx, 10, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, available)
	})
}

func TestOrder_CreateDuplicate(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewOrderGormRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := r.Create(context.Background(), model.Order{OrderNumber: "ORD-20260101-0001"})
	assert.ErrorIs(t, err, repo.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrder_FindByIDForUpdate(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewOrderGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "status", "payment_status", "tax_rate"}).
			AddRow(5, "ORD-20260101-0005", "pending", "Paid", "0.1"))

	o, err := r.FindByIDForUpdate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-0005", o.OrderNumber)
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, "0.1", o.TaxRate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrder_FindByIDNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewOrderGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestOrder_ArchiveBeforeSoftDeletes(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewOrderGormRepository(gdb)

	mock.ExpectExec(`UPDATE "orders" SET "deleted_at"=\$1 WHERE .*status IN \(\$2,\$3\) AND updated_at < \$4`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := r.ArchiveBefore(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderItem_ListByOrderIDsGroups(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewOrderItemGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE order_id IN \(\$1,\$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "category", "status"}).
			AddRow(1, 1, "food", "Pending").
			AddRow(2, 2, "drink", "Done").
			AddRow(3, 1, "drink", "Done"))

	got, err := r.ListByOrderIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, got[1], 2)
	assert.Len(t, got[2], 1)
	assert.Equal(t, model.ItemStatusDone, got[2][0].Status)
}

func TestRate_GetMissing(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewRateGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "rate_settings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, ok, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTable_FindByQRCode(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewTableGormRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "dining_tables" WHERE .*qr_code = \$1 AND is_active = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "qr_code", "is_active"}).AddRow(3, 12, "qr-12", true))

	tbl, err := r.FindByQRCode(context.Background(), "qr-12")
	require.NoError(t, err)
	assert.Equal(t, 12, tbl.Number)
}

func TestAuditLog_ListOrderTrail(t *testing.T) {
	gdb, mock := newMockDB(t)
	r := NewAuditLogGormRepository(gdb)

	orderID := int64(7)
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE order_id = \$1 AND action IN \(\$2,\$3\) ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "action"}).
			AddRow(1, 7, "CREATE_ORDER").
			AddRow(9, 7, "COMPLETE_ORDER"))

	logs, err := r.List(context.Background(), repo.AuditLogFilter{
		OrderID:     &orderID,
		Actions:     []model.AuditAction{model.AuditActionCreateOrder, model.AuditActionCompleteOrder},
		OldestFirst: true,
	})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionCompleteOrder, logs[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_PageSizeIsCapped(t *testing.T) {
	assert.Equal(t, 50, repo.AuditLogFilter{}.PageSize())
	assert.Equal(t, repo.MaxAuditPage, repo.AuditLogFilter{Limit: 5000}.PageSize())
	assert.Equal(t, 10, repo.AuditLogFilter{Limit: 10}.PageSize())
}
