package repository

import (
	"context"
	"errors"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫が足りて販売中のときだけ減らす。足りなければ現在庫を返す。
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, menuItemID int64, qty int64) (bool, int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.MenuItem{}).
		Where("id = ? AND is_available = ? AND stock >= ?", menuItemID, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, 0, res.Error
	}
	if res.RowsAffected > 0 {
		return true, 0, nil
	}

	var m model.MenuItem
	err := r.db.WithContext(ctx).Select("id", "stock", "is_available").First(&m, menuItemID).Error
	if isNotFound(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if !m.IsAvailable {
		return false, 0, nil
	}
	return false, m.Stock, nil
}

// 在庫戻し（支払い失敗）
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, menuItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.MenuItem{}).
		Where("id = ?", menuItemID).
		Update("stock", gorm.Expr("stock + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// postgresの一意制約違反（23505）
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
