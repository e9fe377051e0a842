package repository

import (
	"context"
	"errors"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"gorm.io/gorm"
)

type MenuGormRepository struct {
	db *gorm.DB
}

// DI
func NewMenuGormRepository(db *gorm.DB) *MenuGormRepository {
	return &MenuGormRepository{db: db}
}

// IDでメニューを取得
func (r *MenuGormRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MenuItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.MenuItem{}, err
	}
	return m, nil
}

// 他のメニューのトッピングが混ざらないよう menu_item_id でも絞る
func (r *MenuGormRepository) FindAddOns(ctx context.Context, menuItemID int64, addOnIDs []int64) ([]model.MenuAddOn, error) {
	if len(addOnIDs) == 0 {
		return []model.MenuAddOn{}, nil
	}
	var addOns []model.MenuAddOn
	err := r.db.WithContext(ctx).
		Where("menu_item_id = ? AND id IN ?", menuItemID, addOnIDs).
		Order("id asc").
		Find(&addOns).Error
	if err != nil {
		return []model.MenuAddOn{}, err
	}
	return addOns, nil
}

// 表示用（販売停止中も含めて返す）
func (r *MenuGormRepository) ListAddOns(ctx context.Context, menuItemID int64) ([]model.MenuAddOn, error) {
	var addOns []model.MenuAddOn
	err := r.db.WithContext(ctx).
		Where("menu_item_id = ?", menuItemID).
		Order("id asc").
		Find(&addOns).Error
	if err != nil {
		return []model.MenuAddOn{}, err
	}
	return addOns, nil
}
