package repository

import (
	"context"
	"errors"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 料率は id=1 の1行だけ
const rateSettingID = 1

type RateGormRepository struct {
	db *gorm.DB
}

func NewRateGormRepository(db *gorm.DB) *RateGormRepository {
	return &RateGormRepository{db: db}
}

func (r *RateGormRepository) Get(ctx context.Context) (model.RateSetting, bool, error) {
	var s model.RateSetting
	err := r.db.WithContext(ctx).First(&s, rateSettingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RateSetting{}, false, nil
	}
	if err != nil {
		return model.RateSetting{}, false, err
	}
	return s, true, nil
}

func (r *RateGormRepository) Save(ctx context.Context, s model.RateSetting) error {
	s.ID = rateSettingID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"service_charge_rate", "tax_rate", "updated_at"}),
	}).Create(&s).Error
}

type TableGormRepository struct {
	db *gorm.DB
}

func NewTableGormRepository(db *gorm.DB) *TableGormRepository {
	return &TableGormRepository{db: db}
}

// 使用中のテーブルだけを対象にする
func (r *TableGormRepository) FindByQRCode(ctx context.Context, qr string) (model.DiningTable, error) {
	var t model.DiningTable
	err := r.db.WithContext(ctx).Where("qr_code = ? AND is_active = ?", qr, true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DiningTable{}, repo.ErrNotFound
	}
	if err != nil {
		return model.DiningTable{}, err
	}
	return t, nil
}
