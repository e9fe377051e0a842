package repository

import (
	"context"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditWhere(f), auditPage(f)).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// 絞り込み
func auditWhere(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.OrderID != nil {
			q = q.Where("order_id = ?", *f.OrderID)
		}
		if f.ActorRole != nil {
			q = q.Where("actor_role = ?", *f.ActorRole)
		}
		if f.ActorID != nil {
			q = q.Where("actor_id = ?", *f.ActorID)
		}
		if len(f.Actions) > 0 {
			q = q.Where("action IN ?", f.Actions)
		}
		if f.ResourceType != nil {
			q = q.Where("resource_type = ?", *f.ResourceType)
		}
		if f.ResourceID != nil {
			q = q.Where("resource_id = ?", *f.ResourceID)
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", *f.CreatedTo)
		}
		return q
	}
}

// 並び順と件数。注文の経過は古い順、一覧は新しい順。
func auditPage(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.OldestFirst {
			q = q.Order("created_at ASC").Order("id ASC")
		} else {
			q = q.Order("id DESC")
		}
		q = q.Limit(f.PageSize())
		if f.Offset > 0 {
			q = q.Offset(f.Offset)
		}
		return q
	}
}
