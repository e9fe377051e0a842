package repository

import (
	"context"
	"time"

	"tableorder/internal/domain/model"
)

// 監査ログの上限件数（1回の取得）
const MaxAuditPage = 200

// 監査ログの絞り込み条件。nil・空は条件なし。
type AuditLogFilter struct {
	ActorRole    *string
	ActorID      *string
	Actions      []model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	//注文そのものと、その明細への操作
	OrderID     *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
	//true なら古い順（注文の経過を追うとき）
	OldestFirst bool
}

// 件数の既定値と上限をそろえる
func (f AuditLogFilter) PageSize() int {
	if f.Limit <= 0 {
		return 50
	}
	if f.Limit > MaxAuditPage {
		return MaxAuditPage
	}
	return f.Limit
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
