package repository

import (
	"context"
	"time"

	"tableorder/internal/domain/model"
)

// 一覧の絞り込み条件
type OrderListFilter struct {
	Statuses      []model.OrderStatus
	PaymentStatus *model.PaymentStatus
	// 指定時はこの区分の明細を持つ注文だけ
	Category *model.Category
	Limit    int
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 行ロック付き（SELECT ... FOR UPDATE）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	// ステータス・支払い状態・時刻だけを更新する
	UpdateState(ctx context.Context, order model.Order) error
	// 注文番号の採番用
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, error)
	// completed/failed のうち before より古いものを論理削除
	ArchiveBefore(ctx context.Context, before time.Time) (int64, error)
}
