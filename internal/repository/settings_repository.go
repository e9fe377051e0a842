package repository

import (
	"context"

	"tableorder/internal/domain/model"
)

// 料率設定。未設定ならfalse。
type RateRepository interface {
	Get(ctx context.Context) (model.RateSetting, bool, error)
	Save(ctx context.Context, s model.RateSetting) error
}

type TableRepository interface {
	FindByQRCode(ctx context.Context, qr string) (model.DiningTable, error)
}

// テーブルセッションの保存先（Redis / メモリ）
type SessionRepository interface {
	Save(ctx context.Context, s model.TableSession) error
	// 期限切れ・未登録は ErrNotFound
	FindByToken(ctx context.Context, token string) (model.TableSession, error)
}
