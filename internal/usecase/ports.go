package usecase

import (
	"context"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// セッショントークンからテーブルを引く（無効・期限切れは401）
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (model.TableSession, error)
}

// 注文時点の料率
type RateSource interface {
	Current(ctx context.Context) (pricing.Rates, error)
}

// 外部決済。プロトコルの中身は関知しない。
type PaymentGateway interface {
	Initiate(ctx context.Context, order model.Order) (redirectURL string, err error)
	ParseCallback(body []byte, signature string) (model.PaymentCallback, error)
}

// 注文入力の検証
type OrderValidator interface {
	ValidatePlaceOrder(in PlaceOrderInput) error
}

// 操作者（監査ログ用）
type Actor struct {
	Role string
	ID   string
}
