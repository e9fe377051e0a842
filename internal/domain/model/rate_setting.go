package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// サービス料率・税率（1行のみ）。変更は以降の注文にだけ効く。
type RateSetting struct {
	ID                int64           `gorm:"primaryKey" json:"-"`
	ServiceChargeRate decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"service_charge_rate"`
	TaxRate           decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
