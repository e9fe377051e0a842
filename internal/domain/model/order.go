package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 注文全体のステータス（支払いと明細から導出される）
type OrderStatus string

const (
	OrderStatusUnpaid    OrderStatus = "unpaid"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusUnpaid, OrderStatusPending, OrderStatusReady, OrderStatusCompleted, OrderStatusFailed:
		return true
	}
	return false
}

// 支払いステータスは前進のみ（Pending→Paid / Pending→Failed）
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodNonCash PaymentMethod = "non_cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodNonCash
}

// 注文。金額はすべて最小通貨単位の整数。
// 料率は作成時点のものを保存し、後から再計算しない。
type Order struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber         string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	TableNumber         int             `gorm:"not null;index" json:"table_number"`
	SessionToken        string          `gorm:"type:varchar(64);not null;index" json:"-"`
	Subtotal            int64           `gorm:"not null" json:"subtotal"`
	ServiceChargeRate   decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"service_charge_rate"`
	ServiceChargeAmount int64           `gorm:"not null" json:"service_charge_amount"`
	TaxRate             decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount           int64           `gorm:"not null" json:"tax_amount"`
	TotalAmount         int64           `gorm:"not null" json:"total_amount"`
	PaymentMethod       PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus       PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	Status              OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes               string          `gorm:"type:varchar(500)" json:"notes"`
	CustomerEmail       string          `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	IdempotencyKey      *string         `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 決済事業者から届く支払い結果
type PaymentCallback struct {
	OrderID int64         `json:"order_id"`
	Status  PaymentStatus `json:"status"`
}
