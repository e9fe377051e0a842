package model

import "time"

// 注文作成、明細ステータス更新、支払い確認など。
type AuditAction string

const (
	AuditActionCreateOrder        AuditAction = "CREATE_ORDER"
	AuditActionUpdateItemStatus   AuditAction = "UPDATE_ITEM_STATUS"
	AuditActionValidatePayment    AuditAction = "VALIDATE_PAYMENT"
	AuditActionApplyPaymentResult AuditAction = "APPLY_PAYMENT_RESULT"
	AuditActionCompleteOrder      AuditAction = "COMPLETE_ORDER"
	AuditActionReopenPayment      AuditAction = "REOPEN_PAYMENT"
	AuditActionUpdateRates        AuditAction = "UPDATE_RATES"
	AuditActionArchiveOrders      AuditAction = "ARCHIVE_ORDERS"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder     AuditResourceType = "order"
	AuditResourceOrderItem AuditResourceType = "order_item"
	AuditResourceSettings  AuditResourceType = "settings"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作者のロール（kitchen / cashier / customer / gateway など）
	ActorRole string `gorm:"type:varchar(20);not null;index" json:"actor_role"`

	//操作者の識別子（スタッフID、セッション、決済事業者）
	ActorID string `gorm:"type:varchar(128);not null" json:"actor_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//どの注文に関する操作か（明細の更新も親の注文IDで引ける）。設定変更などは0。
	OrderID int64 `gorm:"not null;default:0;index" json:"order_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
