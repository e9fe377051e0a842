package usecase

import (
	"context"
	"encoding/json"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"
)

// 操作対象。OrderID は注文と明細への操作で埋める（設定変更や一括アーカイブは0）
type auditTarget struct {
	Type    model.AuditResourceType
	ID      int64
	OrderID int64
}

func orderTarget(orderID int64) auditTarget {
	return auditTarget{Type: model.AuditResourceOrder, ID: orderID, OrderID: orderID}
}

func itemTarget(orderID, itemID int64) auditTarget {
	return auditTarget{Type: model.AuditResourceOrderItem, ID: itemID, OrderID: orderID}
}

var settingsTarget = auditTarget{Type: model.AuditResourceSettings, ID: 1}

// 監査ログ（before/afterはJSON文字列）
func writeAudit(
	ctx context.Context,
	logs repo.AuditLogRepository,
	actor Actor,
	action model.AuditAction,
	target auditTarget,
	before, after any,
	now time.Time,
) error {
	beforeJSON, err := toJSON(before)
	if err != nil {
		return err
	}
	afterJSON, err := toJSON(after)
	if err != nil {
		return err
	}
	return logs.Create(ctx, model.AuditLog{
		ActorRole:    actor.Role,
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: target.Type,
		ResourceID:   target.ID,
		OrderID:      target.OrderID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    now,
	})
}

func toJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// 状態変更の記録に使う最小の形
type orderStateSnapshot struct {
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

func snapshotOf(o model.Order) orderStateSnapshot {
	return orderStateSnapshot{Status: o.Status, PaymentStatus: o.PaymentStatus}
}
