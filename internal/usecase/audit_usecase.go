package usecase

import (
	"context"
	"net/http"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"
)

type AuditUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditUsecase(logs repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{logs: logs}
}

type ListAuditLogsInput struct {
	ActorRole    string
	ActorID      string
	Actions      []string
	ResourceType string
	ResourceID   *int64
	OrderID      *int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

var auditActions = map[model.AuditAction]bool{
	model.AuditActionCreateOrder:        true,
	model.AuditActionUpdateItemStatus:   true,
	model.AuditActionValidatePayment:    true,
	model.AuditActionApplyPaymentResult: true,
	model.AuditActionCompleteOrder:      true,
	model.AuditActionReopenPayment:      true,
	model.AuditActionUpdateRates:        true,
	model.AuditActionArchiveOrders:      true,
}

func (u *AuditUsecase) List(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 0 || in.Limit > repo.MaxAuditPage || in.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid paging")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	f := repo.AuditLogFilter{
		ResourceID:  in.ResourceID,
		OrderID:     in.OrderID,
		CreatedFrom: in.From,
		CreatedTo:   in.To,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.ActorRole != "" {
		f.ActorRole = &in.ActorRole
	}
	if in.ActorID != "" {
		f.ActorID = &in.ActorID
	}
	for _, a := range in.Actions {
		action := model.AuditAction(a)
		if !auditActions[action] {
			return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "unknown action: "+a)
		}
		f.Actions = append(f.Actions, action)
	}
	if in.ResourceType != "" {
		rt := model.AuditResourceType(in.ResourceType)
		f.ResourceType = &rt
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, dbError()
	}
	return logs, nil
}

// 注文1件の経過（作成から完了まで、明細の更新も含めて古い順）
func (u *AuditUsecase) OrderTrail(ctx context.Context, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	logs, err := u.logs.List(ctx, repo.AuditLogFilter{
		OrderID:     &orderID,
		Limit:       repo.MaxAuditPage,
		OldestFirst: true,
	})
	if err != nil {
		return []model.AuditLog{}, dbError()
	}
	if len(logs) == 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	return logs, nil
}
