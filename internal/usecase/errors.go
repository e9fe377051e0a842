package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"tableorder/internal/domain/orderstate"
)

// エラーコード（レスポンスの code）
const (
	CodeValidation         = "validation_error"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeStockConflict      = "stock_conflict"
	CodePreconditionFailed = "precondition_failed"
	CodeStaleWrite         = "stale_write"
	CodeInternal           = "internal"
	CodeBadGateway         = "bad_gateway"
)

// 在庫不足の明細（どの行をどれだけ減らせばよいか分かるように）
type StockError struct {
	MenuID    int64 `json:"menu_id"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

// usecase→handler の境界を越える唯一のエラー型
type HTTPError struct {
	Status      int
	Code        string
	Message     string
	StockErrors []StockError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// コードはステータスから決める
func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    codeForStatus(status),
		Message: message,
	}
}

func newCodedError(status int, code, message string) error {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func newStockConflict(conflicts []StockError) error {
	return &HTTPError{
		Status:      http.StatusConflict,
		Code:        CodeStockConflict,
		Message:     "insufficient stock",
		StockErrors: conflicts,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodePreconditionFailed
	case http.StatusBadGateway:
		return CodeBadGateway
	default:
		return CodeInternal
	}
}

// 状態遷移ガードの拒否をレスポンス用に変換
func fromGuard(err error) error {
	ge, ok := orderstate.AsGuardError(err)
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	switch ge.Kind {
	case orderstate.KindForbidden:
		return newCodedError(http.StatusForbidden, CodeForbidden, ge.Reason)
	case orderstate.KindStaleWrite:
		return newCodedError(http.StatusConflict, CodeStaleWrite, ge.Reason)
	default:
		return newCodedError(http.StatusConflict, CodePreconditionFailed, ge.Reason)
	}
}

func dbError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
