package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"tableorder/internal/domain/model"
	"tableorder/internal/usecase"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

const (
	MaxNotesRunes  = 200
	maxItems       = 100
	maxQuantity    = 99
	maxIdempotency = 255
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type orderValidator struct{}

// Usecaseは interface を依存注入
func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// 注文の入力を検証（在庫・価格はここでは見ない）
func (v *orderValidator) ValidatePlaceOrder(in usecase.PlaceOrderInput) error {
	// 必須チェック
	if strings.TrimSpace(in.SessionToken) == "" {
		return invalid("session_token is required")
	}
	if len(in.Items) == 0 {
		return invalid("items is required")
	}
	if len(in.Items) > maxItems {
		return invalid("too many items")
	}

	for i, it := range in.Items {
		if it.MenuID <= 0 {
			return invalid("items[%d].menu_id is required", i)
		}
		if it.Quantity < 1 || it.Quantity > maxQuantity {
			return invalid("items[%d].quantity must be between 1 and %d", i, maxQuantity)
		}
		if utf8.RuneCountInString(it.Notes) > MaxNotesRunes {
			return invalid("items[%d].notes must be at most %d characters", i, MaxNotesRunes)
		}
		for _, id := range it.AddOnIDs {
			if id <= 0 {
				return invalid("items[%d].add_on_ids must be positive", i)
			}
		}
	}

	if utf8.RuneCountInString(in.Notes) > MaxNotesRunes {
		return invalid("notes must be at most %d characters", MaxNotesRunes)
	}

	if !in.PaymentMethod.Valid() {
		return invalid("payment_method must be cash or non_cash")
	}

	// キャッシュレスは領収書の送り先が必要
	email := strings.TrimSpace(in.Email)
	if in.PaymentMethod == model.PaymentMethodNonCash && email == "" {
		return invalid("email is required for non_cash")
	}
	if email != "" && !isEmailLike(email) {
		return invalid("email is invalid")
	}

	if len(in.IdempotencyKey) > maxIdempotency {
		return invalid("idempotency key is too long")
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
