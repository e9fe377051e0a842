// Package payment は外部決済ページへのリダイレクトと、結果コールバックの検証を行う。
// 決済事業者のプロトコル自体は扱わず、署名付きURLと署名付きJSONだけを約束とする。
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"tableorder/internal/domain/model"
)

const SignatureHeader = "X-Payment-Signature"

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrInvalidCallback  = errors.New("invalid payment callback")
)

type HostedCheckout struct {
	baseURL *url.URL
	secret  []byte
	now     func() time.Time
}

func NewHostedCheckout(baseURL, secret string) (*HostedCheckout, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("payment base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("payment base url must be absolute: %q", baseURL)
	}
	if secret == "" {
		return nil, errors.New("payment secret is required")
	}
	return &HostedCheckout{baseURL: u, secret: []byte(secret), now: time.Now}, nil
}

// Initiate は決済ページのURLを返す。金額と注文IDは改ざんできないよう署名する。
func (h *HostedCheckout) Initiate(ctx context.Context, order model.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if order.PaymentMethod != model.PaymentMethodNonCash {
		return "", fmt.Errorf("order %d is not a non-cash order", order.ID)
	}

	ts := strconv.FormatInt(h.now().Unix(), 10)
	orderID := strconv.FormatInt(order.ID, 10)
	amount := strconv.FormatInt(order.TotalAmount, 10)

	q := url.Values{}
	q.Set("order_id", orderID)
	q.Set("order_number", order.OrderNumber)
	q.Set("amount", amount)
	q.Set("email", order.CustomerEmail)
	q.Set("ts", ts)
	q.Set("sig", h.Sign([]byte(orderID+"|"+amount+"|"+ts)))

	u := *h.baseURL
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseCallback は署名を検証してから中身を読む。
func (h *HostedCheckout) ParseCallback(body []byte, signature string) (model.PaymentCallback, error) {
	if !h.Verify(body, signature) {
		return model.PaymentCallback{}, ErrInvalidSignature
	}

	var cb model.PaymentCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return model.PaymentCallback{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if cb.OrderID <= 0 {
		return model.PaymentCallback{}, fmt.Errorf("%w: order_id is required", ErrInvalidCallback)
	}
	if cb.Status != model.PaymentStatusPaid && cb.Status != model.PaymentStatusFailed {
		return model.PaymentCallback{}, fmt.Errorf("%w: status must be Paid or Failed", ErrInvalidCallback)
	}
	return cb, nil
}

// HMAC-SHA256（hex）
func (h *HostedCheckout) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *HostedCheckout) Verify(payload []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
