// Package client はテーブルオーダー API の JSON クライアント。
// ステーションのポーラーと客側カートから使う。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/usecase"
)

const (
	headerSessionToken   = "X-Session-Token"
	headerIdempotencyKey = "Idempotency-Key"
)

// 2xx 以外の応答
type APIError struct {
	Status      int
	Code        string
	Message     string
	StockErrors []usecase.StockError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s (%s)", e.Status, e.Message, e.Code)
}

func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}

// IsTransient は後で再試行すれば通りうるエラーか（通信失敗・タイムアウト・429・5xx）。
// 業務的な拒否（4xx）とキャンセルは含まない。
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if ae, ok := AsAPIError(err); ok {
		return ae.Status == http.StatusTooManyRequests || ae.Status >= 500
	}
	return true
}

type errorBody struct {
	Error       string               `json:"error"`
	Code        string               `json:"code"`
	StockErrors []usecase.StockError `json:"stock_errors"`
}

type Client struct {
	baseURL    string
	staffToken string
	httpClient *http.Client
}

type Option func(*Client)

// 全リクエストに付ける Bearer トークン
func WithStaffToken(token string) Option {
	return func(c *Client) { c.staffToken = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.staffToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.staffToken)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil && eb.Error != "" {
			return &APIError{Status: resp.StatusCode, Code: eb.Code, Message: eb.Error, StockErrors: eb.StockErrors}
		}
		return &APIError{Status: resp.StatusCode, Code: usecase.CodeInternal, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) BindSession(ctx context.Context, qrValue string) (usecase.SessionOutput, error) {
	var out usecase.SessionOutput
	err := c.do(ctx, http.MethodPost, "/sessions", nil, usecase.BindSessionInput{QRValue: qrValue}, &out)
	return out, err
}

func (c *Client) Rates(ctx context.Context) (pricing.Rates, error) {
	var out pricing.Rates
	err := c.do(ctx, http.MethodGet, "/settings/rates", nil, nil, &out)
	return out, err
}

func (c *Client) MenuItem(ctx context.Context, id int64) (usecase.MenuItemOutput, error) {
	var out usecase.MenuItemOutput
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/menu/%d", id), nil, nil, &out)
	return out, err
}

// 注文を作る。idempotencyKey は空でもよい
func (c *Client) CreateOrder(ctx context.Context, in usecase.PlaceOrderInput, idempotencyKey string) (usecase.PlaceOrderOutput, error) {
	var out usecase.PlaceOrderOutput
	headers := map[string]string{headerIdempotencyKey: idempotencyKey}
	err := c.do(ctx, http.MethodPost, "/orders", headers, in, &out)
	return out, err
}

// 1件取得。客はセッショントークンを渡し、スタッフは ""
func (c *Client) GetOrder(ctx context.Context, orderID int64, sessionToken string) (usecase.OrderOutput, error) {
	var out usecase.OrderOutput
	headers := map[string]string{headerSessionToken: sessionToken}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), headers, nil, &out)
	return out, err
}

func (c *Client) ListStationOrders(ctx context.Context, station model.Station, status string) ([]usecase.OrderOutput, error) {
	out := []usecase.OrderOutput{}
	path := "/stations/" + url.PathEscape(string(station)) + "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) ListCashierOrders(ctx context.Context, status string) ([]usecase.OrderOutput, error) {
	out := []usecase.OrderOutput{}
	path := "/cashier/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) SetItemStatus(ctx context.Context, orderID, itemID int64, status model.ItemStatus) (usecase.ItemStatusOutput, error) {
	var out usecase.ItemStatusOutput
	path := fmt.Sprintf("/orders/%d/items/%d/status", orderID, itemID)
	err := c.do(ctx, http.MethodPatch, path, nil, usecase.SetItemStatusInput{Status: status}, &out)
	return out, err
}

func (c *Client) ValidatePayment(ctx context.Context, orderID int64) (usecase.OrderOutput, error) {
	var out usecase.OrderOutput
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/validate-payment", orderID), nil, nil, &out)
	return out, err
}

func (c *Client) CompleteOrder(ctx context.Context, orderID int64) (usecase.OrderOutput, error) {
	var out usecase.OrderOutput
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/complete", orderID), nil, nil, &out)
	return out, err
}
