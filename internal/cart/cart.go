// Package cart は端末側の注文前カートを持ち、注文リクエストに組み立てる。
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"tableorder/internal/domain/model"
	"tableorder/internal/domain/pricing"
	"tableorder/internal/usecase"
)

const MaxNotesRunes = 200

var (
	ErrNotBound = errors.New("cart is not bound to a table session")
	ErrEmpty    = errors.New("cart is empty")
)

// カートの編集可能な1行
type LineItem struct {
	ItemID    int64           `json:"item_id"`
	Name      string          `json:"name"`
	Category  model.Category  `json:"category"`
	UnitPrice int64           `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Notes     string          `json:"notes"`
	AddOns    []pricing.AddOn `json:"add_ons"`
}

// 商品と追加オプションの組で行を識別する（例: "12", "12+3,7"）
func (l LineItem) LineID() string {
	if len(l.AddOns) == 0 {
		return strconv.FormatInt(l.ItemID, 10)
	}
	ids := make([]int64, 0, len(l.AddOns))
	for _, a := range l.AddOns {
		ids = append(ids, a.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strconv.FormatInt(l.ItemID, 10) + "+" + strings.Join(parts, ",")
}

func (l LineItem) pricingLine() pricing.Line {
	return pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity, AddOns: l.AddOns}
}

func (l LineItem) clone() LineItem {
	l.AddOns = append([]pricing.AddOn(nil), l.AddOns...)
	return l
}

// 保存されるスナップショット
type Cart struct {
	Lines        []LineItem `json:"lines"`
	SessionToken string     `json:"session_token"`
	TableNumber  int        `json:"table_number"`
}

func (c Cart) clone() Cart {
	out := c
	out.Lines = make([]LineItem, len(c.Lines))
	for i, l := range c.Lines {
		out.Lines[i] = l.clone()
	}
	return out
}

func (c Cart) index(lineID string) int {
	for i, l := range c.Lines {
		if l.LineID() == lineID {
			return i
		}
	}
	return -1
}

// 端末1台分のカート保存先
type Store interface {
	Load(ctx context.Context) (Cart, bool, error)
	Save(ctx context.Context, c Cart) error
}

type RateSource interface {
	Rates(ctx context.Context) (pricing.Rates, error)
}

type OrderPlacer interface {
	CreateOrder(ctx context.Context, in usecase.PlaceOrderInput, idempotencyKey string) (usecase.PlaceOrderOutput, error)
}

// Aggregate はカートを守る。変更は保存してから返す
type Aggregate struct {
	mu     sync.Mutex
	store  Store
	source RateSource
	cart   Cart
	rates  *pricing.Rates
}

// 保存済みのカートを読む。なければ空
func Open(ctx context.Context, store Store, source RateSource) (*Aggregate, error) {
	c, found, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !found {
		c = Cart{}
	}
	return &Aggregate{store: store, source: source, cart: c}, nil
}

// コピーに fn を当て、保存できたときだけ採用する
func (a *Aggregate) mutate(ctx context.Context, fn func(c *Cart) bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cart.clone()
	if !fn(&next) {
		return nil
	}
	if err := a.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	a.cart = next
	return nil
}

// テーブルセッションに紐づける。別セッションに移ると行は捨てる
func (a *Aggregate) Bind(ctx context.Context, sessionToken string, tableNumber int) error {
	return a.mutate(ctx, func(c *Cart) bool {
		if c.SessionToken == sessionToken && c.TableNumber == tableNumber {
			return false
		}
		if c.SessionToken != "" && c.SessionToken != sessionToken {
			c.Lines = nil
		}
		c.SessionToken = sessionToken
		c.TableNumber = tableNumber
		return true
	})
}

// 同じ組み合わせの行があれば数量を足し、なければ追加する。
// 数量0は1個として扱う。
func (a *Aggregate) AddLine(ctx context.Context, item LineItem) error {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.Notes = truncateNotes(item.Notes)
	item = item.clone()

	return a.mutate(ctx, func(c *Cart) bool {
		if i := c.index(item.LineID()); i >= 0 {
			c.Lines[i].Quantity += item.Quantity
			return true
		}
		c.Lines = append(c.Lines, item)
		return true
	})
}

func (a *Aggregate) RemoveLine(ctx context.Context, lineID string) error {
	return a.mutate(ctx, func(c *Cart) bool {
		i := c.index(lineID)
		if i < 0 {
			return false
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true
	})
}

// q <= 0 なら行を消す
func (a *Aggregate) SetQuantity(ctx context.Context, lineID string, q int64) error {
	if q <= 0 {
		return a.RemoveLine(ctx, lineID)
	}
	return a.mutate(ctx, func(c *Cart) bool {
		i := c.index(lineID)
		if i < 0 || c.Lines[i].Quantity == q {
			return false
		}
		c.Lines[i].Quantity = q
		return true
	})
}

func (a *Aggregate) SetNotes(ctx context.Context, lineID, notes string) error {
	notes = truncateNotes(notes)
	return a.mutate(ctx, func(c *Cart) bool {
		i := c.index(lineID)
		if i < 0 || c.Lines[i].Notes == notes {
			return false
		}
		c.Lines[i].Notes = notes
		return true
	})
}

// 行だけ空にしてセッションの紐づけは残す
func (a *Aggregate) Clear(ctx context.Context) error {
	return a.mutate(ctx, func(c *Cart) bool {
		if len(c.Lines) == 0 {
			return false
		}
		c.Lines = nil
		return true
	})
}

func (a *Aggregate) Snapshot() Cart {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.clone()
}

func (a *Aggregate) Lines() []LineItem {
	return a.Snapshot().Lines
}

// キャッシュした料率で価格を出す。
// 料率は初回に取りに行き、取れるまでは既定値を使う。
func (a *Aggregate) Breakdown(ctx context.Context) pricing.Breakdown {
	rates := a.currentRates(ctx)
	c := a.Snapshot()

	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, l.pricingLine())
	}
	return pricing.Calculate(lines, rates)
}

func (a *Aggregate) currentRates(ctx context.Context) pricing.Rates {
	a.mu.Lock()
	if a.rates != nil {
		r := *a.rates
		a.mu.Unlock()
		return r
	}
	a.mu.Unlock()

	if a.source == nil {
		return pricing.DefaultRates()
	}
	r, err := a.source.Rates(ctx)
	if err != nil || r.Validate() != nil {
		return pricing.DefaultRates()
	}

	a.mu.Lock()
	a.rates = &r
	a.mu.Unlock()
	return r
}

// POST /orders の本文を作る。在庫はここでは見ない
func (a *Aggregate) OrderRequest(method model.PaymentMethod, notes, email string) (usecase.PlaceOrderInput, error) {
	c := a.Snapshot()
	if c.SessionToken == "" {
		return usecase.PlaceOrderInput{}, ErrNotBound
	}
	if len(c.Lines) == 0 {
		return usecase.PlaceOrderInput{}, ErrEmpty
	}

	items := make([]usecase.PlaceOrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids := make([]int64, 0, len(l.AddOns))
		for _, ad := range l.AddOns {
			ids = append(ids, ad.ID)
		}
		items = append(items, usecase.PlaceOrderItem{
			MenuID:   l.ItemID,
			Quantity: l.Quantity,
			Notes:    l.Notes,
			AddOnIDs: ids,
		})
	}
	return usecase.PlaceOrderInput{
		SessionToken:  c.SessionToken,
		Items:         items,
		Notes:         truncateNotes(notes),
		PaymentMethod: method,
		Email:         strings.TrimSpace(email),
	}, nil
}

// Checkout は注文して成功したらカートを空にする。
// 失敗時は行を直せるようにそのまま残す。
func (a *Aggregate) Checkout(ctx context.Context, placer OrderPlacer, method model.PaymentMethod, notes, email, idempotencyKey string) (usecase.PlaceOrderOutput, error) {
	in, err := a.OrderRequest(method, notes, email)
	if err != nil {
		return usecase.PlaceOrderOutput{}, err
	}

	out, err := placer.CreateOrder(ctx, in, idempotencyKey)
	if err != nil {
		return usecase.PlaceOrderOutput{}, err
	}

	if err := a.Clear(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// conflicts に出てくるメニューの行を返す
func (a *Aggregate) ConflictingLines(conflicts []usecase.StockError) []LineItem {
	byMenu := map[int64]bool{}
	for _, c := range conflicts {
		byMenu[c.MenuID] = true
	}
	out := []LineItem{}
	for _, l := range a.Lines() {
		if byMenu[l.ItemID] {
			out = append(out, l)
		}
	}
	return out
}

func truncateNotes(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxNotesRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxNotesRunes])
}
