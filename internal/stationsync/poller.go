package stationsync

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tableorder/internal/client"
	"tableorder/internal/domain/model"
	"tableorder/internal/domain/orderstate"
	"tableorder/internal/logger"
	"tableorder/internal/usecase"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 5 * time.Second
	queueSize       = 64
)

// フックはロックの外で呼ぶ
type Hooks struct {
	OnChange    func(view []usecase.OrderOutput)
	OnError     func(err error)
	OnRegressed func(order usecase.OrderOutput) // 一度 ready を見た注文が pending に戻った
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

func WithHooks(h Hooks) Option {
	return func(p *Poller) { p.hooks = h }
}

// 送信待ちの操作。before はサーバが最後に見せた注文に、同じ注文の先行操作を重ねたもの
type entry struct {
	m      Mutation
	before usecase.OrderOutput
	gen    uint64
	result chan error
}

// Poller は1画面分のポーリング同期
type Poller struct {
	fetch    FetchFunc
	api      Mutator
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger
	hooks    Hooks

	queue   chan *entry
	refresh chan struct{}
	stop    chan struct{}
	once    sync.Once

	// OnChange は1つずつ、新しい順を崩さずに渡す
	notifyMu  sync.Mutex
	delivered uint64

	mu        sync.Mutex
	view      []usecase.OrderOutput
	gen       uint64
	pending   []*entry
	seenReady map[int64]bool
	closed    bool
	version   uint64 // 手元の表示が変わるたびに進む
}

var _ Synchronizer = (*Poller)(nil)

func NewPoller(fetch FetchFunc, api Mutator, opts ...Option) *Poller {
	p := &Poller{
		fetch:     fetch,
		api:       api,
		interval:  DefaultInterval,
		timeout:   DefaultTimeout,
		log:       logger.Nop(),
		queue:     make(chan *entry, queueSize),
		refresh:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		view:      []usecase.OrderOutput{},
		seenReady: map[int64]bool{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run は ctx 終了か Close までポーリングする。
// サーバに届かなかった操作は巻き戻す。
func (p *Poller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.worker(ctx)
	}()

	p.log.Info("sync_started", "", "polling started", slog.Duration("interval", p.interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case <-p.stop:
			break loop
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}

	cancel()
	wg.Wait()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.drain()

	p.log.Info("sync_stopped", "", "polling stopped")
	return err
}

func (p *Poller) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.stop)
	})
}

// 次の tick を待たずに取得する
func (p *Poller) Refresh(ctx context.Context) error {
	return p.poll(ctx)
}

// 手元の表示のコピー
func (p *Poller) View() []usecase.OrderOutput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneOrders(p.view)
}

// 適用したサーバスナップショットの数
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Submit は m を手元にすぐ反映し、サーバ送信を積む。
// 成功なら nil、巻き戻したら *MutationError が届く。
func (p *Poller) Submit(m Mutation) <-chan error {
	res := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		res <- &MutationError{Mutation: m, Err: ErrClosed}
		return res
	}
	i := p.indexLocked(m.OrderID)
	if i < 0 {
		p.mu.Unlock()
		res <- &MutationError{Mutation: m, Err: ErrUnknownOrder}
		return res
	}

	next := cloneOrder(p.view[i])
	if err := applyLocal(&next, m); err != nil {
		p.mu.Unlock()
		res <- &MutationError{Mutation: m, Err: err}
		return res
	}

	e := &entry{m: m, before: cloneOrder(p.view[i]), gen: p.gen, result: res}
	select {
	case p.queue <- e:
	default:
		p.mu.Unlock()
		res <- &MutationError{Mutation: m, Err: ErrQueueFull}
		return res
	}
	p.view[i] = next
	p.pending = append(p.pending, e)
	view, ver := p.captureLocked()
	p.mu.Unlock()

	p.changed(view, ver)
	return res
}

func (p *Poller) poll(ctx context.Context) error {
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	orders, err := p.fetch(fctx)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("sync_fetch_failed", "", "failed to fetch orders", slog.String("error", err.Error()))
			p.failed(err)
		}
		return err
	}
	p.applySnapshot(orders)
	return nil
}

// サーバの一覧で置き換え、未確定の操作を重ね直す
func (p *Poller) applySnapshot(orders []usecase.OrderOutput) {
	p.mu.Lock()
	p.gen++
	p.view = cloneOrders(orders)

	for _, e := range p.pending {
		i := p.indexLocked(e.m.OrderID)
		if i < 0 {
			continue
		}
		e.before = cloneOrder(p.view[i])
		_ = applyLocal(&p.view[i], e.m)
	}

	regressed := p.trackSnapshotLocked(orders)
	view, ver := p.captureLocked()
	p.mu.Unlock()

	p.changed(view, ver)
	p.regressed(regressed)
}

func (p *Poller) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			p.execute(ctx, e)
		}
	}
}

func (p *Poller) execute(ctx context.Context, e *entry) {
	mctx, cancel := context.WithTimeout(ctx, p.timeout)
	out, err := send(mctx, p.api, e.m)
	cancel()

	if err != nil {
		p.rollback(e, err)
		return
	}
	p.commit(e, out)
}

// commit はサーバの返答で注文を置き換える。
// 新しいスナップショットから消えていれば捨てる。
func (p *Poller) commit(e *entry, out usecase.OrderOutput) {
	p.mu.Lock()
	at := p.removePendingLocked(e)

	i := p.indexLocked(e.m.OrderID)
	if i < 0 {
		gen := p.gen
		p.mu.Unlock()
		p.log.Debug("sync_commit_dropped", "", "order left the view before the answer arrived",
			slog.Int64("order_id", e.m.OrderID),
			slog.Uint64("submitted_generation", e.gen), slog.Uint64("generation", gen))
		e.result <- nil
		return
	}

	p.view[i] = cloneOrder(out)
	p.reapplyLocked(at, e.m.OrderID)
	regressed := p.trackOrderLocked(out)
	view, ver := p.captureLocked()
	p.mu.Unlock()

	p.changed(view, ver)
	p.regressed(regressed)
	e.result <- nil
}

// rollback は e を適用する前の注文に戻す。
// サーバが業務的に拒否したときは手元の前提が古いので、すぐ取り直す。
func (p *Poller) rollback(e *entry, cause error) {
	p.mu.Lock()
	at := p.removePendingLocked(e)
	if i := p.indexLocked(e.m.OrderID); i >= 0 {
		p.view[i] = cloneOrder(e.before)
		p.reapplyLocked(at, e.m.OrderID)
	}
	view, ver := p.captureLocked()
	p.mu.Unlock()

	err := &MutationError{Mutation: e.m, Err: cause}
	p.log.Warn("sync_mutation_rolled_back", "", "mutation failed, local view restored",
		slog.String("mutation", e.m.String()), slog.String("error", cause.Error()))

	if isRejection(cause) {
		p.requestRefresh()
	}

	p.changed(view, ver)
	p.failed(err)
	e.result <- err
}

// 前提条件違反・古い書き込み・権限・消えた注文はサーバ側の状態が違う
func isRejection(err error) bool {
	ae, ok := client.AsAPIError(err)
	if !ok {
		return false
	}
	switch ae.Status {
	case http.StatusConflict, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Run のループに取り直しを頼む（溜まっていれば1回にまとめる）
func (p *Poller) requestRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *Poller) drain() {
	for {
		select {
		case e := <-p.queue:
			p.rollback(e, ErrClosed)
		default:
			return
		}
	}
}

// e を外して元の位置を返す
func (p *Poller) removePendingLocked(e *entry) int {
	for i, x := range p.pending {
		if x == e {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return i
		}
	}
	return len(p.pending)
}

// pending[from:] のうち orderID の操作を重ね直す
func (p *Poller) reapplyLocked(from int, orderID int64) {
	i := p.indexLocked(orderID)
	if i < 0 {
		return
	}
	for _, e := range p.pending[from:] {
		if e.m.OrderID != orderID {
			continue
		}
		e.before = cloneOrder(p.view[i])
		_ = applyLocal(&p.view[i], e.m)
	}
}

func (p *Poller) indexLocked(orderID int64) int {
	for i := range p.view {
		if p.view[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (p *Poller) trackSnapshotLocked(orders []usecase.OrderOutput) []usecase.OrderOutput {
	present := make(map[int64]bool, len(orders))
	var regressed []usecase.OrderOutput
	for _, o := range orders {
		present[o.ID] = true
		if p.trackLocked(o) {
			regressed = append(regressed, cloneOrder(o))
		}
	}
	for id := range p.seenReady {
		if !present[id] {
			delete(p.seenReady, id)
		}
	}
	return regressed
}

func (p *Poller) trackOrderLocked(o usecase.OrderOutput) []usecase.OrderOutput {
	if p.trackLocked(o) {
		return []usecase.OrderOutput{cloneOrder(o)}
	}
	return nil
}

// ready から pending に戻ったら true
func (p *Poller) trackLocked(o usecase.OrderOutput) bool {
	switch o.Status {
	case model.OrderStatusReady:
		p.seenReady[o.ID] = true
	case model.OrderStatusPending:
		if p.seenReady[o.ID] {
			delete(p.seenReady, o.ID)
			return true
		}
	default:
		delete(p.seenReady, o.ID)
	}
	return false
}

// captureLocked は渡す表示の複製と版を取る
func (p *Poller) captureLocked() ([]usecase.OrderOutput, uint64) {
	p.version++
	return cloneOrders(p.view), p.version
}

// 古い版が後から届いたら捨てる
func (p *Poller) changed(view []usecase.OrderOutput, ver uint64) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if ver <= p.delivered {
		return
	}
	p.delivered = ver
	if p.hooks.OnChange != nil {
		p.hooks.OnChange(view)
	}
}

func (p *Poller) failed(err error) {
	if p.hooks.OnError != nil {
		p.hooks.OnError(err)
	}
}

func (p *Poller) regressed(orders []usecase.OrderOutput) {
	for _, o := range orders {
		p.log.Info("sync_order_regressed", "", "order is no longer ready",
			slog.Int64("order_id", o.ID), slog.String("order_number", o.OrderNumber))
		if p.hooks.OnRegressed != nil {
			p.hooks.OnRegressed(o)
		}
	}
}

// サーバの返答の見込み。
// ステーションの表示は自分の品目しか持たないので、品目切替の注文ステータスはサーバに任せる。
func applyLocal(o *usecase.OrderOutput, m Mutation) error {
	switch m.Kind {
	case ToggleItem:
		for i := range o.Items {
			if o.Items[i].ID == m.ItemID {
				o.Items[i].Status = m.Status
				return nil
			}
		}
		return ErrUnknownItem
	case ValidatePayment:
		o.PaymentStatus = model.PaymentStatusPaid
		if o.Status == model.OrderStatusUnpaid {
			statuses := make([]model.ItemStatus, 0, len(o.Items))
			for _, it := range o.Items {
				statuses = append(statuses, it.Status)
			}
			o.Status = orderstate.Derive(model.PaymentStatusPaid, statuses)
		}
		return nil
	case Complete:
		o.Status = model.OrderStatusCompleted
		return nil
	}
	return nil
}

func cloneOrders(in []usecase.OrderOutput) []usecase.OrderOutput {
	out := make([]usecase.OrderOutput, len(in))
	for i, o := range in {
		out[i] = cloneOrder(o)
	}
	return out
}

func cloneOrder(o usecase.OrderOutput) usecase.OrderOutput {
	if o.Items != nil {
		items := make([]usecase.OrderItemOutput, len(o.Items))
		for i, it := range o.Items {
			if it.AddOns != nil {
				it.AddOns = append(it.AddOns[:0:0], it.AddOns...)
			}
			items[i] = it
		}
		o.Items = items
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		o.CompletedAt = &t
	}
	return o
}
