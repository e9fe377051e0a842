// Package memory はDBなしで動かすためのリポジトリ実装。
// ローカル開発（STORAGE=memory）とusecaseのテストで使う。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"gorm.io/gorm"
)

type state struct {
	menu   map[int64]model.MenuItem
	addOns map[int64]model.MenuAddOn
	orders map[int64]model.Order
	items  map[int64]model.OrderItem
	audit  []model.AuditLog
	rate   *model.RateSetting
	tables map[string]model.DiningTable

	nextOrderID int64
	nextItemID  int64
	nextAuditID int64
}

func (s *state) clone() *state {
	c := &state{
		menu:        make(map[int64]model.MenuItem, len(s.menu)),
		addOns:      make(map[int64]model.MenuAddOn, len(s.addOns)),
		orders:      make(map[int64]model.Order, len(s.orders)),
		items:       make(map[int64]model.OrderItem, len(s.items)),
		audit:       append([]model.AuditLog(nil), s.audit...),
		tables:      make(map[string]model.DiningTable, len(s.tables)),
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
		nextAuditID: s.nextAuditID,
	}
	for k, v := range s.menu {
		c.menu[k] = v
	}
	for k, v := range s.addOns {
		c.addOns[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	if s.rate != nil {
		r := *s.rate
		c.rate = &r
	}
	return c
}

// Store は全テーブルを1つのロックで守る。WithinTx はロックを握ったまま実行し、
// エラー時は開始時点のスナップショットに戻す。
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: &state{
			menu:   map[int64]model.MenuItem{},
			addOns: map[int64]model.MenuAddOn{},
			orders: map[int64]model.Order{},
			items:  map[int64]model.OrderItem{},
			tables: map[string]model.DiningTable{},
		},
		now: time.Now,
	}
}

// テスト用に時刻を固定する
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) PutMenuItem(m model.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.menu[m.ID] = m
}

func (s *Store) PutAddOn(a model.MenuAddOn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.addOns[a.ID] = a
}

func (s *Store) PutTable(t model.DiningTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tables[t.QRCode] = t
}

// 在庫の確認用
func (s *Store) Stock(menuItemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.menu[menuItemID].Stock
}

func (s *Store) AuditEntries() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.st.audit...)
}

func (s *Store) view(inTx bool, fn func(st *state)) {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(s.st)
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txRepos{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type txRepos struct {
	s *Store
}

func (r *txRepos) Orders() repo.OrderRepository         { return &OrderRepo{s: r.s, inTx: true} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return &OrderItemRepo{s: r.s, inTx: true} }
func (r *txRepos) Menu() repo.MenuRepository            { return &MenuRepo{s: r.s, inTx: true} }
func (r *txRepos) Inventory() repo.InventoryRepository  { return &InventoryRepo{s: r.s, inTx: true} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return &AuditLogRepo{s: r.s, inTx: true} }

// Tx外から使うリポジトリ
func (s *Store) Orders() *OrderRepo         { return &OrderRepo{s: s} }
func (s *Store) OrderItems() *OrderItemRepo { return &OrderItemRepo{s: s} }
func (s *Store) Menu() *MenuRepo            { return &MenuRepo{s: s} }
func (s *Store) Inventory() *InventoryRepo  { return &InventoryRepo{s: s} }
func (s *Store) AuditLogs() *AuditLogRepo   { return &AuditLogRepo{s: s} }
func (s *Store) Rates() *RateRepo           { return &RateRepo{s: s} }
func (s *Store) Tables() *TableRepo         { return &TableRepo{s: s} }

type MenuRepo struct {
	s    *Store
	inTx bool
}

func (r *MenuRepo) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var (
		m  model.MenuItem
		ok bool
	)
	r.s.view(r.inTx, func(st *state) { m, ok = st.menu[id] })
	if !ok {
		return model.MenuItem{}, repo.ErrNotFound
	}
	return m, nil
}

func (r *MenuRepo) FindAddOns(ctx context.Context, menuItemID int64, addOnIDs []int64) ([]model.MenuAddOn, error) {
	out := []model.MenuAddOn{}
	r.s.view(r.inTx, func(st *state) {
		for _, id := range addOnIDs {
			a, ok := st.addOns[id]
			if ok && a.MenuItemID == menuItemID {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MenuRepo) ListAddOns(ctx context.Context, menuItemID int64) ([]model.MenuAddOn, error) {
	out := []model.MenuAddOn{}
	r.s.view(r.inTx, func(st *state) {
		for _, a := range st.addOns {
			if a.MenuItemID == menuItemID {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type InventoryRepo struct {
	s    *Store
	inTx bool
}

func (r *InventoryRepo) DecreaseStockIfEnough(ctx context.Context, menuItemID int64, qty int64) (bool, int64, error) {
	var (
		ok        bool
		available int64
	)
	r.s.view(r.inTx, func(st *state) {
		m, found := st.menu[menuItemID]
		if !found || !m.IsAvailable {
			return
		}
		if m.Stock < qty {
			available = m.Stock
			return
		}
		m.Stock -= qty
		st.menu[menuItemID] = m
		ok = true
	})
	return ok, available, nil
}

func (r *InventoryRepo) IncreaseStock(ctx context.Context, menuItemID int64, qty int64) error {
	var found bool
	r.s.view(r.inTx, func(st *state) {
		m, ok := st.menu[menuItemID]
		if !ok {
			return
		}
		m.Stock += qty
		st.menu[menuItemID] = m
		found = true
	})
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

type OrderRepo struct {
	s    *Store
	inTx bool
}

func (r *OrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var (
		o  model.Order
		ok bool
	)
	r.s.view(r.inTx, func(st *state) { o, ok = st.orders[orderID] })
	if !ok || o.DeletedAt.Valid {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

// 全体ロックで直列化済み
func (r *OrderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *OrderRepo) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	var (
		found model.Order
		ok    bool
	)
	r.s.view(r.inTx, func(st *state) {
		for _, o := range st.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == key && !o.DeletedAt.Valid {
				found, ok = o, true
				return
			}
		}
	})
	return found, ok, nil
}

func (r *OrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	var dup bool
	r.s.view(r.inTx, func(st *state) {
		for _, o := range st.orders {
			if o.OrderNumber == order.OrderNumber {
				dup = true
				return
			}
			if order.IdempotencyKey != nil && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				dup = true
				return
			}
		}
		st.nextOrderID++
		order.ID = st.nextOrderID
		now := r.s.now()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		order.UpdatedAt = now
		st.orders[order.ID] = order
	})
	if dup {
		return 0, repo.ErrDuplicate
	}
	return order.ID, nil
}

func (r *OrderRepo) UpdateState(ctx context.Context, order model.Order) error {
	var found bool
	r.s.view(r.inTx, func(st *state) {
		cur, ok := st.orders[order.ID]
		if !ok || cur.DeletedAt.Valid {
			return
		}
		cur.Status = order.Status
		cur.PaymentStatus = order.PaymentStatus
		cur.PaidAt = order.PaidAt
		cur.CompletedAt = order.CompletedAt
		cur.UpdatedAt = r.s.now()
		st.orders[order.ID] = cur
		found = true
	})
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	r.s.view(r.inTx, func(st *state) {
		for _, o := range st.orders {
			if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
				n++
			}
		}
	})
	return n, nil
}

func (r *OrderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	out := []model.Order{}
	r.s.view(r.inTx, func(st *state) {
		var withCategory map[int64]bool
		if f.Category != nil {
			withCategory = map[int64]bool{}
			for _, it := range st.items {
				if it.Category == *f.Category {
					withCategory[it.OrderID] = true
				}
			}
		}
		for _, o := range st.orders {
			if o.DeletedAt.Valid {
				continue
			}
			if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
				continue
			}
			if f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus {
				continue
			}
			if withCategory != nil && !withCategory[o.ID] {
				continue
			}
			out = append(out, o)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func containsStatus(list []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *OrderRepo) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	r.s.view(r.inTx, func(st *state) {
		now := r.s.now()
		for id, o := range st.orders {
			if o.DeletedAt.Valid || !o.UpdatedAt.Before(before) {
				continue
			}
			if o.Status != model.OrderStatusCompleted && o.Status != model.OrderStatusFailed {
				continue
			}
			o.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
			st.orders[id] = o
			n++
		}
	})
	return n, nil
}

type OrderItemRepo struct {
	s    *Store
	inTx bool
}

func (r *OrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error) {
	out := make([]model.OrderItem, 0, len(items))
	r.s.view(r.inTx, func(st *state) {
		now := r.s.now()
		for _, it := range items {
			st.nextItemID++
			it.ID = st.nextItemID
			it.OrderID = orderID
			it.CreatedAt = now
			it.UpdatedAt = now
			st.items[it.ID] = it
			out = append(out, it)
		}
	})
	return out, nil
}

func (r *OrderItemRepo) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	var (
		it model.OrderItem
		ok bool
	)
	r.s.view(r.inTx, func(st *state) { it, ok = st.items[itemID] })
	if !ok {
		return model.OrderItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r *OrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	grouped, err := r.ListByOrderIDs(ctx, []int64{orderID})
	if err != nil {
		return nil, err
	}
	if items := grouped[orderID]; items != nil {
		return items, nil
	}
	return []model.OrderItem{}, nil
}

func (r *OrderItemRepo) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	want := make(map[int64]bool, len(orderIDs))
	for _, id := range orderIDs {
		want[id] = true
	}
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	r.s.view(r.inTx, func(st *state) {
		for _, it := range st.items {
			if want[it.OrderID] {
				out[it.OrderID] = append(out[it.OrderID], it)
			}
		}
	})
	for id := range out {
		items := out[id]
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	}
	return out, nil
}

func (r *OrderItemRepo) UpdateStatus(ctx context.Context, itemID int64, status model.ItemStatus) error {
	var found bool
	r.s.view(r.inTx, func(st *state) {
		it, ok := st.items[itemID]
		if !ok {
			return
		}
		it.Status = status
		it.UpdatedAt = r.s.now()
		st.items[itemID] = it
		found = true
	})
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

type AuditLogRepo struct {
	s    *Store
	inTx bool
}

func (r *AuditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	r.s.view(r.inTx, func(st *state) {
		st.nextAuditID++
		log.ID = st.nextAuditID
		if log.CreatedAt.IsZero() {
			log.CreatedAt = r.s.now()
		}
		st.audit = append(st.audit, log)
	})
	return nil
}

func (r *AuditLogRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	r.s.view(r.inTx, func(st *state) {
		for _, l := range st.audit {
			if auditMatches(l, f) {
				out = append(out, l)
			}
		}
	})

	// 追加順 = id順
	if f.OldestFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.AuditLog{}, nil
		}
		out = out[f.Offset:]
	}
	if n := f.PageSize(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func auditMatches(l model.AuditLog, f repo.AuditLogFilter) bool {
	switch {
	case f.OrderID != nil && l.OrderID != *f.OrderID:
		return false
	case f.ActorRole != nil && l.ActorRole != *f.ActorRole:
		return false
	case f.ActorID != nil && l.ActorID != *f.ActorID:
		return false
	case f.ResourceType != nil && l.ResourceType != *f.ResourceType:
		return false
	case f.ResourceID != nil && l.ResourceID != *f.ResourceID:
		return false
	case f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo):
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if l.Action == a {
			return true
		}
	}
	return false
}

type RateRepo struct {
	s *Store
}

func (r *RateRepo) Get(ctx context.Context) (model.RateSetting, bool, error) {
	var (
		rs model.RateSetting
		ok bool
	)
	r.s.view(false, func(st *state) {
		if st.rate != nil {
			rs, ok = *st.rate, true
		}
	})
	return rs, ok, nil
}

func (r *RateRepo) Save(ctx context.Context, rs model.RateSetting) error {
	r.s.view(false, func(st *state) {
		rs.ID = 1
		rs.UpdatedAt = r.s.now()
		st.rate = &rs
	})
	return nil
}

type TableRepo struct {
	s *Store
}

func (r *TableRepo) FindByQRCode(ctx context.Context, qr string) (model.DiningTable, error) {
	var (
		t  model.DiningTable
		ok bool
	)
	r.s.view(false, func(st *state) { t, ok = st.tables[qr] })
	if !ok || !t.IsActive {
		return model.DiningTable{}, repo.ErrNotFound
	}
	return t, nil
}

// Seed はカタログをまとめて登録する
func (s *Store) Seed(items []model.MenuItem, addOns []model.MenuAddOn, tables []model.DiningTable) {
	for _, m := range items {
		s.PutMenuItem(m)
	}
	for _, a := range addOns {
		s.PutAddOn(a)
	}
	for _, t := range tables {
		s.PutTable(t)
	}
}
