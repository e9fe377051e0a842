package cart

import (
	"context"
	"sync"
)

// プロセス内メモリに持つだけの保存先
type MemoryStore struct {
	mu    sync.Mutex
	cart  Cart
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Cart, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.clone(), s.saved, nil
}

func (s *MemoryStore) Save(ctx context.Context, c Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = c.clone()
	s.saved = true
	return nil
}
