package session

import (
	"context"
	"sync"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"
)

// Redisがない環境用
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.TableSession
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]model.TableSession{}, now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, sess model.TableSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) FindByToken(ctx context.Context, token string) (model.TableSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || !sess.ExpiresAt.After(s.now()) {
		return model.TableSession{}, repo.ErrNotFound
	}
	return sess, nil
}

// テスト用に時刻を固定する
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
