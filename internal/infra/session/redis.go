package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tableorder/internal/domain/model"
	repo "tableorder/internal/repository"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore はテーブルセッションをTTL付きで保存する。期限はRedis側で消える。
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, now: time.Now}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, sess model.TableSession) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.Token)
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sess.Token, b, ttl).Err()
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (model.TableSession, error) {
	b, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TableSession{}, repo.ErrNotFound
	}
	if err != nil {
		return model.TableSession{}, err
	}

	var sess model.TableSession
	if err := json.Unmarshal(b, &sess); err != nil {
		return model.TableSession{}, fmt.Errorf("decode session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return model.TableSession{}, repo.ErrNotFound
	}
	return sess, nil
}
