package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session under one key with a TTL, so a token
// outlives the process and can be shared by the CLI subcommands.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisStoreFromURL(url, key string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opt), key, ttl), nil
}

func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		// a corrupt entry is as good as none
		s.rdb.Del(ctx, s.key)
		return Session{}, ErrNoSession
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
