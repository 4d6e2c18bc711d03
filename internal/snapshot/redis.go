package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash fields of the redis snapshot key.
const (
	redisFieldSavedAt = "saved_at"
	redisFieldPayload = "payload"
)

// RedisStore keeps the snapshot in a redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string, db int, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	err = s.client.HSet(ctx, s.key,
		redisFieldSavedAt, strconv.FormatInt(snap.SavedAt.UnixNano(), 10),
		redisFieldPayload, data,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.client.HGet(ctx, s.key, redisFieldPayload).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decode(data)
}

// LastSaved implements Store.
func (s *RedisStore) LastSaved(ctx context.Context) (time.Time, error) {
	nanos, err := s.client.HGet(ctx, s.key, redisFieldSavedAt).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read snapshot time: %w", err)
	}
	return time.Unix(0, nanos), nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
