package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient caches rendered event-list pages. Keys are scoped with a
// common prefix so invalidation can drop every cached page at once.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

const eventsListPrefix = "events:list:"

func NewRedisClient(cfg Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Minute
	}

	return &RedisClient{client: rdb, ttl: ttl}, nil
}

// GetEventsListRaw returns the cached JSON page, redis.Nil-wrapped error on miss.
func (r *RedisClient) GetEventsListRaw(ctx context.Context, page, size int) ([]byte, error) {
	raw, err := r.client.Get(ctx, eventsListKey(page, size)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("events list cache miss: %w", err)
	}
	return raw, nil
}

// SetEventsList stores a rendered page. Errors are returned but callers
// treat them as non-fatal.
func (r *RedisClient) SetEventsList(ctx context.Context, page, size int, response any) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal events list: %w", err)
	}
	return r.client.Set(ctx, eventsListKey(page, size), payload, r.ttl).Err()
}

// InvalidateEventsList drops every cached page. Called on any event write.
func (r *RedisClient) InvalidateEventsList(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, eventsListPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan error: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func eventsListKey(page, size int) string {
	return fmt.Sprintf("%s%d:%d", eventsListPrefix, page, size)
}
