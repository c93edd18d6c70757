package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	desksTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, desksTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), desksTTL)
}

func NewRedisCacheWithClient(client *redis.Client, desksTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, desksTTL: desksTTL}
}

// GetDesks returns the cached desk listing for status, or nil on a miss.
func (c *RedisCache) GetDesks(ctx context.Context, status string) ([]domain.Desk, error) {
	data, err := c.client.Get(ctx, desksKey(status)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var desks []domain.Desk
	if err := json.Unmarshal(data, &desks); err != nil {
		return nil, err
	}
	return desks, nil
}

func (c *RedisCache) SetDesks(ctx context.Context, status string, desks []domain.Desk) error {
	payload, err := json.Marshal(desks)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, desksKey(status), payload, c.desksTTL).Err()
}

// InvalidateDesks drops every cached desk listing.
func (c *RedisCache) InvalidateDesks(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, desksKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// releaseLockSource deletes a lock only while it still carries the token of
// the acquire that set it.
const releaseLockSource = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockScript = redis.NewScript(releaseLockSource)

// AcquireSlotLock sets the slot lock if it is free and returns the token
// needed to release it.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, slotLockKey(deskID, date, slot), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseSlotLock is a no-op once the lock has expired and been taken by
// another holder.
func (c *RedisCache) ReleaseSlotLock(ctx context.Context, deskID string, date domain.Date, slot domain.TimeSlot, token string) error {
	return releaseLockScript.Run(ctx, c.client, []string{slotLockKey(deskID, date, slot)}, token).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func desksKey(status string) string {
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf("cache:desks:%s", status)
}

func slotLockKey(deskID string, date domain.Date, slot domain.TimeSlot) string {
	return fmt.Sprintf("lock:desk:%s:date:%s:slot:%s", deskID, date, slot)
}
