package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// RedisCache implements Cache using Redis.
// Used as the Pro tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.makeKey(key), value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.makeKey(key)).Err()
}

// GetWallet retrieves a cached customer wallet.
func (c *RedisCache) GetWallet(ctx context.Context, customerID string) ([]*domain.CardMetadata, error) {
	data, err := c.Get(ctx, "wallet:"+customerID)
	if err != nil || data == nil {
		return nil, err
	}

	var cards []*domain.CardMetadata
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// SetWallet caches a customer wallet.
func (c *RedisCache) SetWallet(ctx context.Context, customerID string, cards []*domain.CardMetadata, ttl time.Duration) error {
	bytes, err := json.Marshal(cards)
	if err != nil {
		return err
	}
	return c.Set(ctx, "wallet:"+customerID, bytes, ttl)
}

// DeleteWallet invalidates a cached wallet.
func (c *RedisCache) DeleteWallet(ctx context.Context, customerID string) error {
	return c.Delete(ctx, "wallet:"+customerID)
}

// GetDecision retrieves a cached decision contract.
func (c *RedisCache) GetDecision(ctx context.Context, requestID string) (*domain.DecisionContract, error) {
	data, err := c.Get(ctx, "decision:"+requestID)
	if err != nil || data == nil {
		return nil, err
	}

	var contract domain.DecisionContract
	if err := json.Unmarshal(data, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// SetDecision caches a finalized decision contract.
func (c *RedisCache) SetDecision(ctx context.Context, requestID string, contract *domain.DecisionContract, ttl time.Duration) error {
	bytes, err := json.Marshal(contract)
	if err != nil {
		return err
	}
	return c.Set(ctx, "decision:"+requestID, bytes, ttl)
}

// IncrementCounter atomically increments a counter using Redis INCR with EXPIRE.
func (c *RedisCache) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := c.makeKey("counter:" + key)

	// Use Lua script for atomic increment with TTL
	script := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	result, err := script.Run(ctx, c.client, []string{fullKey}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, err
	}

	return result, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(key string) string {
	return "kestrel:" + key
}
