package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetWallet retrieves a cached customer wallet.
	GetWallet(ctx context.Context, customerID string) ([]*CardMetadata, error)

	// SetWallet caches a customer wallet to spare the repository on the
	// recommend path.
	SetWallet(ctx context.Context, customerID string, cards []*CardMetadata, ttl time.Duration) error

	// DeleteWallet invalidates a cached wallet after a mutation.
	DeleteWallet(ctx context.Context, customerID string) error

	// GetDecision retrieves a cached decision contract.
	GetDecision(ctx context.Context, requestID string) (*DecisionContract, error)

	// SetDecision caches a finalized decision for idempotent reads.
	SetDecision(ctx context.Context, requestID string, contract *DecisionContract, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for velocity tracking (transaction count in a time window).
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
