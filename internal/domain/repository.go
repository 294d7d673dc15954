// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Transaction history, the source of truth for velocity counts
	SaveTransaction(ctx context.Context, tc *TransactionContext) error
	CountTransactionsByCustomer(ctx context.Context, customerID string, since time.Time) (int64, error)

	// Scoring output
	SaveScoreResult(ctx context.Context, result *ScoreResult) error
	GetScoreResult(ctx context.Context, requestID string) (*ScoreResult, error)

	// Decision output
	SaveDecision(ctx context.Context, contract *DecisionContract) error
	GetDecision(ctx context.Context, requestID string) (*DecisionContract, error)
	ListDecisionsByCustomer(ctx context.Context, customerID string, limit int) ([]*DecisionContract, error)

	// Wallet operations
	SaveCard(ctx context.Context, customerID string, card *CardMetadata) error
	ListCards(ctx context.Context, customerID string) ([]*CardMetadata, error)
	DeleteCard(ctx context.Context, customerID string, cardID string) error
	ReplaceWallet(ctx context.Context, customerID string, cards []*CardMetadata) error

	// Webhook endpoints and delivery audit
	SaveWebhookEndpoint(ctx context.Context, ep *WebhookEndpoint) error
	GetWebhookEndpoint(ctx context.Context, id string) (*WebhookEndpoint, error)
	ListWebhookEndpoints(ctx context.Context) ([]*WebhookEndpoint, error)
	DeleteWebhookEndpoint(ctx context.Context, id string) error
	SaveWebhookDelivery(ctx context.Context, d *WebhookDelivery) error
	ListWebhookDeliveries(ctx context.Context, endpointID string, limit int) ([]*WebhookDelivery, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
