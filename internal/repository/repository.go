// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a scored transaction context for audit and
// velocity counting. The full context is kept as JSON next to the
// queryable summary columns.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tc *domain.TransactionContext) error {
	if tc == nil || tc.RequestID == "" {
		return fmt.Errorf("%w: requestId is required", ErrInvalidInput)
	}
	if tc.Customer.ID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	full, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}

	query := `
		INSERT INTO transactions (
			request_id, customer_id, merchant_name, mcc, total, currency,
			loyalty_tier, timestamp, created_at, context
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tc.RequestID, tc.Customer.ID,
		tc.Merchant.Name, tc.Merchant.MCC,
		tc.Cart.Total.String(), tc.Cart.Currency,
		string(tc.Customer.LoyaltyTier),
		tc.Timestamp, time.Now().UTC(),
		string(full),
	)
	return err
}

// CountTransactionsByCustomer counts a customer's stored transactions
// since the given time. Feeds the 24h velocity signal.
func (r *SQLRepository) CountTransactionsByCustomer(ctx context.Context, customerID string, since time.Time) (int64, error) {
	if customerID == "" {
		return 0, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE customer_id = ? AND timestamp >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), customerID, since).Scan(&count)
	return count, err
}

// SaveScoreResult stores a scoring output keyed by request ID.
func (r *SQLRepository) SaveScoreResult(ctx context.Context, result *domain.ScoreResult) error {
	if result == nil || result.RequestID == "" {
		return fmt.Errorf("%w: requestId is required", ErrInvalidInput)
	}

	attribution, _ := json.Marshal(result.Attribution)
	signals, _ := json.Marshal(result.Signals)

	query := `
		INSERT INTO score_results (
			request_id, risk_score, loyalty_boost, final_score, routing_hint,
			raw_score, p_approval, attribution, signals, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.RequestID,
		result.RiskScore, result.LoyaltyBoost, result.FinalScore,
		result.RoutingHint,
		result.RawScore, result.PApproval,
		string(attribution), string(signals),
		result.Timestamp,
	)
	return err
}

// GetScoreResult retrieves a scoring output by request ID.
func (r *SQLRepository) GetScoreResult(ctx context.Context, requestID string) (*domain.ScoreResult, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", ErrInvalidInput)
	}

	query := `
		SELECT request_id, risk_score, loyalty_boost, final_score, routing_hint,
			   raw_score, p_approval, attribution, signals, timestamp
		FROM score_results
		WHERE request_id = ?
	`

	var result domain.ScoreResult
	var attribution, signals string

	err := r.db.QueryRowContext(ctx, r.rebind(query), requestID).Scan(
		&result.RequestID,
		&result.RiskScore, &result.LoyaltyBoost, &result.FinalScore,
		&result.RoutingHint,
		&result.RawScore, &result.PApproval,
		&attribution, &signals,
		&result.Timestamp,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(attribution), &result.Attribution)
	json.Unmarshal([]byte(signals), &result.Signals)

	return &result, nil
}

// SaveDecision stores a finalized decision contract.
func (r *SQLRepository) SaveDecision(ctx context.Context, contract *domain.DecisionContract) error {
	if contract == nil || contract.RequestID == "" {
		return fmt.Errorf("%w: requestId is required", ErrInvalidInput)
	}

	rules, _ := json.Marshal(contract.Rules)
	reasons, _ := json.Marshal(contract.Reasons)
	routing, _ := json.Marshal(contract.Routing)

	query := `
		INSERT INTO decisions (
			request_id, decision, confidence, rules, reasons, routing, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		contract.RequestID, string(contract.Decision), contract.Confidence,
		string(rules), string(reasons), string(routing),
		contract.Timestamp,
	)
	return err
}

// GetDecision retrieves a decision contract by request ID.
func (r *SQLRepository) GetDecision(ctx context.Context, requestID string) (*domain.DecisionContract, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", ErrInvalidInput)
	}

	query := `
		SELECT request_id, decision, confidence, rules, reasons, routing, timestamp
		FROM decisions
		WHERE request_id = ?
	`

	contract, err := scanDecision(r.db.QueryRowContext(ctx, r.rebind(query), requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return contract, err
}

// ListDecisionsByCustomer retrieves a customer's most recent decisions,
// joined through the transaction audit table.
func (r *SQLRepository) ListDecisionsByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.DecisionContract, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT d.request_id, d.decision, d.confidence, d.rules, d.reasons, d.routing, d.timestamp
		FROM decisions d
		JOIN transactions t ON t.request_id = d.request_id
		WHERE t.customer_id = ?
		ORDER BY d.timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*domain.DecisionContract
	for rows.Next() {
		contract, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}

	return contracts, rows.Err()
}

// SaveCard upserts one card in a customer's wallet.
func (r *SQLRepository) SaveCard(ctx context.Context, customerID string, card *domain.CardMetadata) error {
	if customerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if card == nil || card.ID == "" {
		return fmt.Errorf("%w: card id is required", ErrInvalidInput)
	}

	metadata, _ := json.Marshal(card)
	now := time.Now().UTC()

	query := `
		INSERT INTO cards (customer_id, card_id, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, card_id) DO UPDATE SET
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		customerID, card.ID, string(metadata), now, now,
	)
	return err
}

// ListCards retrieves a customer's wallet in stable card-id order.
func (r *SQLRepository) ListCards(ctx context.Context, customerID string) ([]*domain.CardMetadata, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	query := `
		SELECT metadata
		FROM cards
		WHERE customer_id = ?
		ORDER BY card_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*domain.CardMetadata
	for rows.Next() {
		var metadata string
		if err := rows.Scan(&metadata); err != nil {
			return nil, err
		}

		var card domain.CardMetadata
		if err := json.Unmarshal([]byte(metadata), &card); err != nil {
			return nil, fmt.Errorf("failed to parse card metadata: %w", err)
		}
		cards = append(cards, &card)
	}

	return cards, rows.Err()
}

// DeleteCard removes one card from a customer's wallet.
func (r *SQLRepository) DeleteCard(ctx context.Context, customerID string, cardID string) error {
	if customerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if cardID == "" {
		return fmt.Errorf("%w: card id is required", ErrInvalidInput)
	}

	query := `DELETE FROM cards WHERE customer_id = ? AND card_id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), customerID, cardID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ReplaceWallet atomically replaces a customer's whole wallet.
func (r *SQLRepository) ReplaceWallet(ctx context.Context, customerID string, cards []*domain.CardMetadata) error {
	if customerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM cards WHERE customer_id = ?`), customerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	insert := r.rebind(`
		INSERT INTO cards (customer_id, card_id, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, card := range cards {
		if card == nil || card.ID == "" {
			return fmt.Errorf("%w: card id is required", ErrInvalidInput)
		}
		metadata, _ := json.Marshal(card)
		if _, err := tx.ExecContext(ctx, insert, customerID, card.ID, string(metadata), now, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveWebhookEndpoint upserts a webhook endpoint registration.
func (r *SQLRepository) SaveWebhookEndpoint(ctx context.Context, ep *domain.WebhookEndpoint) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("%w: endpoint id is required", ErrInvalidInput)
	}

	enabled := 0
	if ep.Enabled {
		enabled = 1
	}

	query := `
		INSERT INTO webhook_endpoints (id, url, secret, filter, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			secret = excluded.secret,
			filter = excluded.filter,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ep.ID, ep.URL, ep.Secret, ep.Filter, enabled,
		ep.CreatedAt, ep.UpdatedAt,
	)
	return err
}

// GetWebhookEndpoint retrieves a webhook endpoint by ID.
func (r *SQLRepository) GetWebhookEndpoint(ctx context.Context, id string) (*domain.WebhookEndpoint, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, url, secret, filter, enabled, created_at, updated_at
		FROM webhook_endpoints
		WHERE id = ?
	`

	ep, err := scanEndpoint(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ep, err
}

// ListWebhookEndpoints retrieves all registered endpoints.
func (r *SQLRepository) ListWebhookEndpoints(ctx context.Context) ([]*domain.WebhookEndpoint, error) {
	query := `
		SELECT id, url, secret, filter, enabled, created_at, updated_at
		FROM webhook_endpoints
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*domain.WebhookEndpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, rows.Err()
}

// DeleteWebhookEndpoint removes a webhook endpoint registration.
func (r *SQLRepository) DeleteWebhookEndpoint(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: endpoint id is required", ErrInvalidInput)
	}

	query := `DELETE FROM webhook_endpoints WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveWebhookDelivery records the outcome of one delivery attempt chain.
func (r *SQLRepository) SaveWebhookDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("%w: delivery id is required", ErrInvalidInput)
	}

	var deliveredAt sql.NullTime
	if d.DeliveredAt != nil {
		deliveredAt = sql.NullTime{Time: *d.DeliveredAt, Valid: true}
	}

	query := `
		INSERT INTO webhook_deliveries (
			id, endpoint_id, request_id, status_code, attempts,
			last_error, delivered_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		d.ID, d.EndpointID, d.RequestID,
		d.StatusCode, d.Attempts,
		d.LastError, deliveredAt, d.CreatedAt,
	)
	return err
}

// ListWebhookDeliveries retrieves the most recent deliveries for an endpoint.
func (r *SQLRepository) ListWebhookDeliveries(ctx context.Context, endpointID string, limit int) ([]*domain.WebhookDelivery, error) {
	if endpointID == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, endpoint_id, request_id, status_code, attempts,
			   last_error, delivered_at, created_at
		FROM webhook_deliveries
		WHERE endpoint_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*domain.WebhookDelivery
	for rows.Next() {
		var d domain.WebhookDelivery
		var deliveredAt sql.NullTime

		if err := rows.Scan(
			&d.ID, &d.EndpointID, &d.RequestID,
			&d.StatusCode, &d.Attempts,
			&d.LastError, &deliveredAt, &d.CreatedAt,
		); err != nil {
			return nil, err
		}

		if deliveredAt.Valid {
			t := deliveredAt.Time
			d.DeliveredAt = &t
		}
		deliveries = append(deliveries, &d)
	}

	return deliveries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(s scanner) (*domain.DecisionContract, error) {
	var contract domain.DecisionContract
	var decision, rules, reasons, routing string

	if err := s.Scan(
		&contract.RequestID, &decision, &contract.Confidence,
		&rules, &reasons, &routing,
		&contract.Timestamp,
	); err != nil {
		return nil, err
	}

	contract.Decision = domain.Decision(decision)
	json.Unmarshal([]byte(rules), &contract.Rules)
	json.Unmarshal([]byte(reasons), &contract.Reasons)
	json.Unmarshal([]byte(routing), &contract.Routing)

	return &contract, nil
}

func scanEndpoint(s scanner) (*domain.WebhookEndpoint, error) {
	var ep domain.WebhookEndpoint
	var enabled int

	if err := s.Scan(
		&ep.ID, &ep.URL, &ep.Secret, &ep.Filter, &enabled,
		&ep.CreatedAt, &ep.UpdatedAt,
	); err != nil {
		return nil, err
	}

	ep.Enabled = enabled == 1
	return &ep, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
