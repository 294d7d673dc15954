package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    request_id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    merchant_name TEXT NOT NULL,
    mcc TEXT NOT NULL,
    total TEXT NOT NULL,
    currency TEXT NOT NULL,
    loyalty_tier TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    context TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
`

const schemaScoreResults = `
CREATE TABLE IF NOT EXISTS score_results (
    request_id TEXT PRIMARY KEY,
    risk_score INTEGER NOT NULL,
    loyalty_boost INTEGER NOT NULL,
    final_score INTEGER NOT NULL,
    routing_hint TEXT NOT NULL,
    raw_score REAL NOT NULL,
    p_approval REAL NOT NULL,
    attribution TEXT NOT NULL,
    signals TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_results_timestamp ON score_results(timestamp);
`

const schemaDecisions = `
CREATE TABLE IF NOT EXISTS decisions (
    request_id TEXT PRIMARY KEY,
    decision TEXT NOT NULL,
    confidence REAL NOT NULL,
    rules TEXT NOT NULL,
    reasons TEXT NOT NULL,
    routing TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_decision ON decisions(decision);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
`

const schemaCards = `
CREATE TABLE IF NOT EXISTS cards (
    customer_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    metadata TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (customer_id, card_id)
);

CREATE INDEX IF NOT EXISTS idx_cards_customer ON cards(customer_id);
`

const schemaWebhookEndpoints = `
CREATE TABLE IF NOT EXISTS webhook_endpoints (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    secret TEXT NOT NULL,
    filter TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaWebhookDeliveries = `
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id TEXT PRIMARY KEY,
    endpoint_id TEXT NOT NULL,
    request_id TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    attempts INTEGER NOT NULL,
    last_error TEXT,
    delivered_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_endpoint ON webhook_deliveries(endpoint_id, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaScoreResults,
		schemaDecisions,
		schemaCards,
		schemaWebhookEndpoints,
		schemaWebhookDeliveries,
	}
}
