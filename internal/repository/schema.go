package repository

// Schema definitions for the MuleCatcher database.
// Compatible with both SQLite and PostgreSQL.

const schemaCaseRuns = `
CREATE TABLE IF NOT EXISTS case_runs (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    file_name TEXT NOT NULL,
    node_count INTEGER NOT NULL DEFAULT 0,
    edge_count INTEGER NOT NULL DEFAULT 0,
    tx_count INTEGER NOT NULL DEFAULT 0,
    suspicious_count INTEGER NOT NULL DEFAULT 0,
    ring_count INTEGER NOT NULL DEFAULT 0,
    risk_exposure REAL NOT NULL DEFAULT 0,
    processing_time REAL NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_case_runs_created ON case_runs(created_at);
`

const schemaCaseAccounts = `
CREATE TABLE IF NOT EXISTS case_accounts (
    case_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    risk_score REAL NOT NULL,
    confidence REAL NOT NULL,
    velocity_label TEXT NOT NULL,
    patterns TEXT,
    ring_id TEXT,
    in_degree INTEGER NOT NULL DEFAULT 0,
    out_degree INTEGER NOT NULL DEFAULT 0,
    centrality_score REAL NOT NULL DEFAULT 0,
    kcore_level INTEGER NOT NULL DEFAULT 0,
    scc_id TEXT,
    PRIMARY KEY (case_id, account_id)
);

CREATE INDEX IF NOT EXISTS idx_case_accounts_case ON case_accounts(case_id);
CREATE INDEX IF NOT EXISTS idx_case_accounts_ring ON case_accounts(case_id, ring_id);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    pattern TEXT NOT NULL,
    boost REAL NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(enabled);
`

const schemaAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    case_id TEXT,
    topic TEXT NOT NULL,
    detail TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_case ON audit_events(case_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCaseRuns,
		schemaCaseAccounts,
		schemaRuleConfigs,
		schemaAuditEvents,
	}
}
