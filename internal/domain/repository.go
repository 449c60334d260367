package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Case run history
	SaveCaseRun(ctx context.Context, run *CaseRun) error
	GetCaseRun(ctx context.Context, caseID string) (*CaseRun, error)
	ListCaseRuns(ctx context.Context) ([]*CaseRun, error)
	UpdateCaseRun(ctx context.Context, run *CaseRun) error

	// Accounts of a case run
	SaveAccounts(ctx context.Context, caseID string, accounts []Account) error
	GetAccounts(ctx context.Context, caseID string) ([]Account, error)

	// Rule configuration operations
	SaveRuleConfig(ctx context.Context, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]*RuleConfig, error)

	// Audit trail
	SaveAuditEvent(ctx context.Context, event *AuditEvent) error
	ListAuditEvents(ctx context.Context, caseID string) ([]*AuditEvent, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AuditEvent records one workflow transition for the audit trail.
type AuditEvent struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"caseId,omitempty"`
	Topic     string    `json:"topic"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
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
