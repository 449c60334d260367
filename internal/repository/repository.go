// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
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

// SaveCaseRun stores a committed case run.
func (r *SQLRepository) SaveCaseRun(ctx context.Context, run *domain.CaseRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: case run id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO case_runs (
			id, date, file_name, node_count, edge_count, tx_count,
			suspicious_count, ring_count, risk_exposure, processing_time,
			risk_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.Date, run.FileName,
		run.NodeCount, run.EdgeCount, run.TxCount,
		run.SuspiciousCount, run.RingCount,
		run.RiskExposure, run.ProcessingTime,
		run.RiskLevel, time.Now().UTC(),
	)
	return err
}

// GetCaseRun retrieves a case run by ID.
func (r *SQLRepository) GetCaseRun(ctx context.Context, caseID string) (*domain.CaseRun, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, date, file_name, node_count, edge_count, tx_count,
			   suspicious_count, ring_count, risk_exposure, processing_time, risk_level
		FROM case_runs
		WHERE id = ?
	`

	var run domain.CaseRun
	err := r.db.QueryRowContext(ctx, r.rebind(query), caseID).Scan(
		&run.ID, &run.Date, &run.FileName,
		&run.NodeCount, &run.EdgeCount, &run.TxCount,
		&run.SuspiciousCount, &run.RingCount,
		&run.RiskExposure, &run.ProcessingTime, &run.RiskLevel,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// ListCaseRuns retrieves all case runs, newest first.
func (r *SQLRepository) ListCaseRuns(ctx context.Context) ([]*domain.CaseRun, error) {
	query := `
		SELECT id, date, file_name, node_count, edge_count, tx_count,
			   suspicious_count, ring_count, risk_exposure, processing_time, risk_level
		FROM case_runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.CaseRun
	for rows.Next() {
		var run domain.CaseRun
		if err := rows.Scan(
			&run.ID, &run.Date, &run.FileName,
			&run.NodeCount, &run.EdgeCount, &run.TxCount,
			&run.SuspiciousCount, &run.RingCount,
			&run.RiskExposure, &run.ProcessingTime, &run.RiskLevel,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// UpdateCaseRun rewrites the mutable fields of a committed case run.
// Used when an applied intervention changes the case metrics.
func (r *SQLRepository) UpdateCaseRun(ctx context.Context, run *domain.CaseRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: case run id is required", ErrInvalidInput)
	}

	query := `
		UPDATE case_runs
		SET suspicious_count = ?, ring_count = ?, risk_exposure = ?, risk_level = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		run.SuspiciousCount, run.RingCount, run.RiskExposure, run.RiskLevel, run.ID,
	)
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

// SaveAccounts stores the analyzed accounts of a case run.
func (r *SQLRepository) SaveAccounts(ctx context.Context, caseID string, accounts []domain.Account) error {
	if caseID == "" {
		return fmt.Errorf("%w: case id is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO case_accounts (
			case_id, account_id, risk_score, confidence, velocity_label,
			patterns, ring_id, in_degree, out_degree, centrality_score,
			kcore_level, scc_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, acc := range accounts {
		patterns, _ := json.Marshal(acc.Patterns)

		var ringID sql.NullString
		if acc.RingID != nil {
			ringID = sql.NullString{String: *acc.RingID, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, r.rebind(query),
			caseID, acc.ID, acc.RiskScore, acc.Confidence, acc.VelocityLabel,
			string(patterns), ringID,
			acc.InDegree, acc.OutDegree, acc.CentralityScore,
			acc.KCoreLevel, acc.SCCID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetAccounts retrieves the analyzed accounts of a case run.
func (r *SQLRepository) GetAccounts(ctx context.Context, caseID string) ([]domain.Account, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", ErrInvalidInput)
	}

	query := `
		SELECT account_id, risk_score, confidence, velocity_label, patterns,
			   ring_id, in_degree, out_degree, centrality_score, kcore_level, scc_id
		FROM case_accounts
		WHERE case_id = ?
		ORDER BY risk_score DESC, account_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acc domain.Account
		var patterns string
		var ringID sql.NullString

		if err := rows.Scan(
			&acc.ID, &acc.RiskScore, &acc.Confidence, &acc.VelocityLabel, &patterns,
			&ringID, &acc.InDegree, &acc.OutDegree, &acc.CentralityScore,
			&acc.KCoreLevel, &acc.SCCID,
		); err != nil {
			return nil, err
		}

		if patterns != "" {
			json.Unmarshal([]byte(patterns), &acc.Patterns)
		}
		if ringID.Valid {
			acc.RingID = &ringID.String
		}

		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// SaveRuleConfig stores a rule configuration.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, rule *domain.RuleConfig) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, name, description, version, expression, pattern, boost, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			pattern = excluded.pattern,
			boost = excluded.boost,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Pattern, rule.Boost, enabled,
		now, now,
	)
	return err
}

// GetRuleConfig retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, ruleID string) (*domain.RuleConfig, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, name, description, version, expression, pattern, boost, enabled
		FROM rule_configs
		WHERE id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.RuleConfig
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&cfg.ID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &cfg.Pattern, &cfg.Boost, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1

	return &cfg, nil
}

// ListRuleConfigs retrieves all enabled rule configurations.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, version, expression, pattern, boost, enabled
		FROM rule_configs
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &cfg.Pattern, &cfg.Boost, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveAuditEvent appends one workflow transition to the audit trail.
func (r *SQLRepository) SaveAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil || event.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_events (id, case_id, topic, detail, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		event.ID, event.CaseID, event.Topic, event.Detail, event.Timestamp,
	)
	return err
}

// ListAuditEvents retrieves the audit trail for a case, newest first.
func (r *SQLRepository) ListAuditEvents(ctx context.Context, caseID string) ([]*domain.AuditEvent, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, case_id, topic, detail, timestamp
		FROM audit_events
		WHERE case_id = ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.CaseID, &ev.Topic, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
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
