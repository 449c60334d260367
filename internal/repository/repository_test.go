package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "mulecatcher-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetCaseRun", func(t *testing.T) {
		run := &domain.CaseRun{
			ID:              "case-001",
			Date:            "2026-08-28",
			FileName:        "upload.csv",
			NodeCount:       12,
			EdgeCount:       18,
			TxCount:         40,
			SuspiciousCount: 4,
			RingCount:       2,
			RiskExposure:    88.5,
			ProcessingTime:  1.42,
			RiskLevel:       domain.RiskMedium,
		}

		if err := repo.SaveCaseRun(ctx, run); err != nil {
			t.Fatalf("SaveCaseRun failed: %v", err)
		}

		retrieved, err := repo.GetCaseRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("GetCaseRun failed: %v", err)
		}

		if retrieved.FileName != run.FileName {
			t.Errorf("expected FileName %s, got %s", run.FileName, retrieved.FileName)
		}
		if retrieved.RiskExposure != run.RiskExposure {
			t.Errorf("expected RiskExposure %.2f, got %.2f", run.RiskExposure, retrieved.RiskExposure)
		}
		if retrieved.RiskLevel != run.RiskLevel {
			t.Errorf("expected RiskLevel %s, got %s", run.RiskLevel, retrieved.RiskLevel)
		}
	})

	t.Run("ListCaseRunsNewestFirst", func(t *testing.T) {
		older := &domain.CaseRun{ID: "case-000", Date: "2026-08-27", FileName: "old.csv", RiskLevel: domain.RiskLow}
		if err := repo.SaveCaseRun(ctx, older); err != nil {
			t.Fatalf("SaveCaseRun failed: %v", err)
		}

		runs, err := repo.ListCaseRuns(ctx)
		if err != nil {
			t.Fatalf("ListCaseRuns failed: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != "case-000" {
			t.Errorf("expected newest insert first, got %s", runs[0].ID)
		}
	})

	t.Run("UpdateCaseRun", func(t *testing.T) {
		run, err := repo.GetCaseRun(ctx, "case-001")
		if err != nil {
			t.Fatalf("GetCaseRun failed: %v", err)
		}

		run.SuspiciousCount = 1
		run.RingCount = 0
		run.RiskExposure = 30

		if err := repo.UpdateCaseRun(ctx, run); err != nil {
			t.Fatalf("UpdateCaseRun failed: %v", err)
		}

		retrieved, err := repo.GetCaseRun(ctx, "case-001")
		if err != nil {
			t.Fatalf("GetCaseRun failed: %v", err)
		}
		if retrieved.SuspiciousCount != 1 || retrieved.RingCount != 0 {
			t.Errorf("update not applied: %+v", retrieved)
		}
		// Immutable fields stay intact.
		if retrieved.FileName != "upload.csv" || retrieved.TxCount != 40 {
			t.Errorf("immutable fields changed: %+v", retrieved)
		}
	})

	t.Run("UpdateMissingCaseRun", func(t *testing.T) {
		if err := repo.UpdateCaseRun(ctx, &domain.CaseRun{ID: "nonexistent"}); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("SaveAndGetAccounts", func(t *testing.T) {
		ring := "ring-1"
		accounts := []domain.Account{
			{
				ID: "acc_a", RiskScore: 85, Confidence: 95, VelocityLabel: domain.VelocityHigh,
				Patterns: []string{"cycle"}, RingID: &ring, InDegree: 2, OutDegree: 1,
			},
			{
				ID: "acc_b", RiskScore: 40, Confidence: 50, VelocityLabel: domain.VelocityMedium,
				Patterns: []string{"smurfing"},
			},
		}

		if err := repo.SaveAccounts(ctx, "case-001", accounts); err != nil {
			t.Fatalf("SaveAccounts failed: %v", err)
		}

		retrieved, err := repo.GetAccounts(ctx, "case-001")
		if err != nil {
			t.Fatalf("GetAccounts failed: %v", err)
		}
		if len(retrieved) != 2 {
			t.Fatalf("expected 2 accounts, got %d", len(retrieved))
		}
		// Ordered by risk score descending.
		if retrieved[0].ID != "acc_a" {
			t.Errorf("expected acc_a first, got %s", retrieved[0].ID)
		}
		if retrieved[0].RingID == nil || *retrieved[0].RingID != ring {
			t.Errorf("ring id not round-tripped: %v", retrieved[0].RingID)
		}
		if retrieved[1].RingID != nil {
			t.Errorf("expected nil ring id, got %v", retrieved[1].RingID)
		}
		if len(retrieved[0].Patterns) != 1 || retrieved[0].Patterns[0] != "cycle" {
			t.Errorf("patterns not round-tripped: %v", retrieved[0].Patterns)
		}
	})

	t.Run("SaveAndGetRuleConfig", func(t *testing.T) {
		rule := &domain.RuleConfig{
			ID:         "RULE-HIGH-VALUE",
			Name:       "High value sender",
			Version:    "1.0.0",
			Expression: "max_amount > 100000.0",
			Pattern:    "high_value",
			Boost:      20,
			Enabled:    true,
		}

		if err := repo.SaveRuleConfig(ctx, rule); err != nil {
			t.Fatalf("SaveRuleConfig failed: %v", err)
		}

		retrieved, err := repo.GetRuleConfig(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRuleConfig failed: %v", err)
		}
		if retrieved.Expression != rule.Expression || retrieved.Boost != rule.Boost {
			t.Errorf("rule not round-tripped: %+v", retrieved)
		}

		configs, err := repo.ListRuleConfigs(ctx)
		if err != nil {
			t.Fatalf("ListRuleConfigs failed: %v", err)
		}
		if len(configs) != 1 {
			t.Errorf("expected 1 config, got %d", len(configs))
		}
	})

	t.Run("RuleUpsert", func(t *testing.T) {
		rule := &domain.RuleConfig{
			ID:         "RULE-HIGH-VALUE",
			Name:       "High value sender v2",
			Version:    "1.0.0",
			Expression: "max_amount > 50000.0",
			Pattern:    "high_value",
			Boost:      25,
			Enabled:    true,
		}

		if err := repo.SaveRuleConfig(ctx, rule); err != nil {
			t.Fatalf("SaveRuleConfig upsert failed: %v", err)
		}

		retrieved, err := repo.GetRuleConfig(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRuleConfig failed: %v", err)
		}
		if retrieved.Boost != 25 {
			t.Errorf("upsert not applied, boost = %f", retrieved.Boost)
		}
	})

	t.Run("SaveAndListAuditEvents", func(t *testing.T) {
		events := []*domain.AuditEvent{
			{ID: "evt-1", CaseID: "case-001", Topic: "mulecatcher.case.analyzed", Timestamp: time.Now().UTC().Add(-time.Minute)},
			{ID: "evt-2", CaseID: "case-001", Topic: "mulecatcher.intervention.applied", Detail: "2 actions", Timestamp: time.Now().UTC()},
		}
		for _, ev := range events {
			if err := repo.SaveAuditEvent(ctx, ev); err != nil {
				t.Fatalf("SaveAuditEvent failed: %v", err)
			}
		}

		trail, err := repo.ListAuditEvents(ctx, "case-001")
		if err != nil {
			t.Fatalf("ListAuditEvents failed: %v", err)
		}
		if len(trail) != 2 {
			t.Fatalf("expected 2 events, got %d", len(trail))
		}
		if trail[0].ID != "evt-2" {
			t.Errorf("expected newest first, got %s", trail[0].ID)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetCaseRun(ctx, "nonexistent"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetRuleConfig(ctx, "nonexistent"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresIDs", func(t *testing.T) {
		if err := repo.SaveCaseRun(ctx, &domain.CaseRun{}); err == nil {
			t.Error("expected error for empty case id")
		}
		if _, err := repo.GetAccounts(ctx, ""); err == nil {
			t.Error("expected error for empty case id")
		}
		if err := repo.SaveAuditEvent(ctx, &domain.AuditEvent{}); err == nil {
			t.Error("expected error for empty event id")
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
