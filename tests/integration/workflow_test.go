//go:build integration
// +build integration

// Package integration exercises the complete investigation workflow against
// a fully wired stack: embedded detection engine, SQLite repository, LRU
// cache, channel bus, and audit worker.
//
// Run with: go test -tags=integration -v ./tests/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/api"
	"github.com/opensource-finance/mulecatcher/internal/bus"
	"github.com/opensource-finance/mulecatcher/internal/cache"
	"github.com/opensource-finance/mulecatcher/internal/detect"
	"github.com/opensource-finance/mulecatcher/internal/domain"
	"github.com/opensource-finance/mulecatcher/internal/fixtures"
	"github.com/opensource-finance/mulecatcher/internal/repository"
	"github.com/opensource-finance/mulecatcher/internal/rules"
	"github.com/opensource-finance/mulecatcher/internal/workbench"
	"github.com/opensource-finance/mulecatcher/internal/worker"
)

type stack struct {
	url  string
	repo domain.Repository
}

func newStack(t *testing.T) *stack {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "integration.db"),
	})
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cacheImpl, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { cacheImpl.Close() })

	busImpl, err := bus.New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 100})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(func() { busImpl.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	auditWorker := worker.NewWorker(busImpl, repo)
	if err := auditWorker.Start(); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(func() { auditWorker.Stop() })

	wb := workbench.New(workbench.Options{
		Analyzer:         detect.NewEngine(engine),
		Repo:             repo,
		Cache:            cacheImpl,
		Bus:              busImpl,
		AnalysisCacheTTL: time.Minute,
		Sample:           fixtures.SampleCase,
	})
	wb.LoadHistory(context.Background())

	handler := api.NewHandler(wb, repo, cacheImpl, busImpl, engine, 1<<20, "integration")
	srv := api.NewServer(domain.ServerConfig{}, handler)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &stack{url: ts.URL, repo: repo}
}

func (s *stack) upload(t *testing.T, name, content string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	resp, err := http.Post(s.url+"/case/file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func (s *stack) do(t *testing.T, method, path string, body interface{}) map[string]json.RawMessage {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, s.url+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("%s %s returned %d", method, path, resp.StatusCode)
	}

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

// cycleCSV seeds one triangle ring plus a clean transfer.
func cycleCSV() string {
	return "transaction_id,sender_account,receiver_account,amount,timestamp\n" +
		"tx_1,acc_a,acc_b,50000,2025-03-01 10:00:00\n" +
		"tx_2,acc_b,acc_c,49000,2025-03-01 11:00:00\n" +
		"tx_3,acc_c,acc_a,48000,2025-03-01 12:00:00\n" +
		"tx_4,acc_x,acc_y,120,2025-03-01 13:00:00\n"
}

func TestFullWorkflow(t *testing.T) {
	s := newStack(t)

	// Stage, validate, analyze.
	resp := s.upload(t, "workflow.csv", cycleCSV())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	s.do(t, http.MethodPost, "/case/validate", nil)
	snap := s.do(t, http.MethodPost, "/case/analyze", nil)

	var currentCase domain.CaseRun
	if err := json.Unmarshal(snap["currentCase"], &currentCase); err != nil {
		t.Fatalf("no current case after analyze: %v", err)
	}
	if currentCase.SuspiciousCount != 3 {
		t.Fatalf("suspicious count = %d, want 3 cycle accounts", currentCase.SuspiciousCount)
	}

	// The committed case must be persisted.
	stored, err := s.repo.GetCaseRun(context.Background(), currentCase.ID)
	if err != nil {
		t.Fatalf("case not persisted: %v", err)
	}
	if stored.FileName != "workflow.csv" {
		t.Errorf("stored file name = %s", stored.FileName)
	}
	accounts, err := s.repo.GetAccounts(context.Background(), currentCase.ID)
	if err != nil || len(accounts) != 3 {
		t.Errorf("persisted accounts = %d (%v), want 3", len(accounts), err)
	}

	// Simulate, preview, apply an intervention scenario.
	s.do(t, http.MethodPost, "/interventions", domain.InterventionAction{Kind: "freeze", Target: "acc_a"})
	s.do(t, http.MethodPost, "/interventions", domain.InterventionAction{Kind: "report", Target: "acc_b"})
	snap = s.do(t, http.MethodPost, "/interventions/preview", nil)

	var summary domain.MitigationSummary
	if err := json.Unmarshal(snap["mitigationSummary"], &summary); err != nil {
		t.Fatalf("no mitigation summary: %v", err)
	}
	if summary.After.RiskScore >= summary.Before.RiskScore {
		t.Errorf("projection must lower risk: %+v", summary)
	}

	snap = s.do(t, http.MethodPost, "/interventions/apply", nil)
	var applied domain.CaseRun
	json.Unmarshal(snap["currentCase"], &applied)
	if applied.RiskExposure != summary.After.RiskScore {
		t.Errorf("risk exposure = %f, want %f", applied.RiskExposure, summary.After.RiskScore)
	}

	// The intervened metrics must be written back.
	stored, err = s.repo.GetCaseRun(context.Background(), currentCase.ID)
	if err != nil {
		t.Fatalf("case lost after apply: %v", err)
	}
	if stored.RiskExposure != summary.After.RiskScore {
		t.Errorf("persisted risk exposure = %f, want %f", stored.RiskExposure, summary.After.RiskScore)
	}

	// The audit worker should have recorded the workflow transitions.
	deadline := time.Now().Add(2 * time.Second)
	for {
		events, err := s.repo.ListAuditEvents(context.Background(), currentCase.ID)
		if err == nil && len(events) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit trail incomplete: %d events (%v)", len(events), err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSampleCasePersistence(t *testing.T) {
	s := newStack(t)

	s.do(t, http.MethodPost, "/case/sample", nil)
	snap := s.do(t, http.MethodPost, "/case/reset", nil)

	var cases []domain.CaseRun
	if err := json.Unmarshal(snap["cases"], &cases); err != nil || len(cases) != 1 {
		t.Fatalf("history after reset = %v (%v)", cases, err)
	}

	// History is backed by the repository, not just process memory.
	stored, err := s.repo.ListCaseRuns(context.Background())
	if err != nil || len(stored) != 1 {
		t.Fatalf("persisted history = %d (%v), want 1", len(stored), err)
	}
}

func TestRuleLifecycle(t *testing.T) {
	s := newStack(t)

	rule := domain.RuleConfig{
		ID:         "INT-HIGH-VALUE",
		Name:       "High value transfer",
		Expression: "max_amount > 40000.0",
		Pattern:    "high_value",
		Boost:      20,
		Enabled:    true,
	}
	s.do(t, http.MethodPost, "/rules", rule)

	// The rule boost shows up in analysis results.
	resp := s.upload(t, "ruled.csv", cycleCSV())
	resp.Body.Close()
	snap := s.do(t, http.MethodPost, "/case/analyze", nil)

	var accounts []domain.Account
	if err := json.Unmarshal(snap["accounts"], &accounts); err != nil {
		t.Fatalf("failed to decode accounts: %v", err)
	}
	var boosted bool
	for _, acc := range accounts {
		for _, p := range acc.Patterns {
			if p == "high_value" {
				boosted = true
			}
		}
	}
	if !boosted {
		t.Errorf("expected high_value pattern on a cycle account: %+v", accounts)
	}

	// Hot reload from the repository keeps the rule loaded.
	out := s.do(t, http.MethodPost, "/rules/reload", nil)
	var count int
	json.Unmarshal(out["count"], &count)
	if count != 1 {
		t.Errorf("reloaded count = %d, want 1", count)
	}
}
