// Package workbench implements the case-analysis workflow state machine and
// the intervention simulation engine behind the investigation dashboard.
//
// One Workbench instance is the single shared state container. Every
// operation locks it, reads, writes, and unlocks; the only long-running step
// is the outbound scoring call inside RunAnalysis, which releases the lock
// and leaves the processing flag as the sole observable intermediate state.
package workbench

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// ErrAnalysisInFlight is returned when RunAnalysis is invoked while a prior
// analysis request is still outstanding. Concurrent runs are rejected, not
// queued: the second caller gets this error and no state changes.
var ErrAnalysisInFlight = errors.New("analysis already in flight")

// Analyzer scores an uploaded dataset. Implemented by the remote client and
// by the embedded detection engine.
type Analyzer interface {
	Analyze(ctx context.Context, fileName string, data []byte) (*domain.AnalysisResponse, error)
}

// StagedFile is an uploaded dataset awaiting validation and analysis.
type StagedFile struct {
	Name string
	Data []byte
}

// Options configures a Workbench. All collaborators are optional except the
// analyzer; nil collaborators disable the corresponding side effects.
type Options struct {
	Analyzer Analyzer
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus

	// AnalysisCacheTTL bounds reuse of a cached scoring response for an
	// identical file. Zero disables the cache lookup.
	AnalysisCacheTTL time.Duration

	// Sample supplies the offline fixture installed by LoadSampleData.
	Sample func() (*domain.CaseRun, []domain.Account, []domain.Ring, []domain.GraphEdge)
}

// Workbench owns the mutable investigation state: the staged file, the
// current case with its accounts and graph entities, the case history, the
// what-if scenario, and the panel selection state.
type Workbench struct {
	mu sync.Mutex

	analyzer Analyzer
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	cacheTTL time.Duration
	sample   func() (*domain.CaseRun, []domain.Account, []domain.Ring, []domain.GraphEdge)

	staged     *StagedFile
	validation *domain.ValidationResult

	processing  bool
	hasAnalysis bool
	elapsed     float64

	currentCase *domain.CaseRun
	cases       []*domain.CaseRun
	accounts    []domain.Account
	rings       []domain.Ring
	edges       []domain.GraphEdge

	scenario []domain.InterventionAction
	summary  *domain.MitigationSummary

	selection Selection
}

// New creates a workbench. The host wires exactly one instance at startup
// and hands it to whichever layer needs read or mutate access.
func New(opts Options) *Workbench {
	return &Workbench{
		analyzer: opts.Analyzer,
		repo:     opts.Repo,
		cache:    opts.Cache,
		bus:      opts.Bus,
		cacheTTL: opts.AnalysisCacheTTL,
		sample:   opts.Sample,
	}
}

// LoadHistory seeds the case history from the repository. Called once at
// startup; failures are logged and leave the history empty.
func (w *Workbench) LoadHistory(ctx context.Context) {
	if w.repo == nil {
		return
	}
	runs, err := w.repo.ListCaseRuns(ctx)
	if err != nil {
		slog.Error("failed to load case history", "error", err)
		return
	}

	w.mu.Lock()
	w.cases = runs
	w.mu.Unlock()

	slog.Info("case history loaded", "count", len(runs))
}

// StageFile replaces the staged file. Passing nil clears it. Any prior
// validation result is dropped either way: validation is file-scoped.
func (w *Workbench) StageFile(file *StagedFile) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.staged = file
	w.validation = nil
}

// ValidateFile produces the structural validation result for the staged
// file. No-op without a staged file.
//
// Row-level parsing happens in the scoring stage; this result is the fixed
// schema assumption the UI shows before analysis runs.
func (w *Workbench) ValidateFile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.staged == nil {
		return
	}

	w.validation = &domain.ValidationResult{
		ColumnsDetected: true,
		TimestampValid:  true,
		AmountNumeric:   true,
		AmountPositive:  true,
		InvalidRows:     0,
		DuplicateRows:   0,
		Columns:         append([]string(nil), domain.ExpectedColumns...),
	}
}

// RunAnalysis sends the staged file to the scoring service and commits the
// resulting case. No-op without a staged file. A second call while one is
// outstanding returns ErrAnalysisInFlight.
//
// The commit is all-or-nothing: on any failure the processing flag is
// cleared and no analysis field changes.
func (w *Workbench) RunAnalysis(ctx context.Context) error {
	w.mu.Lock()
	if w.staged == nil {
		w.mu.Unlock()
		return nil
	}
	if w.processing {
		w.mu.Unlock()
		return ErrAnalysisInFlight
	}
	w.processing = true
	staged := &StagedFile{Name: w.staged.Name, Data: w.staged.Data}
	w.mu.Unlock()

	start := time.Now()

	resp, err := w.score(ctx, staged)
	if err != nil {
		w.mu.Lock()
		w.processing = false
		w.mu.Unlock()

		slog.Error("analysis failed",
			"file", staged.Name,
			"error", err,
		)
		w.publish(ctx, domain.TopicAnalysisFailed, &domain.CaseEvent{
			FileName: staged.Name,
			Error:    err.Error(),
		})
		return fmt.Errorf("analysis failed: %w", err)
	}

	accounts := mapAccounts(resp.SuspiciousAccounts)
	elapsed := math.Round(time.Since(start).Seconds()*100) / 100

	now := time.Now()
	run := &domain.CaseRun{
		ID:              domain.NewCaseID(now),
		Date:            now.Format("2006-01-02"),
		FileName:        staged.Name,
		NodeCount:       len(accounts),
		SuspiciousCount: len(accounts),
		RiskExposure:    maxRiskScore(accounts),
		RiskLevel:       domain.RiskLevelFor(len(accounts)),
		ProcessingTime:  elapsed,
	}

	w.mu.Lock()
	w.accounts = accounts
	w.rings = nil
	w.edges = nil
	w.currentCase = run
	w.cases = append([]*domain.CaseRun{run}, w.cases...)
	w.hasAnalysis = true
	w.elapsed = elapsed
	w.processing = false
	w.mu.Unlock()

	w.persistRun(ctx, run, accounts)
	w.publish(ctx, domain.TopicCaseAnalyzed, &domain.CaseEvent{
		CaseID:          run.ID,
		FileName:        run.FileName,
		SuspiciousCount: run.SuspiciousCount,
		RingCount:       run.RingCount,
		RiskExposure:    run.RiskExposure,
	})

	slog.Info("analysis committed",
		"case_id", run.ID,
		"file", run.FileName,
		"accounts", len(accounts),
		"risk_exposure", run.RiskExposure,
		"elapsed_s", elapsed,
	)
	return nil
}

// score resolves the analysis response from the cache or the analyzer.
func (w *Workbench) score(ctx context.Context, staged *StagedFile) (*domain.AnalysisResponse, error) {
	if w.analyzer == nil {
		return nil, errors.New("no analyzer configured")
	}

	var digest string
	if w.cache != nil && w.cacheTTL > 0 {
		sum := sha256.Sum256(staged.Data)
		digest = hex.EncodeToString(sum[:])

		if cached, err := w.cache.GetAnalysis(ctx, digest); err == nil && cached != nil {
			slog.Debug("analysis cache hit", "file", staged.Name)
			return cached, nil
		}
	}

	resp, err := w.analyzer.Analyze(ctx, staged.Name, staged.Data)
	if err != nil {
		return nil, err
	}

	if digest != "" {
		if err := w.cache.SetAnalysis(ctx, digest, resp, w.cacheTTL); err != nil {
			slog.Warn("failed to cache analysis response", "error", err)
		}
	}
	if w.cache != nil {
		if _, err := w.cache.IncrementCounter(ctx, "analyses", time.Hour); err != nil {
			slog.Debug("failed to bump analysis counter", "error", err)
		}
	}
	return resp, nil
}

// mapAccounts converts scoring-service entries into domain accounts.
// Graph metric fields stay zero; the graph-analysis stage fills them later.
func mapAccounts(entries []domain.SuspiciousAccount) []domain.Account {
	accounts := make([]domain.Account, 0, len(entries))
	for _, e := range entries {
		accounts = append(accounts, domain.Account{
			ID:            e.AccountID,
			RiskScore:     domain.ClampScore(e.SuspicionScore),
			Confidence:    math.Min(100, e.SuspicionScore+10),
			VelocityLabel: domain.VelocityLabelFor(e.SuspicionScore),
			Patterns:      append([]string(nil), e.DetectedPatterns...),
		})
	}
	return accounts
}

func maxRiskScore(accounts []domain.Account) float64 {
	var max float64
	for _, a := range accounts {
		if a.RiskScore > max {
			max = a.RiskScore
		}
	}
	return max
}

// ResetAnalysis returns the workbench to the idle state: no staged file, no
// current case, no graph entities, no selection, no pending intervention
// state. History is preserved. A mitigation summary only exists alongside a
// current case, so clearing the case invalidates the scenario with it.
func (w *Workbench) ResetAnalysis(ctx context.Context) {
	w.mu.Lock()
	w.currentCase = nil
	w.accounts = nil
	w.rings = nil
	w.edges = nil
	w.staged = nil
	w.validation = nil
	w.hasAnalysis = false
	w.elapsed = 0
	w.scenario = nil
	w.summary = nil
	w.selection = Selection{}
	w.mu.Unlock()

	w.publish(ctx, domain.TopicCaseReset, &domain.CaseEvent{})
}

// LoadSampleData installs the offline fixture case, bypassing the scoring
// service entirely. Pending intervention state is cleared.
func (w *Workbench) LoadSampleData(ctx context.Context) {
	if w.sample == nil {
		return
	}
	run, accounts, rings, edges := w.sample()

	w.mu.Lock()
	w.currentCase = run
	w.accounts = accounts
	w.rings = rings
	w.edges = edges
	w.cases = append([]*domain.CaseRun{run}, w.cases...)
	w.hasAnalysis = true
	w.scenario = nil
	w.summary = nil
	w.mu.Unlock()

	w.persistRun(ctx, run, accounts)
	w.publish(ctx, domain.TopicCaseSampleLoaded, &domain.CaseEvent{
		CaseID:          run.ID,
		FileName:        run.FileName,
		SuspiciousCount: run.SuspiciousCount,
		RingCount:       run.RingCount,
		RiskExposure:    run.RiskExposure,
	})

	slog.Info("sample data loaded", "case_id", run.ID)
}

// persistRun writes the committed case to the repository. Persistence is
// best-effort: the in-memory commit already happened.
func (w *Workbench) persistRun(ctx context.Context, run *domain.CaseRun, accounts []domain.Account) {
	if w.repo == nil {
		return
	}
	if err := w.repo.SaveCaseRun(ctx, run); err != nil {
		slog.Error("failed to save case run", "case_id", run.ID, "error", err)
		return
	}
	if err := w.repo.SaveAccounts(ctx, run.ID, accounts); err != nil {
		slog.Error("failed to save case accounts", "case_id", run.ID, "error", err)
	}
}

// publish emits a workflow event. Bus failures are logged, never surfaced.
func (w *Workbench) publish(ctx context.Context, topic string, event *domain.CaseEvent) {
	if w.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := w.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}
