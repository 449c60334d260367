package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
	"github.com/opensource-finance/mulecatcher/internal/rules"
)

// Sentinel errors for rejected uploads. The HTTP layer maps these to 400s.
var (
	ErrNotCSV     = errors.New("only CSV files allowed")
	ErrInvalidCSV = errors.New("invalid CSV format")
	ErrValidation = errors.New("CSV validation failed")
)

// Engine runs the full detection pipeline over an uploaded transaction file:
// parse, validate, build the graph, run the pattern detectors, merge rings,
// evaluate account rules, score.
type Engine struct {
	rules *rules.Engine
}

// NewEngine creates a detection engine. The rule engine is optional; without
// it only the built-in pattern detectors contribute to scores.
func NewEngine(ruleEngine *rules.Engine) *Engine {
	return &Engine{rules: ruleEngine}
}

// Analyze runs the pipeline and returns the scored response.
func (e *Engine) Analyze(ctx context.Context, fileName string, data []byte) (*domain.AnalysisResponse, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return nil, ErrNotCSV
	}

	started := time.Now()

	txs, validation, err := ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if !validation.Valid() {
		return nil, ErrValidation
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph := BuildGraph(txs)

	cycles := DetectCycles(graph)
	smurfs := DetectSmurfing(txs)
	chains := DetectShellChains(graph)

	// Collect detector hits as pre-merge groups and per-account pattern sets.
	var groups []patternGroup
	accountPatterns := make(map[string]map[string]bool)
	mark := func(id, pattern string) {
		if accountPatterns[id] == nil {
			accountPatterns[id] = make(map[string]bool)
		}
		accountPatterns[id][pattern] = true
	}

	for _, cycle := range cycles {
		groups = append(groups, patternGroup{accounts: cycle, pattern: PatternCycle})
		for _, id := range cycle {
			mark(id, PatternCycle)
		}
	}
	// Smurfing marks the receiver but does not form rings: only cycle and
	// shell groups are merged.
	for _, hit := range smurfs {
		mark(hit.Receiver, PatternSmurfing)
	}
	for _, chain := range chains {
		groups = append(groups, patternGroup{accounts: chain, pattern: PatternShell})
		for _, id := range chain {
			mark(id, PatternShell)
		}
	}

	rings := MergeRings(groups)

	boosts := e.applyRules(graph, accountPatterns)

	resp := &domain.AnalysisResponse{
		SuspiciousAccounts: assembleSuspicious(accountPatterns, boosts),
		Rings:              toAnalysisRings(rings),
		Summary: domain.AnalysisStats{
			TotalAccounts:     len(graph.Features),
			TotalTransactions: len(txs),
			ProcessingTime:    math.Round(time.Since(started).Seconds()*1000) / 1000,
		},
	}
	return resp, nil
}

// applyRules evaluates the loaded account rules over every account in the
// graph. A matching rule attaches its pattern label and accumulates its
// boost, weighted by the rule score.
func (e *Engine) applyRules(graph *Graph, accountPatterns map[string]map[string]bool) map[string]float64 {
	boosts := make(map[string]float64)
	if e.rules == nil || e.rules.RulesCount() == 0 {
		return boosts
	}

	configs := make(map[string]*domain.RuleConfig)
	for _, cfg := range e.rules.GetLoadedRules() {
		configs[cfg.ID] = cfg
	}

	for _, id := range graph.Accounts() {
		results := e.rules.EvaluateAccount(graph.Features[id])
		for _, result := range results {
			if !result.Matched {
				continue
			}
			cfg, ok := configs[result.RuleID]
			if !ok {
				continue
			}
			if accountPatterns[id] == nil {
				accountPatterns[id] = make(map[string]bool)
			}
			accountPatterns[id][cfg.Pattern] = true
			boosts[id] += cfg.Boost * result.Score
		}
	}

	if len(boosts) > 0 {
		slog.Debug("account rules flagged accounts", "count", len(boosts))
	}
	return boosts
}

func toAnalysisRings(rings []domain.Ring) []domain.AnalysisRing {
	out := make([]domain.AnalysisRing, 0, len(rings))
	for _, r := range rings {
		out = append(out, domain.AnalysisRing{
			RingID:   r.ID,
			Accounts: r.Accounts,
			Pattern:  r.Pattern,
		})
	}
	return out
}
