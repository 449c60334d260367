// Package rules provides the CEL-Go based account-flagging rule engine.
//
// Rules run after the pattern detectors, over per-account aggregate
// features. A matching rule attaches its pattern label to the account and
// adds its boost to the suspicion score.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Engine is the CEL-based rule evaluation engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	// CEL environment with account feature variables
	env, err := cel.NewEnv(
		cel.Variable("account_id", cel.StringType),
		cel.Variable("tx_count", cel.IntType),
		cel.Variable("total_in", cel.DoubleType),
		cel.Variable("total_out", cel.DoubleType),
		cel.Variable("in_degree", cel.IntType),
		cel.Variable("out_degree", cel.IntType),
		cel.Variable("max_amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateAccount runs all loaded rules against one account's features.
func (e *Engine) EvaluateAccount(features *domain.AccountFeatures) []domain.RuleResult {
	e.mu.RLock()
	loaded := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		loaded = append(loaded, rule)
	}
	e.mu.RUnlock()

	if len(loaded) == 0 {
		return nil
	}

	activation := map[string]any{
		"account_id": features.AccountID,
		"tx_count":   features.TxCount,
		"total_in":   features.TotalIn,
		"total_out":  features.TotalOut,
		"in_degree":  features.InDegree,
		"out_degree": features.OutDegree,
		"max_amount": features.MaxAmount,
	}

	results := make([]domain.RuleResult, 0, len(loaded))
	for _, rule := range loaded {
		result := domain.RuleResult{
			RuleID:    rule.Config.ID,
			AccountID: features.AccountID,
		}

		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			result.Reason = fmt.Sprintf("evaluation error: %v", err)
			results = append(results, result)
			continue
		}

		score := toScore(out)
		result.Score = score
		result.Matched = score > 0
		if result.Matched {
			result.Reason = rule.Config.Name
		}
		results = append(results, result)
	}

	return results
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
