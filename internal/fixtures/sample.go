// Package fixtures holds the built-in demo dataset used when no scoring
// service is reachable or an analyst wants to explore the workbench offline.
package fixtures

import (
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// SampleCase returns a fresh copy of the demo case: a laundering ring
// scenario with a cycle, a smurfing collector, and a shell chain. Callers
// own the returned slices. Each call gets a new case id so repeated demo
// loads show up as separate history entries.
func SampleCase() (*domain.CaseRun, []domain.Account, []domain.Ring, []domain.GraphEdge) {
	ring1 := "ring-1"
	ring2 := "ring-2"
	ring3 := "ring-3"

	now := time.Now()
	run := &domain.CaseRun{
		ID:              domain.NewCaseID(now),
		Date:            now.Format("2006-01-02"),
		FileName:        "sample_transactions.csv",
		NodeCount:       14,
		EdgeCount:       17,
		TxCount:         126,
		SuspiciousCount: 8,
		RingCount:       3,
		RiskExposure:    92,
		ProcessingTime:  0.41,
		RiskLevel:       domain.RiskHigh,
	}

	accounts := []domain.Account{
		{ID: "acct_9001", RiskScore: 92, Confidence: 100, VelocityLabel: domain.VelocityHigh, Patterns: []string{"cycle", "smurfing"}, RingID: &ring1, InDegree: 5, OutDegree: 2, CentralityScore: 0.81, KCoreLevel: 3, SCCID: "scc-1"},
		{ID: "acct_9002", RiskScore: 78, Confidence: 88, VelocityLabel: domain.VelocityHigh, Patterns: []string{"cycle"}, RingID: &ring1, InDegree: 2, OutDegree: 3, CentralityScore: 0.64, KCoreLevel: 3, SCCID: "scc-1"},
		{ID: "acct_9003", RiskScore: 74, Confidence: 84, VelocityLabel: domain.VelocityHigh, Patterns: []string{"cycle"}, RingID: &ring1, InDegree: 2, OutDegree: 2, CentralityScore: 0.58, KCoreLevel: 3, SCCID: "scc-1"},
		{ID: "acct_4410", RiskScore: 66, Confidence: 76, VelocityLabel: domain.VelocityMedium, Patterns: []string{"smurfing"}, RingID: &ring2, InDegree: 9, OutDegree: 1, CentralityScore: 0.47, KCoreLevel: 2},
		{ID: "acct_4411", RiskScore: 52, Confidence: 62, VelocityLabel: domain.VelocityMedium, Patterns: []string{"smurfing"}, RingID: &ring2, InDegree: 0, OutDegree: 1, CentralityScore: 0.21, KCoreLevel: 1},
		{ID: "acct_4412", RiskScore: 52, Confidence: 62, VelocityLabel: domain.VelocityMedium, Patterns: []string{"smurfing"}, RingID: &ring2, InDegree: 0, OutDegree: 1, CentralityScore: 0.21, KCoreLevel: 1},
		{ID: "acct_7780", RiskScore: 58, Confidence: 68, VelocityLabel: domain.VelocityMedium, Patterns: []string{"shell"}, RingID: &ring3, InDegree: 1, OutDegree: 1, CentralityScore: 0.33, KCoreLevel: 1},
		{ID: "acct_7781", RiskScore: 55, Confidence: 65, VelocityLabel: domain.VelocityMedium, Patterns: []string{"shell"}, RingID: &ring3, InDegree: 1, OutDegree: 1, CentralityScore: 0.31, KCoreLevel: 1},
	}

	rings := []domain.Ring{
		{ID: ring1, Accounts: []string{"acct_9001", "acct_9002", "acct_9003"}, Pattern: "cycle", Score: 96},
		{ID: ring2, Accounts: []string{"acct_4410", "acct_4411", "acct_4412"}, Pattern: "smurfing", Score: 71},
		{ID: ring3, Accounts: []string{"acct_7779", "acct_7780", "acct_7781", "acct_7782"}, Pattern: "shell", Score: 64},
	}

	edges := []domain.GraphEdge{
		{Source: "acct_9001", Target: "acct_9002", Amount: 48200, Count: 6},
		{Source: "acct_9002", Target: "acct_9003", Amount: 47150, Count: 5},
		{Source: "acct_9003", Target: "acct_9001", Amount: 46800, Count: 5},
		{Source: "acct_4411", Target: "acct_4410", Amount: 9400, Count: 4},
		{Source: "acct_4412", Target: "acct_4410", Amount: 9100, Count: 4},
		{Source: "acct_4410", Target: "acct_9001", Amount: 27300, Count: 2},
		{Source: "acct_7779", Target: "acct_7780", Amount: 18000, Count: 1},
		{Source: "acct_7780", Target: "acct_7781", Amount: 17800, Count: 1},
		{Source: "acct_7781", Target: "acct_7782", Amount: 17650, Count: 1},
	}

	return run, accounts, rings, edges
}
