package workbench

import (
	"context"
	"log/slog"
	"math"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Projection constants for the mitigation formula. Flow starts from a fixed
// monitored-volume baseline; risk never projects below the floor.
const (
	flowBaseline       = 12_450_000.0
	flowCutPerAction   = 450_000.0
	riskFloor          = 15.0
	riskCutPerAction   = 0.12 * 60
	ringCutPerAction   = 0.8
	disruptPerAction   = 15.0
	suspectsCutPerStep = 2
)

// AddIntervention appends an action to the what-if scenario. Order is
// preserved: it is the display order, and the list length drives the
// projection.
func (w *Workbench) AddIntervention(action domain.InterventionAction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scenario = append(w.scenario, action)
}

// RemoveIntervention removes the action at the given position. Out-of-range
// indexes are ignored.
func (w *Workbench) RemoveIntervention(index int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.scenario) {
		return
	}
	w.scenario = append(w.scenario[:index], w.scenario[index+1:]...)
}

// PreviewIntervention computes the before/after mitigation projection for
// the current case under the current scenario. No-op without a current case.
//
// The projection is a pure function of the case metrics and the scenario
// length; previewing twice with unchanged inputs yields identical summaries.
func (w *Workbench) PreviewIntervention() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentCase == nil {
		return
	}

	w.summary = projectMitigation(w.currentCase, len(w.scenario))
}

// projectMitigation derives the mitigation summary for n planned actions.
func projectMitigation(run *domain.CaseRun, n int) *domain.MitigationSummary {
	before := domain.MitigationMetrics{
		RiskScore:       run.RiskExposure,
		SuspiciousCount: run.SuspiciousCount,
		RingCount:       run.RingCount,
		Flow:            flowBaseline,
		Disruption:      0,
	}

	actions := float64(n)
	after := domain.MitigationMetrics{
		RiskScore:       math.Max(riskFloor, before.RiskScore-math.Round(actions*riskCutPerAction)),
		SuspiciousCount: max(0, before.SuspiciousCount-suspectsCutPerStep*n),
		RingCount:       max(0, before.RingCount-int(math.Round(actions*ringCutPerAction))),
		Flow:            math.Max(0, flowBaseline-flowCutPerAction*actions),
		Disruption:      math.Min(100, disruptPerAction*actions),
	}
	if n == 0 {
		// An empty scenario projects no change at all, floor included.
		after.RiskScore = before.RiskScore
	}

	return &domain.MitigationSummary{Before: before, After: after}
}

// ApplyIntervention commits the previewed After metrics onto the current
// case. No-op without a pending summary or current case.
//
// The updated case replaces the current one but is not re-appended to the
// history: an intervention refines a run, it does not create a new one.
func (w *Workbench) ApplyIntervention(ctx context.Context) {
	w.mu.Lock()
	if w.summary == nil || w.currentCase == nil {
		w.mu.Unlock()
		return
	}

	updated := *w.currentCase
	updated.RiskExposure = w.summary.After.RiskScore
	updated.SuspiciousCount = w.summary.After.SuspiciousCount
	updated.RingCount = w.summary.After.RingCount

	applied := len(w.scenario)
	w.currentCase = &updated
	w.summary = nil
	w.scenario = nil
	w.mu.Unlock()

	if w.repo != nil {
		if err := w.repo.UpdateCaseRun(ctx, &updated); err != nil {
			slog.Error("failed to persist intervened case", "case_id", updated.ID, "error", err)
		}
	}
	w.publish(ctx, domain.TopicInterventionApplied, &domain.CaseEvent{
		CaseID:          updated.ID,
		SuspiciousCount: updated.SuspiciousCount,
		RingCount:       updated.RingCount,
		RiskExposure:    updated.RiskExposure,
		Interventions:   applied,
	})

	slog.Info("intervention applied",
		"case_id", updated.ID,
		"actions", applied,
		"risk_exposure", updated.RiskExposure,
	)
}

// ResetIntervention clears the scenario and any pending summary without
// touching the case.
func (w *Workbench) ResetIntervention() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scenario = nil
	w.summary = nil
}
