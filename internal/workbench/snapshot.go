package workbench

import (
	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Snapshot is a read-only copy of the workbench state handed to consumers.
// Downstream layers render from it and mutate only through operations.
type Snapshot struct {
	FileStaged bool   `json:"fileStaged"`
	FileName   string `json:"fileName,omitempty"`

	Validation *domain.ValidationResult `json:"validation,omitempty"`

	Processing  bool    `json:"processing"`
	HasAnalysis bool    `json:"hasAnalysis"`
	Elapsed     float64 `json:"elapsed"`

	CurrentCase *domain.CaseRun   `json:"currentCase"`
	Cases       []*domain.CaseRun `json:"cases"`

	Accounts []domain.Account   `json:"accounts"`
	Rings    []domain.Ring      `json:"rings"`
	Edges    []domain.GraphEdge `json:"edges"`

	Interventions []domain.InterventionAction `json:"interventions"`
	Summary       *domain.MitigationSummary   `json:"mitigationSummary,omitempty"`

	Selection Selection `json:"selection"`
}

// Snapshot returns a consistent copy of the current state.
func (w *Workbench) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		FileStaged:  w.staged != nil,
		Processing:  w.processing,
		HasAnalysis: w.hasAnalysis,
		Elapsed:     w.elapsed,
		Selection:   w.selection,
	}
	if w.staged != nil {
		snap.FileName = w.staged.Name
	}
	if w.validation != nil {
		v := *w.validation
		snap.Validation = &v
	}
	if w.currentCase != nil {
		c := *w.currentCase
		snap.CurrentCase = &c
	}
	if w.summary != nil {
		s := *w.summary
		snap.Summary = &s
	}

	snap.Cases = make([]*domain.CaseRun, len(w.cases))
	for i, c := range w.cases {
		run := *c
		snap.Cases[i] = &run
	}
	snap.Accounts = append([]domain.Account(nil), w.accounts...)
	snap.Rings = append([]domain.Ring(nil), w.rings...)
	snap.Edges = append([]domain.GraphEdge(nil), w.edges...)
	snap.Interventions = append([]domain.InterventionAction(nil), w.scenario...)

	return snap
}
