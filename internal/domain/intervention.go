package domain

// InterventionAction is a hypothetical mitigation action in a what-if
// scenario. The simulation only cares about its position in the ordered
// scenario list; the descriptive fields exist for display.
type InterventionAction struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Note   string `json:"note,omitempty"`
}

// MitigationMetrics is one side of a before/after projection.
type MitigationMetrics struct {
	RiskScore       float64 `json:"riskScore"`
	SuspiciousCount int     `json:"suspiciousCount"`
	RingCount       int     `json:"ringCount"`
	Flow            float64 `json:"flow"`
	Disruption      float64 `json:"disruption"`
}

// MitigationSummary is a transient before/after projection of case metrics
// under the current scenario. It is never persisted; it exists only while a
// scenario is being previewed.
type MitigationSummary struct {
	Before MitigationMetrics `json:"before"`
	After  MitigationMetrics `json:"after"`
}
