package domain

// RuleConfig defines an account-flagging rule evaluated after pattern
// detection. The CEL expression runs against per-account aggregate features;
// when it yields a truthy or positive result the rule's pattern label is
// attached and its boost added to the suspicion score.
type RuleConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Expression is a CEL formula over account features
	// (tx_count, total_in, total_out, in_degree, out_degree, max_amount).
	Expression string `json:"expression"`

	// Pattern is the label attached to matching accounts.
	Pattern string `json:"pattern"`

	// Boost is added to the account's suspicion score on match.
	Boost float64 `json:"boost"`

	Enabled bool `json:"enabled"`
}

// RuleResult is the outcome of one rule against one account.
type RuleResult struct {
	RuleID    string  `json:"ruleId"`
	AccountID string  `json:"accountId"`
	Matched   bool    `json:"matched"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason,omitempty"`
}

// AccountFeatures are the aggregates a rule expression can reference.
type AccountFeatures struct {
	AccountID string
	TxCount   int64
	TotalIn   float64
	TotalOut  float64
	InDegree  int64
	OutDegree int64
	MaxAmount float64
}
