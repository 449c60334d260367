package domain

// SuspiciousAccount is one entry of the scoring service's response.
type SuspiciousAccount struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
}

// AnalysisRing is a ring as reported by the scoring service.
type AnalysisRing struct {
	RingID   string   `json:"ring_id"`
	Accounts []string `json:"accounts"`
	Pattern  string   `json:"pattern"`
}

// AnalysisResponse is the wire format returned by POST /analyze.
type AnalysisResponse struct {
	SuspiciousAccounts []SuspiciousAccount `json:"suspicious_accounts"`
	Rings              []AnalysisRing      `json:"rings,omitempty"`
	Summary            AnalysisStats       `json:"summary,omitempty"`
}

// AnalysisStats summarizes the analyzed dataset.
type AnalysisStats struct {
	TotalAccounts     int     `json:"total_accounts"`
	TotalTransactions int     `json:"total_transactions"`
	ProcessingTime    float64 `json:"processing_time"`
}
