// Package domain defines the core interfaces and types for MuleCatcher.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Velocity labels bucket a numeric suspicion score into a coarse risk band.
const (
	VelocityLow    = "low"
	VelocityMedium = "medium"
	VelocityHigh   = "high"
)

// Risk levels for a case run, derived from its suspicious account count.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Account is one analyzed entity in a case run.
//
// RiskScore and Confidence are produced by the scoring stage. The graph
// metric fields (InDegree, OutDegree, CentralityScore, KCoreLevel, SCCID)
// and RingID are zero-initialized here and populated by the graph-analysis
// stage, which runs separately.
type Account struct {
	ID            string   `json:"id"`
	RiskScore     float64  `json:"riskScore"`
	Confidence    float64  `json:"confidence"`
	VelocityLabel string   `json:"velocityLabel"`
	Patterns      []string `json:"patterns"`
	RingID        *string  `json:"ringId,omitempty"`

	InDegree        int     `json:"inDegree"`
	OutDegree       int     `json:"outDegree"`
	CentralityScore float64 `json:"centralityScore"`
	KCoreLevel      int     `json:"kCoreLevel"`
	SCCID           string  `json:"sccId,omitempty"`
}

// Ring is a detected cluster of colluding accounts.
type Ring struct {
	ID       string   `json:"id"`
	Accounts []string `json:"accounts"`
	Pattern  string   `json:"pattern"`
	Score    float64  `json:"score"`
}

// GraphEdge is one directed money flow between two accounts.
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// CaseRun is one completed analysis pass over an uploaded dataset.
// It is immutable once committed, except through an applied intervention.
type CaseRun struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	FileName string `json:"fileName"`

	NodeCount       int `json:"nodeCount"`
	EdgeCount       int `json:"edgeCount"`
	TxCount         int `json:"txCount"`
	SuspiciousCount int `json:"suspiciousCount"`
	RingCount       int `json:"ringCount"`

	RiskExposure   float64 `json:"riskExposure"`
	ProcessingTime float64 `json:"processingTime"`
	RiskLevel      string  `json:"riskLevel"`
}

// NewCaseID returns a time-based case identifier.
func NewCaseID(now time.Time) string {
	return fmt.Sprintf("case-%d", now.UnixMilli())
}

// VelocityLabelFor buckets a suspicion score into low/medium/high.
func VelocityLabelFor(score float64) string {
	switch {
	case score >= 70:
		return VelocityHigh
	case score >= 40:
		return VelocityMedium
	default:
		return VelocityLow
	}
}

// RiskLevelFor derives the case risk level from its suspicious account count.
func RiskLevelFor(suspiciousCount int) string {
	switch {
	case suspiciousCount > 5:
		return RiskHigh
	case suspiciousCount > 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampScore bounds a derived score to its semantic 0-100 range.
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
