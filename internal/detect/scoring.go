package detect

import (
	"sort"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Pattern weights for account scoring. The final suspicion score is the
// base plus the weight of every distinct detected pattern, capped at 100,
// so a score is reproducible from the pattern set alone.
var patternWeights = map[string]float64{
	PatternCycle:    40,
	PatternSmurfing: 35,
	PatternShell:    30,
}

const scoreBase = 25.0

// ScoreAccount derives the suspicion score from a detected pattern set.
func ScoreAccount(patterns map[string]bool) float64 {
	score := scoreBase
	for p := range patterns {
		if w, ok := patternWeights[p]; ok {
			score += w
		} else {
			// Rule-defined patterns carry their boost separately; the
			// label alone contributes a fixed increment.
			score += 10
		}
	}
	return domain.ClampScore(score)
}

// assembleSuspicious converts the per-account pattern sets into the wire
// response entries, ordered by score descending then id for determinism.
func assembleSuspicious(accountPatterns map[string]map[string]bool, boosts map[string]float64) []domain.SuspiciousAccount {
	entries := make([]domain.SuspiciousAccount, 0, len(accountPatterns))
	for id, patterns := range accountPatterns {
		score := domain.ClampScore(ScoreAccount(patterns) + boosts[id])
		entries = append(entries, domain.SuspiciousAccount{
			AccountID:        id,
			SuspicionScore:   score,
			DetectedPatterns: sortedKeys(patterns),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SuspicionScore != entries[j].SuspicionScore {
			return entries[i].SuspicionScore > entries[j].SuspicionScore
		}
		return entries[i].AccountID < entries[j].AccountID
	})
	return entries
}
