package detect

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// patternGroup is one detector hit before ring merging.
type patternGroup struct {
	accounts []string
	pattern  string
}

// MergeRings unions overlapping pattern groups into rings. Two groups
// sharing at least one account collapse into the same ring; the resulting
// ring keeps every pattern label that contributed to it.
func MergeRings(groups []patternGroup) []domain.Ring {
	if len(groups) == 0 {
		return nil
	}

	// Union-find over group indexes keyed by shared accounts.
	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	owner := make(map[string]int)
	for i, g := range groups {
		for _, acc := range g.accounts {
			if j, ok := owner[acc]; ok {
				union(i, j)
			} else {
				owner[acc] = i
			}
		}
	}

	merged := make(map[int]map[string]bool)
	patterns := make(map[int]map[string]bool)
	for i, g := range groups {
		root := find(i)
		if merged[root] == nil {
			merged[root] = make(map[string]bool)
			patterns[root] = make(map[string]bool)
		}
		for _, acc := range g.accounts {
			merged[root][acc] = true
		}
		patterns[root][g.pattern] = true
	}

	roots := make([]int, 0, len(merged))
	for root := range merged {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	rings := make([]domain.Ring, 0, len(roots))
	for n, root := range roots {
		accounts := sortedKeys(merged[root])
		labels := sortedKeys(patterns[root])
		rings = append(rings, domain.Ring{
			ID:       fmt.Sprintf("ring-%d", n+1),
			Accounts: accounts,
			Pattern:  labels[0],
			Score:    ringScore(labels, len(accounts)),
		})
	}
	return rings
}

// ringScore weighs a ring by its pattern mix and size.
func ringScore(patterns []string, size int) float64 {
	score := 0.0
	for _, p := range patterns {
		score += patternWeights[p]
	}
	score += float64(size) * 2
	if score > 100 {
		score = 100
	}
	return score
}
