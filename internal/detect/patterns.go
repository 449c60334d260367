package detect

import (
	"sort"
	"strings"
	"time"
)

// Pattern labels attached to flagged accounts.
const (
	PatternCycle    = "cycle"
	PatternSmurfing = "smurfing"
	PatternShell    = "shell"
)

// Detection thresholds. Tuned against labelled mule datasets; changing them
// changes which accounts get flagged, not the response shape.
const (
	maxCycleLen       = 5
	smurfWindow       = 24 * time.Hour
	smurfMaxAmount    = 10_000.0
	smurfMinSenders   = 3
	shellMinChainLen  = 3
	maxCyclesPerGraph = 200
)

// DetectCycles finds simple directed cycles up to maxCycleLen accounts.
// Each cycle is reported once, in canonical rotation, smallest id first.
func DetectCycles(g *Graph) [][]string {
	var cycles [][]string
	seen := make(map[string]bool)

	var dfs func(start, current string, path []string)
	dfs = func(start, current string, path []string) {
		if len(cycles) >= maxCyclesPerGraph {
			return
		}
		for next := range g.Out[current] {
			if next == start && len(path) >= 2 {
				cycle := canonicalCycle(path)
				key := strings.Join(cycle, ">")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if len(path) >= maxCycleLen {
				continue
			}
			// Only expand to ids after the start to avoid re-walking the
			// same cycle from every member.
			if next <= start || contains(path, next) {
				continue
			}
			dfs(start, next, append(path, next))
		}
	}

	for _, id := range g.Accounts() {
		dfs(id, id, []string{id})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], ">") < strings.Join(cycles[j], ">")
	})
	return cycles
}

// canonicalCycle rotates the cycle so the smallest id comes first.
func canonicalCycle(path []string) []string {
	min := 0
	for i := range path {
		if path[i] < path[min] {
			min = i
		}
	}
	cycle := make([]string, 0, len(path))
	cycle = append(cycle, path[min:]...)
	cycle = append(cycle, path[:min]...)
	return cycle
}

func contains(path []string, id string) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}

// SmurfingHit is one receiver collecting structured small credits.
type SmurfingHit struct {
	Receiver string
	Senders  []string
}

// DetectSmurfing flags receivers that collect small transfers from several
// distinct senders inside the smurfing window.
func DetectSmurfing(txs []Transaction) []SmurfingHit {
	type credit struct {
		sender string
		at     time.Time
	}
	byReceiver := make(map[string][]credit)
	for _, tx := range txs {
		if tx.Amount >= smurfMaxAmount {
			continue
		}
		byReceiver[tx.Receiver] = append(byReceiver[tx.Receiver], credit{tx.Sender, tx.Timestamp})
	}

	receivers := make([]string, 0, len(byReceiver))
	for r := range byReceiver {
		receivers = append(receivers, r)
	}
	sort.Strings(receivers)

	var hits []SmurfingHit
	for _, receiver := range receivers {
		credits := byReceiver[receiver]
		sort.Slice(credits, func(i, j int) bool { return credits[i].at.Before(credits[j].at) })

		// Sliding window over time-ordered credits.
		lo := 0
		for hi := range credits {
			for credits[hi].at.Sub(credits[lo].at) > smurfWindow {
				lo++
			}
			senders := make(map[string]bool)
			for i := lo; i <= hi; i++ {
				senders[credits[i].sender] = true
			}
			if len(senders) >= smurfMinSenders {
				hits = append(hits, SmurfingHit{Receiver: receiver, Senders: sortedKeys(senders)})
				break
			}
		}
	}
	return hits
}

// DetectShellChains finds pass-through chains: three or more accounts where
// every intermediary has exactly one counterparty on each side.
func DetectShellChains(g *Graph) [][]string {
	isShell := func(id string) bool {
		return len(g.In[id]) == 1 && len(g.Out[id]) == 1
	}

	var chains [][]string
	visited := make(map[string]bool)

	for _, id := range g.Accounts() {
		if !isShell(id) || visited[id] {
			continue
		}

		// Walk back to the head of the shell segment.
		head := id
		for {
			prev := onlyKey(g.In[head])
			if !isShell(prev) || prev == id {
				break
			}
			head = prev
		}

		chain := []string{}
		node := head
		for isShell(node) && !visited[node] {
			visited[node] = true
			chain = append(chain, node)
			node = onlyKey(g.Out[node])
		}

		if len(chain) == 0 {
			continue
		}
		// Include the source and sink around the shell segment.
		full := append([]string{onlyKey(g.In[chain[0]])}, chain...)
		full = append(full, node)
		if len(full) >= shellMinChainLen {
			chains = append(chains, full)
		}
	}

	sort.Slice(chains, func(i, j int) bool {
		return strings.Join(chains[i], ">") < strings.Join(chains[j], ">")
	})
	return chains
}

func onlyKey(set map[string]bool) string {
	for k := range set {
		return k
	}
	return ""
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
