package detect

import (
	"sort"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Graph is the directed transaction graph built from the parsed rows.
// Parallel transfers between the same pair are aggregated into one edge.
type Graph struct {
	// Out maps an account to the set of accounts it sent money to.
	Out map[string]map[string]bool

	// In maps an account to the set of accounts it received money from.
	In map[string]map[string]bool

	// Features accumulates per-account aggregates for rule evaluation.
	Features map[string]*domain.AccountFeatures

	edges map[[2]string]*domain.GraphEdge
}

// BuildGraph constructs the transaction graph.
func BuildGraph(txs []Transaction) *Graph {
	g := &Graph{
		Out:      make(map[string]map[string]bool),
		In:       make(map[string]map[string]bool),
		Features: make(map[string]*domain.AccountFeatures),
		edges:    make(map[[2]string]*domain.GraphEdge),
	}

	for _, tx := range txs {
		if g.Out[tx.Sender] == nil {
			g.Out[tx.Sender] = make(map[string]bool)
		}
		if g.In[tx.Receiver] == nil {
			g.In[tx.Receiver] = make(map[string]bool)
		}
		g.Out[tx.Sender][tx.Receiver] = true
		g.In[tx.Receiver][tx.Sender] = true

		key := [2]string{tx.Sender, tx.Receiver}
		if edge, ok := g.edges[key]; ok {
			edge.Amount += tx.Amount
			edge.Count++
		} else {
			g.edges[key] = &domain.GraphEdge{
				Source: tx.Sender,
				Target: tx.Receiver,
				Amount: tx.Amount,
				Count:  1,
			}
		}

		sender := g.feature(tx.Sender)
		sender.TxCount++
		sender.TotalOut += tx.Amount
		if tx.Amount > sender.MaxAmount {
			sender.MaxAmount = tx.Amount
		}

		receiver := g.feature(tx.Receiver)
		receiver.TxCount++
		receiver.TotalIn += tx.Amount
		if tx.Amount > receiver.MaxAmount {
			receiver.MaxAmount = tx.Amount
		}
	}

	for id, f := range g.Features {
		f.OutDegree = int64(len(g.Out[id]))
		f.InDegree = int64(len(g.In[id]))
	}

	return g
}

func (g *Graph) feature(id string) *domain.AccountFeatures {
	f, ok := g.Features[id]
	if !ok {
		f = &domain.AccountFeatures{AccountID: id}
		g.Features[id] = f
	}
	return f
}

// Edges returns the aggregated edges in deterministic order.
func (g *Graph) Edges() []domain.GraphEdge {
	edges := make([]domain.GraphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, *e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// Accounts returns every account id in deterministic order.
func (g *Graph) Accounts() []string {
	ids := make([]string, 0, len(g.Features))
	for id := range g.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
