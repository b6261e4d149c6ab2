// Package cycles reports circular paths in the edited graph. The report is
// informational only; cycles are legal and never rejected.
package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/graph-editor/pkg/model"
)

// Cycle is a strongly connected group of two or more nodes
type Cycle struct {
	Nodes []model.NodeID `json:"nodes"`
}

// Find returns every strongly connected component with more than one node.
// Parallel edges collapse into one and self-loops are ignored. Nodes within a
// cycle, and the cycles themselves, follow snapshot insertion order.
func Find(snap model.Snapshot) []Cycle {
	g := simple.NewDirectedGraph()
	index := make(map[model.NodeID]int64, len(snap.Nodes))
	for i, n := range snap.Nodes {
		index[n.ID] = int64(i)
		g.AddNode(simple.Node(i))
	}

	for _, e := range snap.Edges {
		from, okFrom := index[e.Source]
		to, okTo := index[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		if !g.HasEdgeFromTo(from, to) {
			g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
		}
	}

	cycles := make([]Cycle, 0)
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int64, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, n.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		c := Cycle{Nodes: make([]model.NodeID, 0, len(ids))}
		for _, id := range ids {
			c.Nodes = append(c.Nodes, snap.Nodes[id].ID)
		}
		cycles = append(cycles, c)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return index[cycles[i].Nodes[0]] < index[cycles[j].Nodes[0]]
	})
	return cycles
}
