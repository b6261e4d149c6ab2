// Package diff computes incremental updates between two graph snapshots so the
// renderer can patch its view instead of reloading the whole graph.
package diff

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ritzau/graph-editor/pkg/model"
)

// ErrStale is returned by Apply when a diff does not fit the snapshot it is
// applied to. The receiver must resync from a full graph.
var ErrStale = errors.New("stale diff")

// Diff is the difference between two snapshots
type Diff struct {
	FromVersion   uint64         `json:"fromVersion"`
	ToVersion     uint64         `json:"toVersion"`
	AddedNodes    []model.Node   `json:"addedNodes"`
	RemovedNodes  []model.NodeID `json:"removedNodes"`
	ModifiedNodes []model.Node   `json:"modifiedNodes"`
	AddedEdges    []model.Edge   `json:"addedEdges"`
	RemovedEdges  []model.EdgeID `json:"removedEdges"`
	FullGraph     bool           `json:"fullGraph"` // True if this carries the whole graph
	Hash          string         `json:"hash"`      // Content hash of the target snapshot
}

// Empty reports whether the diff carries no changes
func (d Diff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// Hash computes a content hash of the node and edge collections.
// The version is not part of the hash, and nil collections hash as empty.
func Hash(snap model.Snapshot) string {
	nodes, edges := snap.Nodes, snap.Edges
	if nodes == nil {
		nodes = []model.Node{}
	}
	if edges == nil {
		edges = []model.Edge{}
	}
	data, err := json.Marshal(struct {
		Nodes []model.Node
		Edges []model.Edge
	}{nodes, edges})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// Compute returns the changes turning prev into next. A nil prev yields a
// full-graph diff.
func Compute(prev *model.Snapshot, next model.Snapshot) Diff {
	if prev == nil {
		return Diff{
			ToVersion:     next.Version,
			AddedNodes:    next.Nodes,
			RemovedNodes:  []model.NodeID{},
			ModifiedNodes: []model.Node{},
			AddedEdges:    next.Edges,
			RemovedEdges:  []model.EdgeID{},
			FullGraph:     true,
			Hash:          Hash(next),
		}
	}

	d := Diff{
		FromVersion:   prev.Version,
		ToVersion:     next.Version,
		AddedNodes:    make([]model.Node, 0),
		RemovedNodes:  make([]model.NodeID, 0),
		ModifiedNodes: make([]model.Node, 0),
		AddedEdges:    make([]model.Edge, 0),
		RemovedEdges:  make([]model.EdgeID, 0),
		Hash:          Hash(next),
	}

	oldNodes := make(map[model.NodeID]model.Node, len(prev.Nodes))
	for _, n := range prev.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[model.NodeID]bool, len(next.Nodes))

	// Walk in snapshot order so the result is stable
	for _, n := range next.Nodes {
		newNodes[n.ID] = true
		old, exists := oldNodes[n.ID]
		switch {
		case !exists:
			d.AddedNodes = append(d.AddedNodes, n)
		case old != n:
			d.ModifiedNodes = append(d.ModifiedNodes, n)
		}
	}
	for _, n := range prev.Nodes {
		if !newNodes[n.ID] {
			d.RemovedNodes = append(d.RemovedNodes, n.ID)
		}
	}

	// Edges are immutable once created, so identity by ID is enough
	oldEdges := make(map[model.EdgeID]bool, len(prev.Edges))
	for _, e := range prev.Edges {
		oldEdges[e.ID] = true
	}
	newEdges := make(map[model.EdgeID]bool, len(next.Edges))
	for _, e := range next.Edges {
		newEdges[e.ID] = true
		if !oldEdges[e.ID] {
			d.AddedEdges = append(d.AddedEdges, e)
		}
	}
	for _, e := range prev.Edges {
		if !newEdges[e.ID] {
			d.RemovedEdges = append(d.RemovedEdges, e.ID)
		}
	}

	return d
}

// Apply patches prev with d. Modified nodes keep their place, removed ones are
// dropped and additions go last, the same order the store produces, so the
// result matches the snapshot d was computed against, hash included.
func Apply(prev model.Snapshot, d Diff) (model.Snapshot, error) {
	if d.FullGraph {
		return model.Snapshot{Version: d.ToVersion, Nodes: d.AddedNodes, Edges: d.AddedEdges}, nil
	}
	if d.FromVersion != prev.Version {
		return model.Snapshot{}, fmt.Errorf("%w: at %d, diff from %d", ErrStale, prev.Version, d.FromVersion)
	}

	modified := make(map[model.NodeID]model.Node, len(d.ModifiedNodes))
	for _, n := range d.ModifiedNodes {
		modified[n.ID] = n
	}
	removed := make(map[model.NodeID]bool, len(d.RemovedNodes))
	for _, id := range d.RemovedNodes {
		removed[id] = true
	}

	nodes := make([]model.Node, 0, len(prev.Nodes)+len(d.AddedNodes))
	for _, n := range prev.Nodes {
		if removed[n.ID] {
			continue
		}
		if m, ok := modified[n.ID]; ok {
			n = m
		}
		nodes = append(nodes, n)
	}
	nodes = append(nodes, d.AddedNodes...)

	gone := make(map[model.EdgeID]bool, len(d.RemovedEdges))
	for _, id := range d.RemovedEdges {
		gone[id] = true
	}
	edges := make([]model.Edge, 0, len(prev.Edges)+len(d.AddedEdges))
	for _, e := range prev.Edges {
		if !gone[e.ID] {
			edges = append(edges, e)
		}
	}
	edges = append(edges, d.AddedEdges...)

	next := model.Snapshot{Version: d.ToVersion, Nodes: nodes, Edges: edges}
	if d.Hash != "" && Hash(next) != d.Hash {
		return model.Snapshot{}, fmt.Errorf("%w: content hash mismatch at %d", ErrStale, d.ToVersion)
	}
	return next, nil
}
