// Package store owns the canonical node and edge collections of the editor.
//
// Every mutation builds a new model.Snapshot and swaps it in atomically, so a
// reader always observes a complete, consistent graph. Mutations are expected
// to be issued from a single goroutine (the editor's event loop); readers may
// call Snapshot from anywhere.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/model"
)

var (
	// ErrInvalidInput is returned when a node is added with an empty label.
	ErrInvalidInput = errors.New("invalid input")

	// ErrReference is returned when a connection names a node that does not exist.
	ErrReference = errors.New("unknown node reference")
)

// Store is the graph store
type Store struct {
	current atomic.Pointer[model.Snapshot]
	ids     model.IDSource
	edgeSeq uint64
}

// Option configures a Store
type Option func(*Store)

// WithIDSource replaces the default counter-based node ID source.
func WithIDSource(src model.IDSource) Option {
	return func(s *Store) {
		s.ids = src
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{ids: &model.CounterSource{}}
	for _, opt := range opts {
		opt(s)
	}
	empty := model.EmptySnapshot()
	s.current.Store(&empty)
	return s
}

// Snapshot returns the current graph. The returned slices must not be modified.
func (s *Store) Snapshot() model.Snapshot {
	return *s.current.Load()
}

// HasNode reports whether the node exists in the current snapshot.
func (s *Store) HasNode(id model.NodeID) bool {
	return s.Snapshot().HasNode(id)
}

// Node returns the node with the given ID from the current snapshot.
func (s *Store) Node(id model.NodeID) (model.Node, bool) {
	return s.Snapshot().Node(id)
}

// AddNode appends a new node with a fresh ID.
func (s *Store) AddNode(label, text string, pos model.Position) (model.NodeID, error) {
	if label == "" {
		return "", fmt.Errorf("adding node: empty label: %w", ErrInvalidInput)
	}

	cur := s.Snapshot()
	node := model.Node{
		ID:       s.ids.NextNodeID(),
		Label:    label,
		Text:     text,
		Position: pos,
	}

	nodes := make([]model.Node, len(cur.Nodes), len(cur.Nodes)+1)
	copy(nodes, cur.Nodes)
	nodes = append(nodes, node)

	s.publish(cur, nodes, cur.Edges)
	logging.Debug("node added", "id", node.ID, "label", label)
	return node.ID, nil
}

// UpdateNodeLabel replaces the label of a node. Unknown IDs are ignored.
func (s *Store) UpdateNodeLabel(id model.NodeID, label string) {
	s.updateNode(id, func(n *model.Node) { n.Label = label })
}

// UpdateNodeText replaces the annotation of a node. Unknown IDs are ignored.
func (s *Store) UpdateNodeText(id model.NodeID, text string) {
	s.updateNode(id, func(n *model.Node) { n.Text = text })
}

func (s *Store) updateNode(id model.NodeID, mutate func(*model.Node)) bool {
	cur := s.Snapshot()
	idx := indexOf(cur.Nodes, id)
	if idx < 0 {
		return false
	}

	nodes := make([]model.Node, len(cur.Nodes))
	copy(nodes, cur.Nodes)
	mutate(&nodes[idx])
	if nodes[idx] == cur.Nodes[idx] {
		// Nothing changed; keep the current snapshot and version
		return false
	}

	s.publish(cur, nodes, cur.Edges)
	return true
}

// DeleteNode removes a node together with every edge that starts or ends at it.
// Both removals land in the same snapshot, so no dangling edge is ever visible.
func (s *Store) DeleteNode(id model.NodeID) {
	cur := s.Snapshot()
	idx := indexOf(cur.Nodes, id)
	if idx < 0 {
		return
	}

	nodes := make([]model.Node, 0, len(cur.Nodes)-1)
	nodes = append(nodes, cur.Nodes[:idx]...)
	nodes = append(nodes, cur.Nodes[idx+1:]...)

	edges := make([]model.Edge, 0, len(cur.Edges))
	removed := 0
	for _, e := range cur.Edges {
		if e.Touches(id) {
			removed++
			continue
		}
		edges = append(edges, e)
	}

	s.publish(cur, nodes, edges)
	logging.Debug("node deleted", "id", id, "edgesRemoved", removed)
}

// Connect appends a new edge between two existing nodes. Identical connections
// are not deduplicated; each call yields a distinct edge.
func (s *Store) Connect(source, target model.NodeID, h model.Handles) (model.EdgeID, error) {
	cur := s.Snapshot()
	if !cur.HasNode(source) {
		return "", fmt.Errorf("connecting source %q: %w", source, ErrReference)
	}
	if !cur.HasNode(target) {
		return "", fmt.Errorf("connecting target %q: %w", target, ErrReference)
	}

	s.edgeSeq++
	edge := model.Edge{
		ID:           model.EdgeID(model.EdgeKey(source, target, h) + "#" + strconv.FormatUint(s.edgeSeq, 10)),
		Source:       source,
		Target:       target,
		SourceHandle: h.Source,
		TargetHandle: h.Target,
	}

	edges := make([]model.Edge, len(cur.Edges), len(cur.Edges)+1)
	copy(edges, cur.Edges)
	edges = append(edges, edge)

	s.publish(cur, cur.Nodes, edges)
	logging.Debug("edge added", "id", edge.ID)
	return edge.ID, nil
}

// DeleteEdge removes a single edge. Unknown IDs are ignored.
func (s *Store) DeleteEdge(id model.EdgeID) {
	cur := s.Snapshot()
	edges := make([]model.Edge, 0, len(cur.Edges))
	for _, e := range cur.Edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	if len(edges) == len(cur.Edges) {
		return
	}
	s.publish(cur, cur.Nodes, edges)
}

// ApplyNodeChanges applies renderer-side node patches. Position and selection
// patches land in one snapshot swap; remove changes then cascade exactly like
// DeleteNode. Changes naming unknown nodes are skipped.
func (s *Store) ApplyNodeChanges(changes []model.NodeChange) {
	cur := s.Snapshot()
	nodes := make([]model.Node, len(cur.Nodes))
	copy(nodes, cur.Nodes)

	var removals []model.NodeID
	changed := false
	for _, c := range changes {
		idx := indexOf(nodes, c.ID)
		if idx < 0 {
			continue
		}
		switch c.Type {
		case model.NodeChangePosition:
			if c.Position != nil && nodes[idx].Position != *c.Position {
				nodes[idx].Position = *c.Position
				changed = true
			}
		case model.NodeChangeSelect:
			if nodes[idx].Selected != c.Selected {
				nodes[idx].Selected = c.Selected
				changed = true
			}
		case model.NodeChangeRemove:
			removals = append(removals, c.ID)
		}
	}

	if changed {
		s.publish(cur, nodes, cur.Edges)
	}
	for _, id := range removals {
		s.DeleteNode(id)
	}
}

func (s *Store) publish(prev model.Snapshot, nodes []model.Node, edges []model.Edge) {
	next := &model.Snapshot{
		Version: prev.Version + 1,
		Nodes:   nodes,
		Edges:   edges,
	}
	s.current.Store(next)
}

func indexOf(nodes []model.Node, id model.NodeID) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
