package model

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeID identifies a node. IDs are opaque and never reused after deletion.
type NodeID string

// EdgeID identifies an edge.
type EdgeID string

// Position is a 2D coordinate on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a labeled vertex with a free-form annotation.
type Node struct {
	ID       NodeID   `json:"id"`
	Label    string   `json:"label"`
	Text     string   `json:"text"`
	Position Position `json:"position"`
	Selected bool     `json:"selected,omitempty"` // Renderer-owned selection flag
}

// Handles names the attachment points an edge is anchored to. Both are optional.
type Handles struct {
	Source string `json:"sourceHandle,omitempty"`
	Target string `json:"targetHandle,omitempty"`
}

// Edge represents a directed connection between two nodes.
type Edge struct {
	ID           EdgeID `json:"id"`
	Source       NodeID `json:"source"`
	Target       NodeID `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Handles returns the handle pair the edge was connected with.
func (e Edge) Handles() Handles {
	return Handles{Source: e.SourceHandle, Target: e.TargetHandle}
}

// Touches reports whether the node is one of the edge's endpoints.
func (e Edge) Touches(id NodeID) bool {
	return e.Source == id || e.Target == id
}

// EdgeKey derives the deterministic key for a connection.
// Format: edge__<source>[<sourceHandle>]-<target>[<targetHandle>]
func EdgeKey(source, target NodeID, h Handles) string {
	return fmt.Sprintf("edge__%s%s-%s%s", source, h.Source, target, h.Target)
}

// Snapshot is an immutable view of the node and edge collections.
// A published snapshot is never modified; every mutation produces a new one.
type Snapshot struct {
	Version uint64 `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// EmptySnapshot returns the snapshot of a graph with no nodes and no edges.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// Node looks up a node by ID.
func (s Snapshot) Node(id NodeID) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given ID is present.
func (s Snapshot) HasNode(id NodeID) bool {
	_, ok := s.Node(id)
	return ok
}

// IDSource hands out node IDs. Implementations must never return the same ID twice.
type IDSource interface {
	NextNodeID() NodeID
}

// CounterSource is a monotonic IDSource producing n1, n2, ...
type CounterSource struct {
	next atomic.Uint64
}

// NextNodeID returns the next ID in sequence.
func (c *CounterSource) NextNodeID() NodeID {
	return NodeID("n" + strconv.FormatUint(c.next.Add(1), 10))
}

// UUIDSource produces random UUID node IDs.
type UUIDSource struct{}

// NextNodeID returns a fresh UUID.
func (UUIDSource) NextNodeID() NodeID {
	return NodeID(uuid.New().String())
}
