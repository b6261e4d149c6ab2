package editor

import (
	"github.com/ritzau/graph-editor/pkg/interaction"
	"github.com/ritzau/graph-editor/pkg/model"
)

// RenderNode is a node as the renderer draws it: graph data plus its
// interaction state and node type.
type RenderNode struct {
	model.Node
	Type        string            `json:"type"`
	Interaction interaction.State `json:"interaction"`
}

// RenderState is everything the renderer needs for one frame
type RenderState struct {
	Version      uint64                             `json:"version"`
	Nodes        []RenderNode                       `json:"nodes"`
	Edges        []model.Edge                       `json:"edges"`
	Interactions map[model.NodeID]interaction.State `json:"-"`
	PendingName  string                             `json:"pendingName"`
	Focus        model.NodeID                       `json:"focus,omitempty"` // Node whose label field should take focus
	Style        model.StyleConfig                  `json:"style"`
}

// View is the render state without graph data. On the graph topic it follows
// every diff and is sent alone when only interaction state changed.
type View struct {
	Version      uint64                             `json:"version"`
	Interactions map[model.NodeID]interaction.State `json:"interactions"`
	PendingName  string                             `json:"pendingName"`
	Focus        model.NodeID                       `json:"focus,omitempty"`
	Style        model.StyleConfig                  `json:"style"`
}

// View strips the nodes and edges from r
func (r RenderState) View() View {
	return View{
		Version:      r.Version,
		Interactions: r.Interactions,
		PendingName:  r.PendingName,
		Focus:        r.Focus,
		Style:        r.Style,
	}
}

func buildRenderState(snap model.Snapshot, states map[model.NodeID]interaction.State, pending string, style model.StyleConfig, focus model.NodeID) RenderState {
	nodes := make([]RenderNode, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		st, ok := states[n.ID]
		if !ok {
			st = interaction.State{Mode: interaction.Viewing}
		}
		nodes = append(nodes, RenderNode{
			Node:        n,
			Type:        style.DefaultNode,
			Interaction: st,
		})
	}

	return RenderState{
		Version:      snap.Version,
		Nodes:        nodes,
		Edges:        snap.Edges,
		Interactions: states,
		PendingName:  pending,
		Focus:        focus,
		Style:        style,
	}
}

// RenderState returns the most recent render state. Safe for concurrent use.
func (s *Shell) RenderState() RenderState {
	return *s.view.Load()
}
