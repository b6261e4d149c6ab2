package diff

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/graph-editor/pkg/model"
	"github.com/ritzau/graph-editor/pkg/store"
)

func TestComputeWithoutPreviousIsFullGraph(t *testing.T) {
	next := model.Snapshot{
		Version: 3,
		Nodes:   []model.Node{{ID: "n1", Label: "A"}},
		Edges:   []model.Edge{},
	}

	d := Compute(nil, next)

	if !d.FullGraph {
		t.Error("Expected a full-graph diff")
	}
	if len(d.AddedNodes) != 1 || d.ToVersion != 3 {
		t.Errorf("Unexpected diff: %+v", d)
	}
}

func TestComputeChanges(t *testing.T) {
	prev := model.Snapshot{
		Version: 1,
		Nodes: []model.Node{
			{ID: "n1", Label: "A"},
			{ID: "n2", Label: "B"},
			{ID: "n3", Label: "C"},
		},
		Edges: []model.Edge{
			{ID: "e1", Source: "n1", Target: "n2"},
			{ID: "e2", Source: "n2", Target: "n3"},
		},
	}
	next := model.Snapshot{
		Version: 2,
		Nodes: []model.Node{
			{ID: "n2", Label: "B", Position: model.Position{X: 5}},
			{ID: "n3", Label: "C"},
			{ID: "n4", Label: "D"},
		},
		Edges: []model.Edge{
			{ID: "e2", Source: "n2", Target: "n3"},
			{ID: "e3", Source: "n3", Target: "n4"},
		},
	}

	d := Compute(&prev, next)

	want := Diff{
		FromVersion:   1,
		ToVersion:     2,
		AddedNodes:    []model.Node{{ID: "n4", Label: "D"}},
		RemovedNodes:  []model.NodeID{"n1"},
		ModifiedNodes: []model.Node{{ID: "n2", Label: "B", Position: model.Position{X: 5}}},
		AddedEdges:    []model.Edge{{ID: "e3", Source: "n3", Target: "n4"}},
		RemovedEdges:  []model.EdgeID{"e1"},
		Hash:          Hash(next),
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIdenticalIsEmpty(t *testing.T) {
	snap := model.Snapshot{
		Version: 4,
		Nodes:   []model.Node{{ID: "n1", Label: "A"}},
		Edges:   []model.Edge{{ID: "e1", Source: "n1", Target: "n1"}},
	}

	d := Compute(&snap, snap)

	if !d.Empty() {
		t.Errorf("Expected empty diff, got %+v", d)
	}
}

func TestHashIgnoresVersion(t *testing.T) {
	a := model.Snapshot{Version: 1, Nodes: []model.Node{{ID: "n1", Label: "A"}}}
	b := model.Snapshot{Version: 9, Nodes: []model.Node{{ID: "n1", Label: "A"}}}
	c := model.Snapshot{Version: 1, Nodes: []model.Node{{ID: "n1", Label: "Z"}}}

	if Hash(a) != Hash(b) {
		t.Error("Hash depends on version")
	}
	if Hash(a) == Hash(c) {
		t.Error("Hash ignores labels")
	}
}

func TestApplyReproducesNextSnapshot(t *testing.T) {
	st := store.New()
	a, _ := st.AddNode("A", "", model.Position{})
	b, _ := st.AddNode("B", "", model.Position{X: 10})
	c, _ := st.AddNode("C", "", model.Position{X: 20})

	steps := []struct {
		name   string
		mutate func()
	}{
		{"connect", func() {
			st.Connect(a, b, model.Handles{})
			st.Connect(b, c, model.Handles{})
		}},
		{"duplicate edge", func() { st.Connect(a, b, model.Handles{}) }},
		{"text", func() { st.UpdateNodeText(b, "note") }},
		{"move", func() {
			st.ApplyNodeChanges([]model.NodeChange{{Type: model.NodeChangePosition, ID: c, Position: &model.Position{X: 99, Y: 1}}})
		}},
		{"add", func() { st.AddNode("D", "", model.Position{}) }},
		{"cascade delete", func() { st.DeleteNode(b) }},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			prev := st.Snapshot()
			step.mutate()
			next := st.Snapshot()

			got, err := Apply(prev, Compute(&prev, next))
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if diff := cmp.Diff(next, got); diff != "" {
				t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyFullGraph(t *testing.T) {
	next := model.Snapshot{
		Version: 5,
		Nodes:   []model.Node{{ID: "n1", Label: "A"}},
		Edges:   []model.Edge{},
	}

	got, err := Apply(model.EmptySnapshot(), Compute(nil, next))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if diff := cmp.Diff(next, got); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyStaleDiff(t *testing.T) {
	v1 := model.Snapshot{Version: 1, Nodes: []model.Node{{ID: "n1", Label: "A"}}, Edges: []model.Edge{}}
	v2 := model.Snapshot{Version: 2, Nodes: []model.Node{{ID: "n1", Label: "B"}}, Edges: []model.Edge{}}
	v3 := model.Snapshot{Version: 3, Nodes: []model.Node{{ID: "n1", Label: "C"}}, Edges: []model.Edge{}}

	if _, err := Apply(v1, Compute(&v2, v3)); !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale for a skipped version, got %v", err)
	}

	// Right version, wrong content
	forged := Compute(&v1, v2)
	forged.ModifiedNodes = nil
	if _, err := Apply(v1, forged); !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale for a hash mismatch, got %v", err)
	}
}
