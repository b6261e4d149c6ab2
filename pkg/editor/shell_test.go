package editor

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ritzau/graph-editor/pkg/diff"
	"github.com/ritzau/graph-editor/pkg/interaction"
	"github.com/ritzau/graph-editor/pkg/model"
	"github.com/ritzau/graph-editor/pkg/store"
)

type published struct {
	topic     string
	eventType string
	data      any
}

// recorder is a Publisher that keeps everything it is given
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(topic, eventType string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, eventType, data})
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic+"/"+e.eventType)
	}
	return out
}

func newTestShell(opts ...Option) *Shell {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return New(store.New(), opts...)
}

func addNode(t *testing.T, s *Shell, name string) model.NodeID {
	t.Helper()
	before := len(s.Store().Snapshot().Nodes)
	s.SetPendingName(name)
	s.SubmitAddNode()
	snap := s.Store().Snapshot()
	if len(snap.Nodes) != before+1 {
		t.Fatalf("Expected node %q to be added", name)
	}
	return snap.Nodes[len(snap.Nodes)-1].ID
}

func TestSubmitAddNode(t *testing.T) {
	s := newTestShell(WithSpawnRegion(Region{Width: 100, Height: 50}))

	s.SetPendingName("A")
	s.SubmitAddNode()

	snap := s.Store().Snapshot()
	if len(snap.Nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(snap.Nodes))
	}
	n := snap.Nodes[0]
	if n.Label != "A" || n.Text != DefaultNodeText {
		t.Errorf("Unexpected node %+v", n)
	}
	if n.Position.X < 0 || n.Position.X >= 100 || n.Position.Y < 0 || n.Position.Y >= 50 {
		t.Errorf("Position %+v outside the spawn region", n.Position)
	}
	if s.PendingName() != "" {
		t.Errorf("Expected pending name to be cleared, got %q", s.PendingName())
	}
}

func TestSubmitAddNodeEmptyNameIsNoOp(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))
	addNode(t, s, "A")
	rec.reset()

	before := s.Store().Snapshot()
	view := s.RenderState()

	s.SubmitAddNode()

	if diff := cmp.Diff(before, s.Store().Snapshot()); diff != "" {
		t.Errorf("Snapshot changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(view, s.RenderState()); diff != "" {
		t.Errorf("Render state changed (-before +after):\n%s", diff)
	}
	if got := rec.types(); len(got) != 0 {
		t.Errorf("Expected nothing published, got %v", got)
	}
}

func TestDefaultTextOption(t *testing.T) {
	s := newTestShell(WithDefaultText("notes"))
	id := addNode(t, s, "A")

	n, _ := s.Store().Node(id)
	if n.Text != "notes" {
		t.Errorf("Expected text %q, got %q", "notes", n.Text)
	}
}

func TestAddConnectDeleteScenario(t *testing.T) {
	s := newTestShell()
	a := addNode(t, s, "A")
	b := addNode(t, s, "B")

	s.OnConnect(a, b, model.Handles{})
	if got := len(s.Store().Snapshot().Edges); got != 1 {
		t.Fatalf("Expected 1 edge, got %d", got)
	}

	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbContextMenu})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbDeleteRequested})

	snap := s.Store().Snapshot()
	if len(snap.Nodes) != 1 || snap.Nodes[0].ID != b {
		t.Errorf("Expected only %s to remain, got %+v", b, snap.Nodes)
	}
	if len(snap.Edges) != 0 {
		t.Errorf("Expected edges to cascade, got %+v", snap.Edges)
	}
	if _, ok := s.RenderState().Interactions[a]; ok {
		t.Error("Interaction state of deleted node survived")
	}
}

func TestOnConnectSwallowsUnknownEndpoints(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))
	a := addNode(t, s, "A")
	rec.reset()
	version := s.Store().Snapshot().Version

	s.OnConnect(a, "missing", model.Handles{})
	s.OnConnect("missing", a, model.Handles{})

	if got := s.Store().Snapshot().Version; got != version {
		t.Errorf("Version moved from %d to %d", version, got)
	}
	if got := rec.types(); len(got) != 0 {
		t.Errorf("Expected nothing published, got %v", got)
	}
}

func TestOnConnectKeepsDuplicates(t *testing.T) {
	s := newTestShell()
	a := addNode(t, s, "A")
	b := addNode(t, s, "B")

	s.OnConnect(a, b, model.Handles{})
	s.OnConnect(a, b, model.Handles{})

	edges := s.Store().Snapshot().Edges
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(edges))
	}
	if edges[0].ID == edges[1].ID {
		t.Errorf("Duplicate edges share ID %s", edges[0].ID)
	}
}

func TestMenuOpenThenClickOutside(t *testing.T) {
	s := newTestShell()
	a := addNode(t, s, "A")

	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbContextMenu, Anchor: model.Position{X: 3, Y: 4}})
	if st := s.InteractionState(a); !st.MenuOpen || st.MenuAnchor != (model.Position{X: 3, Y: 4}) {
		t.Fatalf("Expected open menu at anchor, got %+v", st)
	}

	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbClickOutside})
	if st := s.InteractionState(a); st.MenuOpen || st.Mode != interaction.Viewing {
		t.Errorf("Expected closed menu while viewing, got %+v", st)
	}
}

func TestEditLabelScenario(t *testing.T) {
	s := newTestShell()
	a := addNode(t, s, "X")

	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbContextMenu})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbEditRequested})

	view := s.RenderState()
	if view.Focus != a {
		t.Errorf("Expected focus on %s, got %q", a, view.Focus)
	}
	if st := s.InteractionState(a); st.Mode != interaction.Editing || st.DraftLabel != "X" {
		t.Fatalf("Expected editing with draft X, got %+v", st)
	}

	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbLabelChanged, Text: "Y"})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbLabelCommitted})

	n, _ := s.Store().Node(a)
	if n.Label != "Y" {
		t.Errorf("Expected label Y, got %q", n.Label)
	}
	if st := s.InteractionState(a); st.Mode != interaction.Viewing {
		t.Errorf("Expected viewing after commit, got %+v", st)
	}
	if s.RenderState().Focus != "" {
		t.Error("Focus request should last a single frame")
	}
}

func TestRenderStateCarriesInteractions(t *testing.T) {
	s := newTestShell(WithStyle(model.StyleConfig{DefaultNode: "card", Edge: model.DefaultStyle().Edge}))
	a := addNode(t, s, "A")
	b := addNode(t, s, "B")

	s.HandleInteraction(interaction.Event{NodeID: b, Verb: interaction.VerbContextMenu})

	view := s.RenderState()
	if len(view.Nodes) != 2 {
		t.Fatalf("Expected 2 render nodes, got %d", len(view.Nodes))
	}
	if view.Nodes[0].ID != a || view.Nodes[0].Interaction.MenuOpen {
		t.Errorf("Unexpected first node %+v", view.Nodes[0])
	}
	if view.Nodes[1].ID != b || !view.Nodes[1].Interaction.MenuOpen {
		t.Errorf("Unexpected second node %+v", view.Nodes[1])
	}
	if view.Nodes[0].Type != "card" {
		t.Errorf("Expected node type card, got %q", view.Nodes[0].Type)
	}
}

func TestPublishesDiffAndView(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))

	want := []string{"graph/diff", "graph/view"}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Errorf("Initial publish mismatch (-want +got):\n%s", diff)
	}
	rec.reset()

	s.SetPendingName("A")
	if diff := cmp.Diff([]string{"graph/view"}, rec.types()); diff != "" {
		t.Errorf("Name change publish mismatch (-want +got):\n%s", diff)
	}
	v, ok := rec.events[0].data.(View)
	if !ok || v.PendingName != "A" {
		t.Errorf("Expected view with pending name A, got %+v", rec.events[0].data)
	}
	rec.reset()

	s.SubmitAddNode()
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Errorf("Add publish mismatch (-want +got):\n%s", diff)
	}

	d, ok := rec.events[0].data.(diff.Diff)
	if !ok {
		t.Fatalf("Expected diff payload, got %T", rec.events[0].data)
	}
	if len(d.AddedNodes) != 1 || d.AddedNodes[0].Label != "A" {
		t.Errorf("Unexpected diff %+v", d)
	}
}

// A subscriber holding the first frame stays in sync by applying diffs alone
func TestPublishedDiffsTrackStore(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))
	base := s.Store().Snapshot()
	rec.reset()

	a := addNode(t, s, "A")
	b := addNode(t, s, "B")
	s.OnConnect(a, b, model.Handles{})
	s.OnConnect(a, b, model.Handles{})
	s.HandleInteraction(interaction.Event{NodeID: b, Verb: interaction.VerbTextChanged, Text: "note"})
	s.OnNodesChanged([]model.NodeChange{{Type: model.NodeChangeSelect, ID: a, Selected: true}})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbContextMenu})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbDeleteRequested})

	got := base
	for _, ev := range rec.events {
		d, ok := ev.data.(diff.Diff)
		if !ok {
			continue
		}
		next, err := diff.Apply(got, d)
		if err != nil {
			t.Fatalf("Apply failed at version %d: %v", d.ToVersion, err)
		}
		got = next
	}

	if diff := cmp.Diff(s.Store().Snapshot(), got); diff != "" {
		t.Errorf("Patched snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestTypingPublishesPatches(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))
	a := addNode(t, s, "A")
	addNode(t, s, "B")
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbContextMenu})
	s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbEditRequested})
	rec.reset()

	for _, text := range []string{"n", "no", "not"} {
		s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbTextChanged, Text: text})
	}
	for _, label := range []string{"X", "XY"} {
		s.HandleInteraction(interaction.Event{NodeID: a, Verb: interaction.VerbLabelChanged, Text: label})
	}

	want := []string{
		"graph/diff", "graph/view",
		"graph/diff", "graph/view",
		"graph/diff", "graph/view",
		"graph/view",
		"graph/view",
	}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Fatalf("Publish mismatch (-want +got):\n%s", diff)
	}

	d := rec.events[4].data.(diff.Diff)
	if len(d.ModifiedNodes) != 1 || d.ModifiedNodes[0].Text != "not" || len(d.AddedNodes) != 0 {
		t.Errorf("Expected a single modified node, got %+v", d)
	}
	v := rec.events[7].data.(View)
	if st := v.Interactions[a]; st.Mode != interaction.Editing || st.DraftLabel != "XY" {
		t.Errorf("Expected draft XY in view, got %+v", st)
	}
}

func TestSetStylePublishesStyle(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))
	rec.reset()

	style := model.DefaultStyle()
	style.Edge.StrokeWidth = 5
	s.SetStyle(style)

	want := []string{"style/style", "graph/view"}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Errorf("Publish mismatch (-want +got):\n%s", diff)
	}
	if got := s.RenderState().Style.Edge.StrokeWidth; got != 5 {
		t.Errorf("Expected stroke width 5, got %v", got)
	}
}

func TestApplyCommands(t *testing.T) {
	s := newTestShell()

	cmds := []Command{
		{Type: CmdNameFieldChange, Name: "A"},
		{Type: CmdSubmitAdd},
		{Type: CmdNameFieldChange, Name: "B"},
		{Type: CmdSubmitAdd},
		{Type: CmdConnect, Source: "n1", Target: "n2", SourceHandle: "r", TargetHandle: "l"},
		{Type: CmdContextMenu, NodeID: "n1"},
		{Type: CmdEditChoice, NodeID: "n1"},
		{Type: CmdLabelCommit, NodeID: "n1", Text: "Alpha"},
		{Type: CmdTextFieldChange, NodeID: "n2", Text: "notes"},
		{Type: CmdNodesChanged, Changes: []model.NodeChange{
			{Type: model.NodeChangePosition, ID: "n2", Position: &model.Position{X: 7, Y: 8}},
		}},
	}
	for _, cmd := range cmds {
		if err := s.Apply(cmd); err != nil {
			t.Fatalf("Apply(%s) failed: %v", cmd.Type, err)
		}
	}

	snap := s.Store().Snapshot()
	want := []model.Node{
		{ID: "n1", Label: "Alpha", Text: DefaultNodeText, Position: snap.Nodes[0].Position},
		{ID: "n2", Label: "B", Text: "notes", Position: model.Position{X: 7, Y: 8}},
	}
	if diff := cmp.Diff(want, snap.Nodes); diff != "" {
		t.Errorf("Nodes mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].SourceHandle != "r" || snap.Edges[0].TargetHandle != "l" {
		t.Errorf("Unexpected edges %+v", snap.Edges)
	}

	if err := s.Apply(Command{Type: CmdEdgeDelete, EdgeID: snap.Edges[0].ID}); err != nil {
		t.Fatalf("Apply(edge_delete) failed: %v", err)
	}
	if got := len(s.Store().Snapshot().Edges); got != 0 {
		t.Errorf("Expected edge to be removed, %d left", got)
	}
}

func TestApplyUnknownCommand(t *testing.T) {
	s := newTestShell()
	if err := s.Apply(Command{Type: "bogus", NodeID: "n1"}); err == nil {
		t.Error("Expected error for unknown command")
	}
}

func TestDispatchRunsInOrder(t *testing.T) {
	s := newTestShell()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var wg sync.WaitGroup
	for _, name := range []string{"A", "B", "C"} {
		if err := s.Dispatch(ctx, Command{Type: CmdNameFieldChange, Name: name}); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if err := s.Dispatch(ctx, Command{Type: CmdSubmitAdd}); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
	}

	// Concurrent readers must see consistent snapshots while the loop runs
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view := s.RenderState()
			if len(view.Nodes) != 3 {
				t.Errorf("Expected 3 nodes, got %d", len(view.Nodes))
			}
		}()
	}
	wg.Wait()

	labels := []string{}
	for _, n := range s.Store().Snapshot().Nodes {
		labels = append(labels, n.Label)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, labels); diff != "" {
		t.Errorf("Label order mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchHonoursContext(t *testing.T) {
	s := newTestShell()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No Run loop: the request can never be accepted
	if err := s.Dispatch(ctx, Command{Type: CmdSubmitAdd}); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestUpdateStyleThroughLoop(t *testing.T) {
	rec := &recorder{}
	s := newTestShell(WithPublisher(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	style := model.DefaultStyle()
	style.Edge.Type = "straight"
	if err := s.UpdateStyle(ctx, style); err != nil {
		t.Fatalf("UpdateStyle failed: %v", err)
	}
	if got := s.RenderState().Style.Edge.Type; got != "straight" {
		t.Errorf("Expected edge type straight, got %q", got)
	}
}
