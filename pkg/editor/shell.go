// Package editor is the top-level orchestration of the graph editor. A Shell
// owns the graph store, the per-node interaction controller and the pending
// name of the next node, interprets renderer events against them and hands
// every resulting state to the renderer.
//
// Mutating methods must be called from a single goroutine: either directly
// before Run is started (tests, setup) or through Dispatch, which runs them on
// the Run loop. RenderState is safe to call from anywhere.
package editor

import (
	"errors"
	"maps"
	"math/rand/v2"
	"sync/atomic"

	"github.com/ritzau/graph-editor/pkg/diff"
	"github.com/ritzau/graph-editor/pkg/interaction"
	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/model"
	"github.com/ritzau/graph-editor/pkg/pubsub"
	"github.com/ritzau/graph-editor/pkg/store"
)

// DefaultNodeText is the annotation placeholder of new nodes
const DefaultNodeText = "Click to add text"

// Region bounds the area new nodes are placed in
type Region struct {
	Width  float64
	Height float64
}

// DefaultSpawnRegion is the area random node positions are drawn from
var DefaultSpawnRegion = Region{Width: 400, Height: 400}

// Publisher delivers events to the renderer
type Publisher interface {
	Publish(topic string, eventType string, data any) error
}

// Shell is the editor shell
type Shell struct {
	store       *store.Store
	ctrl        *interaction.Controller
	pendingName string
	defaultText string
	spawn       Region
	rng         *rand.Rand
	style       model.StyleConfig
	publisher   Publisher

	focus     model.NodeID
	published *model.Snapshot
	view      atomic.Pointer[RenderState]
	requests  chan request
}

// Option configures a Shell
type Option func(*Shell)

// WithDefaultText sets the annotation new nodes start with
func WithDefaultText(text string) Option {
	return func(s *Shell) { s.defaultText = text }
}

// WithSpawnRegion sets the area new nodes are placed in
func WithSpawnRegion(r Region) Option {
	return func(s *Shell) { s.spawn = r }
}

// WithRand sets the random source used for node placement
func WithRand(rng *rand.Rand) Option {
	return func(s *Shell) { s.rng = rng }
}

// WithStyle sets the initial renderer style configuration
func WithStyle(style model.StyleConfig) Option {
	return func(s *Shell) { s.style = style }
}

// WithPublisher makes the shell push every state change to p
func WithPublisher(p Publisher) Option {
	return func(s *Shell) { s.publisher = p }
}

// New creates a shell around the given store
func New(st *store.Store, opts ...Option) *Shell {
	s := &Shell{
		store:       st,
		defaultText: DefaultNodeText,
		spawn:       DefaultSpawnRegion,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		style:       model.DefaultStyle(),
		requests:    make(chan request),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctrl = interaction.NewController(s.Callbacks())
	s.commit()
	return s
}

// Callbacks returns the store callbacks handed to the interaction controller.
// They close over the shell's store; nothing else reaches it.
func (s *Shell) Callbacks() interaction.Callbacks {
	return interaction.Callbacks{
		OnLabelChange: s.store.UpdateNodeLabel,
		OnTextChange:  s.store.UpdateNodeText,
		OnDelete:      s.store.DeleteNode,
		Lookup:        s.store.Node,
	}
}

// Store returns the shell's graph store
func (s *Shell) Store() *store.Store {
	return s.store
}

// PendingName returns the name the next node will get
func (s *Shell) PendingName() string {
	return s.pendingName
}

// InteractionState returns the interaction state of one node
func (s *Shell) InteractionState(id model.NodeID) interaction.State {
	return s.ctrl.State(id)
}

// SetPendingName updates the name field. No validation happens here.
func (s *Shell) SetPendingName(name string) {
	s.pendingName = name
	s.commit()
}

// SubmitAddNode adds a node named after the pending name at a random position
// and clears the name. With an empty pending name it does nothing at all.
func (s *Shell) SubmitAddNode() {
	if s.pendingName == "" {
		logging.Trace("ignoring add with empty name")
		return
	}

	id, err := s.store.AddNode(s.pendingName, s.defaultText, s.randomPosition())
	if err != nil {
		logging.Debug("add node rejected", "error", err)
		return
	}
	logging.Info("node added", "id", id, "label", s.pendingName)

	s.pendingName = ""
	s.commit()
}

func (s *Shell) randomPosition() model.Position {
	return model.Position{
		X: s.rng.Float64() * s.spawn.Width,
		Y: s.rng.Float64() * s.spawn.Height,
	}
}

// OnConnect forwards a connect gesture to the store. Unknown endpoints are
// dropped silently.
func (s *Shell) OnConnect(source, target model.NodeID, h model.Handles) {
	id, err := s.store.Connect(source, target, h)
	if err != nil {
		if !errors.Is(err, store.ErrReference) {
			logging.Warn("connect failed", "error", err)
		} else {
			logging.Debug("connect ignored", "error", err)
		}
		return
	}
	logging.Info("nodes connected", "edge", id)
	s.commit()
}

// OnEdgeDelete removes an edge the renderer asked to delete
func (s *Shell) OnEdgeDelete(id model.EdgeID) {
	s.store.DeleteEdge(id)
	s.commit()
}

// OnNodesChanged applies renderer-side node patches (drag, selection, removal)
func (s *Shell) OnNodesChanged(changes []model.NodeChange) {
	s.store.ApplyNodeChanges(changes)
	s.commit()
}

// HandleInteraction routes a per-node gesture to the interaction controller
func (s *Shell) HandleInteraction(ev interaction.Event) {
	effect := s.ctrl.Handle(ev)
	if effect == interaction.EffectFocusLabel {
		s.focus = ev.NodeID
	}
	if ev.Verb == interaction.VerbDeleteRequested && effect == interaction.EffectStoreMutated {
		logging.Info("node deleted", "id", ev.NodeID)
	}
	s.commit()
}

// SetStyle replaces the renderer style configuration
func (s *Shell) SetStyle(style model.StyleConfig) {
	s.style = style
	if s.publisher != nil {
		if err := s.publisher.Publish(pubsub.TopicStyle, pubsub.EventStyle, style); err != nil {
			logging.Warn("failed to publish style", "error", err)
		}
	}
	s.commit()
}

// commit refreshes the render view and publishes what changed since the last
// commit: a diff when the graph moved, then the view. Full frames are never
// pushed here; subscribers start from RenderState and patch it.
func (s *Shell) commit() {
	snap := s.store.Snapshot()
	s.ctrl.Prune(snap)

	next := buildRenderState(snap, s.ctrl.States(), s.pendingName, s.style, s.focus)
	s.focus = ""
	prev := s.view.Swap(&next)

	if s.publisher == nil {
		s.published = &snap
		return
	}

	graphChanged := s.published == nil || s.published.Version != snap.Version
	if graphChanged {
		d := diff.Compute(s.published, snap)
		if err := s.publisher.Publish(pubsub.TopicGraph, pubsub.EventDiff, d); err != nil {
			logging.Warn("failed to publish diff", "error", err)
		}
		s.published = &snap
	}

	if graphChanged || prev == nil || !sameView(*prev, next) {
		if err := s.publisher.Publish(pubsub.TopicGraph, pubsub.EventView, next.View()); err != nil {
			logging.Warn("failed to publish view", "error", err)
		}
	}
}

func sameView(a, b RenderState) bool {
	return a.Version == b.Version &&
		a.PendingName == b.PendingName &&
		a.Focus == b.Focus &&
		maps.Equal(a.Interactions, b.Interactions) &&
		styleEqual(a.Style, b.Style)
}

func styleEqual(a, b model.StyleConfig) bool {
	if a.DefaultNode != b.DefaultNode || a.Edge != b.Edge || len(a.NodeTypes) != len(b.NodeTypes) {
		return false
	}
	for i := range a.NodeTypes {
		if a.NodeTypes[i] != b.NodeTypes[i] {
			return false
		}
	}
	return true
}
