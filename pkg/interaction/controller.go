// Package interaction tracks per-node UI state (label editing, context menu)
// and turns user gestures into graph mutations.
//
// State is kept in a single map keyed by node ID rather than on per-node
// objects, so deleting and recreating nodes never leaves stale state behind.
// The controller reaches the graph only through the Callbacks it was built
// with.
package interaction

import (
	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/model"
)

// Mode is the label-editing mode of a node
type Mode string

const (
	Viewing Mode = "viewing"
	Editing Mode = "editing"
)

// State is the transient interaction state of one node. Nodes without
// tracked state are Viewing with the menu closed; State fills that in.
type State struct {
	Mode       Mode           `json:"mode"`
	MenuOpen   bool           `json:"menuOpen"`
	MenuAnchor model.Position `json:"menuAnchor"`
	DraftLabel string         `json:"draftLabel,omitempty"`
}

// IsEditingLabel reports whether the label field is being edited
func (s State) IsEditingLabel() bool {
	return s.Mode == Editing
}

func (s State) isInitial() bool {
	return !s.IsEditingLabel() && !s.MenuOpen
}

// Verb names a user gesture on a node
type Verb string

const (
	VerbContextMenu     Verb = "context_menu"
	VerbEditRequested   Verb = "edit_requested"
	VerbDeleteRequested Verb = "delete_requested"
	VerbClickOutside    Verb = "click_outside"
	VerbLabelChanged    Verb = "label_changed"
	VerbLabelCommitted  Verb = "label_committed"
	VerbTextChanged     Verb = "text_changed"
)

// Event is a gesture targeting a node
type Event struct {
	NodeID model.NodeID
	Verb   Verb
	Text   string         // label_changed, label_committed (optional), text_changed
	Anchor model.Position // context_menu
}

// Effect describes what a handled event caused besides the state change
type Effect int

const (
	EffectNone Effect = iota
	EffectFocusLabel
	EffectStoreMutated
)

// Callbacks connect the controller to the graph store
type Callbacks struct {
	OnLabelChange func(id model.NodeID, label string)
	OnTextChange  func(id model.NodeID, text string)
	OnDelete      func(id model.NodeID)
	Lookup        func(id model.NodeID) (model.Node, bool)
}

// Controller holds the interaction state of every displayed node
type Controller struct {
	cb     Callbacks
	states map[model.NodeID]State
}

// NewController creates a controller bound to the given callbacks
func NewController(cb Callbacks) *Controller {
	return &Controller{
		cb:     cb,
		states: make(map[model.NodeID]State),
	}
}

// State returns the interaction state of a node
func (c *Controller) State(id model.NodeID) State {
	st, ok := c.states[id]
	if !ok {
		return State{Mode: Viewing}
	}
	return st
}

// States returns a copy of every state that differs from the initial one
func (c *Controller) States() map[model.NodeID]State {
	out := make(map[model.NodeID]State, len(c.states))
	for id, st := range c.states {
		out[id] = st
	}
	return out
}

// Prune drops state for nodes that are no longer part of the snapshot
func (c *Controller) Prune(snap model.Snapshot) {
	for id := range c.states {
		if !snap.HasNode(id) {
			delete(c.states, id)
		}
	}
}

// Handle applies one gesture. Events for nodes that no longer exist are ignored.
func (c *Controller) Handle(ev Event) Effect {
	node, ok := c.cb.Lookup(ev.NodeID)
	if !ok {
		delete(c.states, ev.NodeID)
		logging.Debug("ignoring event for stale node", "node", ev.NodeID, "verb", ev.Verb)
		return EffectNone
	}

	st := c.State(ev.NodeID)
	effect := EffectNone

	switch ev.Verb {
	case VerbContextMenu:
		st.MenuOpen = true
		st.MenuAnchor = ev.Anchor

	case VerbEditRequested:
		if !st.MenuOpen {
			return EffectNone
		}
		st.MenuOpen = false
		if st.Mode != Editing {
			st.Mode = Editing
			st.DraftLabel = node.Label
		}
		effect = EffectFocusLabel

	case VerbDeleteRequested:
		if !st.MenuOpen {
			return EffectNone
		}
		delete(c.states, ev.NodeID)
		c.cb.OnDelete(ev.NodeID)
		return EffectStoreMutated

	case VerbClickOutside:
		if !st.MenuOpen {
			return EffectNone
		}
		st.MenuOpen = false

	case VerbLabelChanged:
		if !st.IsEditingLabel() {
			return EffectNone
		}
		st.DraftLabel = ev.Text

	case VerbLabelCommitted:
		if !st.IsEditingLabel() {
			return EffectNone
		}
		if ev.Text != "" {
			st.DraftLabel = ev.Text
		}
		st.Mode = Viewing
		c.cb.OnLabelChange(ev.NodeID, st.DraftLabel)
		st.DraftLabel = ""
		effect = EffectStoreMutated

	case VerbTextChanged:
		c.cb.OnTextChange(ev.NodeID, ev.Text)
		return EffectStoreMutated

	default:
		logging.Debug("ignoring unknown verb", "node", ev.NodeID, "verb", ev.Verb)
		return EffectNone
	}

	c.set(ev.NodeID, st)
	return effect
}

func (c *Controller) set(id model.NodeID, st State) {
	if st.isInitial() {
		delete(c.states, id)
		return
	}
	c.states[id] = st
}
