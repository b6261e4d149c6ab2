package editor

import (
	"fmt"

	"github.com/ritzau/graph-editor/pkg/interaction"
	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/model"
)

// CommandType names an event sent by the renderer
type CommandType string

const (
	CmdNodesChanged     CommandType = "nodes_changed"
	CmdConnect          CommandType = "connect"
	CmdEdgeDelete       CommandType = "edge_delete"
	CmdContextMenu      CommandType = "context_menu"
	CmdEditChoice       CommandType = "edit_choice"
	CmdDeleteChoice     CommandType = "delete_choice"
	CmdClickOutside     CommandType = "click_outside"
	CmdLabelFieldChange CommandType = "label_field_change"
	CmdLabelCommit      CommandType = "label_commit"
	CmdTextFieldChange  CommandType = "text_field_change"
	CmdNameFieldChange  CommandType = "name_field_change"
	CmdSubmitAdd        CommandType = "submit_add"
)

// Command is one renderer event. Which fields are read depends on Type.
type Command struct {
	Type CommandType `json:"type" validate:"required,oneof=nodes_changed connect edge_delete context_menu edit_choice delete_choice click_outside label_field_change label_commit text_field_change name_field_change submit_add"`

	// Per-node gestures
	NodeID model.NodeID    `json:"nodeId,omitempty" validate:"required_unless=Type nodes_changed Type connect Type edge_delete Type name_field_change Type submit_add"`
	Text   string          `json:"text,omitempty"`
	Anchor *model.Position `json:"anchor,omitempty"`

	// name_field_change
	Name string `json:"name,omitempty"`

	// connect
	Source       model.NodeID `json:"source,omitempty" validate:"required_if=Type connect"`
	Target       model.NodeID `json:"target,omitempty" validate:"required_if=Type connect"`
	SourceHandle string       `json:"sourceHandle,omitempty"`
	TargetHandle string       `json:"targetHandle,omitempty"`

	// edge_delete
	EdgeID model.EdgeID `json:"edgeId,omitempty" validate:"required_if=Type edge_delete"`

	// nodes_changed
	Changes []model.NodeChange `json:"changes,omitempty" validate:"dive"`
}

var verbs = map[CommandType]interaction.Verb{
	CmdContextMenu:      interaction.VerbContextMenu,
	CmdEditChoice:       interaction.VerbEditRequested,
	CmdDeleteChoice:     interaction.VerbDeleteRequested,
	CmdClickOutside:     interaction.VerbClickOutside,
	CmdLabelFieldChange: interaction.VerbLabelChanged,
	CmdLabelCommit:      interaction.VerbLabelCommitted,
	CmdTextFieldChange:  interaction.VerbTextChanged,
}

// Apply interprets one command against the shell
func (s *Shell) Apply(cmd Command) error {
	logging.Trace("applying command", "type", cmd.Type, "node", cmd.NodeID)

	switch cmd.Type {
	case CmdNodesChanged:
		s.OnNodesChanged(cmd.Changes)
	case CmdConnect:
		s.OnConnect(cmd.Source, cmd.Target, model.Handles{Source: cmd.SourceHandle, Target: cmd.TargetHandle})
	case CmdEdgeDelete:
		s.OnEdgeDelete(cmd.EdgeID)
	case CmdNameFieldChange:
		s.SetPendingName(cmd.Name)
	case CmdSubmitAdd:
		s.SubmitAddNode()
	default:
		verb, ok := verbs[cmd.Type]
		if !ok {
			return fmt.Errorf("unknown command %q", cmd.Type)
		}
		ev := interaction.Event{NodeID: cmd.NodeID, Verb: verb, Text: cmd.Text}
		if cmd.Anchor != nil {
			ev.Anchor = *cmd.Anchor
		}
		s.HandleInteraction(ev)
	}
	return nil
}
