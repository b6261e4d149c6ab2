package model

// NodeChangeType enumerates the patches the renderer reports for nodes
type NodeChangeType string

const (
	NodeChangePosition NodeChangeType = "position"
	NodeChangeSelect   NodeChangeType = "select"
	NodeChangeRemove   NodeChangeType = "remove"
)

// NodeChange is a single renderer-side delta. Only the fields relevant to
// Type are read; the core applies them as-is without reinterpretation.
type NodeChange struct {
	Type     NodeChangeType `json:"type" validate:"required,oneof=position select remove"`
	ID       NodeID         `json:"id" validate:"required"`
	Position *Position      `json:"position,omitempty"`
	Selected bool           `json:"selected,omitempty"`
}
