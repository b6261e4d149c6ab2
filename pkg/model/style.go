package model

// StyleConfig is opaque styling handed to the renderer together with the graph.
// The core never interprets it.
type StyleConfig struct {
	NodeTypes   []string        `json:"nodeTypes" koanf:"node_types"`
	DefaultNode string          `json:"defaultNodeType" koanf:"default_node"`
	Edge        EdgeStyleConfig `json:"defaultEdgeOptions" koanf:"edge"`
}

// EdgeStyleConfig describes the default edge appearance
type EdgeStyleConfig struct {
	Type        string  `json:"type" koanf:"type" validate:"required"`
	StrokeWidth float64 `json:"strokeWidth" koanf:"stroke_width" validate:"gt=0"`
	Marker      string  `json:"markerEnd" koanf:"marker" validate:"required"`
}

// Marker types understood by the renderer
const (
	MarkerArrow       = "arrow"
	MarkerArrowClosed = "arrowclosed"
)

// DefaultStyle returns the editor's default look: one editable node type,
// smoothstep edges with a 2px stroke and a closed arrow marker.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		NodeTypes:   []string{"editable"},
		DefaultNode: "editable",
		Edge: EdgeStyleConfig{
			Type:        "smoothstep",
			StrokeWidth: 2,
			Marker:      MarkerArrowClosed,
		},
	}
}
