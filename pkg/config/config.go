package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/graph-editor/pkg/editor"
	"github.com/ritzau/graph-editor/pkg/model"
)

// DefaultFile is the config file read when --config is not given
const DefaultFile = "graph-editor.toml"

// EnvPrefix prefixes environment overrides, e.g. GRAPH_EDITOR_PORT=9090
const EnvPrefix = "GRAPH_EDITOR_"

// Config holds all configuration for the application
type Config struct {
	Port       int               `koanf:"port" validate:"min=1,max=65535"`
	Open       bool              `koanf:"open"`
	Watch      bool              `koanf:"watch"`
	Verbosity  string            `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn error"`
	VerboseCnt int               `koanf:"verbose" validate:"min=0"`
	ConfigFile string            `koanf:"config"`
	IDs        string            `koanf:"ids" validate:"oneof=counter uuid"`
	Log        LogConfig         `koanf:"log"`
	Node       NodeConfig        `koanf:"node"`
	Spawn      SpawnConfig       `koanf:"spawn"`
	Style      model.StyleConfig `koanf:"style"`
}

// LogConfig selects the log output format
type LogConfig struct {
	JSON bool `koanf:"json"`
}

// NodeConfig holds defaults for new nodes
type NodeConfig struct {
	Text string `koanf:"text"`
}

// SpawnConfig is the area new nodes are randomly placed in
type SpawnConfig struct {
	Width  float64 `koanf:"width" validate:"gt=0"`
	Height float64 `koanf:"height" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func defaults() map[string]interface{} {
	style := model.DefaultStyle()
	return map[string]interface{}{
		"port":      8080,
		"open":      true,
		"watch":     true,
		"verbosity": "",
		"verbose":   0,
		"config":    DefaultFile,
		"ids":       "counter",
		"log": map[string]interface{}{
			"json": false,
		},
		"node": map[string]interface{}{
			"text": editor.DefaultNodeText,
		},
		"spawn": map[string]interface{}{
			"width":  400.0,
			"height": 400.0,
		},
		"style": map[string]interface{}{
			"node_types":   style.NodeTypes,
			"default_node": style.DefaultNode,
			"edge": map[string]interface{}{
				"type":         style.Edge.Type,
				"stroke_width": style.Edge.StrokeWidth,
				"marker":       style.Edge.Marker,
			},
		},
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The config file location may itself come from a flag or the environment
	path := DefaultFile
	if p := envPath(); p != "" {
		path = p
	}
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Changed {
			path = fl.Value.String()
		}
	}

	// 2. Config File (optional)
	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = path

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadStyle re-reads only the style section of a config file on top of the
// default style. Used when the file changes while the editor is running.
func LoadStyle(path string) (model.StyleConfig, error) {
	k := koanf.New(".")
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return model.StyleConfig{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := loadFile(k, path); err != nil {
		return model.StyleConfig{}, err
	}

	var style model.StyleConfig
	if err := k.Unmarshal("style", &style); err != nil {
		return model.StyleConfig{}, fmt.Errorf("failed to unmarshal style: %w", err)
	}
	if err := validate.Struct(&style); err != nil {
		return model.StyleConfig{}, fmt.Errorf("invalid style: %w", err)
	}
	return style, nil
}

// loadFile merges a TOML file into k. A missing file is not an error.
func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	err := k.Load(file.Provider(path), toml.Parser())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// flagKey maps dashed flag names onto config keys: --log-json sets log.json
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(fl *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(fl.Name, "-", "."), posflag.FlagVal(fs, fl)
	}
}

// envKey maps GRAPH_EDITOR_STYLE_EDGE_STROKE_WIDTH to style.edge.stroke_width.
// Only the first underscores after known sections become dots.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"log_", "node_", "spawn_", "style_edge_", "style_"} {
		if strings.HasPrefix(key, section) {
			head := strings.ReplaceAll(section, "_", ".")
			return head + key[len(section):]
		}
	}
	return key
}

func envPath() string {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return ""
	}
	return k.String("config")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
