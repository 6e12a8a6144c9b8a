// Package config holds the viewer settings. Files are TOML by default;
// a .yaml or .yml extension selects YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/diorama/pkg/scene"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// DefaultFile is the file name looked up when no path is given.
const DefaultFile = "diorama.toml"

// Config is the full viewer configuration.
type Config struct {
	Camera     Camera `toml:"camera" yaml:"camera"`
	Shadow     Shadow `toml:"shadow" yaml:"shadow"`
	Loop       Loop   `toml:"loop" yaml:"loop"`
	Model      Model  `toml:"model" yaml:"model"`
	Colors     Colors `toml:"colors" yaml:"colors"`
	Log        Log    `toml:"log" yaml:"log"`
	Background string `toml:"background" yaml:"background"`
}

// Camera is the perspective camera and its orbit rig.
type Camera struct {
	// FOV is the vertical field of view in degrees.
	FOV      float64    `toml:"fov" yaml:"fov"`
	Near     float64    `toml:"near" yaml:"near"`
	Far      float64    `toml:"far" yaml:"far"`
	Position [3]float64 `toml:"position" yaml:"position"`
	Target   [3]float64 `toml:"target" yaml:"target"`
	Damping  bool       `toml:"damping" yaml:"damping"`
}

// Shadow configures the directional light's shadow map.
type Shadow struct {
	Enabled bool    `toml:"enabled" yaml:"enabled"`
	MapSize int     `toml:"map_size" yaml:"map_size"`
	Radius  float64 `toml:"radius" yaml:"radius"`
	Near    float64 `toml:"near" yaml:"near"`
	Far     float64 `toml:"far" yaml:"far"`
	Helper  bool    `toml:"helper" yaml:"helper"`
}

// Loop is frame pacing.
type Loop struct {
	FPS int `toml:"fps" yaml:"fps"`
	// MaxDelta caps the per-frame delta in seconds.
	MaxDelta float64 `toml:"max_delta" yaml:"max_delta"`
	Hover    bool    `toml:"hover" yaml:"hover"`
}

// Model is the optional animated model loaded next to the demo box.
type Model struct {
	Source   string     `toml:"source" yaml:"source"`
	Clip     string     `toml:"clip" yaml:"clip"`
	Scale    float64    `toml:"scale" yaml:"scale"`
	Position [3]float64 `toml:"position" yaml:"position"`
	Watch    bool       `toml:"watch" yaml:"watch"`
}

// Colors is the click table as #rrggbb strings. Box is the primary node's
// colour before its first click.
type Colors struct {
	Box         string `toml:"box" yaml:"box"`
	PrimaryEven string `toml:"primary_even" yaml:"primary_even"`
	PrimaryOdd  string `toml:"primary_odd" yaml:"primary_odd"`
	OtherEven   string `toml:"other_even" yaml:"other_even"`
	OtherOdd    string `toml:"other_odd" yaml:"other_odd"`
}

// Log selects the log destination and level.
type Log struct {
	File  string `toml:"file" yaml:"file"`
	Level string `toml:"level" yaml:"level"`
}

// Default returns the demo scene settings.
func Default() Config {
	return Config{
		Camera: Camera{
			FOV:      75,
			Near:     0.1,
			Far:      1000,
			Position: [3]float64{0, 0, 3},
		},
		Shadow: Shadow{
			Enabled: true,
			MapSize: 512,
			Radius:  2,
			Near:    0.5,
			Far:     30,
		},
		Loop: Loop{
			FPS:      30,
			MaxDelta: 0.1,
			Hover:    true,
		},
		Model: Model{
			Clip:     "nyi_loop",
			Scale:    5,
			Position: [3]float64{0, 0, 0.5},
		},
		Colors: Colors{
			Box:         "#c8c8c8",
			PrimaryEven: "#00ff00",
			PrimaryOdd:  "#ff0000",
			OtherEven:   "#0000ff",
			OtherOdd:    "#ff6000",
		},
		Log: Log{
			Level: "info",
		},
		Background: "#1e1e28",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, Format(path), &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Format returns "yaml" for .yaml and .yml paths and "toml" otherwise.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// Decode unmarshals data in the given format into cfg. Unknown keys are
// rejected.
func Decode(data []byte, format string, cfg *Config) error {
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unknown config format %q", format)
	}
}

// Encode writes cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// FOVRadians returns the camera field of view in radians.
func (c Camera) FOVRadians() float64 {
	return c.FOV * math.Pi / 180
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	// The aspect ratio comes from the surface; 1 stands in for it here.
	if err := scene.ValidatePerspective(c.Camera.FOVRadians(), 1, c.Camera.Near, c.Camera.Far); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if c.Shadow.Enabled {
		if c.Shadow.MapSize <= 0 {
			add("shadow.map_size %d must be positive", c.Shadow.MapSize)
		}
		if c.Shadow.Radius < 0 {
			add("shadow.radius %g is negative", c.Shadow.Radius)
		}
		if !(c.Shadow.Near >= 0 && c.Shadow.Far > c.Shadow.Near) {
			add("shadow.far %g must exceed shadow.near %g", c.Shadow.Far, c.Shadow.Near)
		}
	}
	if c.Loop.FPS <= 0 {
		add("loop.fps %d must be positive", c.Loop.FPS)
	}
	if c.Loop.MaxDelta <= 0 {
		add("loop.max_delta %g must be positive", c.Loop.MaxDelta)
	}
	if c.Model.Source != "" && !(c.Model.Scale > 0) {
		add("model.scale %g must be positive", c.Model.Scale)
	}
	for _, col := range []struct{ key, hex string }{
		{"colors.box", c.Colors.Box},
		{"colors.primary_even", c.Colors.PrimaryEven},
		{"colors.primary_odd", c.Colors.PrimaryOdd},
		{"colors.other_even", c.Colors.OtherEven},
		{"colors.other_odd", c.Colors.OtherOdd},
		{"background", c.Background},
	} {
		if _, err := ParseColor(col.hex); err != nil {
			add("%s: %v", col.key, err)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	return errors.Join(errs...)
}

// ParseColor parses a #rrggbb string into a 0xrrggbb value.
func ParseColor(hex string) (uint32, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, err
	}
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}
