package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/diorama/pkg/scene"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 512, cfg.Shadow.MapSize)
	assert.Equal(t, "nyi_loop", cfg.Model.Clip)
	assert.InDelta(t, 1.309, cfg.Camera.FOVRadians(), 1e-3)
}

func TestLoadTOMLOverlaysDefaults(t *testing.T) {
	p := writeFile(t, "diorama.toml", `
background = "#000000"

[camera]
fov = 60

[model]
source = "models/nyi.glb"
watch = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.Camera.FOV)
	assert.Equal(t, 0.1, cfg.Camera.Near, "unset keys keep defaults")
	assert.Equal(t, "models/nyi.glb", cfg.Model.Source)
	assert.True(t, cfg.Model.Watch)
	assert.Equal(t, 5.0, cfg.Model.Scale)
	assert.Equal(t, "#000000", cfg.Background)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "diorama.yaml", `
loop:
  fps: 60
log:
  level: debug
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Loop.FPS)
	assert.Equal(t, 0.1, cfg.Loop.MaxDelta)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeFile(t, "bad.toml", "[camera]\nzoom = 3\n")
	_, err := Load(p)
	require.Error(t, err)

	p = writeFile(t, "bad.yml", "camera:\n  zoom: 3\n")
	_, err = Load(p)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Model.Source = "https://example.com/a.glb"
	data, err := cfg.Encode()
	require.NoError(t, err)

	var back Config
	require.NoError(t, Decode(data, "toml", &back))
	assert.Equal(t, cfg, back)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		camera bool
	}{
		{"far below near", func(c *Config) { c.Camera.Far = 0.05 }, true},
		{"zero fov", func(c *Config) { c.Camera.FOV = 0 }, true},
		{"shadow map", func(c *Config) { c.Shadow.MapSize = 0 }, false},
		{"shadow range", func(c *Config) { c.Shadow.Far = c.Shadow.Near }, false},
		{"fps", func(c *Config) { c.Loop.FPS = 0 }, false},
		{"max delta", func(c *Config) { c.Loop.MaxDelta = -1 }, false},
		{"model scale", func(c *Config) { c.Model.Source = "a.glb"; c.Model.Scale = 0 }, false},
		{"color", func(c *Config) { c.Colors.OtherOdd = "orange" }, false},
		{"box color", func(c *Config) { c.Colors.Box = "#12" }, false},
		{"background", func(c *Config) { c.Background = "#12" }, false},
		{"level", func(c *Config) { c.Log.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.camera {
				assert.ErrorIs(t, err, scene.ErrDegenerateCamera)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestDisabledShadowSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Shadow.Enabled = false
	cfg.Shadow.MapSize = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseColor(t *testing.T) {
	v, err := ParseColor("#ff6000")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xff6000), v)

	_, err = ParseColor("ff6000")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "yaml", Format("a.YML"))
	assert.Equal(t, "yaml", Format("a.yaml"))
	assert.Equal(t, "toml", Format("a.toml"))
	assert.Equal(t, "toml", Format("a"))
}
