// diorama - interactive 3D scene in the terminal
//
// A spinning box over a shadowed ground plane, an optional animated glTF
// model, an orbit camera and click-to-recolor picking.
//
// Controls:
//
//	Mouse drag  - Orbit the camera
//	Scroll      - Zoom in/out
//	Click       - Recolor the object under the pointer
//	W/S/A/D     - Orbit with the keyboard
//	Space       - Random orbit impulse (with --damping)
//	+/-         - Zoom
//	R           - Reset view
//	?           - Toggle HUD overlay
//	Esc, Q      - Quit
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/diorama/pkg/config"
)

var version = "dev"

type flags struct {
	config       string
	clip         string
	fps          int
	bg           string
	logFile      string
	logLevel     string
	snapshot     string
	width        int
	height       int
	watch        bool
	noShadows    bool
	shadowHelper bool
	damping      bool
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "diorama [model.gltf|model.glb|url]",
		Short: "Interactive 3D scene in the terminal",
		Long: "diorama renders a lit, shadowed 3D scene with an orbit camera and " +
			"click picking. An optional glTF model is loaded in the background " +
			"and its animation clip is played on repeat.",
		Example: "  diorama\n" +
			"  diorama models/raccoon.glb --clip nyi_loop\n" +
			"  diorama --config diorama.toml --snapshot frame.png",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f, args)
			if err != nil {
				return err
			}
			if f.snapshot != "" {
				log, closeLog, err := openLog(cfg.Log, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer closeLog()
				return snapshot(cmd.Context(), cfg, f.snapshot, f.width, f.height, log)
			}
			log, closeLog, err := openLog(cfg.Log, io.Discard)
			if err != nil {
				return err
			}
			defer closeLog()
			return runInteractive(cmd.Context(), cfg, log)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "config file (.toml, .yaml)")
	fl.StringVar(&f.clip, "clip", "", "animation clip to play on the model")
	fl.IntVar(&f.fps, "fps", 0, "target frames per second")
	fl.StringVar(&f.bg, "bg", "", "background color (#rrggbb)")
	fl.StringVar(&f.logFile, "log", "", "write logs to this file")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fl.StringVar(&f.snapshot, "snapshot", "", "render one frame to a PNG file and exit")
	fl.IntVar(&f.width, "width", 160, "snapshot width in pixels")
	fl.IntVar(&f.height, "height", 90, "snapshot height in pixels")
	fl.BoolVar(&f.watch, "watch", false, "reload the model when the file changes")
	fl.BoolVar(&f.noShadows, "no-shadows", false, "disable shadow mapping")
	fl.BoolVar(&f.shadowHelper, "shadow-helper", false, "draw the shadow camera volume")
	fl.BoolVar(&f.damping, "damping", false, "keep the camera gliding after input stops")
	return cmd
}

// resolveConfig loads the config file, if any, and applies flags the user
// set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, f flags, args []string) (config.Config, error) {
	cfg := config.Default()
	path := f.config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if len(args) > 0 {
		cfg.Model.Source = args[0]
	}
	changed := cmd.Flags().Changed
	if changed("clip") {
		cfg.Model.Clip = f.clip
	}
	if changed("fps") {
		cfg.Loop.FPS = f.fps
	}
	if changed("bg") {
		cfg.Background = f.bg
	}
	if changed("log") {
		cfg.Log.File = f.logFile
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("watch") {
		cfg.Model.Watch = f.watch
	}
	if changed("no-shadows") {
		cfg.Shadow.Enabled = !f.noShadows
	}
	if changed("shadow-helper") {
		cfg.Shadow.Helper = f.shadowHelper
	}
	if changed("damping") {
		cfg.Camera.Damping = f.damping
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openLog returns a logger writing to the configured file, or to fallback
// when no file is set.
func openLog(lc config.Log, fallback io.Writer) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closer := fallback, func() {}
	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		w, closer = f, func() { f.Close() }
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return log, closer, nil
}
