package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taigrr/diorama/pkg/app"
	"github.com/taigrr/diorama/pkg/assets"
	"github.com/taigrr/diorama/pkg/config"
	"github.com/taigrr/diorama/pkg/loop"
	"github.com/taigrr/diorama/pkg/render"
)

// snapshotTimeout bounds the wait for the model in snapshot mode.
const snapshotTimeout = 30 * time.Second

var errNoFrame = errors.New("snapshot: no frame rendered")

// snapshot renders the scene offscreen and writes one frame as PNG. When a
// model is configured the frame is taken after it has been attached.
func snapshot(ctx context.Context, cfg config.Config, out string, width, height int, log *slog.Logger, opts ...app.Option) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("snapshot: invalid size %dx%d", width, height)
	}
	surface := render.NewImageSurface(width, height)
	opts = append([]app.Option{
		app.WithLogger(log),
		app.WithScheduler(&loop.ManualScheduler{}),
	}, opts...)
	a, err := app.New(cfg, surface, opts...)
	if err != nil {
		return err
	}
	defer a.Stop()

	if cfg.Model.Source != "" {
		done := make(chan error, 1)
		a.OnLoaded = func(*assets.Asset) { done <- nil }
		a.OnLoadError = func(err error) { done <- err }

		ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
		defer cancel()
		a.LoadModel(ctx, cfg.Model.Source)
		if err := waitLoaded(ctx, a, done); err != nil {
			return err
		}
	}

	a.Step()
	if surface.Image() == nil {
		return errNoFrame
	}
	fb := a.Renderer().Framebuffer()
	if err := fb.SavePNG(out); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Info("snapshot written", "path", out, "width", width, "height", height)
	return nil
}

// waitLoaded steps frames until the load result has been applied.
func waitLoaded(ctx context.Context, a *app.App, done <-chan error) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		a.Step()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("snapshot: waiting for model: %w", ctx.Err())
		case <-tick.C:
		}
	}
}
