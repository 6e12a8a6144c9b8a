package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	uv "github.com/charmbracelet/ultraviolet"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/diorama/pkg/app"
	"github.com/taigrr/diorama/pkg/config"
	"github.com/taigrr/diorama/pkg/math3d"
	"github.com/taigrr/diorama/pkg/render"
)

// errQuit ends the event pump when the user asks to leave.
var errQuit = errors.New("quit")

const (
	keyOrbitStep = 0.02
	keyZoomStep  = 2
)

func runInteractive(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// any-event mouse tracking, SGR extended mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	surface := render.NewTerminalSurface(term, width, height)
	a, err := app.New(cfg, surface, app.WithLogger(log))
	if err != nil {
		return err
	}
	overlay := newHUD(a, cfg.Model.Source)
	surface.SetOverlay(overlay)
	a.OnLoaded = overlay.loaded
	a.OnLoadError = overlay.failed

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(ctx)
	})
	g.Go(func() error {
		p := &pump{app: a, term: term, surface: surface, hud: overlay, width: width, height: height}
		return p.run(ctx)
	})

	log.Info("diorama started", "cols", width, "rows", height, "model", cfg.Model.Source)
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	log.Info("diorama stopped", "frames", a.Loop().Frames())
	return nil
}

// pump turns terminal events into app input. All scene changes go through
// the app, which queues them for the next frame.
type pump struct {
	app     *app.App
	term    *uv.Terminal
	surface *render.TerminalSurface
	hud     *hud

	width, height int
	mouseDown     bool
	dragged       bool
	lastX, lastY  int
}

func (p *pump) run(ctx context.Context) error {
	events := p.term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errQuit
			}
			if err := p.handle(ev); err != nil {
				return err
			}
		}
	}
}

func (p *pump) handle(ev uv.Event) error {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		p.width, p.height = ev.Width, ev.Height
		p.term.Erase()
		p.term.Resize(p.width, p.height)
		p.surface.Resize(p.width, p.height)
		p.app.Resize(p.surface.Size())

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c", "q"):
			return errQuit
		case ev.MatchString("r"):
			p.app.ResetView()
		case ev.MatchString("w", "up"):
			p.app.Drag(0, -keyOrbitStep)
		case ev.MatchString("s", "down"):
			p.app.Drag(0, keyOrbitStep)
		case ev.MatchString("a", "left"):
			p.app.Drag(-keyOrbitStep, 0)
		case ev.MatchString("d", "right"):
			p.app.Drag(keyOrbitStep, 0)
		case ev.MatchString("space"):
			p.app.Drag((rand.Float64()-0.5)*0.2, (rand.Float64()-0.5)*0.1)
		case ev.MatchString("+", "="):
			p.app.Scroll(-keyZoomStep)
		case ev.MatchString("-", "_"):
			p.app.Scroll(keyZoomStep)
		case ev.MatchString("?", "shift+/"):
			p.hud.toggle()
		}

	case uv.MouseClickEvent:
		p.pointer(ev.X, ev.Y)
		if ev.Button == uv.MouseLeft {
			p.mouseDown, p.dragged = true, false
			p.lastX, p.lastY = ev.X, ev.Y
		}

	case uv.MouseReleaseEvent:
		if p.mouseDown && !p.dragged {
			p.app.Click()
		}
		p.mouseDown = false

	case uv.MouseMotionEvent:
		p.pointer(ev.X, ev.Y)
		if p.mouseDown && p.width > 0 && p.height > 0 {
			dx, dy := ev.X-p.lastX, ev.Y-p.lastY
			if dx != 0 || dy != 0 {
				p.dragged = true
				p.app.Drag(float64(dx)/float64(p.width), float64(dy)/float64(p.height))
			}
			p.lastX, p.lastY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			p.app.Scroll(-1)
		case uv.MouseWheelDown:
			p.app.Scroll(1)
		}
	}
	return nil
}

// pointer reports the cell centre in NDC. A cell covers one pixel column and
// two pixel rows.
func (p *pump) pointer(col, row int) {
	w, h := p.surface.Size()
	ndc := math3d.ScreenToNDC(float64(col)+0.5, float64(row*2)+1, float64(w), float64(h))
	p.app.PointerMove(ndc)
}
