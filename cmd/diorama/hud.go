package main

import (
	"fmt"
	"image/color"
	"path"
	"sync/atomic"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/diorama/pkg/app"
	"github.com/taigrr/diorama/pkg/assets"
	"github.com/taigrr/diorama/pkg/render"
)

var (
	hudBg     = render.RGB(0, 0, 0)
	hudWhite  = render.RGB(235, 235, 235)
	hudGreen  = render.RGB(80, 220, 120)
	hudCyan   = render.RGB(90, 200, 230)
	hudYellow = render.RGB(230, 200, 80)
	hudRed    = render.RGB(230, 90, 80)
)

const hudHint = " drag: orbit  scroll: zoom  click: recolor  r: reset  ?: hud "

// hud draws status lines over the scene: FPS, model name and triangle
// count on top, the hovered node and its clicks at the bottom. Draw runs on
// the frame loop, so it may read app state directly; only the visibility
// flag is touched from the event pump.
type hud struct {
	app     *app.App
	visible atomic.Bool

	title   string
	status  string
	errored bool

	fps       float64
	fpsFrames int
	fpsTime   time.Time
	now       func() time.Time
}

func newHUD(a *app.App, source string) *hud {
	h := &hud{app: a, title: "diorama", now: time.Now}
	if source != "" {
		h.title = path.Base(source)
		h.status = "loading " + h.title
	}
	h.fpsTime = h.now()
	h.visible.Store(true)
	return h
}

func (h *hud) toggle() {
	h.visible.Store(!h.visible.Load())
}

func (h *hud) loaded(a *assets.Asset) {
	h.status = fmt.Sprintf("%d meshes, %d clips", a.Meshes, len(a.Clips))
	h.errored = false
}

func (h *hud) failed(err error) {
	h.status = err.Error()
	h.errored = true
}

// tick updates the FPS counter; call once per frame.
func (h *hud) tick() {
	h.fpsFrames++
	now := h.now()
	if elapsed := now.Sub(h.fpsTime); elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = now
	}
}

// Draw implements render.Overlay.
func (h *hud) Draw(scr uv.Screen, area uv.Rectangle) {
	h.tick()
	if !h.visible.Load() || area.Dy() < 2 {
		return
	}
	top, bottom := area.Min.Y, area.Max.Y-1
	width := area.Dx()

	fps := fmt.Sprintf(" %.0f FPS ", h.fps)
	putText(scr, area, area.Min.X, top, fps, hudGreen)

	title := " " + h.title + " "
	putText(scr, area, area.Min.X+max((width-len(title))/2, 0), top, title, hudWhite)

	tris := fmt.Sprintf(" %d tris ", h.app.Renderer().Stats().Triangles)
	putText(scr, area, area.Max.X-len(tris), top, tris, hudCyan)

	left := ""
	if n := h.app.Hover().Current(); n != nil {
		left = fmt.Sprintf(" %s (%d clicks) ", n.Name, h.app.Policy().Count(n))
	}
	if h.status != "" {
		left += " " + h.status + " "
	}
	col := hudYellow
	if h.errored {
		col = hudRed
	}
	putText(scr, area, area.Min.X, bottom, left, col)
	if len(left)+len(hudHint) <= width {
		putText(scr, area, area.Max.X-len(hudHint), bottom, hudHint, hudWhite)
	}
}

// putText writes s one cell per rune, clipped to area.
func putText(scr uv.Screen, area uv.Rectangle, x, y int, s string, fg color.Color) {
	for _, r := range s {
		if x >= area.Max.X {
			return
		}
		if x >= area.Min.X {
			scr.SetCell(x, y, &uv.Cell{
				Content: string(r),
				Width:   1,
				Style:   uv.Style{Fg: fg, Bg: hudBg},
			})
		}
		x++
	}
}
