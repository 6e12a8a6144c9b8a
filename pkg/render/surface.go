package render

import (
	"image"
	"image/color"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
)

// Surface is where finished frames go. Size is in framebuffer pixels.
type Surface interface {
	Size() (width, height int)
	Present(fb *Framebuffer) error
}

// Display is the part of an ultraviolet terminal a TerminalSurface needs.
// *uv.Terminal implements it.
type Display interface {
	uv.Screen
	Display() error
}

// Overlay draws on top of a frame before it is flushed.
type Overlay interface {
	Draw(scr uv.Screen, area uv.Rectangle)
}

// TerminalSurface presents frames as half-block cells, two framebuffer rows
// per terminal row.
type TerminalSurface struct {
	mu      sync.Mutex
	display Display
	cols    int
	rows    int
	overlay Overlay
}

// NewTerminalSurface creates a surface of cols x rows terminal cells.
func NewTerminalSurface(d Display, cols, rows int) *TerminalSurface {
	return &TerminalSurface{display: d, cols: cols, rows: rows}
}

// Resize updates the cell dimensions. Safe to call from the input goroutine.
func (s *TerminalSurface) Resize(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
}

// Size returns the framebuffer size: one pixel per column, two per row.
func (s *TerminalSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows * 2
}

// SetOverlay installs o, drawn after every frame. Nil removes it.
func (s *TerminalSurface) SetOverlay(o Overlay) {
	s.mu.Lock()
	s.overlay = o
	s.mu.Unlock()
}

// Present draws fb and the overlay, then flushes the terminal.
func (s *TerminalSurface) Present(fb *Framebuffer) error {
	s.mu.Lock()
	area := uv.Rect(0, 0, s.cols, s.rows)
	overlay := s.overlay
	s.mu.Unlock()
	fb.Draw(s.display, area)
	if overlay != nil {
		overlay.Draw(s.display, area)
	}
	return s.display.Display()
}

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. The framebuffer height should be 2x the terminal height.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	// ▀ with fg=top pixel and bg=bottom pixel
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.GetPixel(col, topY)),
					Bg: rgbaToColor(fb.GetPixel(col, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// rgbaToColor maps transparent pixels to the terminal default color.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}

// ImageSurface keeps a copy of the last presented frame.
type ImageSurface struct {
	mu     sync.Mutex
	width  int
	height int
	last   *image.RGBA
	frames int
}

// NewImageSurface creates an offscreen surface of the given pixel size.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{width: width, height: height}
}

func (s *ImageSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Resize changes the size requested for subsequent frames.
func (s *ImageSurface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

func (s *ImageSurface) Present(fb *Framebuffer) error {
	img := fb.ToImage()
	s.mu.Lock()
	s.last = img
	s.frames++
	s.mu.Unlock()
	return nil
}

// Image returns the last presented frame, or nil before the first one.
func (s *ImageSurface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Frames returns how many frames have been presented.
func (s *ImageSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
