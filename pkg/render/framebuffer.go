// Package render draws a scene graph through a software rasterizer with
// Gouraud lighting and shadow maps, and presents frames to a terminal or an
// in-memory image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// Framebuffer is the colour target of a frame. On a terminal one column is
// one pixel and one row is two pixels (half blocks), so Height is usually
// twice the row count.
//
// Framebuffer implements image.Image.
type Framebuffer struct {
	Width  int
	Height int
	Pix    []Color // row-major
}

var _ image.Image = (*Framebuffer)(nil)

func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{}
	fb.Resize(width, height)
	return fb
}

// Resize reallocates the pixels when the dimensions change. Contents are
// undefined afterwards until the next Clear.
func (fb *Framebuffer) Resize(width, height int) {
	if width == fb.Width && height == fb.Height && fb.Pix != nil {
		return
	}
	fb.Width, fb.Height = max(width, 0), max(height, 0)
	fb.Pix = make([]Color, fb.Width*fb.Height)
}

func (fb *Framebuffer) Clear(c Color) {
	for i := range fb.Pix {
		fb.Pix[i] = c
	}
}

func (fb *Framebuffer) offset(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return 0, false
	}
	return y*fb.Width + x, true
}

// SetPixel ignores coordinates outside the buffer.
func (fb *Framebuffer) SetPixel(x, y int, c Color) {
	if i, ok := fb.offset(x, y); ok {
		fb.Pix[i] = c
	}
}

// GetPixel returns transparent black outside the buffer.
func (fb *Framebuffer) GetPixel(x, y int) Color {
	if i, ok := fb.offset(x, y); ok {
		return fb.Pix[i]
	}
	return Color{}
}

// DrawLine draws an integer Bresenham line, both ends inclusive.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c Color) {
	dx, sx := x1-x0, 1
	if dx < 0 {
		dx, sx = -dx, -1
	}
	dy, sy := y1-y0, 1
	if dy < 0 {
		dy, sy = -dy, -1
	}
	e := dx - dy
	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

func (fb *Framebuffer) ColorModel() color.Model { return color.RGBAModel }

func (fb *Framebuffer) Bounds() image.Rectangle { return image.Rect(0, 0, fb.Width, fb.Height) }

func (fb *Framebuffer) At(x, y int) color.Color { return fb.GetPixel(x, y) }

// ToImage copies the frame into a new image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(fb.Bounds())
	for i, c := range fb.Pix {
		o := i * 4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// WritePNG encodes the frame as PNG.
func (fb *Framebuffer) WritePNG(w io.Writer) error {
	return png.Encode(w, fb)
}

// SavePNG writes the frame to path as PNG.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fb.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
