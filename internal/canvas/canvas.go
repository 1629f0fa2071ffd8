// Package canvas provides the shared raster the branches grow onto: an RGBA
// pixel buffer with a parallel occupancy grid.
//
// # Thread Safety
//
// Every pixel and every occupancy cell is a single atomic word, so any number
// of goroutines may write concurrently. There is no per-pixel ordering: when
// two writers hit the same pixel the last store wins.
package canvas

import (
	"image"
	"image/color"
	"sync/atomic"
)

// Background is the color of an unpainted pixel.
var Background = color.RGBA{A: 0xff}

type Canvas struct {
	width    int
	height   int
	pix      []atomic.Uint32
	occupied []atomic.Bool
}

// New allocates a cleared canvas. Non-positive dimensions become 1.
func New(width, height int) *Canvas {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	c := &Canvas{
		width:    width,
		height:   height,
		pix:      make([]atomic.Uint32, width*height),
		occupied: make([]atomic.Bool, width*height),
	}
	c.Clear()
	return c
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// Bounds implements part of image.Image for callers that only need the size.
func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.width, c.height) }

// InBounds reports whether (x, y) addresses a pixel.
func (c *Canvas) InBounds(x, y int) bool {
	return x >= 0 && x < c.width && y >= 0 && y < c.height
}

func (c *Canvas) index(x, y int) int { return y*c.width + x }

// Set paints (x, y) and marks it occupied. Out-of-bounds writes are ignored.
func (c *Canvas) Set(x, y int, col color.RGBA) {
	if !c.InBounds(x, y) {
		return
	}
	i := c.index(x, y)
	c.pix[i].Store(pack(col))
	c.occupied[i].Store(true)
}

// At returns the pixel color, or Background outside the canvas.
func (c *Canvas) At(x, y int) color.RGBA {
	if !c.InBounds(x, y) {
		return Background
	}
	return unpack(c.pix[c.index(x, y)].Load())
}

// Occupied reports whether a branch painted (x, y) since the last Clear.
func (c *Canvas) Occupied(x, y int) bool {
	if !c.InBounds(x, y) {
		return false
	}
	return c.occupied[c.index(x, y)].Load()
}

// IsBackground reports whether (x, y) is an unpainted in-bounds pixel.
func (c *Canvas) IsBackground(x, y int) bool {
	return c.InBounds(x, y) && !c.Occupied(x, y)
}

// Clear resets every pixel to Background and every occupancy cell to false.
func (c *Canvas) Clear() {
	bg := pack(Background)
	for i := range c.pix {
		c.pix[i].Store(bg)
		c.occupied[i].Store(false)
	}
}

// OccupiedCount returns the number of painted pixels.
func (c *Canvas) OccupiedCount() int {
	n := 0
	for i := range c.occupied {
		if c.occupied[i].Load() {
			n++
		}
	}
	return n
}

// Coverage is OccupiedCount as a fraction of all pixels.
func (c *Canvas) Coverage() float64 {
	return float64(c.OccupiedCount()) / float64(len(c.occupied))
}

// Snapshot copies the pixels into dst, allocating when dst is nil or has the
// wrong size, and returns it.
func (c *Canvas) Snapshot(dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect.Dx() != c.width || dst.Rect.Dy() != c.height {
		dst = image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	}
	for y := 0; y < c.height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < c.width; x++ {
			v := c.pix[c.index(x, y)].Load()
			o := x * 4
			row[o+0] = uint8(v)
			row[o+1] = uint8(v >> 8)
			row[o+2] = uint8(v >> 16)
			row[o+3] = uint8(v >> 24)
		}
	}
	return dst
}

// FromFloat converts [0,1] channels to an 8-bit color, clamping out-of-range
// values.
func FromFloat(r, g, b, a float64) color.RGBA {
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: to8(a)}
}

func to8(v float64) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func pack(c color.RGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func unpack(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}
}
