package viz

import (
	"image"
	"math"
)

const (
	MinZoom = 0.1
	MaxZoom = 2.0

	panStep  = 0.1
	zoomStep = 1.2
)

// Camera selects the region of the growth canvas shown in the viewer.
// Zoom 1 shows the whole canvas; larger values magnify.
type Camera struct {
	CenterX, CenterY float64 // fraction of canvas width and height
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{CenterX: 0.5, CenterY: 0.5, Zoom: 1}
}

func (c *Camera) ZoomIn()  { c.SetZoom(c.Zoom * zoomStep) }
func (c *Camera) ZoomOut() { c.SetZoom(c.Zoom / zoomStep) }

func (c *Camera) SetZoom(z float64) {
	c.Zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Pan moves the center by a fraction of the visible span.
func (c *Camera) Pan(dx, dy float64) {
	span := 1 / c.Zoom
	c.CenterX = clamp01(c.CenterX + dx*panStep*span)
	c.CenterY = clamp01(c.CenterY + dy*panStep*span)
}

func (c *Camera) Reset() {
	*c = *NewCamera()
}

// Viewport returns the source rectangle on a w x h canvas. Zooming out past
// 1 is limited to the canvas itself.
func (c *Camera) Viewport(w, h int) image.Rectangle {
	vw := int(math.Round(float64(w) / c.Zoom))
	vh := int(math.Round(float64(h) / c.Zoom))
	if vw > w {
		vw = w
	}
	if vh > h {
		vh = h
	}
	if vw < 1 {
		vw = 1
	}
	if vh < 1 {
		vh = 1
	}
	x0 := int(math.Round(c.CenterX*float64(w))) - vw/2
	y0 := int(math.Round(c.CenterY*float64(h))) - vh/2
	x0 = clampInt(x0, 0, w-vw)
	y0 = clampInt(y0, 0, h-vh)
	return image.Rect(x0, y0, x0+vw, y0+vh)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
