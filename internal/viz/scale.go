package viz

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/san-kum/branchgrow/internal/canvas"
)

// litThreshold is the per-channel distance from the background above which
// a scaled pixel lights its dot.
const litThreshold = 6

// Scaler renders a region of the growth canvas into a braille canvas.
type Scaler struct {
	frames *canvas.FramePool
	small  *image.RGBA
	kernel xdraw.Interpolator
}

func NewScaler(srcW, srcH int) *Scaler {
	return &Scaler{
		frames: canvas.NewFramePool(srcW, srcH),
		kernel: xdraw.BiLinear,
	}
}

// Render snapshots src, scales the viewport to the braille dot grid and
// fills dst. The snapshot buffer is returned to the pool before returning.
func (s *Scaler) Render(dst *Canvas, src *canvas.Canvas, view image.Rectangle) *image.RGBA {
	frame := s.frames.Capture(src)
	defer s.frames.Put(frame)

	small := s.Scale(frame, view, dst.DotWidth(), dst.DotHeight())
	dst.Clear()
	dst.Fill(small, canvas.Background, litThreshold)
	return small
}

// Scale resizes the view region of img to w x h. The result is reused
// between calls.
func (s *Scaler) Scale(img *image.RGBA, view image.Rectangle, w, h int) *image.RGBA {
	if s.small == nil || s.small.Rect.Dx() != w || s.small.Rect.Dy() != h {
		s.small = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	s.kernel.Scale(s.small, s.small.Bounds(), img, view, xdraw.Src, nil)
	return s.small
}
