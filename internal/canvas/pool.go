package canvas

import (
	"image"
	"sync"
)

// FramePool recycles snapshot buffers of one size.
type FramePool struct {
	pool          sync.Pool
	width, height int
}

func NewFramePool(width, height int) *FramePool {
	return &FramePool{
		width:  width,
		height: height,
		pool: sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(image.Rect(0, 0, width, height))
			},
		},
	}
}

func (p *FramePool) Get() *image.RGBA {
	return p.pool.Get().(*image.RGBA)
}

// Put returns a frame; frames of another size are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img != nil && img.Rect.Dx() == p.width && img.Rect.Dy() == p.height {
		p.pool.Put(img)
	}
}

// Capture takes a pooled frame and fills it from c.
func (p *FramePool) Capture(c *Canvas) *image.RGBA {
	return c.Snapshot(p.Get())
}
