package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/san-kum/branchgrow/internal/canvas"
)

// WritePNG encodes a full-resolution snapshot of c.
func WritePNG(w io.Writer, c *canvas.Canvas) error {
	return png.Encode(w, c.Snapshot(nil))
}

func SavePNG(path string, c *canvas.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(f, c); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Thumbnail scales img to fit within maxW x maxH, keeping the aspect ratio.
// Images already small enough are copied unscaled.
func Thumbnail(img image.Image, maxW, maxH int) *image.RGBA {
	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func SaveThumbnail(path string, c *canvas.Canvas, maxW, maxH int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, Thumbnail(c.Snapshot(nil), maxW, maxH)); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func fit(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	tw := max(1, int(float64(w)*scale))
	th := max(1, int(float64(h)*scale))
	return tw, th
}
