package canvas

import (
	"image"
	"image/color"
	"sync"
	"testing"
)

type point struct{ x, y int }

func trace(x0, y0, x1, y1 int) []point {
	var pts []point
	Trace(x0, y0, x1, y1, func(x, y int) { pts = append(pts, point{x, y}) })
	return pts
}

func TestTraceHorizontal(t *testing.T) {
	pts := trace(0, 0, 5, 0)
	if len(pts) != 6 {
		t.Fatalf("expected 6 pixels, got %d", len(pts))
	}
	for i, p := range pts {
		if p.x != i || p.y != 0 {
			t.Errorf("pixel %d = %v", i, p)
		}
	}
}

func TestTraceReference(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		want           []point
	}{
		{"steep", 0, 0, 3, 4, []point{{0, 0}, {1, 1}, {1, 2}, {2, 3}, {3, 4}}},
		{"reverse", 3, 4, 0, 0, []point{{3, 4}, {2, 3}, {2, 2}, {1, 1}, {0, 0}}},
		{"vertical up", 2, 3, 2, 0, []point{{2, 3}, {2, 2}, {2, 1}, {2, 0}}},
		{"diagonal", 0, 0, 3, 3, []point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}},
		{"single", 4, 4, 4, 4, []point{{4, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trace(tt.x0, tt.y0, tt.x1, tt.y1)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pixel %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTraceConnected(t *testing.T) {
	ends := [][4]int{{0, 0, 17, 5}, {10, 2, -4, 9}, {0, 0, -6, -13}, {5, 5, 5, -5}}
	for _, e := range ends {
		pts := trace(e[0], e[1], e[2], e[3])
		if pts[0] != (point{e[0], e[1]}) || pts[len(pts)-1] != (point{e[2], e[3]}) {
			t.Errorf("%v: endpoints %v .. %v", e, pts[0], pts[len(pts)-1])
		}
		for i := 1; i < len(pts); i++ {
			dx := absInt(pts[i].x - pts[i-1].x)
			dy := absInt(pts[i].y - pts[i-1].y)
			if dx > 1 || dy > 1 || (dx == 0 && dy == 0) {
				t.Errorf("%v: gap between %v and %v", e, pts[i-1], pts[i])
			}
		}
	}
}

func TestDrawLineMarksOccupancy(t *testing.T) {
	c := New(10, 10)
	red := color.RGBA{R: 255, A: 255}

	n := c.DrawLine(0, 0, 5, 0, red, false)
	if n != 6 {
		t.Errorf("expected 6 pixels written, got %d", n)
	}
	for x := 0; x <= 5; x++ {
		if !c.Occupied(x, 0) {
			t.Errorf("(%d,0) not occupied", x)
		}
		if c.At(x, 0) != red {
			t.Errorf("(%d,0) = %v", x, c.At(x, 0))
		}
	}
	if c.Occupied(6, 0) || c.Occupied(0, 1) {
		t.Error("pixels outside the line were marked")
	}
	if c.OccupiedCount() != 6 {
		t.Errorf("OccupiedCount = %d", c.OccupiedCount())
	}
}

func TestDrawLineOnlyBackground(t *testing.T) {
	c := New(10, 10)
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	c.Set(2, 0, red)
	n := c.DrawLine(0, 0, 4, 0, blue, true)
	if n != 4 {
		t.Errorf("expected 4 pixels written, got %d", n)
	}
	if c.At(2, 0) != red {
		t.Error("painted pixel was overwritten under the background gate")
	}
	if c.At(3, 0) != blue {
		t.Error("background pixel was not painted")
	}
}

func TestDrawLineClipsOutOfBounds(t *testing.T) {
	c := New(4, 4)
	n := c.DrawLine(-2, 1, 6, 1, color.RGBA{G: 255, A: 255}, false)
	if n != 4 {
		t.Errorf("expected 4 in-bounds pixels, got %d", n)
	}
}

func TestClear(t *testing.T) {
	c := New(8, 8)
	c.DrawLine(0, 0, 7, 7, color.RGBA{R: 1, G: 2, B: 3, A: 255}, false)
	c.Clear()

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if c.Occupied(x, y) {
				t.Fatalf("(%d,%d) still occupied", x, y)
			}
			if c.At(x, y) != Background {
				t.Fatalf("(%d,%d) = %v", x, y, c.At(x, y))
			}
		}
	}
}

func TestBoundsQueries(t *testing.T) {
	c := New(3, 2)
	if c.InBounds(3, 0) || c.InBounds(0, 2) || c.InBounds(-1, 0) {
		t.Error("InBounds accepted an outside pixel")
	}
	if c.IsBackground(5, 5) {
		t.Error("outside pixel reported as background")
	}
	if !c.IsBackground(1, 1) {
		t.Error("fresh pixel should be background")
	}
	if c.At(-1, -1) != Background {
		t.Error("outside At should be Background")
	}
}

func TestSnapshot(t *testing.T) {
	c := New(4, 3)
	c.Set(1, 2, color.RGBA{R: 10, G: 20, B: 30, A: 40})

	img := c.Snapshot(nil)
	if img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if got := img.RGBAAt(1, 2); got != (color.RGBA{R: 10, G: 20, B: 30, A: 40}) {
		t.Errorf("pixel = %v", got)
	}
	if got := img.RGBAAt(0, 0); got != Background {
		t.Errorf("background pixel = %v", got)
	}

	reused := c.Snapshot(img)
	if reused != img {
		t.Error("Snapshot did not reuse a matching buffer")
	}
}

func TestConcurrentWrites(t *testing.T) {
	c := New(64, 64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			col := color.RGBA{R: uint8(i * 30), A: 255}
			for y := 0; y < 64; y++ {
				c.DrawLine(0, y, 63, y, col, false)
			}
		}(i)
	}
	wg.Wait()

	if c.OccupiedCount() != 64*64 {
		t.Errorf("OccupiedCount = %d", c.OccupiedCount())
	}
}

func TestFromFloat(t *testing.T) {
	got := FromFloat(1, 0, 0.5, 2)
	want := color.RGBA{R: 255, G: 0, B: 128, A: 255}
	if got != want {
		t.Errorf("FromFloat = %v, want %v", got, want)
	}
	if FromFloat(-1, 0, 0, 0).R != 0 {
		t.Error("negative channel not clamped")
	}
}

func TestFramePool(t *testing.T) {
	pool := NewFramePool(5, 5)
	c := New(5, 5)
	c.Set(0, 0, color.RGBA{R: 9, A: 255})

	img := pool.Capture(c)
	if img.RGBAAt(0, 0).R != 9 {
		t.Error("Capture did not copy pixels")
	}
	pool.Put(img)
	pool.Put(image.NewRGBA(image.Rect(0, 0, 2, 2)))

	if got := pool.Get(); got.Rect.Dx() != 5 {
		t.Errorf("pool returned wrong size %v", got.Rect)
	}
}
