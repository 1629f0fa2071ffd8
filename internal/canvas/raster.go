package canvas

import "image/color"

// Trace visits every pixel of the 8-connected Bresenham line from (x0, y0) to
// (x1, y1), both endpoints included.
func Trace(x0, y0, x1, y1 int, visit func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		visit(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawLine rasterizes a line in col. With onlyBackground set, pixels that are
// already painted are left alone. It returns the number of pixels written.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col color.RGBA, onlyBackground bool) int {
	written := 0
	Trace(x0, y0, x1, y1, func(x, y int) {
		if !c.InBounds(x, y) {
			return
		}
		if onlyBackground && c.Occupied(x, y) {
			return
		}
		c.Set(x, y, col)
		written++
	})
	return written
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
