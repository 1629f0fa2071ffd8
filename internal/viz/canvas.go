package viz

import (
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/branchgrow/internal/canvas"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a terminal grid where each cell holds 2x4 dots and one color.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]color.RGBA
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]color.RGBA, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]color.RGBA, w)
	}
	c.Clear()
	return c
}

// DotWidth and DotHeight give the canvas size in dots.
func (c *Canvas) DotWidth() int  { return c.Width * 2 }
func (c *Canvas) DotHeight() int { return c.Height * 4 }

// Set lights the dot at (x, y) in dot coordinates.
func (c *Canvas) Set(x, y int) {
	c.SetColor(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
}

// SetColor lights a dot and keeps the brightest color seen in its cell.
func (c *Canvas) SetColor(x, y int, col color.RGBA) {
	if x < 0 || y < 0 {
		return
	}
	row, cell := y/4, x/2
	if cell >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][cell] |= rune(pixelMap[y%4][x%2])
	if luma(col) >= luma(c.Colors[row][cell]) {
		c.Colors[row][cell] = col
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Colors[i][j] = color.RGBA{}
		}
	}
}

// DrawLine lights every dot on the segment.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	canvas.Trace(x0, y0, x1, y1, c.Set)
}

// Fill lights one dot for every pixel of img that differs from bg. img must
// already be scaled to DotWidth x DotHeight.
func (c *Canvas) Fill(img *image.RGBA, bg color.RGBA, threshold uint8) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if !lit(px, bg, threshold) {
				continue
			}
			c.SetColor(x-b.Min.X, y-b.Min.Y, px)
		}
	}
}

func lit(px, bg color.RGBA, threshold uint8) bool {
	return diff(px.R, bg.R) > threshold || diff(px.G, bg.G) > threshold || diff(px.B, bg.B) > threshold
}

func diff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func luma(c color.RGBA) int {
	return 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
}

// String renders the dots without color.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render renders the dots with each cell in its own color.
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, row := range c.Grid {
		for j, r := range row {
			if r == blank {
				b.WriteRune(r)
				continue
			}
			col := c.Colors[i][j]
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(int(col.R), int(col.G), int(col.B))))
			b.WriteString(style.Render(string(r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
