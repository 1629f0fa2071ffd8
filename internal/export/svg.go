package export

import (
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/san-kum/branchgrow/internal/growth"
)

// PathsSVG draws every stroke of every branch as an SVG line on a black
// width x height canvas. Coordinates match the PNG snapshot.
func PathsSVG(w io.Writer, width, height int, branches []*growth.Branch) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title("Branch paths")
	canvas.Rect(0, 0, width, height, "fill:black")

	canvas.Gstyle("stroke-width:1;stroke-linecap:square;fill:none")
	for _, b := range branches {
		canvas.Gid(fmt.Sprintf("branch-%d", b.ID()))
		for _, s := range b.Strokes() {
			canvas.Line(s.From.X, s.From.Y, s.To.X, s.To.Y,
				fmt.Sprintf("stroke:rgb(%d,%d,%d)", s.Color.R, s.Color.G, s.Color.B))
		}
		start := b.Path()[0]
		canvas.Circle(start.X, start.Y, 2, "fill:white")
		canvas.Gend()
	}
	canvas.Gend()
	canvas.End()
}

func SavePathsSVG(path string, width, height int, branches []*growth.Branch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	PathsSVG(f, width, height, branches)
	return f.Close()
}

// CoverageSVG plots a coverage series as a polyline, one x unit per sample.
func CoverageSVG(w io.Writer, values []float64, width, height int) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title("Coverage")
	canvas.Rect(0, 0, width, height, "fill:white")
	if len(values) < 2 {
		canvas.End()
		return
	}

	peak := values[0]
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	xs := make([]int, len(values))
	ys := make([]int, len(values))
	for i, v := range values {
		xs[i] = i * (width - 1) / (len(values) - 1)
		ys[i] = height - 1 - int(v/peak*float64(height-1))
	}
	canvas.Polyline(xs, ys, "fill:none;stroke:rgb(0,128,255);stroke-width:2")
	canvas.End()
}
