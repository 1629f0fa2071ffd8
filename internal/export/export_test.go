package export

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/branchgrow/internal/canvas"
	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/growth"
	"github.com/san-kum/branchgrow/internal/sampler"
)

func paintedCanvas() *canvas.Canvas {
	c := canvas.New(40, 20)
	c.DrawLine(0, 0, 39, 19, canvas.FromFloat(1, 0.5, 0, 1), false)
	return c
}

func TestWritePNG(t *testing.T) {
	c := paintedCanvas()
	var buf bytes.Buffer
	if err := WritePNG(&buf, c); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 128 {
		t.Errorf("pixel (0,0) = %v", img.At(0, 0))
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.png")
	if err := SavePNG(path, paintedCanvas()); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		maxW, maxH   int
		wantW, wantH int
	}{
		{"fits width", 20, 20, 20, 10},
		{"fits height", 100, 5, 10, 5},
		{"already small", 100, 100, 40, 20},
		{"no limit", 0, 0, 40, 20},
	}
	src := paintedCanvas().Snapshot(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := Thumbnail(src, tt.maxW, tt.maxH)
			if th.Bounds().Dx() != tt.wantW || th.Bounds().Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", th.Bounds().Dx(), th.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func testBranch() *growth.Branch {
	p := growth.DefaultParams()
	p.Axiom = "F+F"
	p.Iterations = 0
	p.Order = growth.Forward
	p.Turns = sampler.TurnTable{{Angle: 90, Weight: 1}}
	return growth.New(0, growth.Position{X: 20, Y: 10}, p, sampler.New(5))
}

func TestPathsSVG(t *testing.T) {
	b := testBranch()
	b.Advance(canvas.New(100, 100), 0.016)

	var buf bytes.Buffer
	PathsSVG(&buf, 100, 100, []*growth.Branch{b})
	out := buf.String()

	if err := xml.Unmarshal(buf.Bytes(), new(struct{})); err != nil {
		t.Fatalf("output is not well-formed XML: %v", err)
	}
	if n := strings.Count(out, "<line"); n != len(b.Strokes()) {
		t.Errorf("expected %d lines, got %d", len(b.Strokes()), n)
	}
	if !strings.Contains(out, `id="branch-0"`) {
		t.Error("missing branch group")
	}
}

func TestCoverageSVG(t *testing.T) {
	var buf bytes.Buffer
	CoverageSVG(&buf, []float64{0, 0.1, 0.3, 0.2}, 200, 50)
	if !strings.Contains(buf.String(), "<polyline") {
		t.Error("expected a polyline")
	}
	if err := xml.Unmarshal(buf.Bytes(), new(struct{})); err != nil {
		t.Errorf("not well-formed: %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	s := engine.DefaultSettings()
	s.Width, s.Height, s.Branches, s.Workers = 64, 64, 2, 1
	o, err := engine.New(s)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()

	cfg := engine.RunConfig{Dt: 0.016, Ticks: 5}
	res, err := engine.NewRunner(o).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, NewExportData(s, cfg, res, o.Branches())); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewExportData(s, cfg, res, o.Branches())); err != nil {
		t.Fatal(err)
	}
	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Ticks != 5 || len(decoded.Samples) != 5 || len(decoded.Agents) != 2 {
		t.Errorf("decoded %+v", decoded)
	}
	if decoded.Mode != "barrier" {
		t.Errorf("mode = %q", decoded.Mode)
	}
}
