package export

import (
	"bytes"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
)

var qualityColors = map[triangulate.Quality]color.RGBA{
	triangulate.QualityHigh:   {R: 0x35, G: 0xb7, B: 0x79, A: 0xff},
	triangulate.QualityMedium: {R: 0xf2, G: 0xb7, B: 0x05, A: 0xff},
	triangulate.QualityLow:    {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// SavePlot writes a top-down scatter plot of the accepted markers, one series
// per quality label, to path. The image format follows the file extension
// (png, svg, pdf, ...).
func SavePlot(fsys fsutil.FileSystem, path string, results []triangulate.MarkerResult) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Triangulated markers (%d)", len(results))
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	byQuality := make(map[triangulate.Quality]plotter.XYs)
	for _, r := range results {
		byQuality[r.Quality] = append(byQuality[r.Quality], plotter.XY{X: r.Position.X, Y: r.Position.Y})
	}

	for _, q := range []triangulate.Quality{triangulate.QualityHigh, triangulate.QualityMedium, triangulate.QualityLow} {
		pts := byQuality[q]
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build %s series: %w", q, err)
		}
		s.GlyphStyle.Color = qualityColors[q]
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(string(q), s)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	w, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode plot: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
