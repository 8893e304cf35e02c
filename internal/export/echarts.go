package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/fiducial3d/internal/fsutil"
	"github.com/banshee-data/fiducial3d/internal/triangulate"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderHTML renders a chart page for the accepted markers: a top-down XY
// scatter coloured by confidence and a per-marker reprojection error bar
// chart.
func RenderHTML(report triangulate.Report) ([]byte, error) {
	page := components.NewPage()
	page.AddCharts(markerScatter(report.Results), errorBars(report.Results))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render chart page: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the chart page to path.
func WriteHTML(fsys fsutil.FileSystem, path string, report triangulate.Report) error {
	html, err := RenderHTML(report)
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func markerScatter(results []triangulate.MarkerResult) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(results))
	maxAbs := 0.0
	for _, r := range results {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(r.Position.X), math.Abs(r.Position.Y)))
		data = append(data, opts.ScatterData{
			Name:  r.MarkerID,
			Value: []interface{}{r.Position.X, r.Position.Y, r.Confidence},
		})
	}

	// Symmetric axes keep the top-down view square.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Marker Triangulation", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Triangulated Markers (top-down)", Subtitle: fmt.Sprintf("markers=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("markers", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	return scatter
}

func errorBars(results []triangulate.MarkerResult) *charts.Bar {
	ids := make([]string, len(results))
	bars := make([]opts.BarData, len(results))
	for i, r := range results {
		ids[i] = r.MarkerID
		bars[i] = opts.BarData{Name: r.MarkerID, Value: r.ReprojectionError}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean Reprojection Error", Subtitle: "pixels per marker"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(ids).AddSeries("error (px)", bars)
	return bar
}
