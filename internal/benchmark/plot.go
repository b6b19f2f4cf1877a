package benchmark

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const curveSamples = 500

var (
	truthColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	modelColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	trainColor = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
)

// Plot1D renders the blackbox, the model curve and the training points of a
// 1-D report. The image format follows the file extension.
func Plot1D(r *Report, path string) error {
	if r == nil || r.Model == nil || r.Dimension != 1 {
		return fmt.Errorf("plot requires a fitted one-dimensional report")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("RBF %s, bandwidth %.3g", r.Kernel, r.Bandwidth)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "f(x)"
	p.Add(plotter.NewGrid())

	truth := plotter.NewFunction(Blackbox1D)
	truth.Samples = curveSamples
	truth.Color = truthColor
	truth.Width = vg.Points(1.5)
	p.Add(truth)
	p.Legend.Add("blackbox", truth)

	xs := Linspace(Bounds1D[0], Bounds1D[1], curveSamples)
	queries := make([][]float64, len(xs))
	for i, x := range xs {
		queries[i] = []float64{x}
	}
	ys, err := r.Model.Predict(queries)
	if err != nil {
		return fmt.Errorf("predict curve: %w", err)
	}
	curve := make(plotter.XYs, len(xs))
	for i := range xs {
		curve[i].X, curve[i].Y = xs[i], ys[i]
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return err
	}
	line.Color = modelColor
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("model", line)

	points, outputs := r.Model.TrainingSet()
	train := make(plotter.XYs, len(points))
	for i := range points {
		train[i].X, train[i].Y = points[i][0], outputs[i]
	}
	sort.Slice(train, func(i, j int) bool { return train[i].X < train[j].X })
	scatter, err := plotter.NewScatter(train)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = trainColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("training points", scatter)

	p.X.Min, p.X.Max = Bounds1D[0], Bounds1D[1]
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// PlotTimings renders the total duration of each report as a horizontal
// bar chart in milliseconds.
func PlotTimings(reports []*Report, path string) error {
	if len(reports) == 0 {
		return fmt.Errorf("no reports to plot")
	}

	values := make(plotter.Values, len(reports))
	labels := make([]string, len(reports))
	for i, r := range reports {
		values[i] = ms(r.TotalDuration)
		labels[i] = fmt.Sprintf("%s %dD", r.Kernel, r.Dimension)
	}

	p := plot.New()
	p.Title.Text = "RBF benchmark"
	p.X.Label.Text = "ms"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = truthColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	return p.Save(6*vg.Inch, vg.Length(len(reports))*vg.Inch+2*vg.Inch, path)
}
