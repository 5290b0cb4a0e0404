package report

import (
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// Chart size in the browser.
const (
	ChartWidth  = 6 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

// LeaderboardChart draws metric for every model of a compare grid as a bar
// chart and writes it to w as PNG.
func LeaderboardChart(w io.Writer, t *experiment.ResultTable, metric experiment.Metric) error {
	if t == nil || len(t.Rows) == 0 {
		return errors.WithStack(errors.ErrNoModels)
	}
	col := t.ColumnIndex(MetricColumn(metric))
	if col < 0 {
		return errors.NewColumnNotFoundError("LeaderboardChart", MetricColumn(metric))
	}
	name := t.ColumnIndex("Model")

	values := make(plotter.Values, len(t.Rows))
	labels := make([]string, len(t.Rows))
	for i := range t.Rows {
		v, ok := t.Float(i, col)
		if !ok {
			v = math.NaN()
		}
		values[i] = v
		if name >= 0 {
			labels[i] = FormatCell(t.Rows[i][name])
		}
	}
	if floats.HasNaN(values) {
		return errors.NewValueError("LeaderboardChart", "metric "+string(metric)+" has non-numeric values")
	}

	p := plot.New()
	p.Title.Text = "Model comparison"
	p.Y.Label.Text = string(metric)

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "report: leaderboard bars")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	return writePNG(w, p)
}

// HistogramChart draws the distribution of a numeric column. The bin count
// follows Sturges' rule.
func HistogramChart(w io.Writer, c *dataset.Column) error {
	if !c.DType.IsNumeric() {
		return errors.NewValidationError("column", "histogram needs a numeric column", c.Name)
	}
	xs := c.Floats()
	if len(xs) == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "column %q", c.Name)
	}

	p := plot.New()
	p.Title.Text = c.Name
	p.X.Label.Text = c.Name
	p.Y.Label.Text = "count"

	if floats.Min(xs) == floats.Max(xs) {
		// A single distinct value has no bin width; draw one bar.
		bars, err := plotter.NewBarChart(plotter.Values{float64(len(xs))}, vg.Points(40))
		if err != nil {
			return errors.Wrap(err, "report: histogram")
		}
		p.Add(bars)
		p.NominalX(FormatCell(xs[0]))
		return writePNG(w, p)
	}

	bins := int(math.Ceil(math.Log2(float64(len(xs))))) + 1
	h, err := plotter.NewHist(plotter.Values(xs), bins)
	if err != nil {
		return errors.Wrap(err, "report: histogram")
	}
	p.Add(h)
	return writePNG(w, p)
}

func writePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return errors.Wrap(err, "report: render png")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "report: write png")
	}
	return nil
}
