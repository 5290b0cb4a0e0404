package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/caretstudio/core/parallel"
)

// describeParallelThreshold is the column count above which Describe fans out.
const describeParallelThreshold = 8

// Summary holds descriptive statistics of one numeric column.
// Std is the sample standard deviation; quartiles use linear interpolation
// between closest ranks. Fields are NaN when the column has no values.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Q50    float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// Describe summarizes every numeric column, in column order.
func (t *Table) Describe() []Summary {
	var numeric []*Column
	for _, c := range t.columns {
		if c.DType.IsNumeric() {
			numeric = append(numeric, c)
		}
	}

	out := make([]Summary, len(numeric))
	parallel.ForEach(len(numeric), describeParallelThreshold, func(i int) {
		out[i] = summarize(numeric[i])
	})
	return out
}

func summarize(c *Column) Summary {
	x := c.Floats()
	s := Summary{Column: c.Name, Count: len(x)}
	if len(x) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sort.Float64s(x)
	s.Mean, s.Std = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		s.Std = math.NaN()
	}
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Q25 = quantile(0.25, x)
	s.Q50 = quantile(0.50, x)
	s.Q75 = quantile(0.75, x)
	return s
}

// quantile interpolates linearly at rank p*(n-1) of sorted x.
// gonum's stat.Quantile offers only empirical and LinInterp (p*n based)
// estimators, neither of which matches this definition.
func quantile(p float64, x []float64) float64 {
	pos := p * float64(len(x)-1)
	lo := math.Floor(pos)
	i := int(lo)
	if i+1 >= len(x) {
		return x[len(x)-1]
	}
	frac := pos - lo
	return x[i] + frac*(x[i+1]-x[i])
}
