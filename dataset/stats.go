package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Correlation is the Pearson correlation of one column with a target.
type Correlation struct {
	Column string
	Value  float64
	// N is the number of rows where both values are present.
	N int
}

// Correlations returns the Pearson correlation of every numeric column with
// target, sorted by descending value. Rows where either value is NaN are
// skipped pairwise. Columns with fewer than two complete pairs get NaN and
// sort last.
func Correlations(frame *Frame, target string) ([]Correlation, error) {
	y, err := frame.Numeric(target)
	if err != nil {
		return nil, err
	}

	var out []Correlation
	for _, name := range frame.NumericNames() {
		x, _ := frame.Numeric(name)
		xs := make([]float64, 0, len(x))
		ys := make([]float64, 0, len(y))
		for i := range x {
			if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
				continue
			}
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
		c := Correlation{Column: name, Value: math.NaN(), N: len(xs)}
		if len(xs) >= 2 {
			c.Value = stat.Correlation(xs, ys, nil)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value, out[j].Value
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	return out, nil
}

// Summary holds descriptive statistics of one numeric column.
type Summary struct {
	Column  string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Median  float64
	Max     float64
}

// Describe summarizes every numeric column of frame, ignoring NaN cells.
func Describe(frame *Frame) []Summary {
	var out []Summary
	for _, name := range frame.NumericNames() {
		col, _ := frame.Numeric(name)
		values := make([]float64, 0, len(col))
		for _, v := range col {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		s := Summary{Column: name, Count: len(values), Missing: len(col) - len(values)}
		if len(values) == 0 {
			s.Mean, s.Std, s.Min, s.Median, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			out = append(out, s)
			continue
		}
		sort.Float64s(values)
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
		s.Min = values[0]
		s.Max = values[len(values)-1]
		if m := len(values); m%2 == 1 {
			s.Median = values[m/2]
		} else {
			s.Median = (values[m/2-1] + values[m/2]) / 2
		}
		out = append(out, s)
	}
	return out
}
