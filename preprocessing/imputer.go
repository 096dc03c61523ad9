package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// Imputation strategies accepted by SimpleImputer.
const (
	StrategyMedian = "median"
	StrategyMean   = "mean"
)

// SimpleImputer は欠損値（NaN）を列ごとの統計量で置き換える
//
// 統計量は Fit 時にのみ計算され、Transform 時には再計算されない。
type SimpleImputer struct {
	State *model.StateManager

	// Strategy は "median"（デフォルト）または "mean"
	Strategy string

	// Statistics は各列の補完値
	Statistics []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewSimpleImputer creates an imputer with the given strategy. An empty
// strategy selects the median.
func NewSimpleImputer(strategy string) *SimpleImputer {
	if strategy == "" {
		strategy = StrategyMedian
	}
	return &SimpleImputer{
		State:    model.NewStateManager(),
		Strategy: strategy,
	}
}

// NewSimpleImputerFromStatistics rebuilds a fitted imputer from persisted
// fill values.
func NewSimpleImputerFromStatistics(strategy string, statistics []float64) (*SimpleImputer, error) {
	imp := NewSimpleImputer(strategy)
	if err := imp.validate(); err != nil {
		return nil, err
	}
	if len(statistics) == 0 {
		return nil, herrors.NewValueError("SimpleImputer", "no statistics")
	}
	for j, v := range statistics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, herrors.NewValueError("SimpleImputer", fmt.Sprintf("statistic %d is not finite", j))
		}
	}
	imp.Statistics = append([]float64(nil), statistics...)
	imp.NFeatures = len(statistics)
	imp.State.SetFitted()
	return imp, nil
}

// IsFitted reports whether Fit has completed.
func (imp *SimpleImputer) IsFitted() bool {
	return imp.State != nil && imp.State.IsFitted()
}

func (imp *SimpleImputer) validate() error {
	switch imp.Strategy {
	case StrategyMedian, StrategyMean:
		return nil
	default:
		return herrors.NewConfigurationError("strategy", "must be 'median' or 'mean'", imp.Strategy)
	}
}

// Fit learns one fill value per column from the non-missing cells of X.
//
// Errors:
//   - ConfigurationError: unknown strategy
//   - ValueError: a column has no observed values
func (imp *SimpleImputer) Fit(X mat.Matrix) (err error) {
	defer herrors.Recover(&err, "SimpleImputer.Fit")
	if err := imp.validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return herrors.NewModelError("SimpleImputer.Fit", "empty data", herrors.ErrEmptyData)
	}
	if imp.State == nil {
		imp.State = model.NewStateManager()
	}

	stats := make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return herrors.NewValueError("SimpleImputer.Fit", fmt.Sprintf("column %d has no observed values", j))
		}
		if imp.Strategy == StrategyMean {
			stats[j] = stat.Mean(observed, nil)
		} else {
			stats[j] = Median(observed)
		}
	}

	imp.Statistics = stats
	imp.NFeatures = c
	imp.State.SetDimensions(c, r)
	imp.State.SetFitted()
	return nil
}

// Transform returns a copy of X with every NaN replaced by its column's
// learned statistic.
func (imp *SimpleImputer) Transform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer herrors.Recover(&err, "SimpleImputer.Transform")
	if !imp.IsFitted() {
		return nil, herrors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != imp.NFeatures {
		return nil, herrors.NewDimensionError("SimpleImputer.Transform", imp.NFeatures, c, 1)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return imp.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform fits the imputer and fills the same data.
func (imp *SimpleImputer) FitTransform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer herrors.Recover(&err, "SimpleImputer.FitTransform")
	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	return imp.Transform(X)
}

// Median returns the median of values, averaging the two middle elements
// when the length is even. values is not modified. NaN for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
