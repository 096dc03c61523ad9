package preprocessing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/preprocessing"
	herrors "github.com/ezoic/housing/pkg/errors"
)

var nan = math.NaN()

func TestSimpleImputer_Median(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		1, 10,
		nan, 20,
		9, nan,
		5, 40,
		nan, 30,
	})

	imputer := preprocessing.NewSimpleImputer("")
	require.Equal(t, preprocessing.StrategyMedian, imputer.Strategy)
	require.NoError(t, imputer.Fit(X))

	// column 0: {1, 5, 9} -> 5; column 1: {10, 20, 30, 40} -> 25
	assert.Equal(t, []float64{5, 25}, imputer.Statistics)

	// statistics come from fit, not from the data being transformed
	other := mat.NewDense(3, 2, []float64{
		nan, nan,
		100, nan,
		nan, -7,
	})
	filled, err := imputer.Transform(other)
	require.NoError(t, err)
	want := mat.NewDense(3, 2, []float64{
		5, 25,
		100, 25,
		5, -7,
	})
	assert.True(t, mat.Equal(want, filled))
	assert.True(t, math.IsNaN(other.At(0, 0)), "input must not be modified")
}

func TestSimpleImputer_Mean(t *testing.T) {
	imputer := preprocessing.NewSimpleImputer(preprocessing.StrategyMean)
	filled, err := imputer.FitTransform(mat.NewDense(4, 1, []float64{1, 2, nan, 6}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, imputer.Statistics[0])
	assert.Equal(t, 3.0, filled.At(2, 0))
}

func TestSimpleImputer_Errors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})

	err := preprocessing.NewSimpleImputer("most_frequent").Fit(X)
	var ce *herrors.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "strategy", ce.Param)

	err = preprocessing.NewSimpleImputer("median").Fit(mat.NewDense(2, 1, []float64{nan, nan}))
	var ve *herrors.ValueError
	assert.ErrorAs(t, err, &ve, "all-missing column")

	_, err = preprocessing.NewSimpleImputer("median").Transform(X)
	var nf *herrors.NotFittedError
	assert.ErrorAs(t, err, &nf)

	fitted := preprocessing.NewSimpleImputer("median")
	require.NoError(t, fitted.Fit(X))
	_, err = fitted.Transform(mat.NewDense(1, 2, nil))
	var de *herrors.DimensionError
	assert.ErrorAs(t, err, &de)

	_, err = preprocessing.NewSimpleImputerFromStatistics("median", []float64{nan})
	assert.Error(t, err)
	_, err = preprocessing.NewSimpleImputerFromStatistics("mode", []float64{1})
	assert.ErrorAs(t, err, &ce)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, preprocessing.Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, preprocessing.Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(preprocessing.Median(nil)))

	values := []float64{3, 1, 2}
	preprocessing.Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
