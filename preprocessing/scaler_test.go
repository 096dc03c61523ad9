package preprocessing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/preprocessing"
)

const epsilon = 1e-10

// imputedNumeric is a slice of the numeric block after imputation:
// median_income, households and rooms_per_household.
func imputedNumeric() *mat.Dense {
	return mat.NewDense(4, 3, []float64{
		8.3, 126, 6.98,
		7.2, 1138, 6.24,
		5.6, 177, 8.29,
		2.9, 259, 5.82,
	})
}

func TestStandardScaler_FitStatistics(t *testing.T) {
	X := imputedNumeric()
	scaler := preprocessing.NewStandardScaler()
	require.NoError(t, scaler.Fit(X))

	col := make([]float64, 4)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, X)
		var mean, ss float64
		for _, v := range col {
			mean += v
		}
		mean /= 4
		for _, v := range col {
			ss += (v - mean) * (v - mean)
		}
		assert.InDelta(t, mean, scaler.Mean[j], epsilon, "mean %d", j)
		assert.InDelta(t, math.Sqrt(ss/4), scaler.Scale[j], epsilon, "population std %d", j)
	}

	scaled, err := scaler.Transform(X)
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, scaled)
		var mean, ss float64
		for _, v := range col {
			mean += v
			ss += v * v
		}
		assert.InDelta(t, 0, mean/4, 1e-9)
		assert.InDelta(t, 1, ss/4, 1e-9)
	}
}

func TestStandardScaler_FitTransformMatchesFitThenTransform(t *testing.T) {
	a := preprocessing.NewStandardScaler()
	got, err := a.FitTransform(imputedNumeric())
	require.NoError(t, err)

	b := preprocessing.NewStandardScaler()
	require.NoError(t, b.Fit(imputedNumeric()))
	want, err := b.Transform(imputedNumeric())
	require.NoError(t, err)

	assert.True(t, mat.Equal(got, want))
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	// a ratio column that is the same in every district
	X := mat.NewDense(3, 2, []float64{
		0.2, 1.0,
		0.2, 2.0,
		0.2, 3.0,
	})

	scaled, err := preprocessing.NewStandardScaler().FitTransform(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, scaled.At(i, 0), epsilon)
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := preprocessing.NewStandardScaler()
	_, err := scaler.Transform(imputedNumeric())
	var nf *herrors.NotFittedError
	assert.ErrorAs(t, err, &nf)

	require.NoError(t, scaler.Fit(imputedNumeric()))
	_, err = scaler.Transform(mat.NewDense(1, 2, []float64{1, 2}))
	var de *herrors.DimensionError
	assert.ErrorAs(t, err, &de)

	assert.ErrorIs(t, preprocessing.NewStandardScaler().Fit(&mat.Dense{}), herrors.ErrEmptyData)

	// scaling runs after imputation, so a NaN here is a bug upstream
	err = preprocessing.NewStandardScaler().Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}))
	var ne *herrors.NumericalInstabilityError
	assert.ErrorAs(t, err, &ne)
}

func TestNewStandardScalerFromStats(t *testing.T) {
	fitted := preprocessing.NewStandardScaler()
	require.NoError(t, fitted.Fit(imputedNumeric()))

	rebuilt, err := preprocessing.NewStandardScalerFromStats(fitted.Mean, fitted.Scale)
	require.NoError(t, err)
	assert.True(t, rebuilt.IsFitted())

	want, err := fitted.Transform(imputedNumeric())
	require.NoError(t, err)
	got, err := rebuilt.Transform(imputedNumeric())
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	_, err = preprocessing.NewStandardScalerFromStats([]float64{1}, []float64{1, 2})
	assert.Error(t, err, "length mismatch")
	_, err = preprocessing.NewStandardScalerFromStats([]float64{1}, []float64{0})
	assert.Error(t, err, "zero scale")
	_, err = preprocessing.NewStandardScalerFromStats([]float64{1}, []float64{math.NaN()})
	assert.Error(t, err, "NaN scale")
}
