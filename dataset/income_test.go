package dataset_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
)

func TestIncomeCategory_Bins(t *testing.T) {
	tests := []struct {
		income float64
		want   int
	}{
		{0.0, 1},
		{0.5, 1},
		{1.5, 1},
		{1.5000001, 2},
		{3.0, 2},
		{4.5, 3},
		{4.6, 4},
		{6.0, 4},
		{6.01, 5},
		{15.0001, 5},
		{math.Inf(1), 5},
	}
	for _, tt := range tests {
		got, err := dataset.IncomeCategory(tt.income)
		require.NoError(t, err, "income %v", tt.income)
		assert.Equal(t, tt.want, got, "income %v", tt.income)
	}
}

func TestIncomeCategory_OutOfDomain(t *testing.T) {
	for _, v := range []float64{-0.1, math.NaN()} {
		_, err := dataset.IncomeCategory(v)
		var de *herrors.DomainError
		assert.ErrorAs(t, err, &de, "income %v", v)
	}
}

func TestAddIncomeCategory(t *testing.T) {
	f := dataset.NewFrame(3)
	require.NoError(t, f.SetNumeric(dataset.MedianIncome, []float64{1.0, 3.5, 8.3}))
	require.NoError(t, dataset.AddIncomeCategory(f))

	cats, err := f.Numeric(dataset.IncomeCat)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5}, cats)

	labels, err := dataset.IncomeLabels(f)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, labels)
}

func TestAddIncomeCategory_Errors(t *testing.T) {
	t.Run("absent source column", func(t *testing.T) {
		err := dataset.AddIncomeCategory(dataset.NewFrame(1))
		var de *herrors.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, dataset.MedianIncome, de.Column)
	})

	t.Run("negative income reports the row", func(t *testing.T) {
		f := dataset.NewFrame(3)
		require.NoError(t, f.SetNumeric(dataset.MedianIncome, []float64{1, 2, -3}))
		err := dataset.AddIncomeCategory(f)
		var de *herrors.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 2, de.Row)
		assert.False(t, f.Has(dataset.IncomeCat))
	})
}
