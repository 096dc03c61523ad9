package dataset_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
)

func smallFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f := dataset.NewFrame(3)
	require.NoError(t, f.SetNumeric("a", []float64{1, math.NaN(), 3}))
	require.NoError(t, f.SetCategorical("c", []string{"x", "", "z"}))
	require.NoError(t, f.SetNumeric("b", []float64{10, 20, 30}))
	return f
}

func TestFrame_ColumnsKeepOrder(t *testing.T) {
	f := smallFrame(t)
	assert.Equal(t, []string{"a", "c", "b"}, f.Names())
	assert.Equal(t, []string{"a", "b"}, f.NumericNames())

	// replacing keeps the position
	require.NoError(t, f.SetNumeric("a", []float64{0, 0, 0}))
	assert.Equal(t, []string{"a", "c", "b"}, f.Names())
}

func TestFrame_AbsentColumnIsSchemaError(t *testing.T) {
	f := smallFrame(t)

	_, err := f.Numeric("missing")
	var se *herrors.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "missing", se.Column)

	_, err = f.Categorical("a")
	require.ErrorAs(t, err, &se, "numeric column read as categorical")
}

func TestFrame_LengthMismatch(t *testing.T) {
	f := dataset.NewFrame(2)
	err := f.SetNumeric("a", []float64{1})
	var se *herrors.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestFrame_TakeDropClone(t *testing.T) {
	f := smallFrame(t)

	taken, err := f.Take([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, taken.NRows())
	a, _ := taken.Numeric("a")
	assert.Equal(t, []float64{3, 1}, a)
	c, _ := taken.Categorical("c")
	assert.Equal(t, []string{"z", "x"}, c)

	_, err = f.Take([]int{3})
	assert.Error(t, err)

	dropped := f.Drop("c", "nope")
	assert.Equal(t, []string{"a", "b"}, dropped.Names())
	assert.True(t, f.Has("c"), "Drop must not modify the source")

	clone := f.Clone()
	b, _ := clone.Numeric("b")
	b[0] = -1
	orig, _ := f.Numeric("b")
	assert.Equal(t, 10.0, orig[0])

	sel, err := f.Select("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, sel.Names())
	_, err = f.Select("zzz")
	assert.Error(t, err)
}

func TestFrame_MissingCount(t *testing.T) {
	f := smallFrame(t)
	n, err := f.MissingCount("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.MissingCount("c")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSchema_Without(t *testing.T) {
	s := dataset.HousingSchema.Without(dataset.MedianHouseValue, dataset.OceanProximity)
	assert.Len(t, s, len(dataset.HousingSchema)-2)
	_, ok := s.Lookup(dataset.MedianHouseValue)
	assert.False(t, ok)
	col, ok := dataset.HousingSchema.Lookup(dataset.OceanProximity)
	require.True(t, ok)
	assert.Equal(t, dataset.Categorical, col.Kind)
	assert.Equal(t, "categorical", col.Kind.String())
}
