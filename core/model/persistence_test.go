package model_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/dataset"
	"github.com/ezoic/housing/linear"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/preprocessing"
)

func fitPreprocessor(t *testing.T) (*preprocessing.FittedPreprocessor, *dataset.Frame) {
	t.Helper()
	frame, err := dataset.GenerateSynthetic(300, 11)
	require.NoError(t, err)
	fitted, err := preprocessing.NewHousingPreprocessor(preprocessing.WithScaling(true)).Fit(frame)
	require.NoError(t, err)
	return fitted, frame
}

func TestSaveLoadModel_FittedPreprocessor(t *testing.T) {
	fitted, frame := fitPreprocessor(t)
	path := filepath.Join(t.TempDir(), "preprocessor.gob")
	require.NoError(t, model.SaveModel(fitted, path))

	var loaded preprocessing.FittedPreprocessor
	require.NoError(t, model.LoadModel(&loaded, path))
	require.NoError(t, loaded.Validate())
	assert.Equal(t, fitted.FeatureNames(), loaded.FeatureNames())

	want, _, err := fitted.Transform(frame)
	require.NoError(t, err)
	got, _, err := loaded.Transform(frame)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got), "reloaded preprocessor transforms identically")

	median, ok := loaded.FillValue(dataset.TotalBedrooms)
	require.True(t, ok)
	assert.False(t, math.IsNaN(median))
}

func TestSaveLoadModelToWriter_LinearBaseline(t *testing.T) {
	// a numeric column plus two drop-first dummies
	X := mat.NewDense(6, 3, []float64{
		1, 0, 0,
		2, 1, 0,
		3, 0, 1,
		4, 1, 0,
		5, 0, 1,
		6, 0, 0,
	})
	y := mat.NewVecDense(6, []float64{4, 9, 12, 13, 16, 14})

	reg := linear.NewLinearRegression()
	require.NoError(t, reg.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(reg, &buf))

	loaded := linear.NewLinearRegression()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, reg.Rank, loaded.Rank)

	want, err := reg.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestLoadModel_Errors(t *testing.T) {
	dir := t.TempDir()

	var fp preprocessing.FittedPreprocessor
	err := model.LoadModel(&fp, filepath.Join(dir, "absent.gob"))
	var ioErr *herrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)

	truncated := filepath.Join(dir, "truncated.gob")
	fitted, _ := fitPreprocessor(t)
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(fitted, &buf))
	require.NoError(t, os.WriteFile(truncated, buf.Bytes()[:buf.Len()/2], 0o644))
	err = model.LoadModel(&fp, truncated)
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "decode", ioErr.Op)
	assert.Equal(t, truncated, ioErr.Path)
}

func TestSaveModel_InvalidPath(t *testing.T) {
	fitted, _ := fitPreprocessor(t)
	err := model.SaveModel(fitted, filepath.Join(t.TempDir(), "missing", "preprocessor.gob"))
	var ioErr *herrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "create", ioErr.Op)
}
