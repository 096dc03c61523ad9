package errors_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/ezoic/housing/pkg/errors"
)

func TestIOErrorUnwrapsCause(t *testing.T) {
	err := herrors.NewIOError("open", "housing.csv", fs.ErrNotExist)

	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var ioErr *herrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "housing.csv", ioErr.Path)
	assert.Contains(t, err.Error(), "open housing.csv")
}

func TestTaxonomyMarshalsToZerolog(t *testing.T) {
	tests := []struct {
		name     string
		err      zerolog.LogObjectMarshaler
		wantType string
		wantKey  string
	}{
		{"io", &herrors.IOError{Op: "fetch", Path: "http://x/housing.tgz"}, "IOError", "path"},
		{"configuration", &herrors.ConfigurationError{Param: "strategy", Reason: "unknown", Value: "mode"}, "ConfigurationError", "param"},
		{"domain", &herrors.DomainError{Op: "IncomeCategory", Column: "median_income", Value: -2}, "DomainError", "column"},
		{"schema", &herrors.SchemaError{Column: "households", Reason: "column not found"}, "SchemaError", "column"},
		{"unknown category", herrors.NewUnknownCategoryWarning("ocean_proximity", "ISLAND", 2), "UnknownCategoryWarning", "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)
			logger.Error().EmbedObject(tt.err).Msg("failed")

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantType, entry["type"])
			assert.Contains(t, entry, tt.wantKey)
		})
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	fn := func() (err error) {
		defer herrors.Recover(&err, "Splitter.Split")
		var indices []int
		_ = indices[3]
		return nil
	}

	err := fn()
	require.Error(t, err)

	var panicErr *herrors.PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "Splitter.Split", panicErr.Operation)
	assert.NotEmpty(t, panicErr.StackTrace)
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	herrors.SetWarningHandler(func(w error) { got = append(got, w) })
	defer herrors.SetWarningHandler(func(error) {})

	herrors.Warn(herrors.NewUnknownCategoryWarning("ocean_proximity", "ISLAND", 1))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "ISLAND")
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, herrors.CheckNumericalStability("weights", []float64{1, 2, 3}))

	err := herrors.CheckNumericalStability("weights", []float64{1, math.NaN()})
	var instability *herrors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instability))
}
