package errors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// TestLoadCSV_IOErrorChain checks that a missing CSV surfaces as an IOError
// whose cause is still the fs sentinel, through any amount of wrapping.
func TestLoadCSV_IOErrorChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housing.csv")
	_, err := dataset.LoadCSV(path, dataset.HousingSchema)
	require.Error(t, err)

	wrapped := fmt.Errorf("stage load: %w", herrors.Wrap(err, "pipeline run"))

	var ioErr *herrors.IOError
	require.True(t, errors.As(wrapped, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)
	assert.True(t, errors.Is(wrapped, fs.ErrNotExist))
	assert.True(t, herrors.Is(wrapped, fs.ErrNotExist))

	var schemaErr *herrors.SchemaError
	assert.False(t, errors.As(wrapped, &schemaErr))
}

func TestReadCSV_SchemaErrorChain(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column string
	}{
		{name: "no header", input: "", column: ""},
		{name: "missing column", input: "longitude,latitude\n-122.2,37.8\n", column: dataset.HousingMedianAge},
		{
			name:   "unparsable cell",
			input:  strings.Join(dataset.HousingSchema.Names(), ",") + "\n-122.2,37.8,41,880,129,322,126,high,452600,NEAR BAY\n",
			column: dataset.MedianIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.ReadCSV(strings.NewReader(tt.input), dataset.HousingSchema)
			require.Error(t, err)

			wrapped := herrors.Wrapf(err, "reading %s", "housing.csv")
			var schemaErr *herrors.SchemaError
			require.True(t, errors.As(wrapped, &schemaErr), "got %v", err)
			assert.Equal(t, tt.column, schemaErr.Column)

			var ioErr *herrors.IOError
			assert.False(t, errors.As(wrapped, &ioErr))
		})
	}
}

func TestConfigLoad_ErrorKinds(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var ioErr *herrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = config.Parse(strings.NewReader("split:\n  test_size: [1, 2]\n"))
	var ce *herrors.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "yaml", ce.Param)
}

func TestModelError_SentinelThroughWrapping(t *testing.T) {
	err := herrors.NewModelError("LinearRegression.Fit", "empty data", herrors.ErrEmptyData)
	wrapped := fmt.Errorf("baseline: %w", herrors.Wrap(err, "train"))

	assert.True(t, errors.Is(wrapped, herrors.ErrEmptyData))
	assert.False(t, errors.Is(wrapped, herrors.ErrSingularMatrix))

	var me *herrors.ModelError
	require.True(t, errors.As(wrapped, &me))
	assert.Equal(t, "LinearRegression.Fit", me.Op)
}
