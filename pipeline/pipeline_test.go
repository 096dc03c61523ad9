package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/dataset"
	"github.com/ezoic/housing/pipeline"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/preprocessing"
)

// pipelineSearch is a reduced search over the housing features.
func pipelineSearch() config.SearchConfig {
	s := config.Default().Search
	s.CVFolds = 3
	s.Randomized.NIter = 2
	s.Randomized.Distributions = map[string]config.IntRange{
		"n_estimators": {Low: 10, High: 30},
		"max_features": {Low: 4, High: 9},
	}
	s.Grid = []map[string][]interface{}{
		{"n_estimators": {20}, "max_features": {6, 8}},
	}
	return s
}

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Search = pipelineSearch()
	dir := t.TempDir()
	cfg.Data.Dir = dir
	cfg.Output.PreprocessorPath = filepath.Join(dir, "out", "preprocessor.gob")
	cfg.Output.PlotPath = filepath.Join(dir, "out", "geo.png")
	cfg.Output.ReportPath = filepath.Join(dir, "out", "report.txt")
	return cfg
}

func TestRunFrame_Synthetic(t *testing.T) {
	frame, err := dataset.GenerateSynthetic(2000, 42)
	require.NoError(t, err)
	var before, after bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&before, frame))
	cfg := smallConfig(t)

	report, err := pipeline.RunFrame(context.Background(), cfg, frame)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteCSV(&after, frame))
	assert.Equal(t, before.String(), after.String(), "input frame is not modified")

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2000, report.NRows)
	assert.Equal(t, 2000, report.NTrain+report.NTest)
	assert.InDelta(t, 400, report.NTest, 3)
	assert.NotContains(t, report.Features, dataset.MedianHouseValue)
	assert.NotContains(t, report.Features, dataset.IncomeCat)

	require.NotEmpty(t, report.Proportions)
	for _, row := range report.Proportions {
		assert.InDelta(t, 0, row.StratifiedErrorPct, 10, "category %d", row.Category)
	}
	require.NotEmpty(t, report.Correlations)
	// the target correlates perfectly with itself and sorts first
	assert.Equal(t, dataset.MedianHouseValue, report.Correlations[0].Column)
	assert.Equal(t, dataset.MedianIncome, report.Correlations[1].Column)

	ev := report.Evaluation
	require.NotNil(t, ev)
	assert.Equal(t, report.NTest, ev.NSamples)
	assert.Greater(t, ev.RMSE, 0.8*dataset.SyntheticNoiseSigma)
	assert.Less(t, ev.RMSE, 2*dataset.SyntheticNoiseSigma)
	assert.Greater(t, ev.R2, 0.5)
	assert.LessOrEqual(t, ev.RMSELower, ev.RMSE)
	assert.GreaterOrEqual(t, ev.RMSEUpper, ev.RMSE)

	for _, path := range []string{cfg.Output.PreprocessorPath, cfg.Output.PlotPath, cfg.Output.ReportPath} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}

	fitted, err := preprocessing.LoadPreprocessor(cfg.Output.PreprocessorPath)
	require.NoError(t, err)
	assert.Equal(t, report.Features, fitted.FeatureNames())
	assert.Len(t, report.Features, 11+len(fitted.Levels)-1)
}

func TestRunFrame_Reproducible(t *testing.T) {
	frame, err := dataset.GenerateSynthetic(800, 7)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Search = pipelineSearch()
	cfg.Output = config.OutputConfig{}

	a, err := pipeline.RunFrame(context.Background(), cfg, frame)
	require.NoError(t, err)
	b, err := pipeline.RunFrame(context.Background(), cfg, frame)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Proportions, b.Proportions)
	assert.Equal(t, a.Training.Randomized.CVResults, b.Training.Randomized.CVResults)
	assert.Equal(t, a.Training.Grid.CVResults, b.Training.Grid.CVResults)
	assert.Equal(t, a.Training.Final.Params, b.Training.Final.Params)
	assert.Equal(t, a.Evaluation, b.Evaluation)
}

func TestRun_FromCSV(t *testing.T) {
	cfg := smallConfig(t)
	frame, err := dataset.GenerateSynthetic(600, 3)
	require.NoError(t, err)
	require.NoError(t, dataset.SaveCSV(cfg.Data.CSVPath(), frame))

	report, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 600, report.NRows)

	// apply the persisted preprocessor to the raw rows without retraining
	out := filepath.Join(t.TempDir(), "features.csv")
	n, err := pipeline.Prepare(cfg.Output.PreprocessorPath, cfg.Data.CSVPath(), out)
	require.NoError(t, err)
	assert.Equal(t, 600, n)

	schema := make(dataset.Schema, len(report.Features))
	for i, name := range report.Features {
		schema[i] = dataset.Column{Name: name, Kind: dataset.Numeric}
	}
	features, err := dataset.LoadCSV(out, schema)
	require.NoError(t, err)
	assert.Equal(t, report.Features, features.Names())
	assert.Equal(t, 600, features.NRows())
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing csv", func(t *testing.T) {
		cfg := smallConfig(t)
		_, err := pipeline.Run(context.Background(), cfg)
		var ioErr *herrors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := smallConfig(t)
		cfg.Split.TestSize = 1.2
		_, err := pipeline.Run(context.Background(), cfg)
		var ce *herrors.ConfigurationError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("canceled", func(t *testing.T) {
		frame, err := dataset.GenerateSynthetic(200, 1)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := smallConfig(t)
		cfg.Output = config.OutputConfig{}
		_, err = pipeline.RunFrame(ctx, cfg, frame)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("negative income", func(t *testing.T) {
		frame, err := dataset.GenerateSynthetic(50, 1)
		require.NoError(t, err)
		income, err := frame.Numeric(dataset.MedianIncome)
		require.NoError(t, err)
		income[3] = -1
		require.NoError(t, frame.SetNumeric(dataset.MedianIncome, income))
		_, err = pipeline.RunFrame(context.Background(), smallConfig(t), frame)
		var domain *herrors.DomainError
		assert.ErrorAs(t, err, &domain)
	})
}

// TestRun_FullSizeSynthetic runs the default configuration on a dataset the
// size of the census data. The final test RMSE must land in a band around
// the noise level of the generator.
func TestRun_FullSizeSynthetic(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size run skipped in short mode")
	}
	frame, err := dataset.GenerateSynthetic(20000, 42)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Output = config.OutputConfig{}

	report, err := pipeline.RunFrame(context.Background(), cfg, frame)
	require.NoError(t, err)
	assert.Equal(t, 20000, report.NTrain+report.NTest)
	assert.InDelta(t, 4000, report.NTest, 3)

	sigma := dataset.SyntheticNoiseSigma
	assert.Greater(t, report.Evaluation.RMSE, 0.8*sigma)
	assert.Less(t, report.Evaluation.RMSE, 1.6*sigma)

	lin := report.Training.Baselines[0]
	assert.Greater(t, lin.CVRMSEMean, 0.8*sigma)
	assert.Less(t, lin.CVRMSEMean, 1.3*sigma)
}
