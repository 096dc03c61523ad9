package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/linear"
	"github.com/ezoic/housing/pipeline"
	"github.com/ezoic/housing/sklearn/ensemble"
	"github.com/ezoic/housing/sklearn/model_selection"
)

// smallSearch keeps the forest searches cheap enough for unit tests.
func smallSearch() config.SearchConfig {
	s := config.Default().Search
	s.CVFolds = 3
	s.Randomized.NIter = 3
	s.Randomized.Distributions = map[string]config.IntRange{
		"n_estimators": {Low: 2, High: 12},
		"max_features": {Low: 1, High: 3},
	}
	s.Grid = []map[string][]interface{}{
		{"n_estimators": {3, 6}, "max_features": {2}},
		{"bootstrap": {false}, "n_estimators": {3}, "max_features": {1, 2}},
	}
	return s
}

// planeData is y = 3*x0 - 2*x1 + 5 over a small deterministic grid.
func planeData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0, x1 := float64(i%10), float64((i*7)%13)
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, 3*x0-2*x1+5)
	}
	return X, y
}

func TestTrainer_Train(t *testing.T) {
	X, y := planeData(60)
	names := []string{"a", "b"}

	res, err := pipeline.NewTrainer(smallSearch()).Train(context.Background(), X, y, names)
	require.NoError(t, err)

	require.Len(t, res.Baselines, 2)
	lin := res.Baselines[0]
	assert.Equal(t, "LinearRegression", lin.Name)
	assert.InDelta(t, 0, lin.TrainRMSE, 1e-8)
	assert.InDelta(t, 0, lin.CVRMSEMean, 1e-8)
	assert.Len(t, lin.CVRMSE, 3)

	dt := res.Baselines[1]
	assert.Equal(t, "DecisionTreeRegressor", dt.Name)
	assert.LessOrEqual(t, dt.TrainRMSE, dt.CVRMSEMean)

	assert.Len(t, res.Randomized.CVResults, 3)
	assert.Len(t, res.Grid.CVResults, 4)
	require.NotNil(t, res.Final.Estimator)
	assert.Contains(t, []string{pipeline.SourceRandomized, pipeline.SourceGrid}, res.Final.Source)
	assert.GreaterOrEqual(t, res.Final.CVScore, res.Randomized.BestScore)
	assert.GreaterOrEqual(t, res.Final.CVScore, res.Grid.BestScore)

	require.Len(t, res.Importances, 2)
	assert.GreaterOrEqual(t, res.Importances[0].Importance, res.Importances[1].Importance)
	assert.InDelta(t, 1.0, res.Importances[0].Importance+res.Importances[1].Importance, 1e-9)
}

func TestTrainer_Deterministic(t *testing.T) {
	X, y := planeData(45)
	names := []string{"a", "b"}

	a, err := pipeline.NewTrainer(smallSearch()).Train(context.Background(), X, y, names)
	require.NoError(t, err)
	b, err := pipeline.NewTrainer(smallSearch()).Train(context.Background(), X, y, names)
	require.NoError(t, err)

	assert.Equal(t, a.Baselines, b.Baselines)
	assert.Equal(t, a.Randomized.CVResults, b.Randomized.CVResults)
	assert.Equal(t, a.Grid.CVResults, b.Grid.CVResults)
	assert.Equal(t, a.Final.Params, b.Final.Params)
	assert.Equal(t, a.Importances, b.Importances)
}

func TestTrainer_Errors(t *testing.T) {
	X, y := planeData(30)

	_, err := pipeline.NewTrainer(smallSearch()).Train(context.Background(), X, y, []string{"only one"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pipeline.NewTrainer(smallSearch()).Train(ctx, X, y, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectFinal_TieKeepsRandomized(t *testing.T) {
	randomized := &model_selection.SearchResult{BestParams: model.Params{"n_estimators": 7}, BestScore: -4}
	grid := &model_selection.SearchResult{BestParams: model.Params{"n_estimators": 30}, BestScore: -4}

	final := pipeline.SelectFinal(randomized, grid)
	assert.Equal(t, pipeline.SourceRandomized, final.Source)
	assert.Equal(t, model.Params{"n_estimators": 7}, final.Params)
	assert.Equal(t, 2.0, final.CVRMSE())

	grid.BestScore = -1
	final = pipeline.SelectFinal(randomized, grid)
	assert.Equal(t, pipeline.SourceGrid, final.Source)
	assert.Equal(t, -1.0, final.CVScore)
}

func TestRankImportances(t *testing.T) {
	X, y := planeData(40)
	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(5), ensemble.WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	ranked, err := pipeline.RankImportances(rf, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.GreaterOrEqual(t, ranked[0].Importance, ranked[1].Importance)

	_, err = pipeline.RankImportances(rf, []string{"a"})
	assert.Error(t, err)

	lr := linear.NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	ranked, err = pipeline.RankImportances(lr, []string{"a", "b"})
	require.NoError(t, err)
	assert.Nil(t, ranked, "models without importances rank nothing")
}
