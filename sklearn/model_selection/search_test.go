package model_selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// scaledMean predicts scale × mean(y_train). scale=1 is the best constant model.
type scaledMean struct {
	scale float64
	mean  float64
}

func (s *scaledMean) Fit(_, y mat.Matrix) error {
	r, _ := y.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		sum += y.At(i, 0)
	}
	s.mean = sum / float64(r)
	return nil
}

func (s *scaledMean) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, s.scale*s.mean)
	}
	return out, nil
}

func scaledMeanFactory(p model.Params) (model.Regressor, error) {
	if v, ok := p["bad"]; ok {
		return nil, herrors.NewConfigurationError("bad", "rejected", v)
	}
	// scale_pct in percent; "twin" only exists to create ties
	return &scaledMean{scale: float64(p.Int("scale_pct", 100)) / 100}, nil
}

// toyData alternates 10 and 12, so every contiguous even-sized fold has mean 11.
func toyData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 10+2*float64(i%2))
	}
	return X, y
}

func TestParameterGrid_Expand(t *testing.T) {
	grid := ParameterGrid{
		{"n_estimators": {3, 10, 30}, "max_features": {2, 4, 6, 8}},
		{"bootstrap": {false}, "n_estimators": {3, 10}, "max_features": {2, 3, 4}},
	}
	got, err := grid.Expand()
	require.NoError(t, err)
	require.Len(t, got, 18)
	assert.Equal(t, 18, grid.Len())

	// keys sorted (max_features < n_estimators), last key fastest
	assert.Equal(t, model.Params{"max_features": 2, "n_estimators": 3}, got[0])
	assert.Equal(t, model.Params{"max_features": 2, "n_estimators": 10}, got[1])
	assert.Equal(t, model.Params{"max_features": 4, "n_estimators": 3}, got[3])
	assert.Equal(t, model.Params{"bootstrap": false, "max_features": 2, "n_estimators": 3}, got[12])
	assert.Equal(t, model.Params{"bootstrap": false, "max_features": 4, "n_estimators": 10}, got[17])

	_, err = ParameterGrid{{"a": {}}}.Expand()
	assert.Error(t, err)
}

func TestParameterSampler(t *testing.T) {
	s := ParameterSampler{
		Distributions: map[string]Distribution{
			"n_estimators": RandInt{Low: 1, High: 200},
			"max_features": RandInt{Low: 1, High: 8},
		},
		NIter:       10,
		RandomState: 42,
	}
	a, err := s.Sample()
	require.NoError(t, err)
	b, err := s.Sample()
	require.NoError(t, err)
	require.Len(t, a, 10)
	assert.Equal(t, a, b)

	for _, p := range a {
		ne := p.Int("n_estimators", -1)
		mf := p.Int("max_features", -1)
		assert.True(t, ne >= 1 && ne < 200, "n_estimators=%d", ne)
		assert.True(t, mf >= 1 && mf < 8, "max_features=%d", mf)
	}

	_, err = ParameterSampler{Distributions: map[string]Distribution{"x": RandInt{Low: 3, High: 3}}, NIter: 1}.Sample()
	assert.Error(t, err)
}

func TestCrossValScore(t *testing.T) {
	X, y := toyData(50)
	scores, err := CrossValScore(scaledMeanFactory, model.Params{}, X, y, &CrossValOptions{ReturnTrainScore: true})
	require.NoError(t, err)
	require.Len(t, scores.Test, 5)
	require.Len(t, scores.Train, 5)
	for i := range scores.Test {
		assert.LessOrEqual(t, scores.Test[i], 0.0)
		assert.LessOrEqual(t, scores.Train[i], 0.0)
	}

	// NJobs does not change results
	seq, err := CrossValScore(scaledMeanFactory, model.Params{}, X, y, &CrossValOptions{NJobs: 1})
	require.NoError(t, err)
	assert.Equal(t, scores.Test, seq.Test)

	_, err = CrossValScore(scaledMeanFactory, model.Params{"bad": 1}, X, y, nil)
	var cfgErr *herrors.ConfigurationError
	assert.True(t, herrors.As(err, &cfgErr))
}

func TestGridSearchCV_BestAndTies(t *testing.T) {
	X, y := toyData(60)
	grid := ParameterGrid{
		{"scale_pct": {50, 100, 150}},
		{"scale_pct": {100}, "twin": {true}},
	}
	res, err := NewGridSearchCV(scaledMeanFactory, grid).Fit(X, y)
	require.NoError(t, err)
	require.Len(t, res.CVResults, 4)

	// scale_pct=100 is best; its twin ties and loses because it comes later
	assert.Equal(t, 1, res.BestIndex)
	assert.Equal(t, model.Params{"scale_pct": 100}, res.BestParams)
	assert.Equal(t, res.CVResults[1].MeanTestScore, res.CVResults[3].MeanTestScore)
	assert.Equal(t, 1, res.CVResults[1].RankTestScore)
	assert.Equal(t, 1, res.CVResults[3].RankTestScore)
	assert.Equal(t, res.BestScore, res.CVResults[1].MeanTestScore)
	require.NotNil(t, res.BestEstimator)

	for _, row := range res.CVResults {
		assert.False(t, math.IsNaN(row.StdTestScore))
		assert.Len(t, row.TestScores, 5)
	}
}

func TestRandomizedSearchCV(t *testing.T) {
	X, y := toyData(40)
	s := NewRandomizedSearchCV(scaledMeanFactory, map[string]Distribution{
		"scale_pct": RandInt{Low: 50, High: 150},
	}, 6, 42)
	s.Refit = false

	res, err := s.Fit(X, y)
	require.NoError(t, err)
	require.Len(t, res.CVResults, 6)
	assert.Nil(t, res.BestEstimator)

	// the best sampled scale is the one closest to 100
	best := res.BestParams.Int("scale_pct", 0)
	for _, row := range res.CVResults {
		d := math.Abs(float64(row.Params.Int("scale_pct", 0) - 100))
		assert.GreaterOrEqual(t, d, math.Abs(float64(best-100)))
	}
}

func TestTakeRows(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := TakeRows(m, []int{2, 0})
	assert.Equal(t, []float64{5, 6, 1, 2}, got.RawMatrix().Data)

	r, c := TakeRows(m, nil).Dims()
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)
}
