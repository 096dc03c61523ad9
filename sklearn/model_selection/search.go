package model_selection

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// CVResult is one row of a search's cv_results: a combination and its scores.
type CVResult struct {
	Params         model.Params
	TestScores     []float64
	MeanTestScore  float64
	StdTestScore   float64 // population standard deviation
	MeanTrainScore float64 // zero unless train scores were requested
	RankTestScore  int     // 1 is best; tied scores share a rank
}

// SearchResult is what GridSearchCV and RandomizedSearchCV learn.
type SearchResult struct {
	CVResults     []CVResult
	BestIndex     int
	BestParams    model.Params
	BestScore     float64
	BestEstimator model.Regressor // nil when Refit is false
}

// searchConfig is shared by both searches.
type searchConfig struct {
	Factory          model.Factory
	CV               *KFold
	Scoring          Scorer
	Refit            bool
	ReturnTrainScore bool
	NJobs            int
}

func runSearch(op string, cfg searchConfig, candidates []model.Params, X, y mat.Matrix) (_ *SearchResult, err error) {
	defer herrors.Recover(&err, op)

	if cfg.Factory == nil {
		return nil, herrors.NewConfigurationError("estimator", "a regressor factory is required", nil)
	}
	if len(candidates) == 0 {
		return nil, herrors.NewConfigurationError("param_grid", "no hyperparameter combinations to evaluate", 0)
	}

	logger := log.GetLoggerWithName("model_selection").With(log.OperationKey, op)
	start := time.Now()
	r, c := X.Dims()
	logger.Info("Search started",
		"candidates", len(candidates),
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	opts := &CrossValOptions{
		CV:               cfg.CV,
		Scoring:          cfg.Scoring,
		ReturnTrainScore: cfg.ReturnTrainScore,
		NJobs:            cfg.NJobs,
	}

	res := &SearchResult{CVResults: make([]CVResult, len(candidates)), BestIndex: -1}
	for i, params := range candidates {
		scores, err := CrossValScore(cfg.Factory, params, X, y, opts)
		if err != nil {
			return nil, herrors.Wrapf(err, "%s candidate %d", op, i)
		}

		mean, std := stat.PopMeanStdDev(scores.Test, nil)
		row := CVResult{
			Params:        params.Clone(),
			TestScores:    scores.Test,
			MeanTestScore: mean,
			StdTestScore:  std,
		}
		if scores.Train != nil {
			row.MeanTrainScore = stat.Mean(scores.Train, nil)
		}
		res.CVResults[i] = row

		// strict comparison: the first combination reaching the best score wins
		if res.BestIndex < 0 || mean > res.BestScore {
			res.BestIndex = i
			res.BestScore = mean
		}

		logger.Info("Candidate scored",
			log.HyperParamsKey, params,
			log.CVScoreKey, mean,
		)
	}
	rankResults(res.CVResults)
	res.BestParams = res.CVResults[res.BestIndex].Params.Clone()

	if cfg.Refit {
		best, err := cfg.Factory(res.BestParams)
		if err != nil {
			return nil, err
		}
		if err := best.Fit(X, y); err != nil {
			return nil, herrors.Wrapf(err, "%s refit", op)
		}
		res.BestEstimator = best
	}

	logger.Info("Search completed",
		log.HyperParamsKey, res.BestParams,
		log.CVScoreKey, res.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// rankResults assigns min-ranks: tied scores share the lowest rank.
func rankResults(rows []CVResult) {
	for i := range rows {
		rank := 1
		for j := range rows {
			if rows[j].MeanTestScore > rows[i].MeanTestScore {
				rank++
			}
		}
		rows[i].RankTestScore = rank
	}
}

// GridSearchCV evaluates every combination of ParamGrid by k-fold
// cross-validation and refits the best one on the full training set.
type GridSearchCV struct {
	Factory          model.Factory
	ParamGrid        ParameterGrid
	CV               *KFold // nil means 5 unshuffled folds
	Scoring          Scorer // nil means NegMeanSquaredError
	Refit            bool
	ReturnTrainScore bool
	NJobs            int
}

// NewGridSearchCV creates a grid search scored by negative MSE over 5 folds
// that refits the best combination.
func NewGridSearchCV(factory model.Factory, grid ParameterGrid) *GridSearchCV {
	return &GridSearchCV{
		Factory:          factory,
		ParamGrid:        grid,
		CV:               NewKFold(5, false, 0),
		Scoring:          NegMeanSquaredError,
		Refit:            true,
		ReturnTrainScore: true,
	}
}

// Fit runs the search.
func (g *GridSearchCV) Fit(X, y mat.Matrix) (*SearchResult, error) {
	candidates, err := g.ParamGrid.Expand()
	if err != nil {
		return nil, err
	}
	return runSearch("GridSearchCV.Fit", searchConfig{
		Factory:          g.Factory,
		CV:               g.CV,
		Scoring:          g.Scoring,
		Refit:            g.Refit,
		ReturnTrainScore: g.ReturnTrainScore,
		NJobs:            g.NJobs,
	}, candidates, X, y)
}

// RandomizedSearchCV evaluates NIter combinations drawn from Distributions.
type RandomizedSearchCV struct {
	Factory          model.Factory
	Distributions    map[string]Distribution
	NIter            int
	RandomState      int64
	CV               *KFold
	Scoring          Scorer
	Refit            bool
	ReturnTrainScore bool
	NJobs            int
}

// NewRandomizedSearchCV creates a randomized search scored by negative MSE
// over 5 folds that refits the best combination.
func NewRandomizedSearchCV(factory model.Factory, dists map[string]Distribution, nIter int, randomState int64) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		Factory:          factory,
		Distributions:    dists,
		NIter:            nIter,
		RandomState:      randomState,
		CV:               NewKFold(5, false, 0),
		Scoring:          NegMeanSquaredError,
		Refit:            true,
		ReturnTrainScore: true,
	}
}

// Fit runs the search.
func (s *RandomizedSearchCV) Fit(X, y mat.Matrix) (*SearchResult, error) {
	candidates, err := ParameterSampler{
		Distributions: s.Distributions,
		NIter:         s.NIter,
		RandomState:   s.RandomState,
	}.Sample()
	if err != nil {
		return nil, err
	}
	return runSearch("RandomizedSearchCV.Fit", searchConfig{
		Factory:          s.Factory,
		CV:               s.CV,
		Scoring:          s.Scoring,
		Refit:            s.Refit,
		ReturnTrainScore: s.ReturnTrainScore,
		NJobs:            s.NJobs,
	}, candidates, X, y)
}
