package pipeline

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/linear"
	"github.com/ezoic/housing/metrics"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
	"github.com/ezoic/housing/sklearn/ensemble"
	"github.com/ezoic/housing/sklearn/model_selection"
	"github.com/ezoic/housing/sklearn/tree"
)

// Sources of the final model.
const (
	SourceRandomized = "randomized_search"
	SourceGrid       = "grid_search"
)

// Baseline is the score sheet of a model fitted with fixed hyperparameters.
type Baseline struct {
	Name       string
	TrainRMSE  float64   // RMSE on the data the model was fitted on
	CVRMSE     []float64 // per-fold RMSE, sqrt(-neg_mse)
	CVRMSEMean float64
	CVRMSEStd  float64 // population standard deviation
}

// FeatureImportance pairs a feature name with its importance in the final model.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// FinalModel is the model selected across both searches, refit on the full
// training set.
type FinalModel struct {
	Source    string
	Params    model.Params
	CVScore   float64 // mean neg-MSE over the folds
	Estimator model.Regressor
}

// CVRMSE converts the neg-MSE score to RMSE.
func (m FinalModel) CVRMSE() float64 {
	return math.Sqrt(-m.CVScore)
}

// TrainResult is everything the trainer learned.
type TrainResult struct {
	Baselines   []Baseline
	Randomized  *model_selection.SearchResult
	Grid        *model_selection.SearchResult
	Final       FinalModel
	Importances []FeatureImportance // descending
}

// Trainer fits the baselines, runs the randomized and grid searches of a
// random forest and selects the final model.
type Trainer struct {
	cfg    config.SearchConfig
	logger log.Logger
}

// NewTrainer creates a trainer from the search settings.
func NewTrainer(cfg config.SearchConfig) *Trainer {
	return &Trainer{
		cfg:    cfg,
		logger: log.GetLoggerWithName("pipeline").With(log.StageKey, "train"),
	}
}

func (t *Trainer) kfold() *model_selection.KFold {
	return model_selection.NewKFold(t.cfg.CVFolds, false, 0)
}

func (t *Trainer) forestFactory() model.Factory {
	return ensemble.NewFromParams(
		ensemble.WithRandomState(t.cfg.ForestSeed),
		ensemble.WithNJobs(t.cfg.NJobs),
	)
}

// Train runs the whole model selection on a prepared feature matrix. names
// label the columns of X for the importance ranking.
func (t *Trainer) Train(ctx context.Context, X, y mat.Matrix, names []string) (_ *TrainResult, err error) {
	defer herrors.Recover(&err, "Trainer.Train")

	_, c := X.Dims()
	if len(names) != c {
		return nil, herrors.NewDimensionError("Trainer.Train", c, len(names), 1)
	}

	res := &TrainResult{}
	baselines := []struct {
		name    string
		factory model.Factory
		params  model.Params
	}{
		{"LinearRegression", linear.NewFromParams, model.Params{}},
		{"DecisionTreeRegressor", tree.NewFromParams, model.Params{"random_state": int(t.cfg.TreeSeed)}},
	}
	for _, b := range baselines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bl, err := t.baseline(b.name, b.factory, b.params, X, y)
		if err != nil {
			return nil, err
		}
		res.Baselines = append(res.Baselines, bl)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs := model_selection.NewRandomizedSearchCV(
		t.forestFactory(),
		t.cfg.ParamDistributions(),
		t.cfg.Randomized.NIter,
		t.cfg.Randomized.Seed,
	)
	rs.CV = t.kfold()
	rs.NJobs = t.cfg.NJobs
	if res.Randomized, err = rs.Fit(X, y); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gs := model_selection.NewGridSearchCV(t.forestFactory(), t.cfg.ParamGrid())
	gs.CV = t.kfold()
	gs.NJobs = t.cfg.NJobs
	if res.Grid, err = gs.Fit(X, y); err != nil {
		return nil, err
	}

	res.Final = SelectFinal(res.Randomized, res.Grid)
	t.logger.Info("Final model selected",
		"source", res.Final.Source,
		log.HyperParamsKey, res.Final.Params,
		log.CVScoreKey, res.Final.CVScore,
		log.RMSEKey, res.Final.CVRMSE(),
	)

	if res.Importances, err = RankImportances(res.Final.Estimator, names); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Trainer) baseline(name string, factory model.Factory, params model.Params, X, y mat.Matrix) (Baseline, error) {
	start := time.Now()
	logger := t.logger.With(log.ModelNameKey, name)

	est, err := factory(params)
	if err != nil {
		return Baseline{}, err
	}
	if err := est.Fit(X, y); err != nil {
		return Baseline{}, herrors.NewModelError("Trainer.baseline", name, err)
	}
	pred, err := est.Predict(X)
	if err != nil {
		return Baseline{}, err
	}
	trainRMSE, err := rmse(y, pred)
	if err != nil {
		return Baseline{}, err
	}

	scores, err := model_selection.CrossValScore(factory, params, X, y, &model_selection.CrossValOptions{
		CV:      t.kfold(),
		Scoring: model_selection.NegMeanSquaredError,
		NJobs:   t.cfg.NJobs,
	})
	if err != nil {
		return Baseline{}, err
	}
	folds := make([]float64, len(scores.Test))
	for i, s := range scores.Test {
		folds[i] = math.Sqrt(-s)
	}
	mean, std := stat.PopMeanStdDev(folds, nil)

	logger.Info("Baseline evaluated",
		log.RMSEKey, trainRMSE,
		log.CVScoreKey, mean,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return Baseline{
		Name:       name,
		TrainRMSE:  trainRMSE,
		CVRMSE:     folds,
		CVRMSEMean: mean,
		CVRMSEStd:  std,
	}, nil
}

// SelectFinal picks the better of the two search winners. Candidates are
// ordered randomized first, so on a tie the randomized winner is kept.
func SelectFinal(randomized, grid *model_selection.SearchResult) FinalModel {
	best := FinalModel{
		Source:    SourceRandomized,
		Params:    randomized.BestParams,
		CVScore:   randomized.BestScore,
		Estimator: randomized.BestEstimator,
	}
	if grid.BestScore > best.CVScore {
		best = FinalModel{
			Source:    SourceGrid,
			Params:    grid.BestParams,
			CVScore:   grid.BestScore,
			Estimator: grid.BestEstimator,
		}
	}
	return best
}

// RankImportances pairs the estimator's feature importances with names and
// sorts them by descending importance. Ties keep column order. Estimators
// without importances yield nil.
func RankImportances(est model.Regressor, names []string) ([]FeatureImportance, error) {
	fi, ok := est.(model.FeatureImporter)
	if !ok {
		return nil, nil
	}
	values, err := fi.FeatureImportances()
	if err != nil {
		return nil, err
	}
	if len(values) != len(names) {
		return nil, herrors.NewDimensionError("RankImportances", len(names), len(values), 1)
	}

	out := make([]FeatureImportance, len(values))
	for i, v := range values {
		out[i] = FeatureImportance{Feature: names[i], Importance: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

func rmse(y, pred mat.Matrix) (float64, error) {
	yt, err := metrics.Column("rmse", y)
	if err != nil {
		return 0, err
	}
	yp, err := metrics.Column("rmse", pred)
	if err != nil {
		return 0, err
	}
	return metrics.RMSE(yt, yp)
}
