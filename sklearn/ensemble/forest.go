// Package ensemble implements the random forest regressor tuned by the
// hyperparameter searches of the housing pipeline.
package ensemble

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/core/parallel"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
	"github.com/ezoic/housing/sklearn/tree"
)

// RandomForestRegressor averages NEstimators regression trees, each grown on
// a bootstrap sample (when Bootstrap is set) and examining MaxFeatures random
// features per split.
//
// Tree i is seeded with RandomState+i, so a fitted forest does not depend on
// how trees are scheduled across goroutines.
type RandomForestRegressor struct {
	NEstimators    int
	MaxFeatures    int // 0 = all features
	MaxDepth       int // 0 = unlimited
	MinSamplesLeaf int
	Bootstrap      bool
	RandomState    int64
	NJobs          int // <= 0 uses every CPU

	state      *model.StateManager
	trees      []*tree.DecisionTreeRegressor
	nFeatures_ int
	logger     log.Logger
}

// Option is a functional option
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithMaxFeatures sets the number of features examined per split
func WithMaxFeatures(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = n }
}

// WithMaxDepth sets the maximum depth of every tree
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}

// WithRandomState sets the base random seed
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs bounds the number of trees built concurrently
func WithNJobs(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NJobs = n }
}

// NewRandomForestRegressor creates a forest of 100 bootstrapped trees over all
// features, seeded with 42.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		Bootstrap:      true,
		RandomState:    42,
		state:          model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(rf)
	}
	rf.logger = log.GetLoggerWithName("ensemble").With(
		log.ModelNameKey, "RandomForestRegressor",
	)
	return rf
}

// Fit grows the trees concurrently.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer herrors.Recover(&err, "RandomForestRegressor.Fit")

	start := time.Now()
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if rf.NEstimators < 1 {
		return herrors.NewConfigurationError("n_estimators", "must be at least 1", rf.NEstimators)
	}
	if nSamples == 0 || nFeatures == 0 {
		return herrors.NewModelError("RandomForestRegressor.Fit", "empty data", herrors.ErrEmptyData)
	}
	if yRows != nSamples {
		return herrors.NewDimensionError("RandomForestRegressor.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return herrors.NewValueError("RandomForestRegressor.Fit", "y must be a column vector")
	}
	if rf.MaxFeatures < 0 || rf.MaxFeatures > nFeatures {
		return herrors.NewConfigurationError("max_features", "must be in [0, n_features]", rf.MaxFeatures)
	}

	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"n_estimators", rf.NEstimators,
		"max_features", rf.MaxFeatures,
		"bootstrap", rf.Bootstrap,
	)

	cols, err := tree.NewColumns(X)
	if err != nil {
		return err
	}
	target := make([]float64, nSamples)
	for i := range target {
		target[i] = y.At(i, 0)
	}

	rf.state.Reset()
	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = parallel.ForEach(rf.NEstimators, rf.NJobs, func(i int) error {
		seed := rf.RandomState + int64(i)
		indices := make([]int, nSamples)
		if rf.Bootstrap {
			r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
			for k := range indices {
				indices[k] = r.IntN(nSamples)
			}
		} else {
			for k := range indices {
				indices[k] = k
			}
		}

		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxFeatures(rf.MaxFeatures),
			tree.WithMaxDepth(rf.MaxDepth),
			tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
			tree.WithRandomState(seed),
		)
		if err := t.FitSubset(cols, target, indices); err != nil {
			return herrors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	rf.trees = trees
	rf.nFeatures_ = nFeatures
	rf.state.MarkFitted(nFeatures, nSamples)

	rf.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"n_estimators", rf.NEstimators,
	)
	return nil
}

// Predict averages the predictions of all trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "RandomForestRegressor.Predict")
	nSamples, nFeatures := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestRegressor", "Predict", nFeatures); err != nil {
		return nil, err
	}

	perTree := make([]mat.Matrix, len(rf.trees))
	err = parallel.ForEach(len(rf.trees), rf.NJobs, func(i int) error {
		p, err := rf.trees[i].Predict(X)
		perTree[i] = p
		return err
	})
	if err != nil {
		return nil, err
	}

	// summed in tree order so the result is independent of scheduling
	out := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		var sum float64
		for _, p := range perTree {
			sum += p.At(i, 0)
		}
		out.Set(i, 0, sum/float64(len(perTree)))
	}
	return out, nil
}

// FeatureImportances averages the normalized importances of the trees and
// renormalizes the result to sum to one.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted("RandomForestRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}

	out := make([]float64, rf.nFeatures_)
	for _, t := range rf.trees {
		imp, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		for j, v := range imp {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out, nil
}

// Estimators returns the fitted trees.
func (rf *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return rf.trees
}

// IsFitted returns whether the model has been fitted.
func (rf *RandomForestRegressor) IsFitted() bool {
	return rf.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (rf *RandomForestRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":     rf.NEstimators,
		"max_features":     rf.MaxFeatures,
		"max_depth":        rf.MaxDepth,
		"min_samples_leaf": rf.MinSamplesLeaf,
		"bootstrap":        rf.Bootstrap,
		"random_state":     rf.RandomState,
	}
}

// NewFromParams is a model.Factory for RandomForestRegressor. Parameters not
// present keep their defaults; base are applied first, so a search can fix
// the seed while varying n_estimators and max_features.
func NewFromParams(base ...Option) model.Factory {
	return func(params model.Params) (model.Regressor, error) {
		opts := append([]Option{}, base...)
		for key, value := range params {
			switch key {
			case "n_estimators":
				opts = append(opts, WithNEstimators(params.Int(key, 100)))
			case "max_features":
				opts = append(opts, WithMaxFeatures(params.Int(key, 0)))
			case "max_depth":
				opts = append(opts, WithMaxDepth(params.Int(key, 0)))
			case "min_samples_leaf":
				opts = append(opts, WithMinSamplesLeaf(params.Int(key, 1)))
			case "bootstrap":
				b, ok := value.(bool)
				if !ok {
					return nil, herrors.NewConfigurationError(key, "must be a bool", value)
				}
				opts = append(opts, WithBootstrap(b))
			case "random_state":
				opts = append(opts, WithRandomState(int64(params.Int(key, 42))))
			default:
				return nil, herrors.NewConfigurationError(key, "unknown RandomForestRegressor parameter", value)
			}
		}
		return NewRandomForestRegressor(opts...), nil
	}
}
