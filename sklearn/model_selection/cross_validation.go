package model_selection

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/core/parallel"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// CVScores holds per-fold scores of one hyperparameter combination.
type CVScores struct {
	Test  []float64
	Train []float64 // nil unless train scores were requested
}

// CrossValOptions configures CrossValScore.
type CrossValOptions struct {
	CV               *KFold
	Scoring          Scorer
	ReturnTrainScore bool
	// NJobs bounds the number of folds evaluated concurrently; <= 0 uses
	// every CPU. Results do not depend on it.
	NJobs int
}

func (o *CrossValOptions) withDefaults() CrossValOptions {
	out := CrossValOptions{}
	if o != nil {
		out = *o
	}
	if out.CV == nil {
		out.CV = NewKFold(5, false, 0)
	}
	if out.Scoring == nil {
		out.Scoring = NegMeanSquaredError
	}
	return out
}

// CrossValScore fits a fresh regressor from factory on each training fold and
// scores it on the held-out fold.
func CrossValScore(factory model.Factory, params model.Params, X, y mat.Matrix, opts *CrossValOptions) (_ CVScores, err error) {
	defer herrors.Recover(&err, "CrossValScore")

	o := opts.withDefaults()
	n, _ := X.Dims()
	ny, _ := y.Dims()
	if ny != n {
		return CVScores{}, herrors.NewDimensionError("CrossValScore", n, ny, 0)
	}

	folds, err := o.CV.Split(n)
	if err != nil {
		return CVScores{}, err
	}

	logger := log.GetLoggerWithName("model_selection")
	start := time.Now()

	scores := CVScores{Test: make([]float64, len(folds))}
	if o.ReturnTrainScore {
		scores.Train = make([]float64, len(folds))
	}

	err = parallel.ForEach(len(folds), o.NJobs, func(i int) error {
		fold := folds[i]
		Xtr, ytr := TakeRows(X, fold.TrainIndices), TakeRows(y, fold.TrainIndices)
		Xte, yte := TakeRows(X, fold.TestIndices), TakeRows(y, fold.TestIndices)

		est, err := factory(params)
		if err != nil {
			return err
		}
		if err := est.Fit(Xtr, ytr); err != nil {
			return herrors.Wrapf(err, "fold %d", i)
		}

		pred, err := est.Predict(Xte)
		if err != nil {
			return err
		}
		if scores.Test[i], err = o.Scoring(yte, pred); err != nil {
			return err
		}

		if o.ReturnTrainScore {
			trPred, err := est.Predict(Xtr)
			if err != nil {
				return err
			}
			if scores.Train[i], err = o.Scoring(ytr, trPred); err != nil {
				return err
			}
		}

		logger.Debug("Fold scored",
			log.FoldKey, i,
			log.CVScoreKey, scores.Test[i],
			log.HyperParamsKey, params,
		)
		return nil
	})
	if err != nil {
		return CVScores{}, err
	}

	logger.Debug("Cross-validation completed",
		log.HyperParamsKey, params,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return scores, nil
}
