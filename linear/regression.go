// Package linear provides the ordinary least squares baseline of the housing
// pipeline.
//
//	lr := linear.NewLinearRegression()
//	if err := lr.Fit(X, y); err != nil {
//		return err
//	}
//	predictions, err := lr.Predict(XTest)
//
// The model is gob-encodable through core/model.SaveModel.
package linear

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/core/parallel"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// rcond is the relative singular-value cutoff below which directions of the
// centered design matrix are treated as rank-deficient.
const rcond = 1e-10

// LinearRegression is a linear regression model
type LinearRegression struct {
	State     *model.StateManager // Public for gob encoding
	Weights   *mat.VecDense       // Model weights (coefficients)
	Intercept float64
	NFeatures int
	Rank      int // effective rank of the centered design matrix
	logger    log.Logger
}

// NewLinearRegression creates an unfitted ordinary least squares model.
func NewLinearRegression() *LinearRegression {
	lr := &LinearRegression{
		State: model.NewStateManager(),
	}
	lr.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
		log.ComponentKey, "linear",
	)
	return lr
}

// Fit solves min ||Xw + b - y||² by SVD on the column-centered design matrix.
//
// Rank-deficient designs (a one-hot level absent from a fold, a constant
// column) do not fail: the minimum-norm solution is returned, matching a
// LAPACK lstsq fit.
//
// Errors:
//   - ModelError wrapping ErrEmptyData: if X or y are empty
//   - DimensionError: if the number of samples in X and y don't match
//   - ValueError: if y is not a column vector
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer herrors.Recover(&err, "LinearRegression.Fit")

	startTime := time.Now()
	r, c := X.Dims()
	ry, cy := y.Dims()

	lr.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	if r == 0 || c == 0 {
		return herrors.NewModelError("LinearRegression.Fit", "empty data", herrors.ErrEmptyData)
	}
	if ry != r {
		return herrors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return herrors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	xMean := make([]float64, c)
	var yMean float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xMean[j] += X.At(i, j)
		}
		yMean += y.At(i, 0)
	}
	for j := range xMean {
		xMean[j] /= float64(r)
	}
	yMean /= float64(r)

	const parallelThreshold = 1000

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return herrors.NewModelError("LinearRegression.Fit", "svd did not converge", herrors.ErrSingularMatrix)
	}
	rank := svd.Rank(rcond)

	weights := mat.NewVecDense(c, nil)
	if rank > 0 {
		svd.SolveVecTo(weights, yc, rank)
	}
	if err := herrors.CheckNumericalStability("LinearRegression.Fit", weights.RawVector().Data); err != nil {
		return err
	}

	intercept := yMean
	for j := 0; j < c; j++ {
		intercept -= xMean[j] * weights.AtVec(j)
	}

	lr.Weights = weights
	lr.Intercept = intercept
	lr.NFeatures = c
	lr.Rank = rank
	lr.State.MarkFitted(c, r)

	lr.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"rank", rank,
	)
	return nil
}

// Predict returns X·w + b as an (n_samples × 1) matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "LinearRegression.Predict")
	r, c := X.Dims()
	if err := lr.State.RequireFeatures("LinearRegression", "Predict", c); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}

	lr.logger.Debug("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, r,
	)
	return predictions, nil
}

// GetWeights returns the learned weights (coefficients)
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept returns the learned intercept
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.State.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score returns the coefficient of determination R² of the prediction.
func (lr *LinearRegression) Score(X, y mat.Matrix) (_ float64, err error) {
	defer herrors.Recover(&err, "LinearRegression.Score")
	if err := lr.State.RequireFitted("LinearRegression", "Score"); err != nil {
		return 0, err
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		d := y.At(i, 0) - yMean
		e := y.At(i, 0) - yPred.At(i, 0)
		tss += d * d
		rss += e * e
	}
	if tss == 0 {
		return 0, herrors.NewValueError("LinearRegression.Score", "total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// IsFitted returns whether the model has been fitted.
func (lr *LinearRegression) IsFitted() bool {
	return lr.State.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{}
}

// NewFromParams is a model.Factory for LinearRegression. It accepts no
// hyperparameters.
func NewFromParams(params model.Params) (model.Regressor, error) {
	for k, v := range params {
		return nil, herrors.NewConfigurationError(k, "LinearRegression has no hyperparameters", v)
	}
	return NewLinearRegression(), nil
}
