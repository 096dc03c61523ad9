// Package metrics provides the regression metrics the housing pipeline reports:
// MSE, RMSE, MAE, R² and a Student-t confidence interval for RMSE.
//
// Inputs are gonum vectors; MSEMatrix accepts the (n × 1) prediction matrices
// returned by the estimators' Predict methods.
//
//	rmse, err := metrics.RMSE(yTrue, yPred)
//	lo, hi, err := metrics.RMSEConfidenceInterval(yTrue, yPred, 0.95)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	herrors "github.com/ezoic/housing/pkg/errors"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, herrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, herrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE calculates the Mean Squared Error (1/n) Σ (yTrue - yPred)².
//
// Errors:
//   - ValueError: if input vectors are empty
//   - DimensionError: if yTrue and yPred have different lengths
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix calculates MSE for (n × 1) matrix inputs.
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := Column("MSEMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := Column("MSEMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return MSE(t, p)
}

// Column copies an (n × 1) matrix into a vector.
func Column(op string, m mat.Matrix) (*mat.VecDense, error) {
	if v, ok := m.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, herrors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, herrors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

// RMSE is the square root of MSE, in the units of the target.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE calculates the Mean Absolute Error (1/n) Σ |yTrue - yPred|.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score calculates the coefficient of determination 1 - RSS/TSS.
//
// When yTrue is constant the score is ill-defined: an UndefinedMetricWarning
// is emitted and 0 is returned.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		d := yTrue.AtVec(i) - yMean
		e := yTrue.AtVec(i) - yPred.AtVec(i)
		tss += d * d
		rss += e * e
	}

	if tss == 0 {
		herrors.Warn(herrors.NewUndefinedMetricWarning("R2Score", "no variance in yTrue", 0))
		return 0, nil
	}
	return 1 - rss/tss, nil
}

// RMSEConfidenceInterval returns a confidence interval for RMSE at the given
// level (e.g. 0.95). The interval is computed on the mean of the squared
// errors with a Student-t distribution of n-1 degrees of freedom and then
// square-rooted; a negative lower bound on the mean is clamped to zero.
func RMSEConfidenceInterval(yTrue, yPred *mat.VecDense, confidence float64) (lower, upper float64, err error) {
	n, err := checkPair("RMSEConfidenceInterval", yTrue, yPred)
	if err != nil {
		return 0, 0, err
	}
	if n < 2 {
		return 0, 0, herrors.NewValueError("RMSEConfidenceInterval", "at least two samples are required")
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, 0, herrors.NewConfigurationError("confidence", "must be in (0, 1)", confidence)
	}

	squared := make([]float64, n)
	for i := range squared {
		d := yTrue.AtVec(i) - yPred.AtVec(i)
		squared[i] = d * d
	}
	mean, std := stat.MeanStdDev(squared, nil)
	sem := std / math.Sqrt(float64(n))

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	margin := t.Quantile(0.5+confidence/2) * sem

	return math.Sqrt(math.Max(mean-margin, 0)), math.Sqrt(mean + margin), nil
}
