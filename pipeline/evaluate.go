package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/dataset"
	"github.com/ezoic/housing/metrics"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// DefaultConfidence is the level of the RMSE confidence interval.
const DefaultConfidence = 0.95

// Evaluation holds the held-out test metrics of the final model.
type Evaluation struct {
	NSamples   int
	RMSE       float64
	MAE        float64
	R2         float64
	Confidence float64
	RMSELower  float64
	RMSEUpper  float64
}

// Evaluate predicts X with est and scores the predictions against y.
func Evaluate(est model.Predictor, X, y mat.Matrix, confidence float64) (_ *Evaluation, err error) {
	defer herrors.Recover(&err, "Evaluate")

	if est == nil {
		return nil, herrors.NewValueError("Evaluate", "no estimator to evaluate")
	}
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	yt, err := metrics.Column("Evaluate", y)
	if err != nil {
		return nil, err
	}
	yp, err := metrics.Column("Evaluate", pred)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{NSamples: yt.Len(), Confidence: confidence}
	if ev.RMSE, err = metrics.RMSE(yt, yp); err != nil {
		return nil, err
	}
	if ev.MAE, err = metrics.MAE(yt, yp); err != nil {
		return nil, err
	}
	if ev.R2, err = metrics.R2Score(yt, yp); err != nil {
		return nil, err
	}
	if ev.RMSELower, ev.RMSEUpper, err = metrics.RMSEConfidenceInterval(yt, yp, confidence); err != nil {
		return nil, err
	}
	return ev, nil
}

// Target extracts median_house_value as an (n × 1) column. Missing labels
// are rejected since no model can be scored against them.
func Target(frame *dataset.Frame) (*mat.Dense, error) {
	values, err := frame.Numeric(dataset.MedianHouseValue)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, herrors.NewModelError("Target", "target", herrors.ErrEmptyData)
	}
	ys := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, herrors.NewDomainError("Target", dataset.MedianHouseValue, i, v, "label is missing")
		}
		ys[i] = v
	}
	return mat.NewDense(len(ys), 1, ys), nil
}
