package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is implemented by anything that learns from a feature matrix and a
// target column.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces an (n_samples × 1) prediction column.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the contract cross-validation and the search procedures
// program against.
type Regressor interface {
	Fitter
	Predictor
}

// Factory builds a fresh, unfitted regressor from a hyperparameter
// combination. Cross-validation calls it once per fold.
type Factory func(params Params) (Regressor, error)

// FeatureImporter is implemented by tree-based regressors.
type FeatureImporter interface {
	FeatureImportances() ([]float64, error)
}

// Params is a hyperparameter combination, e.g. {"n_estimators": 30, "max_features": 6}.
// Values are int, float64, bool or string.
type Params map[string]interface{}

// Int returns the int value of key, or def when the key is absent.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Bool returns the bool value of key, or def when the key is absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
