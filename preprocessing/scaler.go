// Package preprocessing turns a housing Frame into a numeric feature matrix.
//
// The package provides the building blocks and their composition:
//
//   - SimpleImputer: replaces NaN cells with a per-column median or mean
//   - OneHotEncoder: encodes categorical levels as 0/1 columns
//   - StandardScaler: optional centering and unit-variance scaling
//   - Preprocessor: the composed transform fitted on the training frame
//
// Fitting a Preprocessor yields a FittedPreprocessor, an explicit value that
// holds every learned statistic and can be saved and reloaded. Statistics are
// never recomputed at transform time.
//
// Example usage:
//
//	fitted, err := preprocessing.NewHousingPreprocessor().Fit(train)
//	if err != nil {
//		log.Fatal(err)
//	}
//	X, names, err := fitted.Transform(test)
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// StandardScaler はデータを平均0、標準偏差1に変換する
//
// 前処理の最終段として数値列（補完済みの入力列と比率列）にだけ適用される。
type StandardScaler struct {
	State *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（母標準偏差）。分散0の列は1
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewStandardScaler creates an unfitted scaler.
//
//	scaler := preprocessing.NewStandardScaler()
//	err := scaler.Fit(XTrain)
//	XScaled, err := scaler.Transform(XTest)
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{State: model.NewStateManager()}
}

// NewStandardScalerFromStats rebuilds a fitted scaler from persisted statistics.
func NewStandardScalerFromStats(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, herrors.NewDimensionError("StandardScaler", len(mean), len(scale), 1)
	}
	for j, v := range scale {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, herrors.NewValueError("StandardScaler",
				fmt.Sprintf("scale of feature %d must be positive and finite, got %v", j, v))
		}
	}
	s := NewStandardScaler()
	s.Mean = append([]float64(nil), mean...)
	s.Scale = append([]float64(nil), scale...)
	s.NFeatures = len(mean)
	s.State.SetFitted()
	return s, nil
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool {
	return s.State != nil && s.State.IsFitted()
}

// Fit computes the per-column mean and population standard deviation of X.
//
// Columns with a standard deviation below 1e-8 get a scale of 1 so constant
// features come out as zeros after centering.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer herrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return herrors.NewModelError("StandardScaler.Fit", "empty data", herrors.ErrEmptyData)
	}
	if err := herrors.CheckMatrix("StandardScaler.Fit", X, r, c); err != nil {
		return err
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		s.Mean[j] = stat.Mean(col, nil)
		s.Scale[j] = 1.0
		if std := math.Sqrt(stat.MomentAbout(2, col, s.Mean[j], nil)); std >= 1e-8 {
			s.Scale[j] = std
		}
	}

	s.State.SetDimensions(c, r)
	s.State.SetFitted()
	return nil
}

// Transform applies (X - mean) / scale with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, herrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, herrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform fits the scaler and transforms the same data.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "StandardScaler.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
