package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/metrics"
)

// Scorer scores predictions against the truth. Higher is better.
type Scorer func(yTrue, yPred mat.Matrix) (float64, error)

// NegMeanSquaredError is -MSE, so that higher is better.
func NegMeanSquaredError(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := metrics.MSEMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return -mse, nil
}

// TakeRows copies the rows idx of m, in that order, into a new matrix.
func TakeRows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	if len(idx) == 0 || c == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	if d, ok := m.(mat.RawRowViewer); ok {
		for i, row := range idx {
			copy(out.RawRowView(i), d.RawRowView(row))
		}
		return out
	}
	for i, row := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(row, j))
		}
	}
	return out
}
