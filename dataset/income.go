package dataset

import (
	"math"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// IncomeBinEdges are the bin edges for the income category: bin k covers
// (IncomeBinEdges[k-1], IncomeBinEdges[k]].
var IncomeBinEdges = []float64{0.0, 1.5, 3.0, 4.5, 6.0, math.Inf(1)}

// NumIncomeCategories is the number of income bins.
const NumIncomeCategories = 5

// IncomeCategory maps a median income to its ordinal bin in [1, 5]. An
// income of exactly 0 falls in bin 1. NaN or negative incomes are outside
// the domain.
func IncomeCategory(income float64) (int, error) {
	if math.IsNaN(income) {
		return 0, herrors.NewDomainError("IncomeCategory", MedianIncome, -1, income, "income is missing")
	}
	if income < 0 {
		return 0, herrors.NewDomainError("IncomeCategory", MedianIncome, -1, income, "income is negative")
	}
	for k := 1; k < len(IncomeBinEdges); k++ {
		if income <= IncomeBinEdges[k] {
			return k, nil
		}
	}
	// +Inf
	return NumIncomeCategories, nil
}

// AddIncomeCategory derives the income_cat column from median_income and
// adds it to frame.
func AddIncomeCategory(frame *Frame) error {
	if !frame.Has(MedianIncome) {
		return herrors.NewDomainError("AddIncomeCategory", MedianIncome, -1, math.NaN(), "source column is absent")
	}
	income, err := frame.Numeric(MedianIncome)
	if err != nil {
		return err
	}
	cats := make([]float64, len(income))
	for i, v := range income {
		c, err := IncomeCategory(v)
		if err != nil {
			var de *herrors.DomainError
			if herrors.As(err, &de) {
				de.Op = "AddIncomeCategory"
				de.Row = i
			}
			return err
		}
		cats[i] = float64(c)
	}
	return frame.SetNumeric(IncomeCat, cats)
}

// IncomeLabels returns the income_cat column as integer labels.
func IncomeLabels(frame *Frame) ([]int, error) {
	if !frame.Has(IncomeCat) {
		return nil, herrors.NewConfigurationError(IncomeCat, "stratification column is absent; call AddIncomeCategory first", nil)
	}
	col, err := frame.Numeric(IncomeCat)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(col))
	for i, v := range col {
		labels[i] = int(v)
	}
	return labels, nil
}
