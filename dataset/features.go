package dataset

import (
	"math"
)

// RatioSpec names an engineered feature Numerator / Denominator.
type RatioSpec struct {
	Name        string
	Numerator   string
	Denominator string
}

// RatioFeatures are the three engineered housing ratios.
var RatioFeatures = []RatioSpec{
	{RoomsPerHousehold, TotalRooms, Households},
	{BedroomsPerRoom, TotalBedrooms, TotalRooms},
	{PopulationPerHousehold, Population, Households},
}

// Ratio divides num by den. A zero denominator yields NaN instead of ±Inf,
// and a missing operand propagates as NaN.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// RatioColumn computes spec over frame without modifying it.
func RatioColumn(frame *Frame, spec RatioSpec) ([]float64, error) {
	num, err := frame.Numeric(spec.Numerator)
	if err != nil {
		return nil, err
	}
	den, err := frame.Numeric(spec.Denominator)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(num))
	for i := range num {
		out[i] = Ratio(num[i], den[i])
	}
	return out, nil
}

// AddRatioFeatures returns a copy of frame with the given ratio columns
// appended. frame itself is not modified.
func AddRatioFeatures(frame *Frame, specs []RatioSpec) (*Frame, error) {
	out := frame.Clone()
	for _, spec := range specs {
		col, err := RatioColumn(frame, spec)
		if err != nil {
			return nil, err
		}
		if err := out.SetNumeric(spec.Name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}
