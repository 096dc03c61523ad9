package model_selection

import (
	"math/rand/v2"
	"sort"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// ParameterGrid is a list of grids. Each grid maps a hyperparameter name to
// the values to try:
//
//	ParameterGrid{
//	    {"n_estimators": {3, 10, 30}, "max_features": {2, 4, 6, 8}},
//	    {"bootstrap": {false}, "n_estimators": {3, 10}, "max_features": {2, 3, 4}},
//	}
type ParameterGrid []map[string][]interface{}

// Expand returns every combination, grid by grid. Within a grid keys are
// sorted and the last key varies fastest.
func (g ParameterGrid) Expand() ([]model.Params, error) {
	var out []model.Params
	for gi, grid := range g {
		keys := make([]string, 0, len(grid))
		for k, vs := range grid {
			if len(vs) == 0 {
				return nil, herrors.NewConfigurationError(k, "parameter grid values must be non-empty", gi)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if len(keys) == 0 {
			out = append(out, model.Params{})
			continue
		}

		counters := make([]int, len(keys))
		for {
			p := make(model.Params, len(keys))
			for i, k := range keys {
				p[k] = grid[k][counters[i]]
			}
			out = append(out, p)

			i := len(keys) - 1
			for i >= 0 {
				counters[i]++
				if counters[i] < len(grid[keys[i]]) {
					break
				}
				counters[i] = 0
				i--
			}
			if i < 0 {
				break
			}
		}
	}
	return out, nil
}

// Len returns the number of combinations.
func (g ParameterGrid) Len() int {
	total := 0
	for _, grid := range g {
		n := 1
		for _, vs := range grid {
			n *= len(vs)
		}
		total += n
	}
	return total
}

// Distribution is a hyperparameter distribution for randomized search.
type Distribution interface {
	Sample(r *rand.Rand) interface{}
}

// RandInt is the discrete uniform distribution over [Low, High).
type RandInt struct {
	Low  int
	High int
}

// Sample draws one integer.
func (d RandInt) Sample(r *rand.Rand) interface{} {
	return d.Low + r.IntN(d.High-d.Low)
}

// Choice draws uniformly from a fixed list of values.
type Choice []interface{}

// Sample draws one value.
func (c Choice) Sample(r *rand.Rand) interface{} {
	return c[r.IntN(len(c))]
}

// ParameterSampler draws NIter combinations from Distributions. For each
// iteration keys are sampled in sorted order from one seeded source, so a
// seed fixes the whole sequence.
type ParameterSampler struct {
	Distributions map[string]Distribution
	NIter         int
	RandomState   int64
}

// Sample returns NIter combinations.
func (s ParameterSampler) Sample() ([]model.Params, error) {
	if s.NIter < 1 {
		return nil, herrors.NewConfigurationError("n_iter", "must be at least 1", s.NIter)
	}

	keys := make([]string, 0, len(s.Distributions))
	for k, d := range s.Distributions {
		if ri, ok := d.(RandInt); ok && ri.High <= ri.Low {
			return nil, herrors.NewConfigurationError(k, "randint requires low < high", [2]int{ri.Low, ri.High})
		}
		if c, ok := d.(Choice); ok && len(c) == 0 {
			return nil, herrors.NewConfigurationError(k, "choice requires at least one value", 0)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := newRand(s.RandomState)
	out := make([]model.Params, s.NIter)
	for i := range out {
		p := make(model.Params, len(keys))
		for _, k := range keys {
			p[k] = s.Distributions[k].Sample(r)
		}
		out[i] = p
	}
	return out, nil
}
