package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// OceanLevels are the ocean_proximity levels produced by GenerateSynthetic,
// in the order of OceanWeights.
var OceanLevels = []string{"<1H OCEAN", "INLAND", "NEAR OCEAN", "NEAR BAY", "ISLAND"}

// OceanWeights are the sampling weights of OceanLevels.
var OceanWeights = []float64{0.443, 0.317, 0.129, 0.1108, 0.0002}

var oceanPremium = map[string]float64{
	"<1H OCEAN":  0,
	"INLAND":     -60000,
	"NEAR OCEAN": 25000,
	"NEAR BAY":   30000,
	"ISLAND":     150000,
}

// Synthetic target bounds, matching the capped values of the census data.
const (
	SyntheticValueMin = 14999.0
	SyntheticValueMax = 500001.0

	// SyntheticNoiseSigma is the standard deviation of the noise added to
	// the target.
	SyntheticNoiseSigma = 30000.0
)

// SyntheticTarget is the noise-free median_house_value of a synthetic row.
func SyntheticTarget(income, age, populationPerHousehold float64, ocean string) float64 {
	return 40000*income + 1500*age + oceanPremium[ocean] - 8000*(populationPerHousehold-2.9)
}

// GenerateSynthetic builds a deterministic housing-shaped frame of n rows
// laid out as HousingSchema. About 1% of total_bedrooms cells are missing.
// The target follows SyntheticTarget plus Gaussian noise, clipped to
// [SyntheticValueMin, SyntheticValueMax].
func GenerateSynthetic(n int, seed int64) (*Frame, error) {
	if n <= 0 {
		return nil, herrors.NewConfigurationError("rows", "must be positive", n)
	}
	src := rand.NewPCG(uint64(seed), uint64(seed))

	lon := distuv.Uniform{Min: -124.3, Max: -114.3, Src: src}
	lat := distuv.Uniform{Min: 32.5, Max: 42.0, Src: src}
	age := distuv.Uniform{Min: 1, Max: 53, Src: src}
	income := distuv.LogNormal{Mu: 1.25, Sigma: 0.45, Src: src}
	households := distuv.LogNormal{Mu: 6.0, Sigma: 0.6, Src: src}
	rph := distuv.Normal{Mu: 5.3, Sigma: 1.0, Src: src}
	bpr := distuv.Normal{Mu: 0.21, Sigma: 0.04, Src: src}
	pph := distuv.Normal{Mu: 2.9, Sigma: 0.6, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: SyntheticNoiseSigma, Src: src}
	missing := distuv.Bernoulli{P: 0.01, Src: src}
	ocean := distuv.NewCategorical(OceanWeights, src)

	cols := make(map[string][]float64, len(HousingSchema))
	for _, c := range HousingSchema {
		if c.Kind == Numeric {
			cols[c.Name] = make([]float64, n)
		}
	}
	oceanCol := make([]string, n)

	for i := 0; i < n; i++ {
		inc := clamp(income.Rand(), 0.4999, 15.0001)
		hh := math.Max(1, math.Round(households.Rand()))
		roomsPerHH := math.Max(1, rph.Rand())
		bedsPerRoom := clamp(bpr.Rand(), 0.1, 0.5)
		popPerHH := math.Max(1, pph.Rand())
		a := math.Floor(age.Rand())
		level := OceanLevels[int(ocean.Rand())]

		rooms := math.Max(1, math.Round(hh*roomsPerHH))
		beds := math.Round(rooms * bedsPerRoom)
		if missing.Rand() == 1 {
			beds = math.NaN()
		}
		pop := math.Round(hh * popPerHH)

		cols[Longitude][i] = math.Round(lon.Rand()*100) / 100
		cols[Latitude][i] = math.Round(lat.Rand()*100) / 100
		cols[HousingMedianAge][i] = a
		cols[TotalRooms][i] = rooms
		cols[TotalBedrooms][i] = beds
		cols[Population][i] = pop
		cols[Households][i] = hh
		cols[MedianIncome][i] = math.Round(inc*10000) / 10000
		value := SyntheticTarget(inc, a, pop/hh, level) + noise.Rand()
		cols[MedianHouseValue][i] = math.Round(clamp(value, SyntheticValueMin, SyntheticValueMax))
		oceanCol[i] = level
	}

	frame := NewFrame(n)
	for _, c := range HousingSchema {
		var err error
		if c.Kind == Numeric {
			err = frame.SetNumeric(c.Name, cols[c.Name])
		} else {
			err = frame.SetCategorical(c.Name, oceanCol)
		}
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
