// Package model_selection provides the splitters, cross-validation and
// hyperparameter search used to choose the final housing model.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func checkTestSize(testSize float64) error {
	if !(testSize > 0 && testSize < 1) {
		return herrors.NewConfigurationError("test_size", "must be in the open interval (0, 1)", testSize)
	}
	return nil
}

// StratifiedShuffleSplit draws a single train/test split that preserves the
// proportion of every label in the test partition.
//
// Labels are visited in ascending order. For each label the member indices
// (in input order) are shuffled with one seeded source shared across labels,
// and the first round-half-to-even(TestSize × count) go to test. Both
// partitions are then shuffled with the same source, so neither is grouped by
// label. Identical seed, labels and order give identical partitions.
type StratifiedShuffleSplit struct {
	TestSize    float64
	RandomState int64
}

// NewStratifiedShuffleSplit creates a stratified splitter.
func NewStratifiedShuffleSplit(testSize float64, randomState int64) *StratifiedShuffleSplit {
	return &StratifiedShuffleSplit{TestSize: testSize, RandomState: randomState}
}

// Split partitions the indices of labels into train and test.
func (s *StratifiedShuffleSplit) Split(labels []int) (train, test []int, err error) {
	if err := checkTestSize(s.TestSize); err != nil {
		return nil, nil, err
	}
	if len(labels) == 0 {
		return nil, nil, herrors.NewModelError("StratifiedShuffleSplit.Split", "empty data", herrors.ErrEmptyData)
	}

	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rng := newRand(s.RandomState)
	train = make([]int, 0, len(labels))
	test = make([]int, 0, int(float64(len(labels))*s.TestSize)+len(keys))
	for _, k := range keys {
		members := groups[k]
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		nTest := StratumTestCount(len(members), s.TestSize)
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// StratumTestCount is the number of members of a stratum of size count that
// go to test: round-half-to-even(testSize × count). A stratum of one goes to
// train for any testSize ≤ 0.5.
func StratumTestCount(count int, testSize float64) int {
	n := int(math.RoundToEven(testSize * float64(count)))
	if n > count {
		n = count
	}
	return n
}

// ShuffleSplit draws a single unstratified random train/test split. The test
// partition holds round-half-to-even(TestSize × n) indices.
type ShuffleSplit struct {
	TestSize    float64
	RandomState int64
}

// Split partitions [0, n) into train and test.
func (s *ShuffleSplit) Split(n int) (train, test []int, err error) {
	if err := checkTestSize(s.TestSize); err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, herrors.NewModelError("ShuffleSplit.Split", "empty data", herrors.ErrEmptyData)
	}

	perm := newRand(s.RandomState).Perm(n)
	nTest := StratumTestCount(n, s.TestSize)
	return perm[nTest:], perm[:nTest], nil
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits     int
	Shuffle     bool
	RandomState int64
}

// NewKFold creates a new k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomState int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomState: randomState}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold over n samples. The first
// n % NSplits folds hold one extra test sample.
func (kf *KFold) Split(n int) ([]CVFold, error) {
	if kf.NSplits < 2 {
		return nil, herrors.NewConfigurationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, herrors.NewConfigurationError("n_splits", "cannot exceed the number of samples", kf.NSplits)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomState)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		end := current + testSize

		testIndices := make([]int, testSize)
		copy(testIndices, indices[current:end])

		trainIndices := make([]int, 0, n-testSize)
		trainIndices = append(trainIndices, indices[:current]...)
		trainIndices = append(trainIndices, indices[end:]...)

		folds[i] = CVFold{TrainIndices: trainIndices, TestIndices: testIndices}
		current = end
	}
	return folds, nil
}
