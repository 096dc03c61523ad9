package dataset

import (
	"sort"

	"github.com/ezoic/housing/sklearn/model_selection"
)

// Split is a train/test partition of a frame. The index slices refer to
// rows of the source frame.
type Split struct {
	Train      *Frame
	Test       *Frame
	TrainIndex []int
	TestIndex  []int
}

// StratifiedSplit partitions frame so that every income category keeps its
// proportion in the test partition. frame must carry income_cat; the
// column is dropped from both partitions.
func StratifiedSplit(frame *Frame, testSize float64, seed int64) (*Split, error) {
	labels, err := IncomeLabels(frame)
	if err != nil {
		return nil, err
	}
	train, test, err := model_selection.NewStratifiedShuffleSplit(testSize, seed).Split(labels)
	if err != nil {
		return nil, err
	}
	return takeSplit(frame.Drop(IncomeCat), train, test)
}

// RandomSplit partitions frame without stratification. Columns are kept
// as they are.
func RandomSplit(frame *Frame, testSize float64, seed int64) (*Split, error) {
	s := &model_selection.ShuffleSplit{TestSize: testSize, RandomState: seed}
	train, test, err := s.Split(frame.NRows())
	if err != nil {
		return nil, err
	}
	return takeSplit(frame, train, test)
}

func takeSplit(frame *Frame, train, test []int) (*Split, error) {
	trainFrame, err := frame.Take(train)
	if err != nil {
		return nil, err
	}
	testFrame, err := frame.Take(test)
	if err != nil {
		return nil, err
	}
	return &Split{Train: trainFrame, Test: testFrame, TrainIndex: train, TestIndex: test}, nil
}

// CategoryProportions returns the relative frequency of each label among
// the rows selected by index, or among all labels when index is nil.
func CategoryProportions(labels []int, index []int) map[int]float64 {
	counts := make(map[int]int)
	n := 0
	if index == nil {
		for _, l := range labels {
			counts[l]++
		}
		n = len(labels)
	} else {
		for _, i := range index {
			counts[labels[i]]++
		}
		n = len(index)
	}
	props := make(map[int]float64, len(counts))
	if n == 0 {
		return props
	}
	for l, c := range counts {
		props[l] = float64(c) / float64(n)
	}
	return props
}

// ProportionRow compares one category's share across partitions.
type ProportionRow struct {
	Category           int
	Overall            float64
	Stratified         float64
	Random             float64
	RandomErrorPct     float64
	StratifiedErrorPct float64
}

// CompareProportions reports, per category in ascending order, the overall
// share against the share in a stratified and a random test partition, with
// percentage errors 100*part/overall - 100.
func CompareProportions(labels, stratifiedTest, randomTest []int) []ProportionRow {
	overall := CategoryProportions(labels, nil)
	strat := CategoryProportions(labels, stratifiedTest)
	random := CategoryProportions(labels, randomTest)

	cats := make([]int, 0, len(overall))
	for c := range overall {
		cats = append(cats, c)
	}
	sort.Ints(cats)

	rows := make([]ProportionRow, len(cats))
	for k, c := range cats {
		o := overall[c]
		rows[k] = ProportionRow{
			Category:           c,
			Overall:            o,
			Stratified:         strat[c],
			Random:             random[c],
			RandomErrorPct:     100*random[c]/o - 100,
			StratifiedErrorPct: 100*strat[c]/o - 100,
		}
	}
	return rows
}
