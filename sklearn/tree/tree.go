// Package tree implements a CART regression tree with the mean-squared-error
// criterion, used on its own as a baseline and as the base learner of the
// random forest in sklearn/ensemble.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/core/parallel"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// nodes with a variance at or below this are not split further
const impurityEpsilon = 1e-12

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf    bool      // Whether this is a leaf node
	Feature   int       // Feature index for split (internal nodes)
	Threshold float64   // Threshold value for split (internal nodes)
	Left      *TreeNode // Left child (values <= threshold)
	Right     *TreeNode // Right child (values > threshold)
	Value     float64   // Mean target of the samples reaching the node
	Impurity  float64   // Node variance
	NSamples  int       // Number of samples at this node
	Depth     int       // Depth of this node in the tree
}

// DecisionTreeRegressor implements a decision tree for regression
type DecisionTreeRegressor struct {
	state *model.StateManager

	// Hyperparameters
	maxDepth            int     // Maximum depth of tree (0 = unlimited)
	minSamplesSplit     int     // Minimum samples to split a node
	minSamplesLeaf      int     // Minimum samples in a leaf
	maxFeatures         int     // Features examined per split (0 = all)
	minImpurityDecrease float64 // Minimum weighted impurity decrease for split
	randomState         int64   // Random seed

	tree_               *TreeNode
	nFeatures_          int
	featureImportances_ []float64

	logger   log.Logger
	rng      *rand.Rand
	features []int // scratch permutation of feature indices
}

// Option is a functional option
type Option func(*DecisionTreeRegressor)

// NewDecisionTreeRegressor creates a new, unfitted regression tree. With no
// options the tree is grown until leaves are pure, examining every feature
// at every split.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(dt)
	}
	dt.logger = log.GetLoggerWithName("tree").With(
		log.ModelNameKey, "DecisionTreeRegressor",
	)
	return dt
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the number of features drawn at random for each
// split. 0 examines all of them.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxFeatures = n
	}
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease a split
// must achieve.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minImpurityDecrease = v
	}
}

// WithRandomState sets the random seed
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.randomState = seed
	}
}

// Columns is a column-major, read-only copy of a feature matrix. A forest
// converts its input once and shares it between trees.
type Columns struct {
	data  [][]float64
	nRows int
}

// NewColumns copies X column by column. NaN or infinite entries are rejected.
func NewColumns(X mat.Matrix) (*Columns, error) {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		col := make([]float64, r)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, herrors.NewValueError("DecisionTreeRegressor.Fit", "input contains NaN or infinity")
			}
			col[i] = v
		}
		cols[j] = col
	}
	return &Columns{data: cols, nRows: r}, nil
}

// Dims returns the number of rows and features.
func (c *Columns) Dims() (int, int) { return c.nRows, len(c.data) }

func (dt *DecisionTreeRegressor) validate(nFeatures int) error {
	switch {
	case dt.minSamplesSplit < 2:
		return herrors.NewConfigurationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return herrors.NewConfigurationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	case dt.maxDepth < 0:
		return herrors.NewConfigurationError("max_depth", "must be non-negative (0 = unlimited)", dt.maxDepth)
	case dt.maxFeatures < 0 || dt.maxFeatures > nFeatures:
		return herrors.NewConfigurationError("max_features", "must be in [0, n_features]", dt.maxFeatures)
	}
	return nil
}

// Fit trains the decision tree on X (n_samples × n_features) and the target
// column y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer herrors.Recover(&err, "DecisionTreeRegressor.Fit")

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return herrors.NewModelError("DecisionTreeRegressor.Fit", "empty data", herrors.ErrEmptyData)
	}
	if nSamples != yRows {
		return herrors.NewDimensionError("DecisionTreeRegressor.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return herrors.NewValueError("DecisionTreeRegressor.Fit", "y must be a column vector")
	}

	cols, err := NewColumns(X)
	if err != nil {
		return err
	}
	target := make([]float64, nSamples)
	for i := range target {
		target[i] = y.At(i, 0)
	}
	if err := herrors.CheckNumericalStability("DecisionTreeRegressor.Fit", target); err != nil {
		return err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	return dt.FitSubset(cols, target, indices)
}

// FitSubset trains the tree on the rows indices of data. indices may repeat
// rows (bootstrap samples) and is reordered in place.
func (dt *DecisionTreeRegressor) FitSubset(data *Columns, y []float64, indices []int) (err error) {
	defer herrors.Recover(&err, "DecisionTreeRegressor.FitSubset")

	_, nFeatures := data.Dims()
	if err := dt.validate(nFeatures); err != nil {
		return err
	}
	if len(indices) == 0 {
		return herrors.NewModelError("DecisionTreeRegressor.Fit", "empty data", herrors.ErrEmptyData)
	}

	start := time.Now()
	dt.state.Reset()
	dt.nFeatures_ = nFeatures
	dt.featureImportances_ = make([]float64, nFeatures)
	dt.rng = rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState)))
	dt.features = make([]int, nFeatures)
	for i := range dt.features {
		dt.features[i] = i
	}

	b := &builder{dt: dt, data: data.data, y: y, order: make([]int, len(indices))}
	dt.tree_ = b.build(indices, 0)
	dt.normalizeFeatureImportances()

	dt.rng = nil
	dt.features = nil
	dt.state.MarkFitted(nFeatures, len(indices))

	dt.logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(indices),
		log.FeaturesKey, nFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"depth", dt.GetDepth(),
		"leaves", dt.GetNLeaves(),
	)
	return nil
}

// builder holds the read-only training data during one Fit.
type builder struct {
	dt    *DecisionTreeRegressor
	data  [][]float64
	y     []float64
	order []int // scratch buffer for sorting
}

func meanVariance(y []float64, idx []int) (mean, variance float64) {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	variance = sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// build recursively builds the decision tree
func (b *builder) build(idx []int, depth int) *TreeNode {
	dt := b.dt
	mean, impurity := meanVariance(b.y, idx)
	n := len(idx)

	node := &TreeNode{
		Value:    mean,
		Impurity: impurity,
		NSamples: n,
		Depth:    depth,
	}

	if dt.shouldStop(n, impurity, depth) {
		node.IsLeaf = true
		return node
	}

	split, ok := b.findBestSplit(idx, impurity)
	if !ok {
		node.IsLeaf = true
		return node
	}

	weightedDecrease := float64(n) * (impurity - split.childImpurity)
	if weightedDecrease/float64(n) < dt.minImpurityDecrease {
		node.IsLeaf = true
		return node
	}

	// partition idx in place: left block then right block
	col := b.data[split.feature]
	l := 0
	for r := 0; r < n; r++ {
		if col[idx[r]] <= split.threshold {
			idx[l], idx[r] = idx[r], idx[l]
			l++
		}
	}

	node.Feature = split.feature
	node.Threshold = split.threshold
	dt.featureImportances_[split.feature] += weightedDecrease

	node.Left = b.build(idx[:l], depth+1)
	node.Right = b.build(idx[l:], depth+1)
	return node
}

// shouldStop checks stopping criteria
func (dt *DecisionTreeRegressor) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return true
	}
	if nSamples < dt.minSamplesSplit || nSamples < 2*dt.minSamplesLeaf {
		return true
	}
	return impurity <= impurityEpsilon
}

type splitCandidate struct {
	feature       int
	threshold     float64
	childImpurity float64 // sample-weighted mean variance of the two children
}

// findBestSplit examines features in a random order until maxFeatures
// non-constant features have been seen. For each one it sorts the node's rows
// by that feature and sweeps the cut position with running sums, so a node
// costs O(n log n) per feature.
func (b *builder) findBestSplit(idx []int, parentImpurity float64) (splitCandidate, bool) {
	dt := b.dt
	n := len(idx)
	nf := len(b.data)

	k := dt.maxFeatures
	if k == 0 || k > nf {
		k = nf
	}
	features := dt.features
	if k < nf {
		dt.rng.Shuffle(nf, func(i, j int) { features[i], features[j] = features[j], features[i] })
	}

	var totalSum float64
	for _, i := range idx {
		totalSum += b.y[i]
	}

	best := splitCandidate{feature: -1, childImpurity: parentImpurity}
	bestProxy := math.Inf(-1)
	order := b.order[:n]
	visited := 0

	for _, f := range features {
		if visited >= k {
			break
		}
		col := b.data[f]

		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })
		if col[order[0]] == col[order[n-1]] {
			continue // constant in this node
		}
		visited++

		var leftSum float64
		for pos := 0; pos < n-1; pos++ {
			leftSum += b.y[order[pos]]
			lo, hi := col[order[pos]], col[order[pos+1]]
			if lo == hi {
				continue
			}
			nLeft := pos + 1
			nRight := n - nLeft
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			// maximising this proxy minimises the children's summed squared error
			proxy := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(nRight)
			if proxy > bestProxy {
				bestProxy = proxy
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best.feature = f
				best.threshold = threshold
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}

	var sumSq float64
	for _, i := range idx {
		sumSq += b.y[i] * b.y[i]
	}
	// children SSE = Σy² − proxy
	best.childImpurity = math.Max((sumSq-bestProxy)/float64(n), 0)
	return best, true
}

// normalizeFeatureImportances normalizes feature importance scores
func (dt *DecisionTreeRegressor) normalizeFeatureImportances() {
	sum := 0.0
	for _, imp := range dt.featureImportances_ {
		sum += imp
	}
	if sum > 0 {
		for i := range dt.featureImportances_ {
			dt.featureImportances_[i] /= sum
		}
	}
}

// Predict returns the leaf mean for each row of X as an (n_samples × 1) matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "DecisionTreeRegressor.Predict")
	nSamples, nFeatures := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeRegressor", "Predict", nFeatures); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	parallel.ParallelizeWithThreshold(nSamples, 2000, func(start, end int) {
		for i := start; i < end; i++ {
			predictions.Set(i, 0, dt.predictRow(X, i))
		}
	})
	return predictions, nil
}

func (dt *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	node := dt.tree_
	for !node.IsLeaf {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeRegressor) GetParams() model.Params {
	return model.Params{
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// NewFromParams is a model.Factory for DecisionTreeRegressor.
func NewFromParams(params model.Params) (model.Regressor, error) {
	opts, err := OptionsFromParams(params)
	if err != nil {
		return nil, err
	}
	return NewDecisionTreeRegressor(opts...), nil
}

// OptionsFromParams converts a hyperparameter combination to options.
func OptionsFromParams(params model.Params) ([]Option, error) {
	var opts []Option
	for key, value := range params {
		switch key {
		case "max_depth":
			opts = append(opts, WithMaxDepth(params.Int(key, 0)))
		case "min_samples_split":
			opts = append(opts, WithMinSamplesSplit(params.Int(key, 2)))
		case "min_samples_leaf":
			opts = append(opts, WithMinSamplesLeaf(params.Int(key, 1)))
		case "max_features":
			opts = append(opts, WithMaxFeatures(params.Int(key, 0)))
		case "random_state":
			opts = append(opts, WithRandomState(int64(params.Int(key, 42))))
		case "min_impurity_decrease":
			v, ok := value.(float64)
			if !ok {
				return nil, herrors.NewConfigurationError(key, "must be a float", value)
			}
			opts = append(opts, WithMinImpurityDecrease(v))
		default:
			return nil, herrors.NewConfigurationError(key, "unknown DecisionTreeRegressor parameter", value)
		}
	}
	return opts, nil
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	importances := make([]float64, len(dt.featureImportances_))
	copy(importances, dt.featureImportances_)
	return importances, nil
}

// IsFitted returns whether the model has been fitted.
func (dt *DecisionTreeRegressor) IsFitted() bool {
	return dt.state.IsFitted()
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return getMaxDepth(dt.tree_)
}

func getMaxDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	return max(getMaxDepth(node.Left), getMaxDepth(node.Right))
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return countLeaves(dt.tree_)
}

func countLeaves(node *TreeNode) int {
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
