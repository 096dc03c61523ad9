package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// FormatVersion is the version of the persisted FittedPreprocessor layout.
const FormatVersion = 1

// Preprocessor describes how a Frame becomes a feature matrix:
//
//  1. impute NaN in NumericColumns with statistics learned at fit time
//  2. append Ratios computed on the imputed columns
//  3. impute NaN ratios (zero denominators) with ratio statistics learned at fit time
//  4. optionally standardize the numeric block
//  5. one-hot encode CategoricalColumn, dropping the first level when DropFirst is set
//
// Columns of the frame that are not named are ignored, so the target may
// stay in the frame.
type Preprocessor struct {
	NumericColumns    []string
	Ratios            []dataset.RatioSpec
	CategoricalColumn string
	Strategy          string
	DropFirst         bool
	Scale             bool

	logger log.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithStrategy sets the imputation strategy ("median" or "mean").
func WithStrategy(strategy string) Option {
	return func(p *Preprocessor) { p.Strategy = strategy }
}

// WithDropFirst controls whether the first categorical level is dropped.
func WithDropFirst(drop bool) Option {
	return func(p *Preprocessor) { p.DropFirst = drop }
}

// WithScaling enables standardization of the numeric block.
func WithScaling(scale bool) Option {
	return func(p *Preprocessor) { p.Scale = scale }
}

// WithRatios replaces the engineered ratio features.
func WithRatios(ratios []dataset.RatioSpec) Option {
	return func(p *Preprocessor) { p.Ratios = ratios }
}

// NewHousingPreprocessor returns the housing preprocessor: median
// imputation of the eight numeric predictors, the three ratio features,
// and a drop-first one-hot encoding of ocean_proximity.
func NewHousingPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		NumericColumns:    dataset.HousingSchema.Without(dataset.MedianHouseValue, dataset.OceanProximity).Names(),
		Ratios:            append([]dataset.RatioSpec(nil), dataset.RatioFeatures...),
		CategoricalColumn: dataset.OceanProximity,
		Strategy:          StrategyMedian,
		DropFirst:         true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.GetLoggerWithName("preprocessing").With(log.ModelNameKey, "Preprocessor")
	return p
}

// FittedPreprocessor holds every statistic a Preprocessor learned. It is a
// plain value: all fields are exported so it can be persisted and inspected.
type FittedPreprocessor struct {
	FormatVersion int

	NumericColumns []string
	Strategy       string
	// Medians holds the fill value of each numeric column. It holds means
	// when Strategy is "mean".
	Medians []float64

	Ratios       []dataset.RatioSpec
	RatioMedians []float64

	CategoricalColumn string
	Levels            []string
	DropFirst         bool

	ScaleMeans []float64
	ScaleStds  []float64

	NSamples int
}

func (p *Preprocessor) validate() error {
	if len(p.NumericColumns) == 0 && p.CategoricalColumn == "" {
		return herrors.NewConfigurationError("columns", "no numeric or categorical columns", nil)
	}
	known := make(map[string]bool, len(p.NumericColumns))
	for _, c := range p.NumericColumns {
		known[c] = true
	}
	for _, r := range p.Ratios {
		if !known[r.Numerator] || !known[r.Denominator] {
			return herrors.NewConfigurationError("ratios",
				fmt.Sprintf("%s must combine numeric columns", r.Name), r.Numerator+"/"+r.Denominator)
		}
	}
	return nil
}

// Fit learns imputation statistics, ratio fill values, optional scaling and
// categorical levels from frame.
func (p *Preprocessor) Fit(frame *dataset.Frame) (_ *FittedPreprocessor, err error) {
	defer herrors.Recover(&err, "Preprocessor.Fit")
	if err := p.validate(); err != nil {
		return nil, err
	}
	if frame.NRows() == 0 {
		return nil, herrors.NewModelError("Preprocessor.Fit", "empty data", herrors.ErrEmptyData)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("preprocessing")
	}

	fitted := &FittedPreprocessor{
		FormatVersion:     FormatVersion,
		NumericColumns:    append([]string(nil), p.NumericColumns...),
		Strategy:          p.Strategy,
		Ratios:            append([]dataset.RatioSpec(nil), p.Ratios...),
		CategoricalColumn: p.CategoricalColumn,
		DropFirst:         p.DropFirst,
		NSamples:          frame.NRows(),
	}
	if fitted.Strategy == "" {
		fitted.Strategy = StrategyMedian
	}

	var numeric *mat.Dense
	if len(p.NumericColumns) > 0 {
		raw, err := numericMatrix(frame, p.NumericColumns)
		if err != nil {
			return nil, err
		}
		imputer := NewSimpleImputer(fitted.Strategy)
		imputed, err := imputer.FitTransform(raw)
		if err != nil {
			return nil, err
		}
		fitted.Medians = imputer.Statistics

		numeric = imputed
		if len(p.Ratios) > 0 {
			ratios := fitted.ratioMatrix(imputed)
			ratioImputer := NewSimpleImputer(fitted.Strategy)
			filled, err := ratioImputer.FitTransform(ratios)
			if err != nil {
				return nil, err
			}
			fitted.RatioMedians = ratioImputer.Statistics
			numeric = hstack(imputed, filled)
		}

		if p.Scale {
			scaler := NewStandardScaler()
			if err := scaler.Fit(numeric); err != nil {
				return nil, err
			}
			fitted.ScaleMeans = scaler.Mean
			fitted.ScaleStds = scaler.Scale
		}
	}

	if p.CategoricalColumn != "" {
		values, err := frame.Categorical(p.CategoricalColumn)
		if err != nil {
			return nil, err
		}
		encoder := NewOneHotEncoder()
		encoder.DropFirst = p.DropFirst
		encoder.Columns = []string{p.CategoricalColumn}
		if err := encoder.Fit(columnRows(values)); err != nil {
			return nil, err
		}
		fitted.Levels = encoder.Categories[0]
	}

	p.logger.Info("preprocessor fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, frame.NRows(),
		log.FeaturesKey, len(fitted.FeatureNames()),
	)
	return fitted, nil
}

// FeatureNames returns the output column names of Transform.
func (fp *FittedPreprocessor) FeatureNames() []string {
	names := append([]string(nil), fp.NumericColumns...)
	for _, r := range fp.Ratios {
		names = append(names, r.Name)
	}
	for k, level := range fp.Levels {
		if fp.DropFirst && k == 0 {
			continue
		}
		names = append(names, fp.CategoricalColumn+"_"+level)
	}
	return names
}

// FillValue returns the learned fill value of a numeric or ratio column.
func (fp *FittedPreprocessor) FillValue(column string) (float64, bool) {
	for j, c := range fp.NumericColumns {
		if c == column && j < len(fp.Medians) {
			return fp.Medians[j], true
		}
	}
	for j, r := range fp.Ratios {
		if r.Name == column && j < len(fp.RatioMedians) {
			return fp.RatioMedians[j], true
		}
	}
	return 0, false
}

// Validate checks that the learned statistics are consistent with each
// other, as after decoding a persisted preprocessor.
func (fp *FittedPreprocessor) Validate() error {
	if fp.FormatVersion != FormatVersion {
		return herrors.NewConfigurationError("format_version",
			fmt.Sprintf("unsupported preprocessor format (want %d)", FormatVersion), fp.FormatVersion)
	}
	if len(fp.Medians) != len(fp.NumericColumns) {
		return herrors.NewDimensionError("FittedPreprocessor.Validate", len(fp.NumericColumns), len(fp.Medians), 1)
	}
	if len(fp.NumericColumns) > 0 && len(fp.RatioMedians) != len(fp.Ratios) {
		return herrors.NewDimensionError("FittedPreprocessor.Validate", len(fp.Ratios), len(fp.RatioMedians), 1)
	}
	nNumeric := len(fp.NumericColumns) + len(fp.Ratios)
	if fp.ScaleMeans != nil && (len(fp.ScaleMeans) != nNumeric || len(fp.ScaleStds) != nNumeric) {
		return herrors.NewDimensionError("FittedPreprocessor.Validate", nNumeric, len(fp.ScaleMeans), 1)
	}
	if fp.CategoricalColumn != "" && len(fp.Levels) == 0 {
		return herrors.NewValueError("FittedPreprocessor.Validate", "categorical column has no levels")
	}
	return nil
}

// Transform applies the learned statistics to frame. It returns the feature
// matrix and its column names. Nothing is re-learned from frame.
func (fp *FittedPreprocessor) Transform(frame *dataset.Frame) (_ *mat.Dense, _ []string, err error) {
	defer herrors.Recover(&err, "FittedPreprocessor.Transform")
	if err := fp.Validate(); err != nil {
		return nil, nil, err
	}
	n := frame.NRows()
	if n == 0 {
		return nil, nil, herrors.NewModelError("FittedPreprocessor.Transform", "empty data", herrors.ErrEmptyData)
	}

	var blocks []*mat.Dense
	if len(fp.NumericColumns) > 0 {
		raw, err := numericMatrix(frame, fp.NumericColumns)
		if err != nil {
			return nil, nil, err
		}
		imputer, err := NewSimpleImputerFromStatistics(fp.Strategy, fp.Medians)
		if err != nil {
			return nil, nil, err
		}
		numeric, err := imputer.Transform(raw)
		if err != nil {
			return nil, nil, err
		}

		if len(fp.Ratios) > 0 {
			ratioImputer, err := NewSimpleImputerFromStatistics(fp.Strategy, fp.RatioMedians)
			if err != nil {
				return nil, nil, err
			}
			filled, err := ratioImputer.Transform(fp.ratioMatrix(numeric))
			if err != nil {
				return nil, nil, err
			}
			numeric = hstack(numeric, filled)
		}

		if fp.ScaleMeans != nil {
			scaler, err := NewStandardScalerFromStats(fp.ScaleMeans, fp.ScaleStds)
			if err != nil {
				return nil, nil, err
			}
			scaled, err := scaler.Transform(numeric)
			if err != nil {
				return nil, nil, err
			}
			numeric = scaled.(*mat.Dense)
		}
		blocks = append(blocks, numeric)
	}

	if fp.CategoricalColumn != "" {
		values, err := frame.Categorical(fp.CategoricalColumn)
		if err != nil {
			return nil, nil, err
		}
		encoder, err := NewOneHotEncoderFromCategories([][]string{fp.Levels}, fp.DropFirst)
		if err != nil {
			return nil, nil, err
		}
		encoder.Columns = []string{fp.CategoricalColumn}
		if encoder.NOutputs > 0 {
			encoded, err := encoder.Transform(columnRows(values))
			if err != nil {
				return nil, nil, err
			}
			blocks = append(blocks, encoded.(*mat.Dense))
		}
	}

	if len(blocks) == 0 {
		return nil, nil, herrors.NewValueError("FittedPreprocessor.Transform", "no output columns")
	}
	return hstack(blocks...), fp.FeatureNames(), nil
}

// ratioMatrix computes the ratio columns from an imputed numeric matrix
// whose columns follow NumericColumns.
func (fp *FittedPreprocessor) ratioMatrix(numeric *mat.Dense) *mat.Dense {
	pos := make(map[string]int, len(fp.NumericColumns))
	for j, c := range fp.NumericColumns {
		pos[c] = j
	}
	r, _ := numeric.Dims()
	out := mat.NewDense(r, len(fp.Ratios), nil)
	for k, spec := range fp.Ratios {
		nj, dj := pos[spec.Numerator], pos[spec.Denominator]
		for i := 0; i < r; i++ {
			out.Set(i, k, dataset.Ratio(numeric.At(i, nj), numeric.At(i, dj)))
		}
	}
	return out
}

// Save writes the fitted preprocessor to path in gob encoding.
func (fp *FittedPreprocessor) Save(path string) error {
	if err := fp.Validate(); err != nil {
		return err
	}
	return model.SaveModel(fp, path)
}

// LoadPreprocessor reads a preprocessor written by Save.
func LoadPreprocessor(path string) (*FittedPreprocessor, error) {
	var fp FittedPreprocessor
	if err := model.LoadModel(&fp, path); err != nil {
		return nil, err
	}
	if err := fp.Validate(); err != nil {
		return nil, herrors.Wrapf(err, "load preprocessor %s", path)
	}
	return &fp, nil
}

// numericMatrix gathers the named columns of frame into a dense matrix.
// Infinite values are treated as missing.
func numericMatrix(frame *dataset.Frame, columns []string) (*mat.Dense, error) {
	n := frame.NRows()
	out := mat.NewDense(n, len(columns), nil)
	for j, name := range columns {
		col, err := frame.Numeric(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

func columnRows(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}

// hstack concatenates matrices with the same row count left to right.
func hstack(blocks ...*mat.Dense) *mat.Dense {
	if len(blocks) == 1 {
		return blocks[0]
	}
	r, total := 0, 0
	for _, b := range blocks {
		br, bc := b.Dims()
		r = br
		total += bc
	}
	out := mat.NewDense(r, total, nil)
	offset := 0
	for _, b := range blocks {
		_, bc := b.Dims()
		out.Slice(0, r, offset, offset+bc).(*mat.Dense).Copy(b)
		offset += bc
	}
	return out
}
