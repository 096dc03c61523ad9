package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/housing/core/model"
	herrors "github.com/ezoic/housing/pkg/errors"
)

// OneHotEncoder はカテゴリカルな文字列データを0/1のバイナリベクトルに変換する
//
// 学習時に観測した水準はソート順で列に割り当てられる。DropFirst が true の場合、
// 各特徴量の先頭水準は参照水準として出力から除かれる。欠損 "" は学習時・変換時とも
// 水準として扱わず全て0のベクトルになり、MissingLevelWarning で通知される。
// 変換時の未知水準も全て0のベクトルになり、エラーにはならない。
type OneHotEncoder struct {
	State *model.StateManager

	// DropFirst は各特徴量の最初の水準を出力しない
	DropFirst bool

	// Categories は各特徴量のカテゴリ一覧（ソート済み）
	Categories [][]string

	// CategoryToIdx は各特徴量のカテゴリ→インデックスマップ
	CategoryToIdx []map[string]int

	// NFeatures は入力特徴量数
	NFeatures int

	// NOutputs は出力特徴量数
	NOutputs int

	// Columns はログと警告に使う入力列名（任意）
	Columns []string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(data)
//	encoded, err := encoder.Transform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{State: model.NewStateManager()}
}

// NewOneHotEncoderFromCategories rebuilds a fitted encoder from persisted
// levels. Each level list must already be sorted and duplicate free.
func NewOneHotEncoderFromCategories(categories [][]string, dropFirst bool) (*OneHotEncoder, error) {
	if len(categories) == 0 {
		return nil, herrors.NewValueError("OneHotEncoder", "no categories")
	}
	e := NewOneHotEncoder()
	e.DropFirst = dropFirst
	for j, levels := range categories {
		if len(levels) == 0 {
			return nil, herrors.NewValueError("OneHotEncoder", fmt.Sprintf("feature %d has no levels", j))
		}
		if !sort.StringsAreSorted(levels) {
			return nil, herrors.NewValueError("OneHotEncoder", fmt.Sprintf("levels of feature %d are not sorted", j))
		}
	}
	e.setCategories(categories)
	return e, nil
}

// IsFitted reports whether Fit has completed.
func (e *OneHotEncoder) IsFitted() bool {
	return e.State != nil && e.State.IsFitted()
}

// Fit は訓練データからカテゴリ情報を学習する
//
// パラメータ:
//   - data: 訓練データ (n_samples × n_features の文字列スライス)
//
// 戻り値:
//   - error: 空データ、行の長さ不一致、観測水準のない特徴量の場合
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer herrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return herrors.NewModelError("OneHotEncoder.Fit", "empty data", herrors.ErrEmptyData)
	}
	if len(data[0]) == 0 {
		return herrors.NewModelError("OneHotEncoder.Fit", "empty features", herrors.ErrEmptyData)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return herrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	categories := make([][]string, nFeatures)
	for j := 0; j < nFeatures; j++ {
		categorySet := make(map[string]struct{})
		missing := 0
		for i := range data {
			v := data[i][j]
			if v == "" {
				missing++
				continue
			}
			categorySet[v] = struct{}{}
		}
		if len(categorySet) == 0 {
			return herrors.NewValueError("OneHotEncoder.Fit",
				fmt.Sprintf("feature '%s' has no observed levels", e.columnName(j)))
		}
		if missing > 0 {
			herrors.Warn(herrors.NewMissingLevelWarning(e.columnName(j), "fit", missing))
		}
		levels := make([]string, 0, len(categorySet))
		for category := range categorySet {
			levels = append(levels, category)
		}
		sort.Strings(levels)
		categories[j] = levels
	}

	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.setCategories(categories)
	e.State.SetDimensions(nFeatures, len(data))
	return nil
}

func (e *OneHotEncoder) setCategories(categories [][]string) {
	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.NFeatures = len(categories)
	e.Categories = categories
	e.CategoryToIdx = make([]map[string]int, len(categories))
	e.NOutputs = 0
	for j, levels := range categories {
		idx := make(map[string]int, len(levels))
		for k, level := range levels {
			idx[level] = k
		}
		e.CategoryToIdx[j] = idx
		e.NOutputs += e.width(j)
	}
	e.State.SetFitted()
}

// width is the number of output columns for feature j.
func (e *OneHotEncoder) width(j int) int {
	n := len(e.Categories[j])
	if e.DropFirst {
		n--
	}
	return n
}

func (e *OneHotEncoder) columnName(j int) string {
	if j < len(e.Columns) {
		return e.Columns[j]
	}
	return fmt.Sprintf("x%d", j)
}

// Transform は学習済みのカテゴリ情報を使ってデータをone-hot encodingする
//
// 未知カテゴリの行は該当特徴量の出力が全て0になる。特徴量ごとに未知水準の
// 件数を集計し、UnknownCategoryWarning として通知する。
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, herrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return &mat.Dense{}, nil
	}
	if e.NOutputs == 0 {
		return nil, herrors.NewValueError("OneHotEncoder.Transform", "encoder has no output columns")
	}

	nSamples := len(data)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, herrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), i)
		}
	}

	result := mat.NewDense(nSamples, e.NOutputs, nil)
	unknown := make([]map[string]int, e.NFeatures)
	missing := make([]int, e.NFeatures)

	for i := 0; i < nSamples; i++ {
		outputIdx := 0
		for j := 0; j < e.NFeatures; j++ {
			category := data[i][j]
			idx, exists := e.CategoryToIdx[j][category]
			switch {
			case category == "":
				missing[j]++
			case !exists:
				if unknown[j] == nil {
					unknown[j] = make(map[string]int)
				}
				unknown[j][category]++
			case e.DropFirst && idx == 0:
				// 参照水準
			case e.DropFirst:
				result.Set(i, outputIdx+idx-1, 1.0)
			default:
				result.Set(i, outputIdx+idx, 1.0)
			}
			outputIdx += e.width(j)
		}
	}

	for j, n := range missing {
		if n > 0 {
			herrors.Warn(herrors.NewMissingLevelWarning(e.columnName(j), "transform", n))
		}
	}
	for j, levels := range unknown {
		names := make([]string, 0, len(levels))
		for level := range levels {
			names = append(names, level)
		}
		sort.Strings(names)
		for _, level := range names {
			herrors.Warn(herrors.NewUnknownCategoryWarning(e.columnName(j), level, levels[level]))
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer herrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut は変換後の特徴量の名前を返す
//
// パラメータ:
//   - inputFeatures: 入力特徴量の名前（nilの場合は"x0", "x1", ...を使用）
//
// 例:
//   - 入力特徴量名が["animal", "size"]の場合
//   - 出力: ["animal_cat", "animal_dog", "size_large", "size_small"]
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	var outputFeatures []string
	for i, categories := range e.Categories {
		inputFeatureName := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			inputFeatureName = inputFeatures[i]
		}
		for k, category := range categories {
			if e.DropFirst && k == 0 {
				continue
			}
			outputFeatures = append(outputFeatures, inputFeatureName+"_"+category)
		}
	}
	return outputFeatures
}
