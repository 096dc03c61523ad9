// Package dataset loads, derives and splits the housing table.
//
// A Frame is a small columnar table. Numeric columns hold float64 values
// with NaN marking a missing cell; categorical columns hold strings with ""
// marking a missing cell. Column order is preserved across every operation.
package dataset

import (
	"fmt"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns are float64 with NaN as missing.
	Numeric Kind = iota
	// Categorical columns are strings with "" as missing.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Frame is an in-memory columnar table.
type Frame struct {
	names       []string
	kinds       map[string]Kind
	numeric     map[string][]float64
	categorical map[string][]string
	nRows       int
}

// NewFrame creates an empty frame with nRows rows and no columns.
func NewFrame(nRows int) *Frame {
	return &Frame{
		kinds:       make(map[string]Kind),
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
		nRows:       nRows,
	}
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return f.nRows }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	_, ok := f.kinds[name]
	return ok
}

// KindOf returns the kind of column name.
func (f *Frame) KindOf(name string) (Kind, error) {
	k, ok := f.kinds[name]
	if !ok {
		return 0, herrors.NewSchemaError(name, "column is absent")
	}
	return k, nil
}

// Numeric returns the values of a numeric column. The slice is shared with
// the frame.
func (f *Frame) Numeric(name string) ([]float64, error) {
	k, ok := f.kinds[name]
	if !ok {
		return nil, herrors.NewSchemaError(name, "column is absent")
	}
	if k != Numeric {
		return nil, herrors.NewSchemaError(name, "column is not numeric")
	}
	return f.numeric[name], nil
}

// Categorical returns the values of a categorical column. The slice is
// shared with the frame.
func (f *Frame) Categorical(name string) ([]string, error) {
	k, ok := f.kinds[name]
	if !ok {
		return nil, herrors.NewSchemaError(name, "column is absent")
	}
	if k != Categorical {
		return nil, herrors.NewSchemaError(name, "column is not categorical")
	}
	return f.categorical[name], nil
}

// SetNumeric adds or replaces a numeric column. A replaced column keeps its
// position.
func (f *Frame) SetNumeric(name string, values []float64) error {
	if err := f.checkLen(name, len(values)); err != nil {
		return err
	}
	f.place(name, Numeric)
	delete(f.categorical, name)
	f.numeric[name] = values
	return nil
}

// SetCategorical adds or replaces a categorical column.
func (f *Frame) SetCategorical(name string, values []string) error {
	if err := f.checkLen(name, len(values)); err != nil {
		return err
	}
	f.place(name, Categorical)
	delete(f.numeric, name)
	f.categorical[name] = values
	return nil
}

func (f *Frame) checkLen(name string, n int) error {
	if name == "" {
		return herrors.NewSchemaError(name, "column name is empty")
	}
	if n != f.nRows {
		return herrors.NewSchemaError(name, fmt.Sprintf("has %d values, frame has %d rows", n, f.nRows))
	}
	return nil
}

func (f *Frame) place(name string, k Kind) {
	if _, ok := f.kinds[name]; !ok {
		f.names = append(f.names, name)
	}
	f.kinds[name] = k
}

// Drop returns a copy of the frame without the named columns. Names that
// are not present are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := NewFrame(f.nRows)
	for _, name := range f.names {
		if _, ok := skip[name]; ok {
			continue
		}
		out.copyColumn(f, name, nil)
	}
	return out
}

// Select returns a copy holding only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := NewFrame(f.nRows)
	for _, name := range names {
		if !f.Has(name) {
			return nil, herrors.NewSchemaError(name, "column is absent")
		}
		out.copyColumn(f, name, nil)
	}
	return out, nil
}

// Take returns a new frame holding the given rows, in the given order.
func (f *Frame) Take(indices []int) (*Frame, error) {
	for _, i := range indices {
		if i < 0 || i >= f.nRows {
			return nil, herrors.NewValueError("Frame.Take", fmt.Sprintf("row index %d out of range [0, %d)", i, f.nRows))
		}
	}
	out := NewFrame(len(indices))
	for _, name := range f.names {
		out.copyColumn(f, name, indices)
	}
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.nRows)
	for _, name := range f.names {
		out.copyColumn(f, name, nil)
	}
	return out
}

// copyColumn copies column name of src into f, restricted to rows when
// rows is non-nil.
func (f *Frame) copyColumn(src *Frame, name string, rows []int) {
	switch src.kinds[name] {
	case Numeric:
		col := src.numeric[name]
		var dst []float64
		if rows == nil {
			dst = append([]float64(nil), col...)
		} else {
			dst = make([]float64, len(rows))
			for k, i := range rows {
				dst[k] = col[i]
			}
		}
		f.place(name, Numeric)
		f.numeric[name] = dst
	case Categorical:
		col := src.categorical[name]
		var dst []string
		if rows == nil {
			dst = append([]string(nil), col...)
		} else {
			dst = make([]string, len(rows))
			for k, i := range rows {
				dst[k] = col[i]
			}
		}
		f.place(name, Categorical)
		f.categorical[name] = dst
	}
}

// NumericNames returns the names of the numeric columns in order.
func (f *Frame) NumericNames() []string {
	var out []string
	for _, name := range f.names {
		if f.kinds[name] == Numeric {
			out = append(out, name)
		}
	}
	return out
}

// MissingCount returns the number of missing cells in column name.
func (f *Frame) MissingCount(name string) (int, error) {
	k, err := f.KindOf(name)
	if err != nil {
		return 0, err
	}
	n := 0
	if k == Numeric {
		for _, v := range f.numeric[name] {
			if v != v {
				n++
			}
		}
		return n, nil
	}
	for _, v := range f.categorical[name] {
		if v == "" {
			n++
		}
	}
	return n, nil
}
