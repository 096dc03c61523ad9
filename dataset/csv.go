package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// LoadCSV reads a CSV file laid out according to schema.
func LoadCSV(path string, schema Schema) (_ *Frame, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, herrors.NewIOError("open", path, err)
	}
	defer func() { _ = file.Close() }()

	frame, err := ReadCSV(file, schema)
	if err != nil {
		var ioErr *herrors.IOError
		if herrors.As(err, &ioErr) && ioErr.Path == "" {
			ioErr.Path = path
		}
		return nil, err
	}
	return frame, nil
}

// ReadCSV reads a header-driven CSV table. Every schema column must be
// present in the header, in any order; extra columns are ignored. An empty
// numeric cell becomes NaN and an empty categorical cell becomes "".
func ReadCSV(r io.Reader, schema Schema) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, herrors.NewSchemaError("", "input has no header row")
	}
	if err != nil {
		return nil, herrors.NewIOError("read", "", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	index := make([]int, len(schema))
	for k, c := range schema {
		i, ok := pos[c.Name]
		if !ok {
			return nil, herrors.NewSchemaError(c.Name, "column is absent from header")
		}
		index[k] = i
	}

	numeric := make([][]float64, len(schema))
	categorical := make([][]string, len(schema))
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if herrors.As(err, &parseErr) {
				return nil, herrors.NewSchemaError("", parseErr.Error())
			}
			return nil, herrors.NewIOError("read", "", err)
		}
		row++
		for k, c := range schema {
			cell := strings.TrimSpace(record[index[k]])
			if c.Kind == Categorical {
				categorical[k] = append(categorical[k], cell)
				continue
			}
			if cell == "" {
				numeric[k] = append(numeric[k], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, herrors.NewSchemaError(c.Name, fmt.Sprintf("row %d: cannot parse %q as a number", row, cell))
			}
			numeric[k] = append(numeric[k], v)
		}
	}

	frame := NewFrame(row)
	for k, c := range schema {
		var err error
		if c.Kind == Categorical {
			col := categorical[k]
			if col == nil {
				col = []string{}
			}
			err = frame.SetCategorical(c.Name, col)
		} else {
			col := numeric[k]
			if col == nil {
				col = []float64{}
			}
			err = frame.SetNumeric(c.Name, col)
		}
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// WriteCSV writes every column of frame with a header row. NaN is written
// as an empty cell.
func WriteCSV(w io.Writer, frame *Frame) error {
	writer := csv.NewWriter(w)
	names := frame.Names()
	if err := writer.Write(names); err != nil {
		return herrors.NewIOError("write", "", err)
	}

	numeric := make([][]float64, len(names))
	categorical := make([][]string, len(names))
	for k, name := range names {
		kind, _ := frame.KindOf(name)
		if kind == Numeric {
			numeric[k], _ = frame.Numeric(name)
		} else {
			categorical[k], _ = frame.Categorical(name)
		}
	}

	record := make([]string, len(names))
	for i := 0; i < frame.NRows(); i++ {
		for k := range names {
			if categorical[k] != nil {
				record[k] = categorical[k][i]
				continue
			}
			v := numeric[k][i]
			if math.IsNaN(v) {
				record[k] = ""
			} else {
				record[k] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return herrors.NewIOError("write", "", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return herrors.NewIOError("write", "", err)
	}
	return nil
}

// SaveCSV writes frame to path.
func SaveCSV(path string, frame *Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return herrors.NewIOError("create", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = herrors.NewIOError("close", path, cerr)
		}
	}()
	return WriteCSV(file, frame)
}
