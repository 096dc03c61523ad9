package model

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// SaveModel はモデルを gob 形式でファイルに保存する
//
// 使用例:
//
//	err := model.SaveModel(fitted, "models/preprocessor.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return herrors.NewIOError("create", filename, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = herrors.NewIOError("close", filename, cerr)
		}
	}()

	w := bufio.NewWriter(file)
	if err := SaveModelToWriter(model, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return herrors.NewIOError("write", filename, err)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
//	var p preprocessing.FittedPreprocessor
//	err := model.LoadModel(&p, "models/preprocessor.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return herrors.NewIOError("open", filename, err)
	}
	defer func() { _ = file.Close() }()

	if err := LoadModelFromReader(model, bufio.NewReader(file)); err != nil {
		return herrors.NewIOError("decode", filename, err)
	}
	return nil
}

// SaveModelToWriter はモデルを io.Writer に保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return herrors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader は io.Reader からモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return herrors.Wrap(err, "failed to decode model")
	}
	return nil
}
