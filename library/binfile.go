package library

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
)

// BinaryFile stores the entity list as a single gob blob.
type BinaryFile[T Entity] struct {
	path string
}

func NewBinaryFile[T Entity](path string) *BinaryFile[T] {
	return &BinaryFile[T]{path: path}
}

func (f *BinaryFile[T]) Load() ([]T, error) {
	fp, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fp.Close()

	var items []T
	if err := gob.NewDecoder(fp).Decode(&items); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return items, nil
}

func (f *BinaryFile[T]) Save(items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeAtomic(f.path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(items)
	})
}
