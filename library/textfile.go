package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TextCodec maps an entity to and from one line of a text file.
type TextCodec[T Entity] struct {
	Fields func(T) []string
	// Parse returns ok=false for lines that should be skipped.
	Parse func(fields []string) (T, bool)
}

// TextFile stores entities as comma separated lines, one entity per line.
// Lines that do not parse are skipped on load.
type TextFile[T Entity] struct {
	path  string
	codec TextCodec[T]
}

func NewTextFile[T Entity](path string, codec TextCodec[T]) *TextFile[T] {
	return &TextFile[T]{path: path, codec: codec}
}

func (f *TextFile[T]) Load() ([]T, error) {
	fp, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var out []T
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if v, ok := f.codec.Parse(rec); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *TextFile[T]) Save(items []T) error {
	return writeAtomic(f.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		for _, v := range items {
			if err := cw.Write(f.codec.Fields(v)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// writeAtomic writes to a temporary file next to path and renames it over path.
func writeAtomic(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	fp, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	if err := write(fp); err != nil {
		fp.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := fp.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Codecs
// ---------------------------------------------------------------------------

// BookTextCodec writes id, title, author, 1|0.
var BookTextCodec = TextCodec[Book]{
	Fields: func(b Book) []string {
		avail := "1"
		if !b.Available {
			avail = "0"
		}
		return []string{b.ID, b.Title, b.Author, avail}
	},
	Parse: func(p []string) (Book, bool) {
		if len(p) < 3 {
			return Book{}, false
		}
		return Book{ID: p[0], Title: p[1], Author: p[2], Available: len(p) < 4 || p[3] != "0"}, true
	},
}

// ClientTextCodec writes id, name.
var ClientTextCodec = TextCodec[Client]{
	Fields: func(c Client) []string { return []string{c.ID, c.Name} },
	Parse: func(p []string) (Client, bool) {
		if len(p) != 2 {
			return Client{}, false
		}
		return Client{ID: p[0], Name: p[1]}, true
	},
}

// RentalTextCodec writes id, book id, client id, rented date, returned date.
var RentalTextCodec = TextCodec[Rental]{
	Fields: func(r Rental) []string {
		return []string{r.ID, r.BookID, r.ClientID, r.RentedDate, r.ReturnedDate}
	},
	Parse: func(p []string) (Rental, bool) {
		if len(p) != 5 {
			return Rental{}, false
		}
		return Rental{ID: p[0], BookID: p[1], ClientID: p[2], RentedDate: p[3], ReturnedDate: normalizeReturned(p[4])}, true
	},
}
