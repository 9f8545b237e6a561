// Package csvio reads and writes the CSV files used for bulk import, export
// and reporting. List columns (authors, genres, tags) are joined with "|".
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const listSeparator = "|"

// Row is one decoded record. Err is set when the line could not be decoded;
// the rest of the file is still read.
type Row[T any] struct {
	Line  int
	Value *T
	Err   error
}

type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv file is empty")
		}
		return nil, errors.WithStack(err)
	}
	h := header{}
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		h[name] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, errors.Errorf("csv header is missing the %q column", name)
		}
	}
	return h, nil
}

func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) optional(record []string, name string) *string {
	v := h.get(record, name)
	if v == "" {
		return nil
	}
	return &v
}

func (h header) list(record []string, name string) []string {
	v := h.get(record, name)
	out := []string{}
	if v == "" {
		return out
	}
	for _, part := range strings.Split(v, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h header) intOr(record []string, name string, fallback int) (int, error) {
	v := h.get(record, name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("%s must be a whole number, got %q", name, v)
	}
	return n, nil
}

func readAll[T any](r io.Reader, required []string, decode func(h header, record []string) (*T, error)) ([]Row[T], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, required...)
	if err != nil {
		return nil, err
	}

	rows := []Row[T]{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rows = append(rows, Row[T]{Line: perr.Line, Err: err})
				continue
			}
			return nil, errors.WithStack(err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		v, err := decode(h, record)
		rows = append(rows, Row[T]{Line: line, Value: v, Err: err})
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func formatOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatMoney(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func writeAll(w io.Writer, head []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return errors.WithStack(err)
	}
	if err := cw.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
