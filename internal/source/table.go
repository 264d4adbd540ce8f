// Package source reads the raw transaction and identity tables and joins
// them into one permissive, string-valued table.
//
// Columns are looked up by name and a missing column or an empty cell reads
// as "", so optional fields never fail a run. Only the columns a caller asks
// for are retained while reading.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"auroraguard/enricher/internal/domain"
)

// Input file names inside the raw directory.
const (
	TransactionFile = "train_transaction.csv"
	IdentityFile    = "train_identity.csv"
)

// ErrMissingColumn is returned when a column without a fallback is absent.
var ErrMissingColumn = errors.New("source: required column missing")

// Table is a row-major table of raw string values.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			continue
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// Append adds a row. Short rows are padded with "", long rows truncated.
func (t *Table) Append(values []string) {
	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the header.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Value returns the cell at (row, column), or "" when the column is absent.
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.rows[row][i]
}

// Column returns every value of a column in row order.
func (t *Table) Column(column string) ([]string, bool) {
	i, ok := t.index[column]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, true
}

// ReadCSV reads a table with a header row. When keep is non-empty only those
// columns are retained.
func ReadCSV(r io.Reader, keep []string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Spreadsheet exports often prefix the file with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}
	var cols []string
	var src []int
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if seen[h] || (len(wanted) > 0 && !wanted[h]) {
			continue
		}
		seen[h] = true
		cols = append(cols, h)
		src = append(src, i)
	}
	t := NewTable(cols)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]string, len(src))
		for j, i := range src {
			// Clone so a kept cell does not pin the whole line.
			if i < len(rec) {
				row[j] = strings.Clone(rec[i])
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// WriteCSV writes the table with its header.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return err
	}
	return cw.Error()
}

// LeftJoin returns every row of left with the columns of right appended,
// matched on key. A key repeated in right matches its first row; rows of left
// with an empty or unmatched key get "" for the right-hand columns. Right
// columns already present in left are not duplicated.
func LeftJoin(left, right *Table, key string) *Table {
	if right == nil || !right.Has(key) || !left.Has(key) {
		return left
	}
	var extra []string
	for _, c := range right.columns {
		if c != key && !left.Has(c) {
			extra = append(extra, c)
		}
	}
	out := NewTable(append(left.Columns(), extra...))

	first := make(map[string]int, right.Len())
	for r := range right.rows {
		k := right.Value(r, key)
		if _, seen := first[k]; !seen && k != "" {
			first[k] = r
		}
	}

	out.rows = make([][]string, 0, left.Len())
	for r, row := range left.rows {
		joined := make([]string, len(out.columns))
		copy(joined, row)
		if m, ok := first[left.Value(r, key)]; ok {
			for j, c := range extra {
				joined[len(row)+j] = right.Value(m, c)
			}
		}
		out.rows = append(out.rows, joined)
	}
	return out
}

// Load reads the transaction table (required) and the identity table
// (optional) from dir, keeping only columns, and left-joins them on
// TransactionID. Required raw columns must exist in the transaction table.
func Load(dir string, columns []string) (*Table, error) {
	keep := append([]string{domain.RawTransactionID}, columns...)

	tx, err := readFile(filepath.Join(dir, TransactionFile), keep)
	if err != nil {
		return nil, err
	}
	for _, c := range domain.RequiredRawColumns {
		if !tx.Has(c) {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, c, TransactionFile)
		}
	}

	id, err := readFile(filepath.Join(dir, IdentityFile), keep)
	if errors.Is(err, os.ErrNotExist) {
		return tx, nil
	}
	if err != nil {
		return nil, err
	}
	return LeftJoin(tx, id, domain.RawTransactionID), nil
}

func readFile(path string, keep []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f, keep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// WriteDir writes the transaction and identity tables into dir using the
// file names Load expects. A nil identity table is skipped.
func WriteDir(dir string, tx, id *Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, TransactionFile), tx); err != nil {
		return err
	}
	if id == nil {
		return nil
	}
	return writeFile(filepath.Join(dir, IdentityFile), id)
}

func writeFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
