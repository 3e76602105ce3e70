// Package batch provides an in-memory columnar record batch. A batch is a set
// of named columns of equal length plus an integer index column used to
// identify rows across slices. Slices are views: they share column storage
// with the batch they were cut from.
package batch

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// RenamedIndexColumn is the column name under which the original index is
// preserved when EnsureSliceableIndex has to renumber a batch.
const RenamedIndexColumn = "_orig_index"

// Batch is a columnar record batch with an int64 row index.
type Batch struct {
	cols  []string
	data  map[string][]cty.Value
	index []int64
}

// FromColumns builds a batch from named columns. All columns must have the
// same length. The index is initialized to 0..n-1.
func FromColumns(cols []string, data map[string][]cty.Value) (*Batch, error) {
	n := -1
	for _, name := range cols {
		col, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("column %q declared but not provided", name)
		}
		if n == -1 {
			n = len(col)
		} else if len(col) != n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(col), n)
		}
	}
	if n == -1 {
		n = 0
	}
	index := make([]int64, n)
	for i := range index {
		index[i] = int64(i)
	}
	copied := make(map[string][]cty.Value, len(data))
	for name, col := range data {
		copied[name] = col
	}
	return &Batch{cols: append([]string(nil), cols...), data: copied, index: index}, nil
}

// WithIndex replaces the batch's index column. The length must match the row
// count. Used by producers that carry externally assigned row identifiers.
func (b *Batch) WithIndex(index []int64) error {
	if len(index) != b.NumRows() {
		return fmt.Errorf("index has %d entries, batch has %d rows", len(index), b.NumRows())
	}
	b.index = index
	return nil
}

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int {
	return len(b.index)
}

// Columns returns the ordered column names.
func (b *Batch) Columns() []string {
	return b.cols
}

// Column returns the named column's values and whether the column exists.
func (b *Batch) Column(name string) ([]cty.Value, bool) {
	col, ok := b.data[name]
	return col, ok
}

// Index returns the row index column.
func (b *Batch) Index() []int64 {
	return b.index
}

// Row materializes row i as a name→value map.
func (b *Batch) Row(i int) map[string]cty.Value {
	row := make(map[string]cty.Value, len(b.cols))
	for _, name := range b.cols {
		row[name] = b.data[name][i]
	}
	return row
}

// HasSliceableIndex reports whether the index is unique and monotonically
// increasing, which is what position-based slicing requires.
func (b *Batch) HasSliceableIndex() bool {
	for i := 1; i < len(b.index); i++ {
		if b.index[i] <= b.index[i-1] {
			return false
		}
	}
	return true
}

// EnsureSliceableIndex renumbers the index to 0..n-1 when it is not
// sliceable, preserving the original index under RenamedIndexColumn. It
// returns the name of the preserving column, or "" when the index was already
// sliceable and the batch is unchanged.
func (b *Batch) EnsureSliceableIndex() string {
	if b.HasSliceableIndex() {
		return ""
	}
	preserved := make([]cty.Value, len(b.index))
	for i, id := range b.index {
		preserved[i] = cty.NumberIntVal(id)
	}
	if _, exists := b.data[RenamedIndexColumn]; !exists {
		b.cols = append(b.cols, RenamedIndexColumn)
	}
	b.data[RenamedIndexColumn] = preserved
	index := make([]int64, len(b.index))
	for i := range index {
		index[i] = int64(i)
	}
	b.index = index
	return RenamedIndexColumn
}

// Slice returns the half-open row range [start, stop) as a view sharing
// column storage with b.
func (b *Batch) Slice(start, stop int) (*Batch, error) {
	if start < 0 || stop < start || stop > b.NumRows() {
		return nil, fmt.Errorf("slice [%d, %d) out of range for %d rows", start, stop, b.NumRows())
	}
	data := make(map[string][]cty.Value, len(b.data))
	for name, col := range b.data {
		data[name] = col[start:stop]
	}
	return &Batch{cols: b.cols, data: data, index: b.index[start:stop]}, nil
}
