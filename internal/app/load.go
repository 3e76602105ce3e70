package app

import (
	"fmt"
	"os"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/taskloom/internal/batch"
)

// loadRecords reads a JSON array of record objects from path and builds a
// columnar batch. The column set is the union of all record keys, in sorted
// order; records missing a key get a null cell.
func loadRecords(path string) (*batch.Batch, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	ty, err := ctyjson.ImpliedType(src)
	if err != nil {
		return nil, fmt.Errorf("inferring record types from %s: %w", path, err)
	}
	val, err := ctyjson.Unmarshal(src, ty)
	if err != nil {
		return nil, fmt.Errorf("decoding records from %s: %w", path, err)
	}
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("records file %s must hold a JSON array of objects", path)
	}

	var rows []cty.Value
	for it := val.ElementIterator(); it.Next(); {
		_, row := it.Element()
		if !row.Type().IsObjectType() && !row.Type().IsMapType() {
			return nil, fmt.Errorf("records file %s must hold a JSON array of objects", path)
		}
		rows = append(rows, row)
	}

	colSet := make(map[string]struct{})
	for _, row := range rows {
		for it := row.ElementIterator(); it.Next(); {
			k, _ := it.Element()
			colSet[k.AsString()] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for name := range colSet {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	data := make(map[string][]cty.Value, len(cols))
	for _, name := range cols {
		col := make([]cty.Value, len(rows))
		for i, row := range rows {
			if row.Type().IsObjectType() && row.Type().HasAttribute(name) {
				col[i] = row.GetAttr(name)
			} else if row.Type().IsMapType() && row.HasIndex(cty.StringVal(name)).True() {
				col[i] = row.Index(cty.StringVal(name))
			} else {
				col[i] = cty.NullVal(cty.DynamicPseudoType)
			}
		}
		data[name] = col
	}

	return batch.FromColumns(cols, data)
}
