package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func numbers(vals ...int64) []cty.Value {
	out := make([]cty.Value, len(vals))
	for i, v := range vals {
		out[i] = cty.NumberIntVal(v)
	}
	return out
}

func TestFromColumns(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		b, err := FromColumns([]string{"a", "b"}, map[string][]cty.Value{
			"a": numbers(1, 2, 3),
			"b": numbers(4, 5, 6),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, b.NumRows())
		assert.Equal(t, []string{"a", "b"}, b.Columns())
		assert.Equal(t, []int64{0, 1, 2}, b.Index())
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := FromColumns([]string{"a", "b"}, map[string][]cty.Value{
			"a": numbers(1, 2),
			"b": numbers(4),
		})
		require.Error(t, err)
	})

	t.Run("missing declared column", func(t *testing.T) {
		_, err := FromColumns([]string{"a"}, map[string][]cty.Value{})
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		b, err := FromColumns(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, b.NumRows())
	})
}

func TestRow(t *testing.T) {
	b, err := FromColumns([]string{"id", "text"}, map[string][]cty.Value{
		"id":   numbers(7, 8),
		"text": {cty.StringVal("x"), cty.StringVal("y")},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]cty.Value{
		"id":   cty.NumberIntVal(8),
		"text": cty.StringVal("y"),
	}, b.Row(1))
}

func TestHasSliceableIndex(t *testing.T) {
	b, err := FromColumns([]string{"a"}, map[string][]cty.Value{"a": numbers(1, 2, 3)})
	require.NoError(t, err)
	assert.True(t, b.HasSliceableIndex())

	require.NoError(t, b.WithIndex([]int64{0, 2, 5}))
	assert.True(t, b.HasSliceableIndex(), "gaps are fine as long as it is increasing")

	require.NoError(t, b.WithIndex([]int64{0, 2, 2}))
	assert.False(t, b.HasSliceableIndex(), "duplicates are not sliceable")

	require.NoError(t, b.WithIndex([]int64{3, 2, 1}))
	assert.False(t, b.HasSliceableIndex(), "decreasing is not sliceable")
}

func TestEnsureSliceableIndex(t *testing.T) {
	t.Run("already sliceable is untouched", func(t *testing.T) {
		b, err := FromColumns([]string{"a"}, map[string][]cty.Value{"a": numbers(1, 2)})
		require.NoError(t, err)
		assert.Equal(t, "", b.EnsureSliceableIndex())
		assert.Equal(t, []string{"a"}, b.Columns())
	})

	t.Run("repair renumbers and preserves the original", func(t *testing.T) {
		b, err := FromColumns([]string{"a"}, map[string][]cty.Value{"a": numbers(10, 20, 30)})
		require.NoError(t, err)
		require.NoError(t, b.WithIndex([]int64{5, 5, 1}))

		renamed := b.EnsureSliceableIndex()
		assert.Equal(t, RenamedIndexColumn, renamed)
		assert.Equal(t, []int64{0, 1, 2}, b.Index())
		assert.True(t, b.HasSliceableIndex())

		preserved, ok := b.Column(RenamedIndexColumn)
		require.True(t, ok)
		assert.Equal(t, numbers(5, 5, 1), preserved)
	})
}

func TestSlice(t *testing.T) {
	b, err := FromColumns([]string{"a"}, map[string][]cty.Value{"a": numbers(1, 2, 3, 4, 5)})
	require.NoError(t, err)

	t.Run("middle", func(t *testing.T) {
		s, err := b.Slice(1, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, s.NumRows())
		col, ok := s.Column("a")
		require.True(t, ok)
		assert.Equal(t, numbers(2, 3), col)
		assert.Equal(t, []int64{1, 2}, s.Index())
	})

	t.Run("empty range", func(t *testing.T) {
		s, err := b.Slice(2, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, s.NumRows())
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := b.Slice(0, 6)
		require.Error(t, err)
		_, err = b.Slice(-1, 2)
		require.Error(t, err)
		_, err = b.Slice(3, 2)
		require.Error(t, err)
	})
}
