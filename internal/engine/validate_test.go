package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskloom/internal/config"
)

func TestValidate(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		p := &config.Pipeline{Nodes: []*config.Node{
			{Name: "a"},
			{Name: "b", Inputs: []*config.InputBinding{reference("in", "a")}},
			{Name: "c", Inputs: []*config.InputBinding{reference("in", "b"), reference("also", "a")}},
		}}
		require.NoError(t, validate(p))
	})

	t.Run("unknown reference", func(t *testing.T) {
		p := &config.Pipeline{Nodes: []*config.Node{
			{Name: "a", Inputs: []*config.InputBinding{reference("in", "ghost")}},
		}}
		err := validate(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown node")
	})

	t.Run("self reference", func(t *testing.T) {
		p := &config.Pipeline{Nodes: []*config.Node{
			{Name: "a", Inputs: []*config.InputBinding{reference("in", "a")}},
		}}
		err := validate(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "references itself")
	})

	t.Run("cycle", func(t *testing.T) {
		p := &config.Pipeline{Nodes: []*config.Node{
			{Name: "a", Inputs: []*config.InputBinding{reference("in", "b")}},
			{Name: "b", Inputs: []*config.InputBinding{reference("in", "a")}},
		}}
		err := validate(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("default binding rejected at top level", func(t *testing.T) {
		p := &config.Pipeline{Nodes: []*config.Node{
			{Name: "a", Inputs: []*config.InputBinding{{Target: "in", Default: true}}},
		}}
		err := validate(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default references")
	})
}
