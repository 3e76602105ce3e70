package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/taskloom/internal/config"
	"github.com/vk/taskloom/internal/message"
	"github.com/vk/taskloom/internal/nodectx"
	"github.com/vk/taskloom/internal/task"
)

func literal(target string, v cty.Value) *config.InputBinding {
	return &config.InputBinding{Target: target, Literal: &v}
}

func reference(target, from string) *config.InputBinding {
	return &config.InputBinding{Target: target, From: from}
}

// doubleHandler returns {"out": 2 * inputs.in}.
func doubleHandler(_ context.Context, _ *nodectx.Context, inputs cty.Value) (cty.Value, error) {
	var n int64
	if err := gocty.FromCtyValue(inputs.GetAttr("in"), &n); err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{"out": cty.NumberIntVal(2 * n)}), nil
}

func newTestEngine(t *testing.T) (*Engine, *Registry) {
	t.Helper()
	r := NewRegistry()
	e := New(r)
	return e, r
}

func TestRunResolvesSiblingDependencies(t *testing.T) {
	e, r := newTestEngine(t)
	r.Register("double", doubleHandler)

	var mu sync.Mutex
	var n2Saw cty.Value
	r.Register("record", func(_ context.Context, _ *nodectx.Context, inputs cty.Value) (cty.Value, error) {
		mu.Lock()
		n2Saw = inputs.GetAttr("in")
		mu.Unlock()
		return inputs, nil
	})

	p := &config.Pipeline{Nodes: []*config.Node{
		{Name: "n1", Handler: "double", Inputs: []*config.InputBinding{literal("in", cty.NumberIntVal(5))}},
		{Name: "n2", Handler: "record", Inputs: []*config.InputBinding{reference("in", "n1")}},
	}}

	root := nodectx.NewRoot(task.New("t", cty.NilVal), message.New(nil))
	require.NoError(t, e.Run(context.Background(), root, p))

	assert.True(t, root.Completed(), "engine finalizes the root namespace")

	// n1 has a single output key, so it folds flattened.
	v, ok := root.Output("n1")
	require.True(t, ok)
	assert.Equal(t, cty.NumberIntVal(10), v)

	// n2 observed n1's folded value despite both being scheduled at once.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, cty.NumberIntVal(10), n2Saw)
}

func TestRunAppliesOutputSelection(t *testing.T) {
	e, r := newTestEngine(t)
	r.Register("pair", func(_ context.Context, _ *nodectx.Context, _ cty.Value) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{
			"keep": cty.StringVal("yes"),
			"drop": cty.StringVal("no"),
		}), nil
	})

	p := &config.Pipeline{Nodes: []*config.Node{
		{Name: "n1", Handler: "pair", Outputs: []string{"keep"}},
	}}

	root := nodectx.NewRoot(task.Task{}, message.New(nil))
	require.NoError(t, e.Run(context.Background(), root, p))

	v, ok := root.Output("n1")
	require.True(t, ok)
	assert.Equal(t, cty.StringVal("yes"), v)
}

func TestRunChain(t *testing.T) {
	// A three-node chain where ordering is entirely emergent: the pipeline
	// declares the nodes in reverse order.
	e, r := newTestEngine(t)
	r.Register("double", doubleHandler)

	p := &config.Pipeline{Nodes: []*config.Node{
		{Name: "n3", Handler: "double", Inputs: []*config.InputBinding{reference("in", "n2")}},
		{Name: "n2", Handler: "double", Inputs: []*config.InputBinding{reference("in", "n1")}},
		{Name: "n1", Handler: "double", Inputs: []*config.InputBinding{literal("in", cty.NumberIntVal(1))}},
	}}

	root := nodectx.NewRoot(task.Task{}, message.New(nil))
	require.NoError(t, e.Run(context.Background(), root, p))

	v, ok := root.Output("n3")
	require.True(t, ok)
	assert.Equal(t, cty.NumberIntVal(8), v)
}

func TestRunFailureCascades(t *testing.T) {
	e, r := newTestEngine(t)
	boom := errors.New("boom")
	r.Register("fail", func(_ context.Context, _ *nodectx.Context, _ cty.Value) (cty.Value, error) {
		return cty.NilVal, boom
	})
	r.Register("never", func(_ context.Context, _ *nodectx.Context, inputs cty.Value) (cty.Value, error) {
		t.Error("dependent handler must not run after its dependency failed")
		return inputs, nil
	})

	p := &config.Pipeline{Nodes: []*config.Node{
		{Name: "n1", Handler: "fail"},
		{Name: "n2", Handler: "never", Inputs: []*config.InputBinding{reference("in", "n1")}},
	}}

	root := nodectx.NewRoot(task.Task{}, message.New(nil))

	// An external waiter blocked on the shared namespace must observe the
	// tree's failure instead of stalling forever.
	waiterErr := make(chan error, 1)
	external := root.Push("external", []nodectx.Binding{nodectx.OutputBinding("in", "n1")})
	go func() {
		_, err := external.ResolveInput(context.Background(), "in")
		waiterErr <- err
	}()

	err := e.Run(context.Background(), root, p)
	require.ErrorIs(t, err, boom)

	select {
	case err := <-waiterErr:
		require.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("external waiter did not observe the failure")
	}
}

func TestRunUnknownHandler(t *testing.T) {
	e, _ := newTestEngine(t)
	p := &config.Pipeline{Nodes: []*config.Node{{Name: "n1", Handler: "nope"}}}
	root := nodectx.NewRoot(task.Task{}, message.New(nil))

	err := e.Run(context.Background(), root, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
	assert.False(t, root.Completed())
}

func TestRunEmptyPipeline(t *testing.T) {
	e, _ := newTestEngine(t)
	root := nodectx.NewRoot(task.Task{}, message.New(nil))
	require.NoError(t, e.Run(context.Background(), root, &config.Pipeline{}))
	assert.True(t, root.Completed())
	assert.Equal(t, cty.EmptyObjectVal, root.Outputs())
}
