// Package nodectx implements the execution-context tree that threads task
// state, named inputs and outputs, and cross-branch synchronization through a
// graph of node executions.
//
// A root context wraps one task and one control message; children are pushed
// with a name and an input map, compute into their own output namespace,
// resolve inputs lazily against their parent (blocking until the referenced
// value is available), and fold selected outputs back into the parent under
// their own name. The only cross-node synchronization primitive is the
// per-context completion signal: single-assignment, multi-waiter, resolved by
// exactly one owning worker.
package nodectx

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskloom/internal/message"
	"github.com/vk/taskloom/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// sharedState is referenced, never copied, by every context of one tree: the
// immutable task descriptor, the shared message handle, and the write-once
// row mask selecting which rows of the underlying batch are active.
type sharedState struct {
	task task.Task
	msg  *message.Message

	mu      sync.Mutex
	rowMask []bool
	maskSet bool
}

// Context is one node of the execution-context tree. Contexts are created by
// NewRoot and Push; the parent link is the only back-reference, parents do
// not track their children.
type Context struct {
	parent      *Context
	name        string
	inputs      []Binding
	outputNames []string
	state       *sharedState
	outputs     *namespace
}

// NewRoot creates a root context for one unit of work, wrapping a fresh
// shared state with the mask unset. The root has the empty name, no parent
// and no input map.
func NewRoot(t task.Task, msg *message.Message) *Context {
	return &Context{
		state:   &sharedState{task: t, msg: msg},
		outputs: newNamespace(),
	}
}

// Push creates a child context sharing c's state by reference. The name and
// input map are stored verbatim; sibling-name uniqueness is the caller's
// responsibility and a duplicate surfaces only as a last-fold-wins overwrite
// in the parent namespace.
func (c *Context) Push(name string, inputs []Binding) *Context {
	return &Context{
		parent:  c,
		name:    name,
		inputs:  inputs,
		state:   c.state,
		outputs: newNamespace(),
	}
}

// Name returns the context's local name, unique among siblings by convention.
func (c *Context) Name() string {
	return c.name
}

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Task returns the tree's task descriptor.
func (c *Context) Task() task.Task {
	return c.state.task
}

// Message returns the tree's shared message handle.
func (c *Context) Message() *message.Message {
	return c.state.msg
}

// Inputs returns the context's input map in declaration order.
func (c *Context) Inputs() []Binding {
	return c.inputs
}

// FullName returns the /-joined path of names from the root to this context,
// a stable identity used for diagnostics and logging. A root renders as "/".
func (c *Context) FullName() string {
	if c.parent == nil {
		if c.name == "" {
			return "/"
		}
		return "/" + c.name
	}
	p := c.parent.FullName()
	if p == "/" {
		return p + c.name
	}
	return p + "/" + c.name
}

// findInput locates target in the input map, preserving declaration order
// semantics of the map (first match wins).
func (c *Context) findInput(target string) (Binding, bool) {
	for _, b := range c.inputs {
		if b.Target == target {
			return b, true
		}
	}
	return Binding{}, false
}

// ResolveInput resolves the input bound to target. Literal sources return
// immediately; parent references block until the referenced value is
// published (see resolveSource). An absent target is ErrInputNotFound.
func (c *Context) ResolveInput(ctx context.Context, target string) (cty.Value, error) {
	b, ok := c.findInput(target)
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %q in %s", ErrInputNotFound, target, c.FullName())
	}
	return c.resolveSource(ctx, b)
}

// ProbeInput is the non-blocking-on-absence variant of ResolveInput: a
// target missing from the input map yields ok=false instead of an error.
// A present target still resolves (and may block) exactly as ResolveInput.
func (c *Context) ProbeInput(ctx context.Context, target string) (cty.Value, bool, error) {
	b, ok := c.findInput(target)
	if !ok {
		return cty.NilVal, false, nil
	}
	v, err := c.resolveSource(ctx, b)
	return v, err == nil, err
}

// ResolveFirstInput resolves the first entry of the input map, the
// convenience form for single-input nodes.
func (c *Context) ResolveFirstInput(ctx context.Context) (cty.Value, error) {
	if len(c.inputs) == 0 {
		return cty.NilVal, fmt.Errorf("%w: %s has an empty input map", ErrInputNotFound, c.FullName())
	}
	return c.resolveSource(ctx, c.inputs[0])
}

// ResolveInputs resolves every entry of the input map in declaration order
// into one object keyed by target name. Any single failure aborts the whole
// call; no partial object is returned.
func (c *Context) ResolveInputs(ctx context.Context) (cty.Value, error) {
	if len(c.inputs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(c.inputs))
	for _, b := range c.inputs {
		v, err := c.resolveSource(ctx, b)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[b.Target] = v
	}
	return cty.ObjectVal(attrs), nil
}

// resolveSource fetches one bound value. Resolution is lazy and blocking
// rather than eager at push time: at push time the parent may not have
// produced the referenced value yet, which is what lets sibling branches run
// concurrently while depending on each other's results.
func (c *Context) resolveSource(ctx context.Context, b Binding) (cty.Value, error) {
	switch b.Source.Kind {
	case SourceLiteral:
		return b.Source.Literal, nil

	case SourceParentDefault:
		if c.parent == nil {
			return cty.NilVal, fmt.Errorf("input %q of %s: %w", b.Target, c.FullName(), ErrNoParent)
		}
		if err := c.parent.outputs.waitComplete(ctx); err != nil {
			return cty.NilVal, fmt.Errorf("input %q of %s: waiting on %s: %w", b.Target, c.FullName(), c.parent.FullName(), err)
		}
		v, err := c.parent.outputs.sole()
		if err != nil {
			return cty.NilVal, fmt.Errorf("input %q of %s: %w", b.Target, c.FullName(), err)
		}
		return v, nil

	case SourceParentOutput:
		if c.parent == nil {
			return cty.NilVal, fmt.Errorf("input %q of %s: %w", b.Target, c.FullName(), ErrNoParent)
		}
		v, err := c.parent.outputs.waitKey(ctx, b.Source.Name)
		if err != nil {
			return cty.NilVal, fmt.Errorf("input %q of %s: %w", b.Target, c.FullName(), err)
		}
		return v, nil

	default:
		return cty.NilVal, fmt.Errorf("input %q of %s: unknown source kind %d", b.Target, c.FullName(), b.Source.Kind)
	}
}

// SetOutput inserts or overwrites one key of the context's output namespace.
// Last write wins until Complete; the namespace must not be written after
// completion.
func (c *Context) SetOutput(name string, v cty.Value) {
	c.outputs.set(name, v)
}

// SetOutputs replaces the output namespace wholesale, for nodes producing a
// single structured result. Objects decompose into keys; any other value
// becomes the namespace's sole bare output.
func (c *Context) SetOutputs(v cty.Value) {
	c.outputs.replaceAll(v)
}

// SetOutputNames records which keys Fold propagates to the parent. Absent or
// empty means every key present at fold time.
func (c *Context) SetOutputNames(names []string) {
	c.outputNames = names
}

// Outputs returns the namespace as a single value. The result is only
// meaningful once the context has completed; concurrent readers must route
// through the resolver instead.
func (c *Context) Outputs() cty.Value {
	return c.outputs.snapshot()
}

// Output returns one key of the namespace, with the same caveat as Outputs.
func (c *Context) Output(name string) (cty.Value, bool) {
	return c.outputs.get(name)
}

// Complete resolves the context's completion signal, publishing the output
// namespace to all waiters. A second call is a contract violation and
// returns ErrDoubleCompletion: it would imply outputs changed after being
// published.
func (c *Context) Complete() error {
	if err := c.outputs.done.Resolve(); err != nil {
		return fmt.Errorf("%w: %s", ErrDoubleCompletion, c.FullName())
	}
	return nil
}

// Fail resolves the completion signal with an error so that waiters observe
// the failure instead of blocking forever. This is the scheduler's injection
// point when the owning worker aborts before completing.
func (c *Context) Fail(err error) error {
	if serr := c.outputs.done.Fail(fmt.Errorf("%s failed: %w", c.FullName(), err)); serr != nil {
		return fmt.Errorf("%w: %s", ErrDoubleCompletion, c.FullName())
	}
	return nil
}

// Completed reports whether the completion signal has been resolved.
func (c *Context) Completed() bool {
	return c.outputs.done.Resolved()
}

// WaitCompleted blocks until the context completes or ctx is canceled,
// returning any failure injected via Fail.
func (c *Context) WaitCompleted(ctx context.Context) error {
	return c.outputs.waitComplete(ctx)
}

// Fold propagates the completed context's selected outputs into the parent
// namespace under this context's name: a single selected key folds as its
// bare value, several fold as an object of just those keys, and with no
// selection and no keyed outputs the namespace value folds as-is. Fold does
// not complete the parent, and folding the same child twice overwrites the
// previous entry (last fold wins); callers fold each child at most once by
// convention.
func (c *Context) Fold() error {
	if c.parent == nil {
		return fmt.Errorf("%w: cannot fold a root", ErrNoParent)
	}
	if !c.outputs.done.Resolved() {
		return fmt.Errorf("%w: %s", ErrIncompleteFold, c.FullName())
	}

	keys := c.outputNames
	if len(keys) == 0 {
		c.outputs.mu.Lock()
		keys = append([]string(nil), c.outputs.keys...)
		bare := c.outputs.hasBare
		c.outputs.mu.Unlock()
		if bare || len(keys) == 0 {
			c.parent.outputs.set(c.name, c.outputs.snapshot())
			return nil
		}
	}

	if len(keys) == 1 {
		v, ok := c.outputs.get(keys[0])
		if !ok {
			return fmt.Errorf("folding %s: %w: %q", c.FullName(), ErrOutputKeyNotFound, keys[0])
		}
		c.parent.outputs.set(c.name, v)
		return nil
	}

	attrs := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		v, ok := c.outputs.get(k)
		if !ok {
			return fmt.Errorf("folding %s: %w: %q", c.FullName(), ErrOutputKeyNotFound, k)
		}
		attrs[k] = v
	}
	c.parent.outputs.set(c.name, cty.ObjectVal(attrs))
	return nil
}

// SetRowMask sets the tree's shared row mask. The mask is write-once across
// the whole tree, set by convention by the node nearest the root that first
// observes the batch; a second write from any context is ErrMaskAlreadySet.
// When the message carries a payload, the mask length must match its row
// count.
func (c *Context) SetRowMask(mask []bool) error {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maskSet {
		return ErrMaskAlreadySet
	}
	if s.msg != nil {
		if p := s.msg.Payload(); p != nil && p.NumRows() != len(mask) {
			return fmt.Errorf("row mask has %d entries, payload has %d rows", len(mask), p.NumRows())
		}
	}
	s.rowMask = mask
	s.maskSet = true
	return nil
}

// RowMask returns the tree's row mask. Reading before any write is
// ErrMaskNotSet; callers know from the graph's structure that an upstream
// node has set it.
func (c *Context) RowMask() ([]bool, error) {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.maskSet {
		return nil, ErrMaskNotSet
	}
	return s.rowMask, nil
}

// HasRowMask reports whether the tree's row mask has been set.
func (c *Context) HasRowMask() bool {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maskSet
}
