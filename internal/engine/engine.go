// Package engine schedules the nodes of a pipeline over one execution-context
// tree. Every node runs concurrently; execution order is not computed up
// front but emerges from blocking input resolution, so a node referencing a
// sibling's output simply parks until that sibling completes and folds.
package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vk/taskloom/internal/config"
	"github.com/vk/taskloom/internal/ctxlog"
	"github.com/vk/taskloom/internal/nodectx"
	"github.com/zclconf/go-cty/cty"
)

// Engine runs pipelines against a handler registry.
type Engine struct {
	registry *Registry
}

// New creates an engine using the given registry.
func New(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Run executes every node of the pipeline as a child of root, concurrently,
// and completes the root once all children have folded so the root namespace
// is finalized for the caller. The first node failure cancels the run;
// failed nodes have failure injected into their completion signal so blocked
// dependents observe the error instead of stalling.
func (e *Engine) Run(ctx context.Context, root *nodectx.Context, p *config.Pipeline) error {
	logger := ctxlog.FromContext(ctx)

	// Resolve handlers and validate the wiring before pushing any context,
	// so a misconfigured pipeline fails before any node starts. An unknown
	// reference or a reference cycle would otherwise stall the run forever:
	// absence of a key is only decidable once the shared parent completes,
	// and the parent completes last.
	if err := validate(p); err != nil {
		return err
	}
	handlers := make([]Handler, len(p.Nodes))
	for i, n := range p.Nodes {
		h, err := e.registry.Lookup(n.Handler)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.Name, err)
		}
		handlers[i] = h
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range p.Nodes {
		nc := root.Push(n.Name, bindings(n))
		if len(n.Outputs) > 0 {
			nc.SetOutputNames(n.Outputs)
		}
		h := handlers[i]

		g.Go(func() error {
			if err := e.runNode(gctx, nc, h); err != nil {
				logger.Error("node failed", "node", nc.FullName(), "error", err)
				// Waiters on this node must observe the failure; a second
				// resolution (handler failed after completing) is reported
				// as the contract violation it is.
				if ferr := nc.Fail(err); ferr != nil {
					logger.Error("failure injection after completion", "node", nc.FullName(), "error", ferr)
				}
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Waiters blocked on the shared parent namespace must observe the
		// tree's failure rather than stall; failing the root finalizes it.
		if ferr := root.Fail(err); ferr != nil {
			logger.Error("failing root after node failure", "error", ferr)
		}
		return err
	}

	if err := root.Complete(); err != nil {
		return fmt.Errorf("completing root: %w", err)
	}
	return nil
}

// runNode is the owning worker for one node: resolve inputs, invoke the
// handler, publish its result, complete, fold.
func (e *Engine) runNode(ctx context.Context, nc *nodectx.Context, h Handler) error {
	logger := ctxlog.FromContext(ctx).With("node", nc.FullName())
	logger.Debug("starting node")

	inputs, err := nc.ResolveInputs(ctx)
	if err != nil {
		return err
	}
	logger.Debug("inputs resolved")

	out, err := h(ctx, nc, inputs)
	if err != nil {
		return err
	}
	if out != cty.NilVal && !out.IsNull() {
		if out.Type().IsObjectType() || out.Type().IsMapType() {
			for it := out.ElementIterator(); it.Next(); {
				k, v := it.Element()
				nc.SetOutput(k.AsString(), v)
			}
		} else {
			nc.SetOutputs(out)
		}
	}

	if err := nc.Complete(); err != nil {
		return err
	}
	if err := nc.Fold(); err != nil {
		return err
	}
	logger.Debug("node finished")
	return nil
}

// bindings converts a node's configured input map into context bindings,
// preserving declaration order.
func bindings(n *config.Node) []nodectx.Binding {
	out := make([]nodectx.Binding, 0, len(n.Inputs))
	for _, in := range n.Inputs {
		switch {
		case in.Literal != nil:
			out = append(out, nodectx.LiteralBinding(in.Target, *in.Literal))
		case in.Default:
			out = append(out, nodectx.DefaultBinding(in.Target))
		default:
			out = append(out, nodectx.OutputBinding(in.Target, in.From))
		}
	}
	return out
}
