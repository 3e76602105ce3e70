package app

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/taskloom/internal/engine"
	"github.com/vk/taskloom/internal/nodectx"
)

// registerBuiltins installs the handlers every pipeline can rely on without
// registering its own.
func registerBuiltins(r *engine.Registry) {
	r.Register("extract", extractHandler)
	r.Register("passthrough", passthroughHandler)
}

// extractHandler materializes the window's payload rows under "records" and
// claims the tree's row mask, selecting every row. It plays the role of the
// node nearest the root that first observes the batch.
func extractHandler(_ context.Context, nc *nodectx.Context, _ cty.Value) (cty.Value, error) {
	payload := nc.Message().Payload()
	if payload == nil {
		return cty.NilVal, fmt.Errorf("extract: message has no payload")
	}

	mask := make([]bool, payload.NumRows())
	for i := range mask {
		mask[i] = true
	}
	if err := nc.SetRowMask(mask); err != nil {
		return cty.NilVal, fmt.Errorf("extract: %w", err)
	}

	rows := make([]cty.Value, payload.NumRows())
	for i := range rows {
		rows[i] = cty.ObjectVal(payload.Row(i))
	}
	records := cty.EmptyTupleVal
	if len(rows) > 0 {
		records = cty.TupleVal(rows)
	}
	return cty.ObjectVal(map[string]cty.Value{"records": records}), nil
}

// passthroughHandler republishes its resolved inputs as outputs, which makes
// it the generic rename/fan-in node.
func passthroughHandler(_ context.Context, _ *nodectx.Context, inputs cty.Value) (cty.Value, error) {
	return inputs, nil
}
