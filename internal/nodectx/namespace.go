package nodectx

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskloom/internal/signal"
	"github.com/zclconf/go-cty/cty"
)

// namespace is the per-context output store: an insertion-ordered key→value
// map with a completion signal. It additionally supports a wholesale replace
// with a single bare value, used when a node produces one unnamed result.
//
// Writers are the single owning worker of the context plus folding children;
// all mutation happens under the mutex. Waiters block on the notify channel,
// which is swapped on every write, or on the completion signal.
type namespace struct {
	mu      sync.Mutex
	keys    []string
	vals    map[string]cty.Value
	bare    cty.Value
	hasBare bool
	changed chan struct{}
	done    *signal.Signal
}

func newNamespace() *namespace {
	return &namespace{
		vals:    make(map[string]cty.Value),
		changed: make(chan struct{}),
		done:    signal.New(),
	}
}

// notifyLocked wakes all waiters observing the previous change channel.
// Callers must hold mu.
func (ns *namespace) notifyLocked() {
	close(ns.changed)
	ns.changed = make(chan struct{})
}

// set inserts or overwrites one key, clearing any bare value.
func (ns *namespace) set(key string, val cty.Value) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.hasBare = false
	ns.bare = cty.NilVal
	if _, exists := ns.vals[key]; !exists {
		ns.keys = append(ns.keys, key)
	}
	ns.vals[key] = val
	ns.notifyLocked()
}

// replaceAll substitutes the whole namespace with v. Object and map values
// decompose into keyed entries; any other value is stored bare.
func (ns *namespace) replaceAll(v cty.Value) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.keys = nil
	ns.vals = make(map[string]cty.Value)
	ns.hasBare = false
	ns.bare = cty.NilVal
	if v != cty.NilVal && !v.IsNull() && (v.Type().IsObjectType() || v.Type().IsMapType()) {
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			ns.keys = append(ns.keys, k.AsString())
			ns.vals[k.AsString()] = ev
		}
	} else {
		ns.hasBare = true
		ns.bare = v
	}
	ns.notifyLocked()
}

// get returns the value for key, if present.
func (ns *namespace) get(key string) (cty.Value, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	v, ok := ns.vals[key]
	return v, ok
}

// snapshot materializes the namespace as a single cty.Value: the bare value
// if one is set, otherwise an object of the keyed entries.
func (ns *namespace) snapshot() cty.Value {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.snapshotLocked()
}

func (ns *namespace) snapshotLocked() cty.Value {
	if ns.hasBare {
		return ns.bare
	}
	if len(ns.keys) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(ns.keys))
	for _, k := range ns.keys {
		attrs[k] = ns.vals[k]
	}
	return cty.ObjectVal(attrs)
}

// sole returns the single default output: the bare value, or the only keyed
// entry. Zero or multiple entries is ErrAmbiguousDefaultOutput.
func (ns *namespace) sole() (cty.Value, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.hasBare {
		return ns.bare, nil
	}
	if len(ns.keys) != 1 {
		return cty.NilVal, fmt.Errorf("%w: have %d", ErrAmbiguousDefaultOutput, len(ns.keys))
	}
	return ns.vals[ns.keys[0]], nil
}

// waitComplete blocks until the namespace's completion signal resolves or
// ctx is canceled, returning the failure the signal carries, if any.
func (ns *namespace) waitComplete(ctx context.Context) error {
	return ns.done.Wait(ctx)
}

// waitKey blocks until key is present, the namespace completes, or ctx is
// canceled. A key folded in by a sibling wakes waiters immediately; absence
// becomes an error only once the namespace is finalized.
func (ns *namespace) waitKey(ctx context.Context, key string) (cty.Value, error) {
	for {
		ns.mu.Lock()
		if v, ok := ns.vals[key]; ok {
			ns.mu.Unlock()
			return v, nil
		}
		if ns.done.Resolved() {
			ns.mu.Unlock()
			if err := ns.done.Err(); err != nil {
				return cty.NilVal, err
			}
			return cty.NilVal, fmt.Errorf("%w: %q", ErrOutputKeyNotFound, key)
		}
		changed := ns.changed
		ns.mu.Unlock()

		select {
		case <-changed:
		case <-ns.done.Done():
		case <-ctx.Done():
			return cty.NilVal, ctx.Err()
		}
	}
}
