// Package task defines the immutable descriptor for one unit of work flowing
// through a pipeline. A task names the kind of processing requested and
// carries its structured parameters; every context in one tree shares the
// same descriptor by value.
package task

import (
	"github.com/zclconf/go-cty/cty"
)

// Task describes one unit of work: a kind (e.g. "completion") plus structured
// parameters. Tasks are immutable after creation.
type Task struct {
	kind   string
	params cty.Value
}

// New creates a task of the given kind. A cty.NilVal params is normalized to
// an empty object so callers can always iterate parameters.
func New(kind string, params cty.Value) Task {
	if params == cty.NilVal {
		params = cty.EmptyObjectVal
	}
	return Task{kind: kind, params: params}
}

// Kind returns the task kind.
func (t Task) Kind() string {
	return t.kind
}

// Params returns the structured parameters of the task.
func (t Task) Params() cty.Value {
	return t.params
}

// Param returns the named parameter and whether it exists. It returns false
// when the parameters are not an object or the attribute is absent.
func (t Task) Param(name string) (cty.Value, bool) {
	if !t.params.Type().IsObjectType() || !t.params.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	return t.params.GetAttr(name), true
}

// IsZero reports whether the task is the zero descriptor (no kind).
func (t Task) IsZero() bool {
	return t.kind == ""
}
