// Package config holds the format-agnostic representation of a pipeline
// definition, decoupled from the HCL syntax it is usually loaded from.
package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Pipeline is the unified representation of one pipeline definition: the
// task attached to every window and the nodes executed for each window's
// context tree.
type Pipeline struct {
	Task  *Task
	Nodes []*Node
}

// Task is the declared task descriptor.
type Task struct {
	Kind   string
	Params cty.Value
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Name    string
	Handler string
	Inputs  []*InputBinding
	// Outputs is the optional selection of output keys folded into the
	// parent; empty means all keys present at fold time.
	Outputs []string
}

// InputBinding is one entry of a node's ordered input map. Exactly one of
// Literal, From and Default is set.
type InputBinding struct {
	Target  string
	Literal *cty.Value
	From    string
	Default bool
}

// Node returns the named node, or nil.
func (p *Pipeline) Node(name string) *Node {
	for _, n := range p.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}
