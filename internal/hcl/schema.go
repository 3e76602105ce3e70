package hcl

import "github.com/hashicorp/hcl/v2"

// The schema structs mirror the pipeline file syntax one-to-one; they are
// translated into the format-agnostic config model by the loader. Value
// attributes are captured as raw expressions and evaluated during
// translation, so syntax errors and value errors report separately.

type fileSchema struct {
	Task  *taskSchema   `hcl:"task,block"`
	Nodes []*nodeSchema `hcl:"node,block"`
}

type taskSchema struct {
	Kind   string         `hcl:"kind"`
	Params hcl.Expression `hcl:"params,optional"`
}

type nodeSchema struct {
	Name    string         `hcl:"name,label"`
	Handler string         `hcl:"handler"`
	Inputs  []*inputSchema `hcl:"input,block"`
	Outputs []string       `hcl:"outputs,optional"`
}

type inputSchema struct {
	Target  string         `hcl:"name,label"`
	Literal hcl.Expression `hcl:"literal,optional"`
	From    *string        `hcl:"from,optional"`
	Default *bool          `hcl:"default,optional"`
}
