// Package hcl loads pipeline definitions from .hcl files and translates them
// into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/taskloom/internal/config"
	"github.com/vk/taskloom/internal/ctxlog"
)

// Loader parses pipeline files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a Loader with a fresh parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// LoadFile parses and translates one pipeline file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("parsing pipeline file", "path", path)

	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return l.translate(ctx, file.Body)
}

// LoadSource parses and translates pipeline source held in memory, used by
// tests and embedded definitions. filename is for diagnostics only.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Pipeline, error) {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	return l.translate(ctx, file.Body)
}

// translate decodes the body against the schema and builds the agnostic
// model, validating the properties that are decidable at load time: node
// name uniqueness, exactly one source per input binding, non-empty
// references.
func (l *Loader) translate(ctx context.Context, body hcl.Body) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	var raw fileSchema
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding pipeline: %w", diags)
	}

	p := &config.Pipeline{}
	if raw.Task != nil {
		params := cty.EmptyObjectVal
		if raw.Task.Params != nil {
			v, diags := raw.Task.Params.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("evaluating task params: %w", diags)
			}
			params = v
		}
		p.Task = &config.Task{Kind: raw.Task.Kind, Params: params}
	}

	seen := make(map[string]struct{}, len(raw.Nodes))
	for _, n := range raw.Nodes {
		if _, dup := seen[n.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = struct{}{}

		node := &config.Node{
			Name:    n.Name,
			Handler: n.Handler,
			Outputs: n.Outputs,
		}
		for _, in := range n.Inputs {
			b, err := translateBinding(n.Name, in)
			if err != nil {
				return nil, err
			}
			node.Inputs = append(node.Inputs, b)
		}
		p.Nodes = append(p.Nodes, node)
	}

	logger.Debug("pipeline translated", "nodes", len(p.Nodes), "has_task", p.Task != nil)
	return p, nil
}

func translateBinding(nodeName string, in *inputSchema) (*config.InputBinding, error) {
	b := &config.InputBinding{Target: in.Target}

	sources := 0
	if in.Literal != nil {
		v, diags := in.Literal.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating literal for input %q of node %q: %w", in.Target, nodeName, diags)
		}
		b.Literal = &v
		sources++
	}
	if in.From != nil {
		if *in.From == "" {
			return nil, fmt.Errorf("input %q of node %q references an empty output name", in.Target, nodeName)
		}
		b.From = *in.From
		sources++
	}
	if in.Default != nil && *in.Default {
		b.Default = true
		sources++
	}

	if sources != 1 {
		return nil, fmt.Errorf("input %q of node %q must declare exactly one of literal, from or default", in.Target, nodeName)
	}
	return b, nil
}
