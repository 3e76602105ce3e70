package engine

import (
	"fmt"

	"github.com/vk/taskloom/internal/config"
)

// validate checks the pipeline's wiring for the errors that would otherwise
// surface as an indefinite stall at run time: references to nodes that do
// not exist, reference cycles, and default-parent bindings (which at
// pipeline top level would wait on the shared parent, and the parent
// completes last).
func validate(p *config.Pipeline) error {
	byName := make(map[string]*config.Node, len(p.Nodes))
	for _, n := range p.Nodes {
		byName[n.Name] = n
	}

	for _, n := range p.Nodes {
		for _, in := range n.Inputs {
			if in.Default {
				return fmt.Errorf("input %q of node %q: default references are not valid at pipeline top level", in.Target, n.Name)
			}
			if in.From == "" {
				continue
			}
			if in.From == n.Name {
				return fmt.Errorf("node %q references itself", n.Name)
			}
			if _, ok := byName[in.From]; !ok {
				return fmt.Errorf("input %q of node %q references unknown node %q", in.Target, n.Name, in.From)
			}
		}
	}

	// Classic depth-first search with a permanent set of nodes known to be
	// cycle-free and a temporary set for the current recursion stack.
	permanent := make(map[string]bool, len(p.Nodes))
	temporary := make(map[string]bool)

	var visit func(n *config.Node) error
	visit = func(n *config.Node) error {
		if permanent[n.Name] {
			return nil
		}
		if temporary[n.Name] {
			return fmt.Errorf("reference cycle detected involving node %q", n.Name)
		}
		temporary[n.Name] = true
		for _, in := range n.Inputs {
			if in.From == "" {
				continue
			}
			if err := visit(byName[in.From]); err != nil {
				return err
			}
		}
		delete(temporary, n.Name)
		permanent[n.Name] = true
		return nil
	}

	for _, n := range p.Nodes {
		if !permanent[n.Name] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
