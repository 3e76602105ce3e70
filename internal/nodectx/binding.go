package nodectx

import "github.com/zclconf/go-cty/cty"

// SourceKind identifies where a bound input's value comes from.
type SourceKind int

const (
	// SourceLiteral binds a value carried verbatim in the binding itself.
	SourceLiteral SourceKind = iota
	// SourceParentDefault binds the single default output of the parent
	// context, valid only when the completed parent holds exactly one output.
	SourceParentDefault
	// SourceParentOutput binds a named key of the parent's output namespace.
	SourceParentOutput
)

// Source describes where one input value is resolved from.
type Source struct {
	Kind    SourceKind
	Literal cty.Value // SourceLiteral only
	Name    string    // SourceParentOutput only
}

// Binding maps a context-local input name to its source. A context's input
// map is an ordered sequence of bindings, fixed at push time.
type Binding struct {
	Target string
	Source Source
}

// LiteralBinding binds target to a literal value; resolution never blocks.
func LiteralBinding(target string, v cty.Value) Binding {
	return Binding{Target: target, Source: Source{Kind: SourceLiteral, Literal: v}}
}

// DefaultBinding binds target to the parent's single default output.
func DefaultBinding(target string) Binding {
	return Binding{Target: target, Source: Source{Kind: SourceParentDefault}}
}

// OutputBinding binds target to the named key of the parent's output
// namespace.
func OutputBinding(target, name string) Binding {
	return Binding{Target: target, Source: Source{Kind: SourceParentOutput, Name: name}}
}
