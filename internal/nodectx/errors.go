package nodectx

import "errors"

// Resolution failures are recoverable by the caller and surface as the
// failing node's execution error. Contract violations (double completion,
// folding before completion) indicate the tree's invariants are already
// broken; callers should abort the execution unit loudly rather than recover.
var (
	// ErrInputNotFound is returned when a target name is absent from a
	// context's input map.
	ErrInputNotFound = errors.New("input not found in input map")

	// ErrOutputKeyNotFound is returned when a named reference does not match
	// any key of the parent's finalized output namespace.
	ErrOutputKeyNotFound = errors.New("output key not found")

	// ErrAmbiguousDefaultOutput is returned when a default-parent reference
	// is used against a namespace that does not hold exactly one output.
	ErrAmbiguousDefaultOutput = errors.New("default reference requires exactly one parent output")

	// ErrDoubleCompletion is returned by Complete when the context's
	// completion signal has already been resolved.
	ErrDoubleCompletion = errors.New("context already completed")

	// ErrIncompleteFold is returned by Fold when the context has not been
	// completed yet.
	ErrIncompleteFold = errors.New("cannot fold an incomplete context")

	// ErrMaskAlreadySet is returned when the tree's write-once row mask is
	// set a second time, from any context sharing the tree.
	ErrMaskAlreadySet = errors.New("row mask already set for this tree")

	// ErrMaskNotSet is returned when the row mask is read before any
	// context has set it.
	ErrMaskNotSet = errors.New("row mask not set")

	// ErrNoParent is returned when an operation requiring a parent context
	// (folding, parent-output references) is applied to a root.
	ErrNoParent = errors.New("context has no parent")
)
