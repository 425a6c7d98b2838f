// Package kernel defines the solid representation shared by every part of
// the system and the abstract boolean kernel interface. Implementations
// (bsp, sdfx, manifold) provide mesh booleans behind this interface. The
// kernel abstraction allows swapping backends without changing the rest of
// the system.
package kernel

import "errors"

// Error taxonomy. Callers match with errors.Is; the wrapped message carries
// the offending parameter or step.
var (
	// ErrInvalidParameter reports a non-positive, non-finite or otherwise
	// impossible construction parameter. Fatal for that construction.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBooleanDegenerate reports a boolean the kernel could not carry out
	// or whose result failed sanity checks. The compositor recovers from it
	// with its fallback policy.
	ErrBooleanDegenerate = errors.New("boolean degenerate")

	// ErrStructurallyInvalid reports a solid with no faces, out-of-range
	// indices or non-finite coordinates. It cannot be repaired.
	ErrStructurallyInvalid = errors.New("structurally invalid solid")
)

// Kernel is the abstract boolean kernel interface.
// Every operation consumes its operands read-only and returns a new Solid.
type Kernel interface {
	// Name identifies the backend in logs and CLI flags.
	Name() string

	Union(a, b *Solid) (*Solid, error)
	Difference(a, b *Solid) (*Solid, error)
	Intersection(a, b *Solid) (*Solid, error)
}

// Approximate is implemented by kernels whose results only approximate the
// exact boolean (remeshing backends). VolumeTolerance is the relative volume
// error the compositor should accept from them.
type Approximate interface {
	VolumeTolerance() float64
}
