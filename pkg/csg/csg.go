// Package csg folds boolean pipelines over solids with a per-step failure
// fallback.
//
// A pipeline starts from a seed and applies union and difference steps
// strictly in order. When the kernel fails on a step, or returns something
// that fails the sanity checks below, the step falls back:
//
//   - union falls back to plain mesh concatenation of accumulator and
//     operand, so no material is lost;
//   - difference leaves the accumulator uncut, since concatenating a cutter
//     would add material where it was meant to be removed.
//
// Either way the result is marked degraded, and the mark is never cleared
// by later steps.
package csg

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
)

// Op is a pipeline operator.
type Op int

const (
	Union Op = iota
	Difference
)

func (o Op) String() string {
	switch o {
	case Union:
		return "union"
	case Difference:
		return "difference"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp converts "union" or "difference" to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "union", "add":
		return Union, nil
	case "difference", "subtract", "sub":
		return Difference, nil
	}
	return 0, fmt.Errorf("%w: unknown boolean operator %q", kernel.ErrInvalidParameter, s)
}

// Step is one pipeline stage.
type Step struct {
	Op      Op
	Operand *kernel.Solid
	Label   string
}

// Add returns a union step.
func Add(label string, s *kernel.Solid) Step {
	return Step{Op: Union, Operand: s, Label: label}
}

// Cut returns a difference step.
func Cut(label string, s *kernel.Solid) Step {
	return Step{Op: Difference, Operand: s, Label: label}
}

// StepOutcome records how a step went.
type StepOutcome struct {
	Label     string
	Op        Op
	Succeeded bool
	Err       error // why the step fell back; nil on success
}

// Result is the output of a fold.
type Result struct {
	Solid     *kernel.Solid
	Degraded  bool
	Fallbacks int
	Steps     []StepOutcome
}

// DefaultTolerance is the relative volume slack allowed when checking a
// boolean result against the bounds its operator implies.
const DefaultTolerance = 1e-4

// Compositor applies boolean steps through a kernel.
type Compositor struct {
	kernel kernel.Kernel
	sink   event.Sink
	tol    float64
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithSink sets the event sink.
func WithSink(s event.Sink) Option {
	return func(c *Compositor) { c.sink = event.OrNop(s) }
}

// WithTolerance sets the relative volume tolerance.
func WithTolerance(rel float64) Option {
	return func(c *Compositor) {
		if rel > 0 {
			c.tol = rel
		}
	}
}

// New returns a compositor over k. Approximate kernels widen the volume
// tolerance to what they report.
func New(k kernel.Kernel, opts ...Option) *Compositor {
	c := &Compositor{kernel: k, sink: event.Nop, tol: DefaultTolerance}
	if a, ok := k.(kernel.Approximate); ok && a.VolumeTolerance() > c.tol {
		c.tol = a.VolumeTolerance()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kernel returns the underlying kernel.
func (c *Compositor) Kernel() kernel.Kernel {
	return c.kernel
}

// Sink returns the configured event sink.
func (c *Compositor) Sink() event.Sink {
	return c.sink
}

// Compose folds steps over seed left to right. Neither the seed nor any
// operand is modified. Errors are returned only for unusable input (a nil
// or structurally invalid seed or operand); kernel failures are absorbed
// by the fallback and show up in Result.
func (c *Compositor) Compose(seed *kernel.Solid, steps []Step) (Result, error) {
	if err := seed.Check(); err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	for i, st := range steps {
		if err := st.Operand.Check(); err != nil {
			return Result{}, fmt.Errorf("step %d (%s): %w", i, st.Label, err)
		}
	}

	res := Result{
		Solid:    seed,
		Degraded: seed.Degraded,
		Steps:    make([]StepOutcome, 0, len(steps)),
	}
	for _, st := range steps {
		out, err := c.apply(res.Solid, st)
		oc := StepOutcome{Label: st.Label, Op: st.Op, Succeeded: err == nil, Err: err}
		if err != nil {
			res.Fallbacks++
		}
		res.Steps = append(res.Steps, oc)
		res.Solid = out
		res.Degraded = res.Degraded || out.Degraded
	}
	if res.Solid == seed {
		res.Solid = seed.Clone()
	}
	res.Solid.Degraded = res.Degraded
	return res, nil
}

// Apply performs a single step and reports whether the kernel result was
// accepted. On failure the returned solid is the degraded fallback.
func (c *Compositor) Apply(acc *kernel.Solid, st Step) (*kernel.Solid, bool) {
	out, err := c.apply(acc, st)
	return out, err == nil
}

func (c *Compositor) apply(acc *kernel.Solid, st Step) (*kernel.Solid, error) {
	c.sink.Publish(event.Event{Kind: event.StepAttempted, Label: st.Label, Op: st.Op.String()})

	out, err := c.attempt(acc, st)
	if err == nil {
		c.sink.Publish(event.Event{Kind: event.StepSucceeded, Label: st.Label, Op: st.Op.String(), Degraded: out.Degraded})
		return out, nil
	}

	var fb *kernel.Solid
	switch st.Op {
	case Union:
		fb = kernel.Concat(acc, st.Operand)
	default:
		fb = acc.Clone()
	}
	fb.Degraded = true
	c.sink.Publish(event.Event{
		Kind:     event.FallbackTriggered,
		Label:    st.Label,
		Op:       st.Op.String(),
		Err:      err,
		Degraded: true,
		Detail:   fallbackDetail(st.Op),
	})
	return fb, err
}

func fallbackDetail(op Op) string {
	if op == Union {
		return "kept both meshes unmerged"
	}
	return "skipped cut"
}

// attempt runs the kernel and checks the result. Panics are recovered
// into ErrBooleanDegenerate.
func (c *Compositor) attempt(acc *kernel.Solid, st Step) (out *kernel.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s panicked: %v", kernel.ErrBooleanDegenerate, c.kernel.Name(), r)
		}
	}()

	switch st.Op {
	case Union:
		out, err = c.kernel.Union(acc, st.Operand)
	case Difference:
		out, err = c.kernel.Difference(acc, st.Operand)
	default:
		return nil, fmt.Errorf("%w: unsupported operator %v", kernel.ErrInvalidParameter, st.Op)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", kernel.ErrBooleanDegenerate, c.kernel.Name(), st.Op, err)
	}
	if err := c.sane(st.Op, acc, st.Operand, out); err != nil {
		return nil, err
	}
	return out, nil
}

// sane checks a kernel result against what the operator implies about
// closedness and volume.
func (c *Compositor) sane(op Op, a, b, out *kernel.Solid) error {
	if out == nil {
		return fmt.Errorf("%w: %s returned nil", kernel.ErrBooleanDegenerate, op)
	}
	va, vb := a.Volume(), b.Volume()
	tol := math.Max(c.tol*(math.Abs(va)+math.Abs(vb)), 1e-9)

	if out.IsEmpty() {
		if op == Difference && va-vb <= tol {
			return nil // the cutter swallowed the base
		}
		return fmt.Errorf("%w: %s produced an empty solid", kernel.ErrBooleanDegenerate, op)
	}
	if err := out.Check(); err != nil {
		return fmt.Errorf("%w: %s result: %v", kernel.ErrBooleanDegenerate, op, err)
	}

	closedIn := a.IsClosed() && b.IsClosed()
	if closedIn && !out.IsClosed() {
		return fmt.Errorf("%w: %s of closed operands is not closed (%+v)", kernel.ErrBooleanDegenerate, op, out.Census())
	}
	if !closedIn {
		return nil // volumes of open meshes say nothing
	}

	v := out.Volume()
	var lo, hi float64
	switch op {
	case Union:
		lo, hi = math.Max(va, vb), va+vb
	case Difference:
		lo, hi = va-vb, va
	}
	if v < lo-tol || v > hi+tol {
		return fmt.Errorf("%w: %s volume %.6g outside [%.6g, %.6g]", kernel.ErrBooleanDegenerate, op, v, lo, hi)
	}
	return nil
}

// Union folds union over solids, seeded by the first.
func (c *Compositor) Union(label string, solids ...*kernel.Solid) (Result, error) {
	if len(solids) == 0 {
		return Result{}, fmt.Errorf("%s: %w: union of nothing", label, kernel.ErrInvalidParameter)
	}
	steps := make([]Step, 0, len(solids)-1)
	for i, s := range solids[1:] {
		steps = append(steps, Add(fmt.Sprintf("%s[%d]", label, i+1), s))
	}
	return c.Compose(solids[0], steps)
}

// Subtract folds difference of every cutter from base.
func (c *Compositor) Subtract(label string, base *kernel.Solid, cutters ...*kernel.Solid) (Result, error) {
	steps := make([]Step, 0, len(cutters))
	for i, s := range cutters {
		steps = append(steps, Cut(fmt.Sprintf("%s[%d]", label, i), s))
	}
	return c.Compose(base, steps)
}

// Intersect returns a ∩ b with no fallback. It is used for clearance
// checks, not inside pipelines.
func (c *Compositor) Intersect(a, b *kernel.Solid) (*kernel.Solid, error) {
	out, err := c.kernel.Intersection(a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s intersection: %v", kernel.ErrBooleanDegenerate, c.kernel.Name(), err)
	}
	return out, nil
}

// Branches builds independent sub-assemblies concurrently and returns them
// in argument order, ready for a single sequential fold. Each function owns
// the solid it returns; nothing is shared between branches. The first
// error is returned once every branch has finished.
func Branches(fns ...func() (*kernel.Solid, error)) ([]*kernel.Solid, error) {
	out := make([]*kernel.Solid, len(fns))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, fn := range fns {
		g.Go(func() error {
			s, err := fn()
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
