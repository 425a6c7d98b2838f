// Package parts generates the printable parts of the under-desk organiser
// from their parameter tables.
//
// Every generator builds primitives, places them, and folds them through a
// csg.Compositor; Build then runs the validator so no solid leaves this
// package without a health report.
package parts

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
	"github.com/chazu/trayforge/pkg/validate"
)

// Generator builds one part.
type Generator func(cfg Config, c *csg.Compositor) (csg.Result, error)

// Part is a registered generator.
type Part struct {
	Name        string
	Description string
	Generate    Generator
}

var registry = []Part{
	{"tray", "enclosed cable tray with cable notches and two full-length T-rails", Tray},
	{"frame", "desk frame with downward-opening T-slots and countersunk beam holes", Frame},
	{"duct", "wire duct with an internal retention lip and two base screw holes", Duct},
	{"zbracket", "Z-bracket whose lip carries a tray's rail head", ZBracket},
	{"mount", "sandwich wall mount with spacer grid, pillars and countersunk holes", Mount},
	{"clip", "base strip carrying short rail segments", Clip},
}

// Names returns every part name, sorted.
func Names() []string {
	out := make([]string, len(registry))
	for i, p := range registry {
		out[i] = p.Name
	}
	slices.Sort(out)
	return out
}

// Parts returns the registered parts in registration order.
func Parts() []Part {
	return slices.Clone(registry)
}

// Lookup returns the part registered under name.
func Lookup(name string) (Part, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return Part{}, false
}

// Output is a generated part and its health.
type Output struct {
	Name   string
	Solid  *kernel.Solid
	Result csg.Result
	Report validate.Report
}

// Build generates the named part and validates it. The returned solid is
// the validator's output, repaired if repair was needed.
func Build(name string, cfg Config, c *csg.Compositor, v *validate.Validator) (Output, error) {
	p, ok := Lookup(name)
	if !ok {
		return Output{}, fmt.Errorf("%w: unknown part %q", kernel.ErrInvalidParameter, name)
	}
	if v == nil {
		v = validate.New(validate.WithSink(c.Sink()))
	}
	res, err := p.Generate(cfg, c)
	if err != nil {
		return Output{}, fmt.Errorf("%s: %w", name, err)
	}
	return Finish(name, res, v)
}

// Finish validates a composed result.
func Finish(name string, res csg.Result, v *validate.Validator) (Output, error) {
	rep, solid, err := v.Validate(name, res.Solid)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Name:   name,
		Solid:  solid,
		Result: res,
		Report: rep.WithResult(res),
	}, nil
}

// builder wraps the compositor's sink so every primitive is reported under
// the part's label.
type builder struct {
	part string
	b    primitive.Builder
}

func newBuilder(part string, c *csg.Compositor) builder {
	return builder{part: part, b: primitive.Builder{Sink: c.Sink()}}
}

// box builds a box with its minimum corner at (x, y, z).
func (b builder) box(label string, w, d, h, x, y, z float64) (*kernel.Solid, error) {
	s, err := b.b.Build(b.part+"."+label, primitive.Box{Width: w, Depth: d, Height: h})
	if err != nil {
		return nil, err
	}
	return s.Translate(r3.Vec{X: x, Y: y, Z: z}), nil
}

// cylinder builds a vertical cylinder whose base centre is at (x, y, z).
func (b builder) cylinder(label string, r, h, x, y, z float64) (*kernel.Solid, error) {
	s, err := b.b.Build(b.part+"."+label, primitive.Cylinder{Radius: r, Length: h})
	if err != nil {
		return nil, err
	}
	return s.Translate(r3.Vec{X: x, Y: y, Z: z}), nil
}

// taper builds a cone whose base of radius r is at (x, y, z) and whose
// apex points down h below it.
func (b builder) taper(label string, r, h, x, y, z float64) (*kernel.Solid, error) {
	s, err := b.b.Build(b.part+"."+label, primitive.Cone{Radius: r, Height: h})
	if err != nil {
		return nil, err
	}
	return placement.Flip().Then(placement.At(x, y, z)).Apply(s), nil
}

// steps is a pipeline under construction.
type steps []csg.Step

func (s *steps) add(label string, solid *kernel.Solid) {
	*s = append(*s, csg.Add(label, solid))
}

func (s *steps) cut(label string, solid *kernel.Solid) {
	*s = append(*s, csg.Cut(label, solid))
}

// merged folds the solids into one union. A cutter assembled this way is
// applied as a single difference step.
func merged(c *csg.Compositor, label string, solids ...*kernel.Solid) (*kernel.Solid, error) {
	res, err := c.Union(label, solids...)
	if err != nil {
		return nil, err
	}
	return res.Solid, nil
}
