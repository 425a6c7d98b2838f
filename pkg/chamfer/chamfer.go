// Package chamfer generates the wedge solids that are subtracted from a
// T-rail head to bevel its underside.
//
// All geometry is in the rail's local frame: X across the rail (centred on
// X=0), Z up, and the rail running along +Y. The neck/head interface sits
// at Z=Base. The left wedge's cross-section is the right triangle
//
//	outer head corner (-head/2, Base)
//	neck edge         (-neck/2, Base)
//	apex              (-head/2, Base+chamferHeight)
//
// and the right wedge mirrors it. Removing both from a head of width head
// leaves an underside that widens from the neck to the full head over
// chamferHeight; the bevel is 45° exactly when head-neck = 2*chamferHeight.
package chamfer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

const (
	// DefaultOvershoot extends each wedge past both rail ends so no end
	// face is coplanar with the head's.
	DefaultOvershoot = 1.0

	// DefaultMargin grows each wedge outward past the head's side and
	// underside, away from the bevel line.
	DefaultMargin = 0.5
)

// Side selects a wedge.
type Side int

const (
	Left Side = iota
	Right
)

type options struct {
	base      float64
	start     float64
	overshoot float64
	margin    float64
}

// Option adjusts wedge placement.
type Option func(*options)

// WithBase sets the Z of the neck/head interface (the neck height).
func WithBase(z float64) Option { return func(o *options) { o.base = z } }

// WithStart sets the Y at which the rail begins.
func WithStart(y float64) Option { return func(o *options) { o.start = y } }

// WithOvershoot sets how far wedges extend past each rail end.
func WithOvershoot(d float64) Option { return func(o *options) { o.overshoot = d } }

// WithMargin sets how far wedges extend past the head's outer faces.
// Zero builds the bare triangle.
func WithMargin(d float64) Option { return func(o *options) { o.margin = d } }

func collect(opts []Option) options {
	o := options{overshoot: DefaultOvershoot, margin: DefaultMargin}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate reports ErrInvalidParameter unless every dimension is positive
// and the head is wider than the neck.
func Validate(neckWidth, headWidth, chamferHeight, length float64) error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"neck width", neckWidth},
		{"head width", headWidth},
		{"chamfer height", chamferHeight},
		{"length", length},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", kernel.ErrInvalidParameter, p.name, p.v)
		}
	}
	if headWidth <= neckWidth {
		return fmt.Errorf("%w: head width %v must exceed neck width %v", kernel.ErrInvalidParameter, headWidth, neckWidth)
	}
	return nil
}

// Section returns the wedge's cross-section triangle in the XZ plane
// (returned as r2 with Y standing for Z), with the interface at z=base.
func Section(side Side, neckWidth, headWidth, chamferHeight, base float64) []r2.Vec {
	s := -1.0
	if side == Right {
		s = 1
	}
	return []r2.Vec{
		{X: s * headWidth / 2, Y: base},
		{X: s * neckWidth / 2, Y: base},
		{X: s * headWidth / 2, Y: base + chamferHeight},
	}
}

// Angle returns the bevel angle from vertical, in degrees.
func Angle(neckWidth, headWidth, chamferHeight float64) float64 {
	return math.Atan2((headWidth-neckWidth)/2, chamferHeight) * 180 / math.Pi
}

// grown extends the triangle by margin away from the bevel line: past the
// apex along the bevel, and below the base outside the neck.
func grown(tri []r2.Vec, margin float64) []r2.Vec {
	if margin <= 0 {
		return tri
	}
	corner, neck, apex := tri[0], tri[1], tri[2]
	out := -1.0
	if corner.X > neck.X {
		out = 1
	}
	bevel := r2.Unit(r2.Sub(apex, neck))
	farApex := r2.Add(apex, r2.Scale(margin, bevel))
	return []r2.Vec{
		neck,
		{X: neck.X + out*margin, Y: neck.Y - margin},
		{X: farApex.X, Y: corner.Y - margin},
		farApex,
	}
}

// Wedge builds one wedge prism of the given length.
func Wedge(side Side, neckWidth, headWidth, chamferHeight, length float64, opts ...Option) (*kernel.Solid, error) {
	if err := Validate(neckWidth, headWidth, chamferHeight, length); err != nil {
		return nil, err
	}
	o := collect(opts)
	profile := grown(Section(side, neckWidth, headWidth, chamferHeight, o.base), o.margin)
	run := length + 2*o.overshoot
	p := placement.ProfileAlongY(run).Then(placement.At(0, o.start-o.overshoot, 0))
	return placement.Place(primitive.Extrusion{Profile: profile, Length: run}, p)
}

// Wedges returns the left and right wedges for a rail head.
func Wedges(neckWidth, headWidth, chamferHeight, length float64, opts ...Option) (left, right *kernel.Solid, err error) {
	left, err = Wedge(Left, neckWidth, headWidth, chamferHeight, length, opts...)
	if err != nil {
		return nil, nil, err
	}
	right, err = Wedge(Right, neckWidth, headWidth, chamferHeight, length, opts...)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Head describes a chamfered T head on a neck.
type Head struct {
	NeckWidth     float64
	NeckHeight    float64
	HeadWidth     float64
	ChamferHeight float64
	HeadFlat      float64
	Length        float64
}

// Build composes the rail the way a machinist would: neck box and
// full-width head box unioned, then both wedges cut from the head.
func (h Head) Build(c *csg.Compositor, label string, at r3.Vec) (csg.Result, error) {
	if err := Validate(h.NeckWidth, h.HeadWidth, h.ChamferHeight, h.Length); err != nil {
		return csg.Result{}, err
	}
	neck, err := primitive.Build(primitive.Box{Width: h.NeckWidth, Depth: h.Length, Height: h.NeckHeight})
	if err != nil {
		return csg.Result{}, err
	}
	head, err := primitive.Build(primitive.Box{Width: h.HeadWidth, Depth: h.Length, Height: h.ChamferHeight + h.HeadFlat})
	if err != nil {
		return csg.Result{}, err
	}
	left, right, err := Wedges(h.NeckWidth, h.HeadWidth, h.ChamferHeight, h.Length, WithBase(h.NeckHeight))
	if err != nil {
		return csg.Result{}, err
	}

	neck = neck.Translate(r3.Add(at, r3.Vec{X: -h.NeckWidth / 2}))
	head = head.Translate(r3.Add(at, r3.Vec{X: -h.HeadWidth / 2, Z: h.NeckHeight}))
	return c.Compose(neck, []csg.Step{
		csg.Add(label+".head", head),
		csg.Cut(label+".wedge-left", left.Translate(at)),
		csg.Cut(label+".wedge-right", right.Translate(at)),
	})
}
