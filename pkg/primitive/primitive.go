// Package primitive builds closed solids from parametric descriptors:
// boxes, cylinders, cones and straight extrusions of 2D profiles.
//
// Every builder is pure. A box has its minimum corner at the origin so that
// placement translations read as corner positions. Round solids and cones
// have their base centre at the origin and extend along their axis;
// extrusions extend along +Z from the XY plane.
package primitive

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
)

// DefaultSegments is the number of facets on a round primitive when the
// descriptor leaves Segments at zero.
const DefaultSegments = 32

// Kind names a primitive shape.
type Kind string

const (
	KindBox       Kind = "box"
	KindCylinder  Kind = "cylinder"
	KindCone      Kind = "cone"
	KindExtrusion Kind = "extrusion"
)

// Axis selects the direction a round primitive extends along.
type Axis int

const (
	AxisZ Axis = iota // default
	AxisX
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "z"
	}
}

// ParseAxis converts "x", "y" or "z" to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z", "":
		return AxisZ, nil
	}
	return AxisZ, fmt.Errorf("%w: unknown axis %q", kernel.ErrInvalidParameter, s)
}

// orient maps a point built along +Z onto the axis with a proper rotation.
func (a Axis) orient(v r3.Vec) r3.Vec {
	switch a {
	case AxisX:
		return r3.Vec{X: v.Z, Y: v.Y, Z: -v.X}
	case AxisY:
		return r3.Vec{X: v.X, Y: v.Z, Z: -v.Y}
	default:
		return v
	}
}

// Descriptor is a closed set of primitive parameterisations.
type Descriptor interface {
	Kind() Kind
	// Validate reports ErrInvalidParameter for unusable parameters.
	Validate() error

	build() (*kernel.Solid, error)
}

// Box is an axis-aligned box with its minimum corner at the origin.
type Box struct {
	Width  float64 // X
	Depth  float64 // Y
	Height float64 // Z
}

// Cylinder is a right circular cylinder, approximated by Segments facets.
// Axis is one of the principal axes. For any other direction build along Z
// and rotate the solid with placement.Rotate.
type Cylinder struct {
	Radius   float64
	Length   float64
	Axis     Axis
	Segments int
}

// Cone is a right circular cone with its base at the origin and apex at
// Height along Axis. As with Cylinder, Axis is a principal axis.
type Cone struct {
	Radius   float64
	Height   float64
	Axis     Axis
	Segments int
}

// Extrusion is a simple polygon in the XY plane swept Length along +Z.
type Extrusion struct {
	Profile []r2.Vec
	Length  float64
}

func (Box) Kind() Kind       { return KindBox }
func (Cylinder) Kind() Kind  { return KindCylinder }
func (Cone) Kind() Kind      { return KindCone }
func (Extrusion) Kind() Kind { return KindExtrusion }

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive and finite, got %v", kernel.ErrInvalidParameter, name, v)
	}
	return nil
}

func segments(n int) (int, error) {
	if n == 0 {
		return DefaultSegments, nil
	}
	if n < 3 {
		return 0, fmt.Errorf("%w: segments must be at least 3, got %d", kernel.ErrInvalidParameter, n)
	}
	return n, nil
}

func (b Box) Validate() error {
	if err := positive("box width", b.Width); err != nil {
		return err
	}
	if err := positive("box depth", b.Depth); err != nil {
		return err
	}
	return positive("box height", b.Height)
}

func (c Cylinder) Validate() error {
	if err := positive("cylinder radius", c.Radius); err != nil {
		return err
	}
	if err := positive("cylinder length", c.Length); err != nil {
		return err
	}
	_, err := segments(c.Segments)
	return err
}

func (c Cone) Validate() error {
	if err := positive("cone radius", c.Radius); err != nil {
		return err
	}
	if err := positive("cone height", c.Height); err != nil {
		return err
	}
	_, err := segments(c.Segments)
	return err
}

func (e Extrusion) Validate() error {
	if err := positive("extrusion length", e.Length); err != nil {
		return err
	}
	return ValidateProfile(e.Profile)
}

// Build validates d and constructs its solid.
func Build(d Descriptor) (*kernel.Solid, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", kernel.ErrInvalidParameter)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d.build()
}

// Builder builds primitives and reports each one to a sink.
type Builder struct {
	Sink event.Sink
}

// Build is Build with a PrimitiveBuilt event on success.
func (b Builder) Build(label string, d Descriptor) (*kernel.Solid, error) {
	s, err := Build(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	event.OrNop(b.Sink).Publish(event.Event{
		Kind:   event.PrimitiveBuilt,
		Label:  label,
		Op:     string(d.Kind()),
		Detail: fmt.Sprintf("%d faces", len(s.Faces)),
	})
	return s, nil
}

// MustBuild is Build for descriptors known to be valid at compile time.
func MustBuild(d Descriptor) *kernel.Solid {
	s, err := Build(d)
	if err != nil {
		panic(err)
	}
	return s
}

func (b Box) build() (*kernel.Solid, error) {
	return extrude([]r2.Vec{
		{X: 0, Y: 0},
		{X: b.Width, Y: 0},
		{X: b.Width, Y: b.Depth},
		{X: 0, Y: b.Depth},
	}, b.Height)
}

func circle(r float64, n int) []r2.Vec {
	pts := make([]r2.Vec, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

func (c Cylinder) build() (*kernel.Solid, error) {
	n, _ := segments(c.Segments)
	s, err := extrude(circle(c.Radius, n), c.Length)
	if err != nil {
		return nil, err
	}
	if c.Axis == AxisZ {
		return s, nil
	}
	return s.Transform(c.Axis.orient), nil
}

func (c Cone) build() (*kernel.Solid, error) {
	n, _ := segments(c.Segments)
	base := circle(c.Radius, n)

	verts := make([]r3.Vec, 0, n+2)
	for _, p := range base {
		verts = append(verts, r3.Vec{X: p.X, Y: p.Y})
	}
	centre := len(verts)
	verts = append(verts, r3.Vec{})
	apex := len(verts)
	verts = append(verts, r3.Vec{Z: c.Height})

	faces := make([]kernel.Face, 0, 2*n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		faces = append(faces,
			kernel.Face{i, j, apex},   // side
			kernel.Face{centre, j, i}, // base, facing -Z
		)
	}
	s := kernel.NewSolid(verts, faces)
	if c.Axis == AxisZ {
		return s, nil
	}
	return s.Transform(c.Axis.orient), nil
}

func (e Extrusion) build() (*kernel.Solid, error) {
	return extrude(CCW(Simplify(e.Profile)), e.Length)
}

// extrude sweeps a simple CCW polygon from z=0 to z=length. Both caps are
// triangulated from the same polygon so every cap edge meets a side edge.
func extrude(poly []r2.Vec, length float64) (*kernel.Solid, error) {
	tris, err := Triangulate(poly)
	if err != nil {
		return nil, err
	}
	n := len(poly)
	verts := make([]r3.Vec, 0, 2*n)
	for _, p := range poly {
		verts = append(verts, r3.Vec{X: p.X, Y: p.Y})
	}
	for _, p := range poly {
		verts = append(verts, r3.Vec{X: p.X, Y: p.Y, Z: length})
	}

	faces := make([]kernel.Face, 0, 2*len(tris)+2*n)
	for _, t := range tris {
		// Bottom cap faces -Z, so its triangles are reversed.
		faces = append(faces,
			kernel.Face{t[0], t[2], t[1]},
			kernel.Face{t[0] + n, t[1] + n, t[2] + n},
		)
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		faces = append(faces,
			kernel.Face{i, j, j + n},
			kernel.Face{i, j + n, i + n},
		)
	}
	return kernel.NewSolid(verts, faces), nil
}
