// Package placement positions solids. A Placement is a rigid motion: an
// optional rotation about an axis through the origin, followed by a
// translation. The order is fixed; callers that need the other order
// compose two placements with Then.
package placement

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/primitive"
)

// AxisAngle is a rotation by Angle radians about Axis (right-hand rule).
type AxisAngle struct {
	Axis  r3.Vec
	Angle float64
}

// Placement is rotate-then-translate. The zero value is the identity.
type Placement struct {
	Translation r3.Vec
	Rotation    *AxisAngle
}

// Identity leaves solids where they are.
var Identity = Placement{}

// At translates by (x, y, z).
func At(x, y, z float64) Placement {
	return Placement{Translation: r3.Vec{X: x, Y: y, Z: z}}
}

// Rotate rotates by angle radians about axis.
func Rotate(axis r3.Vec, angle float64) Placement {
	return Placement{Rotation: &AxisAngle{Axis: axis, Angle: angle}}
}

// RotateDeg is Rotate with the angle in degrees.
func RotateDeg(axis r3.Vec, deg float64) Placement {
	return Rotate(axis, deg*math.Pi/180)
}

// Unit axes.
var (
	X = r3.Vec{X: 1}
	Y = r3.Vec{Y: 1}
	Z = r3.Vec{Z: 1}
)

// ProfileAlongY reorients an extrusion built in the XY plane along +Z so
// that the profile's +Y points up (+Z) and the extrusion runs along +Y,
// occupying y in [0, length].
func ProfileAlongY(length float64) Placement {
	return Placement{
		Rotation:    &AxisAngle{Axis: X, Angle: math.Pi / 2},
		Translation: r3.Vec{Y: length},
	}
}

// Flip turns a solid upside down about the X axis.
func Flip() Placement {
	return Rotate(X, math.Pi)
}

// IsIdentity reports whether p moves nothing.
func (p Placement) IsIdentity() bool {
	return p.Translation == (r3.Vec{}) && (p.Rotation == nil || p.Rotation.Angle == 0)
}

// Point applies the placement to a single point.
func (p Placement) Point(v r3.Vec) r3.Vec {
	if p.Rotation != nil && p.Rotation.Angle != 0 {
		v = rotation(p.Rotation).Rotate(v)
	}
	return r3.Add(v, p.Translation)
}

func rotation(a *AxisAngle) r3.Rotation {
	return r3.NewRotation(a.Angle, r3.Unit(a.Axis))
}

// Apply returns a placed copy of s; s is not modified.
func (p Placement) Apply(s *kernel.Solid) *kernel.Solid {
	if p.IsIdentity() {
		return s.Clone()
	}
	if p.Rotation == nil || p.Rotation.Angle == 0 {
		return s.Translate(p.Translation)
	}
	rot := rotation(p.Rotation)
	return s.Transform(func(v r3.Vec) r3.Vec {
		return r3.Add(rot.Rotate(v), p.Translation)
	})
}

// Then returns the placement equivalent to applying p and then next.
// Composition is associative.
func (p Placement) Then(next Placement) Placement {
	t := next.Point(p.Translation)
	switch {
	case p.Rotation == nil || p.Rotation.Angle == 0:
		return Placement{Rotation: next.Rotation, Translation: t}
	case next.Rotation == nil || next.Rotation.Angle == 0:
		return Placement{Rotation: p.Rotation, Translation: t}
	}
	return Placement{
		Rotation:    axisAngleOf(mulQuat(quat(next.Rotation), quat(p.Rotation))),
		Translation: t,
	}
}

type quaternion struct{ w, x, y, z float64 }

func quat(a *AxisAngle) quaternion {
	u := r3.Unit(a.Axis)
	s := math.Sin(a.Angle / 2)
	return quaternion{w: math.Cos(a.Angle / 2), x: u.X * s, y: u.Y * s, z: u.Z * s}
}

func mulQuat(a, b quaternion) quaternion {
	return quaternion{
		w: a.w*b.w - a.x*b.x - a.y*b.y - a.z*b.z,
		x: a.w*b.x + a.x*b.w + a.y*b.z - a.z*b.y,
		y: a.w*b.y - a.x*b.z + a.y*b.w + a.z*b.x,
		z: a.w*b.z + a.x*b.y - a.y*b.x + a.z*b.w,
	}
}

func axisAngleOf(q quaternion) *AxisAngle {
	w := math.Max(-1, math.Min(1, q.w))
	s := math.Sqrt(1 - w*w)
	if s < 1e-12 {
		return nil
	}
	return &AxisAngle{Axis: r3.Vec{X: q.x / s, Y: q.y / s, Z: q.z / s}, Angle: 2 * math.Acos(w)}
}

// Place builds d and applies p to it. It is equivalent to building first
// and placing afterwards.
func Place(d primitive.Descriptor, p Placement) (*kernel.Solid, error) {
	s, err := primitive.Build(d)
	if err != nil {
		return nil, err
	}
	if p.IsIdentity() {
		return s, nil
	}
	return p.Apply(s), nil
}
