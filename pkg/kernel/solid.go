package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a triangle given as three indices into Solid.Vertices, wound
// counter-clockwise when seen from outside the solid.
type Face [3]int

// Triangle is a free-standing triangle, used for soups coming out of
// remeshing backends and STL files.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle, or the zero vector for a
// degenerate triangle.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l < 1e-15 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the triangle's area.
func (t Triangle) Area() float64 {
	return r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))) / 2
}

// Solid is an owned triangulated boundary mesh. Operations never mutate a
// Solid they were given; they return a new one.
type Solid struct {
	Vertices []r3.Vec
	Faces    []Face

	// Degraded is set when a fallback was used anywhere in the solid's
	// construction history. Once set it is never cleared.
	Degraded bool
}

// NewSolid wraps vertices and faces in a Solid. The slices are owned by the
// returned Solid.
func NewSolid(vertices []r3.Vec, faces []Face) *Solid {
	return &Solid{Vertices: vertices, Faces: faces}
}

// Clone returns a deep copy.
func (s *Solid) Clone() *Solid {
	c := &Solid{
		Vertices: make([]r3.Vec, len(s.Vertices)),
		Faces:    make([]Face, len(s.Faces)),
		Degraded: s.Degraded,
	}
	copy(c.Vertices, s.Vertices)
	copy(c.Faces, s.Faces)
	return c
}

// IsEmpty reports whether the solid has no faces.
func (s *Solid) IsEmpty() bool {
	return s == nil || len(s.Faces) == 0
}

// Triangle returns face i as free-standing coordinates.
func (s *Solid) Triangle(i int) Triangle {
	f := s.Faces[i]
	return Triangle{s.Vertices[f[0]], s.Vertices[f[1]], s.Vertices[f[2]]}
}

// Triangles returns every face as free-standing coordinates.
func (s *Solid) Triangles() []Triangle {
	out := make([]Triangle, len(s.Faces))
	for i := range s.Faces {
		out[i] = s.Triangle(i)
	}
	return out
}

// Volume returns the signed enclosed volume via the divergence theorem.
// It is positive for a closed, outward-oriented solid. For open meshes the
// value is still computed but has no geometric meaning.
func (s *Solid) Volume() float64 {
	var v float64
	for _, f := range s.Faces {
		a, b, c := s.Vertices[f[0]], s.Vertices[f[1]], s.Vertices[f[2]]
		v += r3.Dot(a, r3.Cross(b, c))
	}
	return v / 6
}

// Area returns the total surface area.
func (s *Solid) Area() float64 {
	var a float64
	for i := range s.Faces {
		a += s.Triangle(i).Area()
	}
	return a
}

// Bounds returns the axis-aligned bounding box of the referenced vertices.
func (s *Solid) Bounds() r3.Box {
	if len(s.Vertices) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	b := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, v := range s.Vertices {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Min.Z = math.Min(b.Min.Z, v.Z)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
		b.Max.Z = math.Max(b.Max.Z, v.Z)
	}
	return b
}

// Transform returns a copy with fn applied to every vertex. fn must be a
// proper rigid motion or the winding of the faces no longer means outward.
func (s *Solid) Transform(fn func(r3.Vec) r3.Vec) *Solid {
	c := s.Clone()
	for i, v := range c.Vertices {
		c.Vertices[i] = fn(v)
	}
	return c
}

// Translate returns a copy moved by d.
func (s *Solid) Translate(d r3.Vec) *Solid {
	return s.Transform(func(v r3.Vec) r3.Vec { return r3.Add(v, d) })
}

// Flipped returns a copy with every face reversed.
func (s *Solid) Flipped() *Solid {
	c := s.Clone()
	for i, f := range c.Faces {
		c.Faces[i] = Face{f[0], f[2], f[1]}
	}
	return c
}

// Check reports ErrStructurallyInvalid for solids that cannot be processed
// at all: no faces, out-of-range indices or non-finite coordinates.
func (s *Solid) Check() error {
	if s == nil || len(s.Faces) == 0 {
		return fmt.Errorf("%w: no faces", ErrStructurallyInvalid)
	}
	for i, v := range s.Vertices {
		if !finite(v) {
			return fmt.Errorf("%w: vertex %d is not finite (%v)", ErrStructurallyInvalid, i, v)
		}
	}
	n := len(s.Vertices)
	for i, f := range s.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: face %d references vertex %d of %d", ErrStructurallyInvalid, i, idx, n)
			}
		}
	}
	return nil
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Concat returns the plain mesh concatenation of a and b: both boundaries
// side by side with no intersection resolved. The result is degraded if
// either input is.
func Concat(a, b *Solid) *Solid {
	out := &Solid{
		Vertices: make([]r3.Vec, 0, len(a.Vertices)+len(b.Vertices)),
		Faces:    make([]Face, 0, len(a.Faces)+len(b.Faces)),
		Degraded: a.Degraded || b.Degraded,
	}
	out.Vertices = append(out.Vertices, a.Vertices...)
	out.Vertices = append(out.Vertices, b.Vertices...)
	out.Faces = append(out.Faces, a.Faces...)
	off := len(a.Vertices)
	for _, f := range b.Faces {
		out.Faces = append(out.Faces, Face{f[0] + off, f[1] + off, f[2] + off})
	}
	return out
}

// FromTriangles welds a triangle soup into an indexed Solid. Vertices
// closer than tol are merged and triangles that collapse are dropped.
func FromTriangles(tris []Triangle, tol float64) *Solid {
	w := NewWelder(tol)
	faces := make([]Face, 0, len(tris))
	for _, t := range tris {
		f := Face{w.Add(t[0]), w.Add(t[1]), w.Add(t[2])}
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			continue
		}
		faces = append(faces, f)
	}
	return &Solid{Vertices: w.Vertices(), Faces: faces}
}
