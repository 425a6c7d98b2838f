// Package bsp implements kernel.Kernel with exact polygon booleans on
// binary space partitioning trees, in pure Go.
//
// Results are re-indexed by welding coincident vertices and splitting
// polygon edges at vertices that landed on them (T-junctions), so a
// boolean of two closed inputs comes out closed in the generic case.
package bsp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// DefaultWeldTolerance merges output vertices closer than this (mm).
const DefaultWeldTolerance = 1e-5

// Kernel is the BSP boolean kernel. The zero value is ready to use.
type Kernel struct {
	// WeldTolerance overrides DefaultWeldTolerance when positive.
	WeldTolerance float64
}

// New returns a BSP kernel with default tolerances.
func New() *Kernel {
	return &Kernel{}
}

func (k *Kernel) Name() string { return "bsp" }

func (k *Kernel) weldTolerance() float64 {
	if k.WeldTolerance > 0 {
		return k.WeldTolerance
	}
	return DefaultWeldTolerance
}

// Union returns a ∪ b.
func (k *Kernel) Union(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("union", a, b, func(na, nb *node) []polygon {
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
		return na.allPolygons()
	})
}

// Difference returns a − b.
func (k *Kernel) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("difference", a, b, func(na, nb *node) []polygon {
		na.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		nb.invert()
		nb.clipTo(na)
		nb.invert()
		na.build(nb.allPolygons())
		na.invert()
		return na.allPolygons()
	})
}

// Intersection returns a ∩ b.
func (k *Kernel) Intersection(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("intersection", a, b, func(na, nb *node) []polygon {
		na.invert()
		nb.clipTo(na)
		nb.invert()
		na.clipTo(nb)
		nb.clipTo(na)
		na.build(nb.allPolygons())
		na.invert()
		return na.allPolygons()
	})
}

// run converts both operands to trees, applies op and re-indexes the
// result. Panics from degenerate input are returned as errors.
func (k *Kernel) run(name string, a, b *kernel.Solid, op func(na, nb *node) []polygon) (out *kernel.Solid, err error) {
	if err := a.Check(); err != nil {
		return nil, fmt.Errorf("bsp %s: left operand: %w", name, err)
	}
	if err := b.Check(); err != nil {
		return nil, fmt.Errorf("bsp %s: right operand: %w", name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: bsp %s panicked: %v", kernel.ErrBooleanDegenerate, name, r)
		}
	}()

	polys := op(newNode(toPolygons(a)), newNode(toPolygons(b)))
	out = k.toSolid(polys)
	out.Degraded = a.Degraded || b.Degraded
	for _, v := range out.Vertices {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
			return nil, fmt.Errorf("%w: bsp %s produced non-finite vertices", kernel.ErrBooleanDegenerate, name)
		}
	}
	return out, nil
}

func toPolygons(s *kernel.Solid) []polygon {
	polys := make([]polygon, 0, len(s.Faces))
	for _, f := range s.Faces {
		a, b, c := s.Vertices[f[0]], s.Vertices[f[1]], s.Vertices[f[2]]
		pl, ok := planeFrom(a, b, c)
		if !ok {
			continue // zero-area triangles carry no volume
		}
		polys = append(polys, polygon{verts: []r3.Vec{a, b, c}, plane: pl})
	}
	return polys
}

// toSolid welds polygon vertices, resolves T-junctions and triangulates.
func (k *Kernel) toSolid(polys []polygon) *kernel.Solid {
	w := kernel.NewWelder(k.weldTolerance())
	loops := make([][]int, 0, len(polys))
	for _, p := range polys {
		loop := make([]int, 0, len(p.verts))
		for _, v := range p.verts {
			idx := w.Add(v)
			if len(loop) > 0 && loop[len(loop)-1] == idx {
				continue
			}
			loop = append(loop, idx)
		}
		if len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}

	for i, loop := range loops {
		loops[i] = splitEdges(w, loop)
	}

	verts := w.Vertices()
	faces := make([]kernel.Face, 0, len(loops)*2)
	for _, loop := range loops {
		faces = triangulate(&verts, loop, faces, w.Tolerance())
	}
	return kernel.NewSolid(verts, faces)
}

// splitEdges inserts, along every edge of loop, the welded vertices that
// lie on that edge's interior.
func splitEdges(w *kernel.Welder, loop []int) []int {
	tol := w.Tolerance()
	out := make([]int, 0, len(loop))
	for i, ai := range loop {
		bi := loop[(i+1)%len(loop)]
		a, b := w.Vertex(ai), w.Vertex(bi)
		out = append(out, ai)

		d := r3.Sub(b, a)
		l2 := r3.Dot(d, d)
		if l2 < tol*tol {
			continue
		}
		lo := r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
		hi := r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}

		type hit struct {
			idx int
			t   float64
		}
		var hits []hit
		for _, ci := range w.Within(lo, hi) {
			if ci == ai || ci == bi {
				continue
			}
			c := w.Vertex(ci)
			t := r3.Dot(r3.Sub(c, a), d) / l2
			if t <= 0 || t >= 1 {
				continue
			}
			foot := r3.Add(a, r3.Scale(t, d))
			if r3.Norm(r3.Sub(c, foot)) > tol {
				continue
			}
			hits = append(hits, hit{idx: ci, t: t})
		}
		sort.Slice(hits, func(x, y int) bool { return hits[x].t < hits[y].t })
		for _, h := range hits {
			if out[len(out)-1] != h.idx {
				out = append(out, h.idx)
			}
		}
	}
	return out
}

// triangulate appends the triangles of a convex polygon loop. Loops with
// no collinear corners are fanned from their first vertex; loops carrying
// split points are fanned from an added centroid so no triangle collapses.
func triangulate(verts *[]r3.Vec, loop []int, faces []kernel.Face, tol float64) []kernel.Face {
	n := len(loop)
	if n == 3 {
		return append(faces, kernel.Face{loop[0], loop[1], loop[2]})
	}
	if strictlyConvex(*verts, loop, tol) {
		for i := 1; i+1 < n; i++ {
			faces = append(faces, kernel.Face{loop[0], loop[i], loop[i+1]})
		}
		return faces
	}
	var c r3.Vec
	for _, idx := range loop {
		c = r3.Add(c, (*verts)[idx])
	}
	c = r3.Scale(1/float64(n), c)
	ci := len(*verts)
	*verts = append(*verts, c)
	for i := 0; i < n; i++ {
		faces = append(faces, kernel.Face{ci, loop[i], loop[(i+1)%n]})
	}
	return faces
}

// strictlyConvex reports whether every loop vertex sits farther than tol
// from the line through its neighbours.
func strictlyConvex(verts []r3.Vec, loop []int, tol float64) bool {
	n := len(loop)
	for i := 0; i < n; i++ {
		a := verts[loop[(i+n-1)%n]]
		b := verts[loop[i]]
		c := verts[loop[(i+1)%n]]
		ac := r3.Sub(c, a)
		l := r3.Norm(ac)
		if l < tol || r3.Norm(r3.Cross(ac, r3.Sub(b, a)))/l <= tol {
			return false
		}
	}
	return true
}
