// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Each operand mesh is wrapped as a signed distance field, the fields are
// combined with sdfx's boolean operators and the result is re-tessellated
// with marching cubes. Results approximate the exact boolean to within the
// marching cubes cell size; sharp edges come out slightly bevelled.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel      = (*SdfxKernel)(nil)
	_ kernel.Approximate = (*SdfxKernel)(nil)
	_ sdf.SDF3           = (*meshSDF)(nil)
)

// defaultMeshCells controls marching cubes tessellation resolution along
// the longest side of the result's bounding box.
const defaultMeshCells = 120

// defaultVolumeTolerance is the relative volume error accepted from a
// remeshed result.
const defaultVolumeTolerance = 0.05

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	// Cells overrides defaultMeshCells when positive.
	Cells int
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

func (k *SdfxKernel) Name() string { return "sdfx" }

// VolumeTolerance implements kernel.Approximate.
func (k *SdfxKernel) VolumeTolerance() float64 {
	return defaultVolumeTolerance
}

func (k *SdfxKernel) cells() int {
	if k.Cells > 0 {
		return k.Cells
	}
	return defaultMeshCells
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("union", a, b, func(sa, sb sdf.SDF3) sdf.SDF3 {
		return sdf.Union3D(sa, sb)
	})
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("difference", a, b, func(sa, sb sdf.SDF3) sdf.SDF3 {
		return sdf.Difference3D(sa, sb)
	})
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("intersection", a, b, func(sa, sb sdf.SDF3) sdf.SDF3 {
		return sdf.Intersect3D(sa, sb)
	})
}

func (k *SdfxKernel) run(name string, a, b *kernel.Solid, op func(sa, sb sdf.SDF3) sdf.SDF3) (out *kernel.Solid, err error) {
	if err := a.Check(); err != nil {
		return nil, fmt.Errorf("sdfx %s: left operand: %w", name, err)
	}
	if err := b.Check(); err != nil {
		return nil, fmt.Errorf("sdfx %s: right operand: %w", name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: sdfx %s panicked: %v", kernel.ErrBooleanDegenerate, name, r)
		}
	}()

	pad := k.padding(a, b)
	s := op(newMeshSDF(a, pad), newMeshSDF(b, pad))
	out = k.tessellate(s)
	out.Degraded = a.Degraded || b.Degraded
	return out, nil
}

// padding is two cells of the combined bounding box, so the surface never
// touches the marching cubes boundary.
func (k *SdfxKernel) padding(a, b *kernel.Solid) float64 {
	ba, bb := a.Bounds(), b.Bounds()
	size := r3.Sub(
		r3.Vec{X: math.Max(ba.Max.X, bb.Max.X), Y: math.Max(ba.Max.Y, bb.Max.Y), Z: math.Max(ba.Max.Z, bb.Max.Z)},
		r3.Vec{X: math.Min(ba.Min.X, bb.Min.X), Y: math.Min(ba.Min.Y, bb.Min.Y), Z: math.Min(ba.Min.Z, bb.Min.Z)},
	)
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	return 2 * longest / float64(k.cells())
}

// tessellate converts an SDF to a welded, outward-oriented solid using
// marching cubes.
func (k *SdfxKernel) tessellate(s sdf.SDF3) *kernel.Solid {
	renderer := render.NewMarchingCubesUniform(k.cells())
	triangles := render.ToTriangles(s, renderer)

	soup := make([]kernel.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		var t kernel.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		}
		soup = append(soup, t)
	}

	bb := s.BoundingBox()
	size := bb.Max.Sub(bb.Min)
	out := kernel.FromTriangles(soup, 1e-9*math.Max(size.X, math.Max(size.Y, size.Z)))
	if out.Volume() < 0 {
		out = out.Flipped()
	}
	return out
}

// meshSDF evaluates a closed triangle mesh as a signed distance field. The
// magnitude is the distance to the nearest triangle; the sign comes from
// the generalised winding number, so slightly open meshes still classify
// points sensibly.
type meshSDF struct {
	tris []kernel.Triangle
	bb   sdf.Box3
}

func newMeshSDF(s *kernel.Solid, pad float64) *meshSDF {
	b := s.Bounds()
	return &meshSDF{
		tris: s.Triangles(),
		bb: sdf.Box3{
			Min: v3.Vec{X: b.Min.X - pad, Y: b.Min.Y - pad, Z: b.Min.Z - pad},
			Max: v3.Vec{X: b.Max.X + pad, Y: b.Max.Y + pad, Z: b.Max.Z + pad},
		},
	}
}

// Evaluate returns the signed distance from p to the mesh, negative inside.
func (m *meshSDF) Evaluate(p v3.Vec) float64 {
	q := r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
	dist := math.Inf(1)
	var omega float64
	for _, t := range m.tris {
		dist = math.Min(dist, r3.Norm(r3.Sub(q, closestPoint(q, t))))
		omega += solidAngle(q, t)
	}
	// Winding number omega/4π is ~1 inside and ~0 outside.
	if omega > 2*math.Pi {
		return -dist
	}
	return dist
}

// BoundingBox returns the padded bounds of the mesh.
func (m *meshSDF) BoundingBox() sdf.Box3 {
	return m.bb
}

// solidAngle returns the signed solid angle subtended by t at p
// (Van Oosterom and Strackee).
func solidAngle(p r3.Vec, t kernel.Triangle) float64 {
	a, b, c := r3.Sub(t[0], p), r3.Sub(t[1], p), r3.Sub(t[2], p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(a, c)*lb + r3.Dot(b, c)*la
	return 2 * math.Atan2(num, den)
}

// closestPoint returns the point of triangle t nearest to p, by Voronoi
// region classification.
func closestPoint(p r3.Vec, t kernel.Triangle) r3.Vec {
	a, b, c := t[0], t[1], t[2]
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return r3.Add(b, r3.Scale((d4-d3)/((d4-d3)+(d5-d6)), r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
