package primitive

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chazu/trayforge/pkg/kernel"
)

// polyEps is the tolerance for collinearity and orientation tests on
// profile coordinates (millimetres).
const polyEps = 1e-9

// SignedArea returns the shoelace area of a closed polygon; positive when
// the vertices run counter-clockwise.
func SignedArea(poly []r2.Vec) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += r2.Cross(poly[i], poly[j])
	}
	return a / 2
}

// CCW returns poly wound counter-clockwise, copying only when it has to
// reverse it.
func CCW(poly []r2.Vec) []r2.Vec {
	if SignedArea(poly) >= 0 {
		return poly
	}
	out := make([]r2.Vec, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

// Simplify drops vertices collinear with their neighbours and repeated
// consecutive points.
func Simplify(poly []r2.Vec) []r2.Vec {
	out := make([]r2.Vec, 0, len(poly))
	for i, p := range poly {
		if len(out) > 0 && r2.Norm(r2.Sub(p, out[len(out)-1])) < polyEps {
			continue
		}
		if i == len(poly)-1 && len(out) > 0 && r2.Norm(r2.Sub(p, out[0])) < polyEps {
			continue
		}
		out = append(out, p)
	}
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := range out {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if math.Abs(r2.Cross(r2.Sub(out[i], prev), r2.Sub(next, out[i]))) < polyEps {
				out = append(out[:i], out[i+1:]...)
				changed = true
				break
			}
		}
	}
	return out
}

// ValidateProfile checks that poly is a usable extrusion profile: at least
// three finite points, non-zero area and no self-intersection.
func ValidateProfile(poly []r2.Vec) error {
	if len(poly) < 3 {
		return fmt.Errorf("%w: profile has %d points, need at least 3", kernel.ErrInvalidParameter, len(poly))
	}
	for i, p := range poly {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: profile point %d is not finite", kernel.ErrInvalidParameter, i)
		}
	}
	clean := Simplify(poly)
	if len(clean) < 3 || math.Abs(SignedArea(clean)) < polyEps {
		return fmt.Errorf("%w: profile has zero area", kernel.ErrInvalidParameter)
	}
	n := len(clean)
	for i := 0; i < n; i++ {
		a1, a2 := clean[i], clean[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(a1, a2, clean[j], clean[(j+1)%n]) {
				return fmt.Errorf("%w: profile edges %d and %d intersect", kernel.ErrInvalidParameter, i, j)
			}
		}
	}
	return nil
}

func orient(a, b, c r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
}

func onSegment(a, b, p r2.Vec) bool {
	return math.Min(a.X, b.X)-polyEps <= p.X && p.X <= math.Max(a.X, b.X)+polyEps &&
		math.Min(a.Y, b.Y)-polyEps <= p.Y && p.Y <= math.Max(a.Y, b.Y)+polyEps
}

// segmentsIntersect reports whether closed segments p1p2 and q1q2 share a
// point.
func segmentsIntersect(p1, p2, q1, q2 r2.Vec) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	if ((d1 > polyEps && d2 < -polyEps) || (d1 < -polyEps && d2 > polyEps)) &&
		((d3 > polyEps && d4 < -polyEps) || (d3 < -polyEps && d4 > polyEps)) {
		return true
	}
	switch {
	case math.Abs(d1) <= polyEps && onSegment(q1, q2, p1):
		return true
	case math.Abs(d2) <= polyEps && onSegment(q1, q2, p2):
		return true
	case math.Abs(d3) <= polyEps && onSegment(p1, p2, q1):
		return true
	case math.Abs(d4) <= polyEps && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// pointInTriangle reports whether p lies inside or on the CCW triangle abc.
func pointInTriangle(p, a, b, c r2.Vec) bool {
	return orient(a, b, p) >= -polyEps && orient(b, c, p) >= -polyEps && orient(c, a, p) >= -polyEps
}

// Triangulate splits a simple CCW polygon into CCW triangles by ear
// clipping. Concave polygons are supported.
func Triangulate(poly []r2.Vec) ([][3]int, error) {
	n := len(poly)
	if n < 3 {
		return nil, fmt.Errorf("%w: cannot triangulate %d points", kernel.ErrInvalidParameter, n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			m := len(idx)
			prev, cur, next := idx[(i+m-1)%m], idx[i], idx[(i+1)%m]
			a, b, c := poly[prev], poly[cur], poly[next]
			if orient(a, b, c) <= polyEps {
				continue // reflex or flat
			}
			ear := true
			for _, j := range idx {
				if j == prev || j == cur || j == next {
					continue
				}
				if pointInTriangle(poly[j], a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, fmt.Errorf("%w: profile could not be triangulated", kernel.ErrInvalidParameter)
		}
	}
	tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	return tris, nil
}

// Contains reports whether p lies strictly inside the simple polygon poly.
// Points on the boundary are outside.
func Contains(poly []r2.Vec, p r2.Vec) bool {
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		if math.Abs(orient(a, b, p)) <= polyEps && onSegment(a, b, p) {
			return false
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// ContainsPolygon reports whether inner lies strictly inside outer: every
// inner vertex inside and no pair of edges touching.
func ContainsPolygon(outer, inner []r2.Vec) bool {
	for _, p := range inner {
		if !Contains(outer, p) {
			return false
		}
	}
	for i := range outer {
		o1, o2 := outer[i], outer[(i+1)%len(outer)]
		for j := range inner {
			if segmentsIntersect(o1, o2, inner[j], inner[(j+1)%len(inner)]) {
				return false
			}
		}
	}
	return true
}
