package bsp

import "gonum.org/v1/gonum/spatial/r3"

// splitEpsilon is the plane thickness used to classify points.
const splitEpsilon = 1e-5

type plane struct {
	normal r3.Vec
	w      float64
}

func planeFrom(a, b, c r3.Vec) (plane, bool) {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l < 1e-12 {
		return plane{}, false
	}
	n = r3.Scale(1/l, n)
	return plane{normal: n, w: r3.Dot(n, a)}, true
}

func (p plane) flipped() plane {
	return plane{normal: r3.Scale(-1, p.normal), w: -p.w}
}

// polygon is a convex planar polygon.
type polygon struct {
	verts []r3.Vec
	plane plane
}

func (p polygon) flipped() polygon {
	verts := make([]r3.Vec, len(p.verts))
	for i, v := range p.verts {
		verts[len(p.verts)-1-i] = v
	}
	return polygon{verts: verts, plane: p.plane.flipped()}
}

const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

// split sorts poly into the four lists relative to p, splitting spanning
// polygons in two.
func (p plane) split(poly polygon, coFront, coBack, fronts, backs *[]polygon) {
	polyType := 0
	types := make([]int, len(poly.verts))
	for i, v := range poly.verts {
		t := r3.Dot(p.normal, v) - p.w
		typ := coplanar
		if t < -splitEpsilon {
			typ = back
		} else if t > splitEpsilon {
			typ = front
		}
		polyType |= typ
		types[i] = typ
	}

	switch polyType {
	case coplanar:
		if r3.Dot(p.normal, poly.plane.normal) > 0 {
			*coFront = append(*coFront, poly)
		} else {
			*coBack = append(*coBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	default:
		var f, b []r3.Vec
		n := len(poly.verts)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.verts[i], poly.verts[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (p.w - r3.Dot(p.normal, vi)) / r3.Dot(p.normal, r3.Sub(vj, vi))
				v := r3.Add(vi, r3.Scale(t, r3.Sub(vj, vi)))
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, polygon{verts: f, plane: poly.plane})
		}
		if len(b) >= 3 {
			*backs = append(*backs, polygon{verts: b, plane: poly.plane})
		}
	}
}

// node is a BSP tree node. Polygons coplanar with the node's plane live
// on the node itself.
type node struct {
	plane       *plane
	front, back *node
	polygons    []polygon
}

func newNode(polys []polygon) *node {
	n := &node{}
	n.build(polys)
	return n
}

// invert converts solid space to empty space and back.
func (n *node) invert() {
	for i, p := range n.polygons {
		n.polygons[i] = p.flipped()
	}
	if n.plane != nil {
		fp := n.plane.flipped()
		n.plane = &fp
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polys that are inside this tree.
func (n *node) clipPolygons(polys []polygon) []polygon {
	if n.plane == nil {
		out := make([]polygon, len(polys))
		copy(out, polys)
		return out
	}
	var f, b []polygon
	for _, p := range polys {
		n.plane.split(p, &f, &b, &f, &b)
	}
	if n.front != nil {
		f = n.front.clipPolygons(f)
	}
	if n.back != nil {
		b = n.back.clipPolygons(b)
	} else {
		b = nil
	}
	return append(f, b...)
}

// clipTo removes every polygon of this tree that is inside other.
func (n *node) clipTo(other *node) {
	n.polygons = other.clipPolygons(n.polygons)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *node) allPolygons() []polygon {
	out := make([]polygon, 0, len(n.polygons))
	var walk func(*node)
	walk = func(m *node) {
		out = append(out, m.polygons...)
		if m.front != nil {
			walk(m.front)
		}
		if m.back != nil {
			walk(m.back)
		}
	}
	walk(n)
	return out
}

func (n *node) build(polys []polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var f, b []polygon
	for _, p := range polys {
		n.plane.split(p, &n.polygons, &n.polygons, &f, &b)
	}
	if len(f) > 0 {
		if n.front == nil {
			n.front = &node{}
		}
		n.front.build(f)
	}
	if len(b) > 0 {
		if n.back == nil {
			n.back = &node{}
		}
		n.back.build(b)
	}
}
