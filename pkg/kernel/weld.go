package kernel

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// minWeldTolerance keeps rtree rectangles from collapsing to zero extent.
const minWeldTolerance = 1e-12

// weldPoint is a welded vertex stored in the rtree.
type weldPoint struct {
	index int
	rect  rtreego.Rect
}

func (p *weldPoint) Bounds() rtreego.Rect {
	return p.rect
}

// Welder deduplicates vertices within a tolerance using an R-tree, so
// welding a soup of n vertices is O(n log n) instead of quadratic.
type Welder struct {
	tol   float64
	tree  *rtreego.Rtree
	verts []r3.Vec
}

// NewWelder returns an empty welder that merges points closer than tol.
func NewWelder(tol float64) *Welder {
	if tol < minWeldTolerance {
		tol = minWeldTolerance
	}
	return &Welder{
		tol:  tol,
		tree: rtreego.NewTree(3, 25, 50),
	}
}

// Tolerance returns the merge distance.
func (w *Welder) Tolerance() float64 {
	return w.tol
}

// Add returns the index of a previously added vertex within tolerance of
// p, or adds p and returns its new index.
func (w *Welder) Add(p r3.Vec) int {
	if i, ok := w.Find(p); ok {
		return i
	}
	idx := len(w.verts)
	w.verts = append(w.verts, p)
	w.tree.Insert(&weldPoint{index: idx, rect: toPoint(p).ToRect(minWeldTolerance)})
	return idx
}

// Find returns the closest previously added vertex within tolerance of p.
func (w *Welder) Find(p r3.Vec) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for _, hit := range w.tree.SearchIntersect(toPoint(p).ToRect(w.tol)) {
		wp := hit.(*weldPoint)
		d := r3.Norm(r3.Sub(w.verts[wp.index], p))
		if d <= w.tol && d < bestDist {
			best, bestDist = wp.index, d
		}
	}
	return best, best >= 0
}

// Within returns the indices of every vertex inside the box [min, max]
// grown by the tolerance.
func (w *Welder) Within(min, max r3.Vec) []int {
	lo := rtreego.Point{min.X - w.tol, min.Y - w.tol, min.Z - w.tol}
	lengths := []float64{
		max.X - min.X + 2*w.tol,
		max.Y - min.Y + 2*w.tol,
		max.Z - min.Z + 2*w.tol,
	}
	rect, err := rtreego.NewRect(lo, lengths)
	if err != nil {
		return nil
	}
	hits := w.tree.SearchIntersect(rect)
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.(*weldPoint).index
	}
	return out
}

// Vertex returns the welded position of index i.
func (w *Welder) Vertex(i int) r3.Vec {
	return w.verts[i]
}

// Vertices returns the welded vertex list. The slice is shared with the
// welder until the welder is discarded.
func (w *Welder) Vertices() []r3.Vec {
	return w.verts
}

// Len returns the number of distinct vertices.
func (w *Welder) Len() int {
	return len(w.verts)
}

func toPoint(v r3.Vec) rtreego.Point {
	return rtreego.Point{v.X, v.Y, v.Z}
}

// Weld returns a copy of s with coincident vertices merged and collapsed
// faces removed.
func Weld(s *Solid, tol float64) *Solid {
	out := FromTriangles(s.Triangles(), tol)
	out.Degraded = s.Degraded
	return out
}
