package kernel

// EdgeKey identifies an undirected edge by its vertex indices, smaller first.
type EdgeKey struct {
	A, B int
}

// MakeEdgeKey returns the undirected key for the edge a-b.
func MakeEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

// EdgeUse counts how often an undirected edge is traversed in each
// direction by the faces of a solid.
type EdgeUse struct {
	Forward  int // traversed A -> B
	Backward int // traversed B -> A
	Faces    []int
}

// Total returns the number of faces using the edge.
func (u *EdgeUse) Total() int {
	return u.Forward + u.Backward
}

// Census summarises the edge uses of a solid.
type Census struct {
	Edges        int
	Boundary     int // used by exactly one face
	NonManifold  int // used by more than two faces
	Inconsistent int // used by two faces with the same winding
}

// Closed reports whether every edge is shared by exactly two faces with
// opposite winding.
func (c Census) Closed() bool {
	return c.Edges > 0 && c.Boundary == 0 && c.NonManifold == 0 && c.Inconsistent == 0
}

// EdgeMap returns the use record of every undirected edge.
func (s *Solid) EdgeMap() map[EdgeKey]*EdgeUse {
	m := make(map[EdgeKey]*EdgeUse, len(s.Faces)*3/2)
	for fi, f := range s.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			key := MakeEdgeKey(a, b)
			u, ok := m[key]
			if !ok {
				u = &EdgeUse{}
				m[key] = u
			}
			if a == key.A {
				u.Forward++
			} else {
				u.Backward++
			}
			u.Faces = append(u.Faces, fi)
		}
	}
	return m
}

// Census counts boundary, non-manifold and inconsistently wound edges.
func (s *Solid) Census() Census {
	var c Census
	for _, u := range s.EdgeMap() {
		c.Edges++
		switch {
		case u.Total() == 1:
			c.Boundary++
		case u.Total() > 2:
			c.NonManifold++
		case u.Forward != 1:
			c.Inconsistent++
		}
	}
	return c
}

// IsClosed reports whether the solid is a closed, consistently wound
// 2-manifold at the edge level.
func (s *Solid) IsClosed() bool {
	return s.Census().Closed()
}
