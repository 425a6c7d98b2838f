package validate

import (
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
)

// repair runs a single pass of: weld, drop doubled faces, re-orient faces
// consistently, flip inside-out components, fill small holes. It reports
// whether the mesh changed.
func (v *Validator) repair(s *kernel.Solid) (*kernel.Solid, bool) {
	before := s.Census()

	w := kernel.Weld(s, v.weldTol)
	changed := len(w.Faces) != len(s.Faces) || w.Census() != before

	faces, dropped := dropDoubled(w.Faces)
	changed = changed || dropped

	out := kernel.NewSolid(w.Vertices, faces)
	out.Degraded = s.Degraded
	if reorient(out) {
		changed = true
	}
	if v.fillHoles(out) {
		changed = true
	}
	return out, changed
}

// parity returns the face rotated so its smallest index is first, and
// whether the remaining two are in ascending order.
func parity(f kernel.Face) (kernel.Face, bool) {
	for f[0] > f[1] || f[0] > f[2] {
		f = kernel.Face{f[1], f[2], f[0]}
	}
	return f, f[1] < f[2]
}

// dropDoubled removes faces that share all three vertices with another
// face. Oppositely wound pairs cancel (an internal double wall); same-wound
// copies collapse to one.
func dropDoubled(faces []kernel.Face) ([]kernel.Face, bool) {
	type tally struct {
		even, odd []int
	}
	groups := make(map[[3]int]*tally)
	for i, f := range faces {
		key := [3]int(f)
		slices.Sort(key[:])
		t := groups[key]
		if t == nil {
			t = &tally{}
			groups[key] = t
		}
		if _, even := parity(f); even {
			t.even = append(t.even, i)
		} else {
			t.odd = append(t.odd, i)
		}
	}

	keep := make([]bool, len(faces))
	for _, t := range groups {
		switch {
		case len(t.even) > len(t.odd):
			keep[t.even[0]] = true
		case len(t.odd) > len(t.even):
			keep[t.odd[0]] = true
		}
	}
	out := make([]kernel.Face, 0, len(faces))
	for i, f := range faces {
		if keep[i] {
			out = append(out, f)
		}
	}
	return out, len(out) != len(faces)
}

// direction reports +1 if f traverses a->b, -1 if it traverses b->a.
func direction(f kernel.Face, a, b int) int {
	for k := 0; k < 3; k++ {
		if f[k] == a && f[(k+1)%3] == b {
			return 1
		}
		if f[k] == b && f[(k+1)%3] == a {
			return -1
		}
	}
	return 0
}

// reorient flood-fills each connected component across two-face edges so
// neighbours traverse their shared edge in opposite directions, then flips
// any component whose signed volume is negative. Faces are rewritten in
// place on s, which the caller owns.
func reorient(s *kernel.Solid) bool {
	edges := s.EdgeMap()
	adj := make([][]kernel.EdgeKey, len(s.Faces))
	for key, u := range edges {
		if u.Total() != 2 {
			continue
		}
		for _, fi := range u.Faces {
			adj[fi] = append(adj[fi], key)
		}
	}

	flip := make([]bool, len(s.Faces))
	seen := make([]bool, len(s.Faces))
	changed := false
	for seed := range s.Faces {
		if seen[seed] {
			continue
		}
		seen[seed] = true
		component := []int{seed}
		for q := []int{seed}; len(q) > 0; {
			f := q[0]
			q = q[1:]
			for _, key := range adj[f] {
				u := edges[key]
				g := u.Faces[0]
				if g == f {
					g = u.Faces[1]
				}
				if seen[g] {
					continue
				}
				seen[g] = true
				df := direction(s.Faces[f], key.A, key.B)
				if flip[f] {
					df = -df
				}
				flip[g] = direction(s.Faces[g], key.A, key.B) == df
				component = append(component, g)
				q = append(q, g)
			}
		}

		var vol float64
		for _, fi := range component {
			t := s.Triangle(fi)
			d := r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
			if flip[fi] {
				d = -d
			}
			vol += d
		}
		if vol < 0 {
			for _, fi := range component {
				flip[fi] = !flip[fi]
			}
		}
	}

	for i, f := range s.Faces {
		if flip[i] {
			s.Faces[i] = kernel.Face{f[0], f[2], f[1]}
			changed = true
		}
	}
	return changed
}

// fillHoles closes boundary loops of at most maxHole edges. Triangular
// holes get a single face; longer loops are fanned from their centroid.
func (v *Validator) fillHoles(s *kernel.Solid) bool {
	next := make(map[int][]int)
	for key, u := range s.EdgeMap() {
		if u.Total() != 1 {
			continue
		}
		// The hole runs against the only face's winding.
		if u.Forward == 1 {
			next[key.B] = append(next[key.B], key.A)
		} else {
			next[key.A] = append(next[key.A], key.B)
		}
	}

	filled := false
	for _, start := range slices.Sorted(maps.Keys(next)) {
		for len(next[start]) > 0 {
			loop := []int{start}
			cur := start
			closed := false
			for len(loop) <= len(s.Vertices) {
				outs := next[cur]
				if len(outs) == 0 {
					break
				}
				nxt := outs[len(outs)-1]
				next[cur] = outs[:len(outs)-1]
				if nxt == start {
					closed = true
					break
				}
				loop = append(loop, nxt)
				cur = nxt
			}
			if !closed || len(loop) < 3 || len(loop) > v.maxHole {
				continue
			}
			fan(s, loop)
			filled = true
		}
	}
	return filled
}

func fan(s *kernel.Solid, loop []int) {
	if len(loop) == 3 {
		s.Faces = append(s.Faces, kernel.Face{loop[0], loop[1], loop[2]})
		return
	}
	var c r3.Vec
	for _, vi := range loop {
		c = r3.Add(c, s.Vertices[vi])
	}
	c = r3.Scale(1/float64(len(loop)), c)
	ci := len(s.Vertices)
	s.Vertices = append(s.Vertices, c)
	for i := range loop {
		s.Faces = append(s.Faces, kernel.Face{ci, loop[i], loop[(i+1)%len(loop)]})
	}
}
