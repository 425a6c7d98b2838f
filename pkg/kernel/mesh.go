package kernel

import "github.com/chewxy/math32"

// Mesh is a triangle mesh suitable for rendering and export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// ToMesh flattens a solid into the render layout. Normals are per vertex,
// averaged over incident faces weighted by face area.
func ToMesh(s *Solid, partName string) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(s.Vertices)*3),
		Indices:  make([]uint32, 0, len(s.Faces)*3),
		PartName: partName,
	}
	for _, v := range s.Vertices {
		m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, f := range s.Faces {
		m.Indices = append(m.Indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	m.Normals = computeNormals(m.Vertices, m.Indices)
	return m
}

// computeNormals generates per-vertex normals by accumulating the
// unnormalized face normal of every incident triangle.
func computeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]

		ax, ay, az := vertices[i0*3], vertices[i0*3+1], vertices[i0*3+2]
		e1x, e1y, e1z := vertices[i1*3]-ax, vertices[i1*3+1]-ay, vertices[i1*3+2]-az
		e2x, e2y, e2z := vertices[i2*3]-ax, vertices[i2*3+1]-ay, vertices[i2*3+2]-az

		nx := e1y*e2z - e1z*e2y
		ny := e1z*e2x - e1x*e2z
		nz := e1x*e2y - e1y*e2x

		for _, idx := range [3]uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		length := math32.Sqrt(normals[i]*normals[i] + normals[i+1]*normals[i+1] + normals[i+2]*normals[i+2])
		if length > 1e-12 {
			normals[i] /= length
			normals[i+1] /= length
			normals[i+2] /= length
		}
	}

	return normals
}
