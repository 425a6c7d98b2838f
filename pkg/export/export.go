// Package export writes finished parts as STL through model3d and reads
// STL files back into solids.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/parts"
)

// ErrEmpty reports a solid with no faces.
var ErrEmpty = errors.New("export: empty solid")

func coord(v r3.Vec) model3d.Coord3D {
	return model3d.XYZ(v.X, v.Y, v.Z)
}

func vec(c model3d.Coord3D) r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}

// Triangles converts s to model3d triangles, keeping the winding.
func Triangles(s *kernel.Solid) []*model3d.Triangle {
	out := make([]*model3d.Triangle, len(s.Faces))
	for i, f := range s.Faces {
		out[i] = &model3d.Triangle{coord(s.Vertices[f[0]]), coord(s.Vertices[f[1]]), coord(s.Vertices[f[2]])}
	}
	return out
}

// Mesh converts s to a model3d mesh.
func Mesh(s *kernel.Solid) *model3d.Mesh {
	return model3d.NewMeshTriangles(Triangles(s))
}

// WriteSTL writes s as binary STL.
func WriteSTL(w io.Writer, s *kernel.Solid) error {
	if s == nil || s.IsEmpty() {
		return ErrEmpty
	}
	return model3d.WriteSTL(w, Triangles(s))
}

// SaveSTL writes s to path.
func SaveSTL(path string, s *kernel.Solid) error {
	if s == nil || s.IsEmpty() {
		return ErrEmpty
	}
	if err := Mesh(s).SaveGroupedSTL(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadSTL reads an STL stream and welds it into a solid. Vertices closer
// than tol are merged.
func ReadSTL(r io.Reader, tol float64) (*kernel.Solid, error) {
	tris, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL: %w", err)
	}
	soup := make([]kernel.Triangle, len(tris))
	for i, t := range tris {
		soup[i] = kernel.Triangle{vec(t[0]), vec(t[1]), vec(t[2])}
	}
	s := kernel.FromTriangles(soup, tol)
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	return s, nil
}

// LoadSTL reads the STL file at path.
func LoadSTL(path string, tol float64) (*kernel.Solid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSTL(f, tol)
}

// Check is an independent health reading taken with model3d.
type Check struct {
	Volume      float64
	NeedsRepair bool
}

// CrossCheck measures s with model3d, independent of the validator.
func CrossCheck(s *kernel.Solid) Check {
	m := Mesh(s)
	return Check{Volume: m.Volume(), NeedsRepair: m.NeedsRepair()}
}

// WriteParts saves each output as <dir>/<name>.stl and returns the paths
// in output order.
func WriteParts(dir string, outs []parts.Output) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(outs))
	for _, o := range outs {
		p := filepath.Join(dir, o.Name+".stl")
		if err := SaveSTL(p, o.Solid); err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
