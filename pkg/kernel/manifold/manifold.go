//go:build manifold

// Package manifold provides a CGo-based boolean kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ManifoldKernel)(nil)

// handle wraps a C ManifoldManifold pointer with a Go-side finalizer.
type handle struct {
	ptr *C.ManifoldManifold
}

func newHandle(ptr *C.ManifoldManifold) *handle {
	h := &handle{ptr: ptr}
	runtime.SetFinalizer(h, func(h *handle) {
		if h.ptr != nil {
			C.manifold_delete_manifold(h.ptr)
			h.ptr = nil
		}
	})
	return h
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

func (k *ManifoldKernel) Name() string { return "manifold" }

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("union", a, b, func(alloc unsafe.Pointer, x, y *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_union(alloc, x, y)
	})
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("difference", a, b, func(alloc unsafe.Pointer, x, y *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(alloc, x, y)
	})
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.run("intersection", a, b, func(alloc unsafe.Pointer, x, y *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(alloc, x, y)
	})
}

func (k *ManifoldKernel) run(name string, a, b *kernel.Solid, op func(alloc unsafe.Pointer, x, y *C.ManifoldManifold) *C.ManifoldManifold) (*kernel.Solid, error) {
	ha, err := fromSolid(a)
	if err != nil {
		return nil, fmt.Errorf("manifold %s: left operand: %w", name, err)
	}
	hb, err := fromSolid(b)
	if err != nil {
		return nil, fmt.Errorf("manifold %s: right operand: %w", name, err)
	}
	res := newHandle(op(C.manifold_alloc_manifold(), ha.ptr, hb.ptr))
	if st := C.manifold_status(res.ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("%w: manifold %s: status %d", kernel.ErrBooleanDegenerate, name, int(st))
	}
	out := toSolid(res)
	out.Degraded = a.Degraded || b.Degraded
	return out, nil
}

// fromSolid uploads a solid as MeshGL and builds a manifold from it.
// Manifold rejects meshes that are not closed; that status is returned as
// ErrBooleanDegenerate so the compositor can fall back.
func fromSolid(s *kernel.Solid) (*handle, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	props := make([]float32, 0, len(s.Vertices)*3)
	for _, v := range s.Vertices {
		props = append(props, float32(v.X), float32(v.Y), float32(v.Z))
	}
	tris := make([]uint32, 0, len(s.Faces)*3)
	for _, f := range s.Faces {
		tris = append(tris, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	mesh := C.manifold_meshgl(C.manifold_alloc_meshgl(),
		(*C.float)(unsafe.Pointer(&props[0])), C.size_t(len(s.Vertices)), C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&tris[0])), C.size_t(len(s.Faces)),
	)
	defer C.manifold_delete_meshgl(mesh)

	h := newHandle(C.manifold_of_meshgl(C.manifold_alloc_manifold(), mesh))
	if st := C.manifold_status(h.ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("%w: mesh rejected with status %d", kernel.ErrBooleanDegenerate, int(st))
	}
	return h, nil
}

// toSolid extracts the result mesh. Vertex positions are the first three
// MeshGL properties.
func toSolid(h *handle) *kernel.Solid {
	mesh := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), h.ptr)
	defer C.manifold_delete_meshgl(mesh)

	numVert := int(C.manifold_meshgl_num_vert(mesh))
	numTri := int(C.manifold_meshgl_num_tri(mesh))
	if numVert == 0 || numTri == 0 {
		return &kernel.Solid{}
	}
	numProp := int(C.manifold_meshgl_num_prop(mesh))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&propData[0])), mesh)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), mesh)

	verts := make([]r3.Vec, numVert)
	for i := range verts {
		base := i * numProp
		verts[i] = r3.Vec{X: float64(propData[base]), Y: float64(propData[base+1]), Z: float64(propData[base+2])}
	}
	faces := make([]kernel.Face, numTri)
	for i := range faces {
		faces[i] = kernel.Face{int(indices[i*3]), int(indices[i*3+1]), int(indices[i*3+2])}
	}
	return kernel.NewSolid(verts, faces)
}
