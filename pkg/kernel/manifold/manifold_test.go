//go:build manifold

package manifold

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/primitive"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func cube(t *testing.T, size float64, at r3.Vec) *kernel.Solid {
	t.Helper()
	s, err := primitive.Build(primitive.Box{Width: size, Depth: size, Height: size})
	if err != nil {
		t.Fatal(err)
	}
	return s.Translate(at)
}

func TestBooleans(t *testing.T) {
	k := mustNew(t)
	a := cube(t, 10, r3.Vec{})
	b := cube(t, 10, r3.Vec{X: 5, Y: 5, Z: 5})

	tests := []struct {
		name string
		op   func(a, b *kernel.Solid) (*kernel.Solid, error)
		want float64
	}{
		{"union", k.Union, 1875},
		{"difference", k.Difference, 875},
		{"intersection", k.Intersection, 125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(a, b)
			if err != nil {
				t.Fatalf("%s error = %v", tt.name, err)
			}
			if v := got.Volume(); math.Abs(v-tt.want) > 1e-3 {
				t.Errorf("Volume() = %v, want %v", v, tt.want)
			}
			if !got.IsClosed() {
				t.Errorf("result not closed: %+v", got.Census())
			}
		})
	}
}

func TestOpenMeshRejected(t *testing.T) {
	k := mustNew(t)
	open := cube(t, 10, r3.Vec{})
	open.Faces = open.Faces[:len(open.Faces)-1]
	if _, err := k.Union(open, cube(t, 1, r3.Vec{X: 20})); err == nil {
		t.Fatal("Union() of an open mesh succeeded")
	}
}
