package bsp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/primitive"
)

func box(t *testing.T, w, d, h float64, at r3.Vec) *kernel.Solid {
	t.Helper()
	s, err := primitive.Build(primitive.Box{Width: w, Depth: d, Height: h})
	if err != nil {
		t.Fatalf("Build(box) error = %v", err)
	}
	return s.Translate(at)
}

func assertVolume(t *testing.T, s *kernel.Solid, want float64) {
	t.Helper()
	if got := s.Volume(); math.Abs(got-want) > 1e-6*math.Max(1, want) {
		t.Errorf("Volume() = %v, want %v", got, want)
	}
}

func assertClosed(t *testing.T, s *kernel.Solid) {
	t.Helper()
	if c := s.Census(); !c.Closed() {
		t.Errorf("result not closed: %+v", c)
	}
}

func TestUnion(t *testing.T) {
	k := New()
	tests := []struct {
		name string
		a, b *kernel.Solid
		want float64
	}{
		{"disjoint", box(t, 10, 10, 10, r3.Vec{}), box(t, 5, 5, 5, r3.Vec{X: 20}), 1125},
		{"contained", box(t, 10, 10, 10, r3.Vec{}), box(t, 5, 5, 5, r3.Vec{X: 2, Y: 2, Z: 2}), 1000},
		{"overlapping", box(t, 10, 10, 10, r3.Vec{}), box(t, 10, 10, 10, r3.Vec{X: 5, Y: 5, Z: 5}), 2000 - 125},
		{"rail on wall", box(t, 2, 100, 20, r3.Vec{}), box(t, 1, 100, 5, r3.Vec{X: 0.5, Z: 19.5}), 2*100*20 + 1*100*4.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.Union(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Union() error = %v", err)
			}
			assertVolume(t, got, tt.want)
			assertClosed(t, got)
		})
	}
}

func TestSelfUnion(t *testing.T) {
	k := New()
	a := box(t, 10, 10, 10, r3.Vec{})
	got, err := k.Union(a, a)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	assertVolume(t, got, 1000)
	assertClosed(t, got)
}

func TestDifference(t *testing.T) {
	k := New()
	a := box(t, 10, 10, 10, r3.Vec{})

	t.Run("half", func(t *testing.T) {
		cut := box(t, 12, 12, 6, r3.Vec{X: -1, Y: -1, Z: 5})
		got, err := k.Difference(a, cut)
		if err != nil {
			t.Fatalf("Difference() error = %v", err)
		}
		assertVolume(t, got, 500)
		assertClosed(t, got)
	})

	t.Run("flush half", func(t *testing.T) {
		// The cutter shares four side faces and the bottom face with a.
		got, err := k.Difference(a, box(t, 10, 10, 5, r3.Vec{}))
		if err != nil {
			t.Fatalf("Difference() error = %v", err)
		}
		assertVolume(t, got, 500)
		assertClosed(t, got)
		if got.Degraded {
			t.Error("result marked degraded")
		}
	})

	t.Run("cavity", func(t *testing.T) {
		cut := box(t, 6, 6, 6, r3.Vec{X: 2, Y: 2, Z: 2})
		got, err := k.Difference(a, cut)
		if err != nil {
			t.Fatalf("Difference() error = %v", err)
		}
		assertVolume(t, got, 1000-216)
		assertClosed(t, got)
	})

	t.Run("through hole", func(t *testing.T) {
		hole, err := primitive.Build(primitive.Cylinder{Radius: 2, Length: 14, Segments: 24})
		if err != nil {
			t.Fatal(err)
		}
		hole = hole.Translate(r3.Vec{X: 5, Y: 5, Z: -2})
		got, err := k.Difference(a, hole)
		if err != nil {
			t.Fatalf("Difference() error = %v", err)
		}
		want := 1000 - hole.Volume()*10/14
		assertVolume(t, got, want)
		assertClosed(t, got)
	})

	t.Run("disjoint", func(t *testing.T) {
		got, err := k.Difference(a, box(t, 1, 1, 1, r3.Vec{X: 50}))
		if err != nil {
			t.Fatalf("Difference() error = %v", err)
		}
		assertVolume(t, got, 1000)
	})
}

func TestIntersection(t *testing.T) {
	k := New()
	a := box(t, 10, 10, 10, r3.Vec{})
	b := box(t, 10, 10, 10, r3.Vec{X: 5, Y: 5, Z: 5})
	got, err := k.Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	assertVolume(t, got, 125)
	assertClosed(t, got)

	apart, err := k.Intersection(a, box(t, 1, 1, 1, r3.Vec{X: 30}))
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if !apart.IsEmpty() {
		t.Errorf("disjoint intersection has %d faces, want 0", len(apart.Faces))
	}
}

func TestOperandsNotMutated(t *testing.T) {
	k := New()
	a := box(t, 10, 10, 10, r3.Vec{})
	b := box(t, 4, 4, 4, r3.Vec{X: 8, Y: 8, Z: 8})
	before := a.Clone()
	if _, err := k.Union(a, b); err != nil {
		t.Fatal(err)
	}
	for i := range a.Vertices {
		if a.Vertices[i] != before.Vertices[i] {
			t.Fatalf("operand vertex %d changed", i)
		}
	}
}

func TestStructurallyInvalidOperand(t *testing.T) {
	k := New()
	a := box(t, 1, 1, 1, r3.Vec{})
	bad := a.Clone()
	bad.Vertices[0].X = math.Inf(1)
	if _, err := k.Union(a, bad); err == nil {
		t.Fatal("Union() with a non-finite operand succeeded")
	}
}

func TestDegradedPropagates(t *testing.T) {
	k := New()
	a := box(t, 10, 10, 10, r3.Vec{})
	a.Degraded = true
	got, err := k.Union(a, box(t, 1, 1, 1, r3.Vec{X: 20}))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Degraded {
		t.Error("degraded input produced a clean result")
	}
}
