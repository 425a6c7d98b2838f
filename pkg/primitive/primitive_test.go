package primitive

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
)

func TestBoxVolumeAndClosed(t *testing.T) {
	tests := []struct {
		name    string
		w, d, h float64
	}{
		{"cube", 10, 10, 10},
		{"plate", 160, 30, 1.5},
		{"sliver", 0.2, 100, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(Box{Width: tt.w, Depth: tt.d, Height: tt.h})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			want := tt.w * tt.d * tt.h
			if got := s.Volume(); math.Abs(got-want) > 1e-9*want {
				t.Errorf("Volume() = %v, want %v", got, want)
			}
			if !s.IsClosed() {
				t.Errorf("box not closed: %+v", s.Census())
			}
			b := s.Bounds()
			if b.Min.X != 0 || b.Min.Y != 0 || b.Min.Z != 0 {
				t.Errorf("min corner = %v, want origin", b.Min)
			}
		})
	}
}

func TestInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"zero width", Box{Width: 0, Depth: 1, Height: 1}},
		{"negative height", Box{Width: 1, Depth: 1, Height: -2}},
		{"nan depth", Box{Width: 1, Depth: math.NaN(), Height: 1}},
		{"cylinder zero radius", Cylinder{Radius: 0, Length: 5}},
		{"cylinder two segments", Cylinder{Radius: 1, Length: 5, Segments: 2}},
		{"cone inf height", Cone{Radius: 1, Height: math.Inf(1)}},
		{"extrusion two points", Extrusion{Profile: []r2.Vec{{X: 0}, {X: 1}}, Length: 1}},
		{"extrusion collinear", Extrusion{Profile: []r2.Vec{{X: 0}, {X: 1}, {X: 2}}, Length: 1}},
		{"extrusion bowtie", Extrusion{Profile: []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}, Length: 1}},
		{"extrusion zero length", Extrusion{Profile: []r2.Vec{{X: 0}, {X: 1}, {Y: 1}}, Length: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.d)
			if !errors.Is(err, kernel.ErrInvalidParameter) {
				t.Errorf("Build() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestCylinderAxes(t *testing.T) {
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		t.Run(axis.String(), func(t *testing.T) {
			s, err := Build(Cylinder{Radius: 2, Length: 10, Axis: axis, Segments: 64})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !s.IsClosed() {
				t.Fatalf("cylinder not closed: %+v", s.Census())
			}
			// Inscribed 64-gon area is within 0.2% of the circle.
			want := math.Pi * 4 * 10
			if got := s.Volume(); math.Abs(got-want)/want > 0.002 {
				t.Errorf("Volume() = %v, want about %v", got, want)
			}
			b := s.Bounds()
			var extent float64
			switch axis {
			case AxisX:
				extent = b.Max.X - b.Min.X
			case AxisY:
				extent = b.Max.Y - b.Min.Y
			default:
				extent = b.Max.Z - b.Min.Z
			}
			if math.Abs(extent-10) > 1e-9 {
				t.Errorf("extent along %s = %v, want 10", axis, extent)
			}
		})
	}
}

func TestConeVolume(t *testing.T) {
	s, err := Build(Cone{Radius: 3, Height: 6, Segments: 128})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !s.IsClosed() {
		t.Fatalf("cone not closed: %+v", s.Census())
	}
	want := math.Pi * 9 * 6 / 3
	if got := s.Volume(); math.Abs(got-want)/want > 0.002 {
		t.Errorf("Volume() = %v, want about %v", got, want)
	}
}

func TestExtrusionConcaveProfile(t *testing.T) {
	// U channel, wound clockwise to exercise re-winding.
	u := []r2.Vec{
		{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 2, Y: 10}, {X: 2, Y: 2},
		{X: 8, Y: 2}, {X: 8, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0},
	}
	s, err := Build(Extrusion{Profile: u, Length: 5})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !s.IsClosed() {
		t.Fatalf("extrusion not closed: %+v", s.Census())
	}
	area := 10*10 - 6*8
	if got, want := s.Volume(), float64(area*5); math.Abs(got-want) > 1e-9 {
		t.Errorf("Volume() = %v, want %v", got, want)
	}
}

func TestBuilderPublishes(t *testing.T) {
	var rec event.Recorder
	b := Builder{Sink: &rec}
	if _, err := b.Build("base", Box{Width: 1, Depth: 1, Height: 1}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := b.Build("bad", Box{}); err == nil {
		t.Fatal("Build() of empty box succeeded")
	}
	if got := rec.Count(event.PrimitiveBuilt); got != 1 {
		t.Errorf("PrimitiveBuilt events = %d, want 1", got)
	}
}

func TestTriangulateArea(t *testing.T) {
	poly := []r2.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 2, Y: 1}, {X: 0, Y: 4}}
	tris, err := Triangulate(poly)
	if err != nil {
		t.Fatalf("Triangulate() error = %v", err)
	}
	if len(tris) != 3 {
		t.Fatalf("got %d triangles, want 3", len(tris))
	}
	var sum float64
	for _, tr := range tris {
		a := SignedArea([]r2.Vec{poly[tr[0]], poly[tr[1]], poly[tr[2]]})
		if a <= 0 {
			t.Errorf("triangle %v not CCW", tr)
		}
		sum += a
	}
	if want := SignedArea(poly); math.Abs(sum-want) > 1e-12 {
		t.Errorf("triangle area sum = %v, want %v", sum, want)
	}
}

func TestContainsPolygon(t *testing.T) {
	outer := []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	inner := []r2.Vec{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 9}}
	touching := []r2.Vec{{X: 0, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 9}}
	if !ContainsPolygon(outer, inner) {
		t.Error("inner square not contained")
	}
	if ContainsPolygon(outer, touching) {
		t.Error("square touching the boundary reported contained")
	}
}
