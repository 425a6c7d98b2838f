package joint

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/kernel/bsp"
)

var trayRail = RailProfile{NeckWidth: 4, NeckHeight: 4, HeadWidth: 10, ChamferHeight: 3, HeadFlat: 0.5}

func TestRailSection(t *testing.T) {
	if got := trayRail.Area(); math.Abs(got-42) > 1e-12 {
		t.Errorf("Area() = %v, want 42", got)
	}
	if got := trayRail.Angle(); math.Abs(got-45) > 1 {
		t.Errorf("Angle() = %v, want 45 ± 1", got)
	}
	if got := trayRail.Height(); got != 7.5 {
		t.Errorf("Height() = %v, want 7.5", got)
	}
}

func TestDeriveFits(t *testing.T) {
	for _, c := range []float64{0.1, 0.3, 1.0} {
		p, err := Derive(trayRail, c)
		if err != nil {
			t.Fatalf("Derive(%v) error = %v", c, err)
		}
		if got := p.Gap(); math.Abs(got-c) > 1e-9 {
			t.Errorf("clearance %v: Gap() = %v, want %v", c, got, c)
		}
		if p.Slot.CavityWidth < trayRail.HeadWidth+2*c || p.Slot.SlotWidth < trayRail.NeckWidth+2*c {
			t.Errorf("clearance %v: slot %+v too narrow", c, p.Slot)
		}
	}
}

func TestNewPairRejects(t *testing.T) {
	good := SlotFor(trayRail, 0.3)
	tests := []struct {
		name string
		rail RailProfile
		slot func() SlotProfile
		min  float64
	}{
		{"head not wider than neck", RailProfile{NeckWidth: 4, NeckHeight: 4, HeadWidth: 4, ChamferHeight: 1}, func() SlotProfile { return good }, 0},
		{"cavity too narrow", trayRail, func() SlotProfile { s := good; s.CavityWidth = trayRail.HeadWidth + 0.2; return s }, 0},
		{"entry too narrow", trayRail, func() SlotProfile { s := good; s.SlotWidth = trayRail.NeckWidth + 0.1; return s }, 0},
		{"ceiling too low", trayRail, func() SlotProfile { s := good; s.CavityHeight -= 0.5; return s }, 0},
		{"entry too high", trayRail, func() SlotProfile { s := good; s.SlotHeight = trayRail.NeckHeight + 1; s.CavityHeight = 1; return s }, 0},
		{"clearance below minimum", trayRail, func() SlotProfile { return good }, 0.5},
		{"negative slot width", trayRail, func() SlotProfile { s := good; s.SlotWidth = -1; return s }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPair(tt.rail, tt.slot(), tt.min)
			if !errors.Is(err, kernel.ErrInvalidParameter) {
				t.Errorf("NewPair() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestRailSolid(t *testing.T) {
	s, err := RailSolid(trayRail, Span{Start: 5, Length: 100}, Upright, r3.Vec{X: 20, Z: 30})
	if err != nil {
		t.Fatalf("RailSolid() error = %v", err)
	}
	if !s.IsClosed() {
		t.Fatalf("rail not closed: %+v", s.Census())
	}
	if got := s.Volume(); math.Abs(got-4200) > 1e-6 {
		t.Errorf("Volume() = %v, want 4200", got)
	}
	b := s.Bounds()
	want := r3.Box{Min: r3.Vec{X: 15, Y: 5, Z: 30}, Max: r3.Vec{X: 25, Y: 105, Z: 37.5}}
	if r3.Norm(r3.Sub(b.Min, want.Min)) > 1e-9 || r3.Norm(r3.Sub(b.Max, want.Max)) > 1e-9 {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}

	inv, err := RailSolid(trayRail, Span{Length: 10}, Inverted, r3.Vec{})
	if err != nil {
		t.Fatal(err)
	}
	ib := inv.Bounds()
	if math.Abs(ib.Min.Z+7.5) > 1e-9 || math.Abs(ib.Max.Z) > 1e-9 {
		t.Errorf("inverted Z extent = [%v, %v], want [-7.5, 0]", ib.Min.Z, ib.Max.Z)
	}
	if inv.Volume() <= 0 {
		t.Error("inverted rail is inside out")
	}
}

func TestLayouts(t *testing.T) {
	spans, err := Segmented(10, 20, 3, 5).Spans()
	if err != nil {
		t.Fatal(err)
	}
	want := []Span{{10, 20}, {35, 20}, {60, 20}}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}
	if lo, hi := Segmented(10, 20, 3, 5).Extent(); lo != 10 || hi != 80 {
		t.Errorf("Extent() = [%v, %v], want [10, 80]", lo, hi)
	}
	if _, err := Continuous(0, 0).Spans(); !errors.Is(err, kernel.ErrInvalidParameter) {
		t.Errorf("zero-length layout error = %v", err)
	}

	rails, err := Rails(trayRail, Segmented(0, 10, 4, 2), Upright, r3.Vec{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rails) != 4 {
		t.Errorf("Rails() returned %d solids, want 4", len(rails))
	}
}

func TestSlideCheck(t *testing.T) {
	c := csg.New(bsp.New())
	for _, clearance := range []float64{0.1, 0.3} {
		p, err := Derive(trayRail, clearance)
		if err != nil {
			t.Fatal(err)
		}
		overlap, err := SlideCheck(c, p, 40, 5)
		if err != nil {
			t.Fatalf("clearance %v: SlideCheck() error = %v", clearance, err)
		}
		if overlap > 1e-6 {
			t.Errorf("clearance %v: rail overlaps slot host by %v mm³", clearance, overlap)
		}
	}
}

func TestSlideCheckDetectsInterference(t *testing.T) {
	c := csg.New(bsp.New())
	slot := SlotFor(trayRail, 0.3)
	slot.CavityWidth = trayRail.HeadWidth - 1
	overlap, err := SlideCheck(c, Pair{Rail: trayRail, Slot: slot}, 40, 3)
	if err != nil {
		t.Fatalf("SlideCheck() error = %v", err)
	}
	if overlap <= 0 {
		t.Error("oversized head slid through an undersized cavity")
	}
}
