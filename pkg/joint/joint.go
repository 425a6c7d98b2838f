package joint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

// Pair is a rail and the slot it slides in, checked for fit.
type Pair struct {
	Rail RailProfile
	Slot SlotProfile
}

// NewPair validates both profiles and their fit: the cavity and entry are
// at least 2c wider than head and neck, c is at least minClearance, and
// the rail cross-section lies strictly inside the slot's.
func NewPair(rail RailProfile, slot SlotProfile, minClearance float64) (Pair, error) {
	if err := rail.Validate(); err != nil {
		return Pair{}, err
	}
	if err := slot.Validate(); err != nil {
		return Pair{}, err
	}
	c := slot.Clearance
	if c < minClearance {
		return Pair{}, fmt.Errorf("%w: clearance %v below minimum %v", kernel.ErrInvalidParameter, c, minClearance)
	}
	const eps = 1e-9
	if slot.CavityWidth < rail.HeadWidth+2*c-eps {
		return Pair{}, fmt.Errorf("%w: cavity width %v < head width %v + 2×%v", kernel.ErrInvalidParameter, slot.CavityWidth, rail.HeadWidth, c)
	}
	if slot.SlotWidth < rail.NeckWidth+2*c-eps {
		return Pair{}, fmt.Errorf("%w: slot width %v < neck width %v + 2×%v", kernel.ErrInvalidParameter, slot.SlotWidth, rail.NeckWidth, c)
	}
	if slot.Top() < rail.Height()+c-eps {
		return Pair{}, fmt.Errorf("%w: cavity ceiling %v < rail top %v + %v", kernel.ErrInvalidParameter, slot.Top(), rail.Height(), c)
	}
	if !primitive.ContainsPolygon(slot.Section(), rail.Section()) {
		return Pair{}, fmt.Errorf("%w: rail cross-section does not fit inside the slot", kernel.ErrInvalidParameter)
	}
	return Pair{Rail: rail, Slot: slot}, nil
}

// Derive builds the pair whose slot is SlotFor(rail, clearance).
func Derive(rail RailProfile, clearance float64) (Pair, error) {
	return NewPair(rail, SlotFor(rail, clearance), clearance)
}

// Gap returns the smallest distance between the rail and slot outlines.
func (p Pair) Gap() float64 {
	rail, slot := p.Rail.Section(), p.Slot.Section()
	best := math.Inf(1)
	for _, v := range rail {
		best = math.Min(best, distToOutline(v, slot))
	}
	for _, v := range slot {
		best = math.Min(best, distToOutline(v, rail))
	}
	return best
}

func distToOutline(p r2.Vec, poly []r2.Vec) float64 {
	best := math.Inf(1)
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		ab := r2.Sub(b, a)
		t := r2.Dot(r2.Sub(p, a), ab) / r2.Dot(ab, ab)
		t = math.Max(0, math.Min(1, t))
		best = math.Min(best, r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab)))))
	}
	return best
}

// Orientation selects which way a joint faces.
type Orientation int

const (
	// Upright rails stand on +Z; upright slots open toward -Z.
	Upright Orientation = iota
	// Inverted rails hang toward -Z; inverted slots open toward +Z.
	Inverted
)

// Layout places joint segments along Y.
type Layout struct {
	Start   float64 // Y of the first segment's start
	Length  float64 // length of each segment
	Count   int     // number of segments; 0 means 1
	Spacing float64 // gap between segments
}

// Continuous is a single segment.
func Continuous(start, length float64) Layout {
	return Layout{Start: start, Length: length, Count: 1}
}

// Segmented is count segments of length, separated by spacing.
func Segmented(start, length float64, count int, spacing float64) Layout {
	return Layout{Start: start, Length: length, Count: count, Spacing: spacing}
}

// Span is one segment's extent along Y.
type Span struct {
	Start, Length float64
}

// Spans returns every segment of the layout.
func (l Layout) Spans() ([]Span, error) {
	if math.IsNaN(l.Length) || l.Length <= 0 {
		return nil, fmt.Errorf("%w: joint length must be positive, got %v", kernel.ErrInvalidParameter, l.Length)
	}
	n := l.Count
	if n <= 0 {
		n = 1
	}
	if n > 1 && l.Spacing < 0 {
		return nil, fmt.Errorf("%w: joint spacing must not be negative, got %v", kernel.ErrInvalidParameter, l.Spacing)
	}
	out := make([]Span, n)
	for i := range out {
		out[i] = Span{Start: l.Start + float64(i)*(l.Length+l.Spacing), Length: l.Length}
	}
	return out, nil
}

// Extent returns the Y range covered by the layout.
func (l Layout) Extent() (lo, hi float64) {
	n := l.Count
	if n <= 0 {
		n = 1
	}
	return l.Start, l.Start + float64(n)*l.Length + float64(n-1)*l.Spacing
}

// sweep extrudes a cross-section along Y from y=start for length, then
// orients it and moves its local origin to at.
func sweep(section []r2.Vec, span Span, orient Orientation, at r3.Vec) (*kernel.Solid, error) {
	p := placement.ProfileAlongY(span.Length).Then(placement.At(0, span.Start, 0))
	if orient == Inverted {
		p = p.Then(placement.Rotate(placement.Y, math.Pi))
	}
	p = p.Then(placement.Placement{Translation: at})
	return placement.Place(primitive.Extrusion{Profile: section, Length: span.Length}, p)
}

// RailSolid extrudes the rail along one span.
func RailSolid(r RailProfile, span Span, orient Orientation, at r3.Vec) (*kernel.Solid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return sweep(r.Section(), span, orient, at)
}

// SlotSolid extrudes the slot cutter along one span.
func SlotSolid(s SlotProfile, span Span, orient Orientation, at r3.Vec) (*kernel.Solid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return sweep(s.Section(), span, orient, at)
}

// Rails returns one rail solid per layout segment, at the given origin.
func Rails(r RailProfile, l Layout, orient Orientation, at r3.Vec) ([]*kernel.Solid, error) {
	spans, err := l.Spans()
	if err != nil {
		return nil, err
	}
	out := make([]*kernel.Solid, 0, len(spans))
	for _, sp := range spans {
		s, err := RailSolid(r, sp, orient, at)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Slots returns one slot cutter per layout segment, at the given origin.
func Slots(s SlotProfile, l Layout, orient Orientation, at r3.Vec) ([]*kernel.Solid, error) {
	spans, err := l.Spans()
	if err != nil {
		return nil, err
	}
	out := make([]*kernel.Solid, 0, len(spans))
	for _, sp := range spans {
		c, err := SlotSolid(s, sp, orient, at)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SlideCheck cuts the slot through a host block and intersects it with the
// rail at samples positions along Y. It returns the largest intersection
// volume found, which is zero when the rail slides freely.
func SlideCheck(c *csg.Compositor, p Pair, length float64, samples int) (float64, error) {
	if samples < 1 {
		samples = 1
	}
	w := p.Slot.CavityWidth + 4
	h := p.Slot.Top() + 2
	host, err := placement.Place(primitive.Box{Width: w, Depth: length, Height: h}, placement.At(-w/2, 0, 0))
	if err != nil {
		return 0, err
	}
	cutter, err := SlotSolid(p.Slot, Span{Start: -1, Length: length + 2}, Upright, r3.Vec{})
	if err != nil {
		return 0, err
	}
	res, err := c.Compose(host, []csg.Step{csg.Cut("slot", cutter)})
	if err != nil {
		return 0, err
	}
	if res.Degraded {
		return 0, fmt.Errorf("%w: slot cut fell back", kernel.ErrBooleanDegenerate)
	}

	railLen := length / 4
	var worst float64
	for i := 0; i < samples; i++ {
		y := -railLen / 2
		if samples > 1 {
			y += float64(i) * (length) / float64(samples-1)
		}
		rail, err := RailSolid(p.Rail, Span{Start: y, Length: railLen}, Upright, r3.Vec{})
		if err != nil {
			return 0, err
		}
		inter, err := c.Intersect(res.Solid, rail)
		if err != nil {
			return 0, err
		}
		if !inter.IsEmpty() {
			worst = math.Max(worst, math.Abs(inter.Volume()))
		}
	}
	return worst, nil
}
