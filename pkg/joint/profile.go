// Package joint generates matched T-rail and T-slot geometry for sliding
// joints between printed parts.
//
// Profiles live in the rail's local frame: X across (centred on X=0), Z up
// with the rail's foot at Z=0, and the joint running along +Y. A slot
// profile describes the negative space a rail slides in, in the same
// frame, so a rail and a slot placed at the same position mate.
package joint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chazu/trayforge/pkg/chamfer"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/primitive"
)

// DefaultEntry is how far a slot's entry channel extends below Z=0 so the
// cutter opens cleanly through the host's face.
const DefaultEntry = 1.0

// RailProfile is the cross-section of a T-rail: a neck topped by a head
// whose underside is bevelled over ChamferHeight and whose top has a flat
// band HeadFlat thick.
type RailProfile struct {
	NeckWidth     float64
	NeckHeight    float64
	HeadWidth     float64
	ChamferHeight float64
	HeadFlat      float64
}

// SlotProfile is the cross-section of the T-slot cavity: an entry channel
// SlotWidth wide up to SlotHeight, a flare to CavityWidth over
// ChamferHeight, then the cavity, CavityHeight tall.
type SlotProfile struct {
	SlotWidth     float64
	SlotHeight    float64
	CavityWidth   float64
	CavityHeight  float64
	ChamferHeight float64
	Clearance     float64
	Entry         float64 // defaults to DefaultEntry
}

type dim struct {
	name string
	v    float64
}

func checkPositive(what string, dims ...dim) error {
	for _, d := range dims {
		if math.IsNaN(d.v) || math.IsInf(d.v, 0) || d.v <= 0 {
			return fmt.Errorf("%w: %s %s must be positive, got %v", kernel.ErrInvalidParameter, what, d.name, d.v)
		}
	}
	return nil
}

// Validate reports ErrInvalidParameter for non-positive dimensions or a
// head no wider than the neck.
func (r RailProfile) Validate() error {
	if err := checkPositive("rail",
		dim{"neck width", r.NeckWidth},
		dim{"neck height", r.NeckHeight},
		dim{"head width", r.HeadWidth},
		dim{"chamfer height", r.ChamferHeight},
	); err != nil {
		return err
	}
	if r.HeadFlat < 0 || math.IsNaN(r.HeadFlat) {
		return fmt.Errorf("%w: rail head flat must not be negative, got %v", kernel.ErrInvalidParameter, r.HeadFlat)
	}
	if r.HeadWidth <= r.NeckWidth {
		return fmt.Errorf("%w: rail head width %v must exceed neck width %v", kernel.ErrInvalidParameter, r.HeadWidth, r.NeckWidth)
	}
	return nil
}

// Height is the total rail height above its foot.
func (r RailProfile) Height() float64 {
	return r.NeckHeight + r.ChamferHeight + r.HeadFlat
}

// Angle is the head bevel angle from vertical, in degrees.
func (r RailProfile) Angle() float64 {
	return chamfer.Angle(r.NeckWidth, r.HeadWidth, r.ChamferHeight)
}

// Section returns the rail cross-section, counter-clockwise, with Y
// standing for Z.
func (r RailProfile) Section() []r2.Vec {
	nw, hw := r.NeckWidth/2, r.HeadWidth/2
	z1 := r.NeckHeight
	z2 := z1 + r.ChamferHeight
	z3 := z2 + r.HeadFlat
	pts := []r2.Vec{
		{X: -nw, Y: 0},
		{X: nw, Y: 0},
		{X: nw, Y: z1},
		{X: hw, Y: z2},
	}
	if r.HeadFlat > 0 {
		pts = append(pts, r2.Vec{X: hw, Y: z3}, r2.Vec{X: -hw, Y: z3})
	}
	return append(pts,
		r2.Vec{X: -hw, Y: z2},
		r2.Vec{X: -nw, Y: z1},
	)
}

// Area is the cross-section area.
func (r RailProfile) Area() float64 {
	return primitive.SignedArea(r.Section())
}

func (s SlotProfile) entry() float64 {
	if s.Entry > 0 {
		return s.Entry
	}
	return DefaultEntry
}

// Validate reports ErrInvalidParameter for non-positive dimensions or a
// cavity no wider than the entry.
func (s SlotProfile) Validate() error {
	if err := checkPositive("slot",
		dim{"slot width", s.SlotWidth},
		dim{"slot height", s.SlotHeight},
		dim{"cavity width", s.CavityWidth},
		dim{"cavity height", s.CavityHeight},
		dim{"chamfer height", s.ChamferHeight},
	); err != nil {
		return err
	}
	if s.Clearance < 0 || math.IsNaN(s.Clearance) {
		return fmt.Errorf("%w: slot clearance must not be negative, got %v", kernel.ErrInvalidParameter, s.Clearance)
	}
	if s.CavityWidth <= s.SlotWidth {
		return fmt.Errorf("%w: cavity width %v must exceed slot width %v", kernel.ErrInvalidParameter, s.CavityWidth, s.SlotWidth)
	}
	return nil
}

// Top is the Z of the cavity ceiling.
func (s SlotProfile) Top() float64 {
	return s.SlotHeight + s.ChamferHeight + s.CavityHeight
}

// Section returns the slot cross-section, counter-clockwise, with Y
// standing for Z. The entry channel starts Entry below Z=0.
func (s SlotProfile) Section() []r2.Vec {
	sw, cw := s.SlotWidth/2, s.CavityWidth/2
	z0 := -s.entry()
	z1 := s.SlotHeight
	z2 := z1 + s.ChamferHeight
	z3 := s.Top()
	return []r2.Vec{
		{X: -sw, Y: z0},
		{X: sw, Y: z0},
		{X: sw, Y: z1},
		{X: cw, Y: z2},
		{X: cw, Y: z3},
		{X: -cw, Y: z3},
		{X: -cw, Y: z2},
		{X: -sw, Y: z1},
	}
}

// SlotFor derives the slot that receives rail with clearance c on every
// side: the entry channel and cavity are 2c wider than neck and head, the
// flare starts c lower than the rail's bevel and the ceiling sits c above
// the rail top.
func SlotFor(r RailProfile, c float64) SlotProfile {
	sh := r.NeckHeight - c
	if sh < r.NeckHeight/2 {
		sh = r.NeckHeight / 2
	}
	return SlotProfile{
		SlotWidth:     r.NeckWidth + 2*c,
		SlotHeight:    sh,
		CavityWidth:   r.HeadWidth + 2*c,
		CavityHeight:  r.Height() + c - (sh + r.ChamferHeight),
		ChamferHeight: r.ChamferHeight,
		Clearance:     c,
	}
}
