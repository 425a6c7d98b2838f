package parts

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/kernel"
)

// frameLayout is the frame's X layout, derived from the tray it carries.
type frameLayout struct {
	width     float64 // overall
	lipDepth  float64
	lipZ      float64 // underside of the lips
	slotX     float64 // left slot centre; the right one mirrors it
	leftEnd   float64 // inner end of the left lip
	rightFrom float64 // inner end of the right lip
}

// layoutFrame centres the tray between the side rails, so each slot sits
// over the centre of a tray wall.
func layoutFrame(f FrameConfig, t TrayConfig, p joint.Pair) (frameLayout, error) {
	l := frameLayout{
		width:    t.Width + 2*(f.RailWidth+f.SideClearance),
		slotX:    f.RailWidth + f.SideClearance + t.WallThickness/2,
		lipDepth: f.SideClearance + t.WallThickness/2 + p.Slot.CavityWidth/2 + f.LipMargin,
		lipZ:     f.RailHeight - f.LipHeight,
	}
	l.leftEnd = f.RailWidth + l.lipDepth
	l.rightFrom = l.width - f.RailWidth - l.lipDepth
	if p.Slot.Top() > f.LipHeight-f.LipMargin/2 {
		return l, fmt.Errorf("%w: frame lip %v too thin for a %v deep slot", kernel.ErrInvalidParameter, f.LipHeight, p.Slot.Top())
	}
	if l.slotX-p.Slot.CavityWidth/2 < f.LipMargin/2 {
		return l, fmt.Errorf("%w: frame rail %v too narrow for the slot", kernel.ErrInvalidParameter, f.RailWidth)
	}
	if l.rightFrom-l.leftEnd <= 2*f.ScrewInset {
		return l, fmt.Errorf("%w: frame lips leave no room for beam screws", kernel.ErrInvalidParameter)
	}
	return l, nil
}

// Frame builds the desk frame the tray slides into: two side rails with
// inward lips, cross beams along the top, a downward-opening T-slot in each
// lip stopping short of the front to leave a stop wall, and countersunk
// screw holes through the beams.
func Frame(cfg Config, c *csg.Compositor) (csg.Result, error) {
	f, t, j := cfg.Frame, cfg.Tray, cfg.Joint
	if err := f.Validate(); err != nil {
		return csg.Result{}, err
	}
	if err := t.Validate(); err != nil {
		return csg.Result{}, err
	}
	pair, err := j.Pair()
	if err != nil {
		return csg.Result{}, err
	}
	l, err := layoutFrame(f, t, pair)
	if err != nil {
		return csg.Result{}, err
	}
	b := newBuilder("frame", c)

	type block struct {
		label   string
		w, d, h float64
		x, y, z float64
	}
	blocks := []block{
		{"rail-left", f.RailWidth, f.Length, f.RailHeight, 0, 0, 0},
		{"lip-left", l.lipDepth, f.Length, f.LipHeight, f.RailWidth, 0, l.lipZ},
		{"rail-right", f.RailWidth, f.Length, f.RailHeight, l.width - f.RailWidth, 0, 0},
		{"lip-right", l.lipDepth, f.Length, f.LipHeight, l.rightFrom, 0, l.lipZ},
	}
	var seed *kernel.Solid
	var st steps
	for _, bl := range blocks {
		s, err := b.box(bl.label, bl.w, bl.d, bl.h, bl.x, bl.y, bl.z)
		if err != nil {
			return csg.Result{}, err
		}
		if seed == nil {
			seed = s
			continue
		}
		st.add("frame."+bl.label, s)
	}

	// Beams are drilled on their own before they join the rails, so the
	// holes never meet the lip and slot faces.
	const beamOverlap = 5.0
	beams := make([]func() (*kernel.Solid, error), len(f.BeamPositions))
	for i, pos := range f.BeamPositions {
		beams[i] = func() (*kernel.Solid, error) {
			label := fmt.Sprintf("beam[%d]", i)
			y := pos * (f.Length - f.BeamWidth)
			beam, err := b.box(label, l.rightFrom-l.leftEnd+2*beamOverlap, f.BeamWidth, f.BeamThickness,
				l.leftEnd-beamOverlap, y, f.RailHeight-f.BeamThickness)
			if err != nil {
				return nil, err
			}
			var holes []*kernel.Solid
			for k, x := range []float64{l.leftEnd + f.ScrewInset, l.rightFrom - f.ScrewInset} {
				h, err := beamHole(b, c, fmt.Sprintf("hole[%d.%d]", i, k), f, x, y+f.BeamWidth/2)
				if err != nil {
					return nil, err
				}
				holes = append(holes, h)
			}
			res, err := c.Subtract("frame."+label, beam, holes...)
			if err != nil {
				return nil, err
			}
			return res.Solid, nil
		}
	}
	drilled, err := csg.Branches(beams...)
	if err != nil {
		return csg.Result{}, err
	}
	for i, beam := range drilled {
		st.add(fmt.Sprintf("frame.beam[%d]", i), beam)
	}

	span := joint.Span{Start: f.StopThickness, Length: f.Length - f.StopThickness + 1}
	for _, s := range []struct {
		label string
		x     float64
	}{
		{"slot-left", l.slotX},
		{"slot-right", l.width - l.slotX},
	} {
		cutter, err := joint.SlotSolid(pair.Slot, span, joint.Upright, r3.Vec{X: s.x, Z: l.lipZ})
		if err != nil {
			return csg.Result{}, err
		}
		st.cut("frame."+s.label, cutter)
	}

	return c.Compose(seed, st)
}

// beamHole is a screw shaft through a beam with a countersink recessed into
// the beam's underside.
func beamHole(b builder, c *csg.Compositor, label string, f FrameConfig, x, y float64) (*kernel.Solid, error) {
	shaft, err := b.cylinder(label+".shaft", f.ScrewHole/2, f.RailHeight+2, x, y, -1)
	if err != nil {
		return nil, err
	}
	underside := f.RailHeight - f.BeamThickness
	sink, err := b.cylinder(label+".countersink", f.Countersink/2, f.CountersinkDepth+1, x, y, underside-1)
	if err != nil {
		return nil, err
	}
	return merged(c, "frame."+label, shaft, sink)
}
