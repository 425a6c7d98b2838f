package parts

import (
	"fmt"
	"math"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
)

// Mount builds the sandwich wall mount: a back plate against the wall, a
// spacer of perimeter walls and a rib grid, a front plate the device clips
// slide over, solid pillars around the screw positions, and countersunk
// screw holes driven from the front.
func Mount(cfg Config, c *csg.Compositor) (csg.Result, error) {
	m := cfg.Mount
	if err := m.Validate(); err != nil {
		return csg.Result{}, err
	}
	b := newBuilder("mount", c)

	total := m.BackThickness + m.SpacerGap + m.FrontThickness
	bw := m.Width - m.InsetLeft - m.InsetRight
	bh := m.Height - m.InsetTop - m.InsetBottom
	sz := m.BackThickness
	iw, ih := bw-2*m.SpacerWall, bh-2*m.SpacerWall
	x0, y0 := m.InsetLeft+m.SpacerWall, m.InsetBottom+m.SpacerWall

	// Everything between the plates reaches into them, each layer by a
	// different amount, so no two blocks meet face to face.
	sink := math.Min(m.BackThickness, m.FrontThickness) / 10
	span := func(level float64) (z, h float64) {
		return sz - level*sink, m.SpacerGap + 2*level*sink
	}

	// The back plate and the spacer walls are one block with a pocket.
	body, err := b.box("back", bw, bh, sz+m.SpacerGap+sink, m.InsetLeft, m.InsetBottom, 0)
	if err != nil {
		return csg.Result{}, err
	}
	pocket, err := b.box("pocket", iw, ih, m.SpacerGap+sink+1, x0, y0, sz)
	if err != nil {
		return csg.Result{}, err
	}
	var st steps
	st.cut("mount.pocket", pocket)

	type block struct {
		label   string
		w, d, h float64
		x, y, z float64
	}
	var blocks []block
	// Ribs end halfway into the spacer walls.
	vz, vh := span(2)
	hz, hh := span(3)
	for i := 1; i < m.RibDivisions; i++ {
		f := float64(i) / float64(m.RibDivisions)
		blocks = append(blocks,
			block{fmt.Sprintf("rib-v[%d]", i), m.RibThickness, ih + m.SpacerWall, vh, x0 + f*iw - m.RibThickness/2, y0 - m.SpacerWall/2, vz},
			block{fmt.Sprintf("rib-h[%d]", i), iw + m.SpacerWall, m.RibThickness, hh, x0 - m.SpacerWall/2, y0 + f*ih - m.RibThickness/2, hz},
		)
	}
	for _, bl := range blocks {
		s, err := b.box(bl.label, bl.w, bl.d, bl.h, bl.x, bl.y, bl.z)
		if err != nil {
			return csg.Result{}, err
		}
		st.add("mount."+bl.label, s)
	}

	cx, cy := m.InsetLeft+bw/2, m.InsetBottom+bh/2
	screws := [][2]float64{
		{cx - m.ScrewSpacingH/2, cy - m.ScrewSpacingV/2},
		{cx + m.ScrewSpacingH/2, cy - m.ScrewSpacingV/2},
		{cx - m.ScrewSpacingH/2, cy + m.ScrewSpacingV/2},
		{cx + m.ScrewSpacingH/2, cy + m.ScrewSpacingV/2},
	}
	for i, p := range screws {
		pz, ph := span(4)
		pillar, err := b.cylinder(fmt.Sprintf("pillar[%d]", i), m.PillarDiameter/2, ph, p[0], p[1], pz)
		if err != nil {
			return csg.Result{}, err
		}
		st.add(fmt.Sprintf("mount.pillar[%d]", i), pillar)
	}
	front, err := b.box("front", m.Width, m.Height, m.FrontThickness, 0, 0, sz+m.SpacerGap)
	if err != nil {
		return csg.Result{}, err
	}
	st.add("mount.front", front)

	holes := make([]func() (*kernel.Solid, error), len(screws))
	for i, p := range screws {
		holes[i] = func() (*kernel.Solid, error) {
			return countersunkHole(b, c, fmt.Sprintf("hole[%d]", i), m, total, p[0], p[1])
		}
	}
	cutters, err := csg.Branches(holes...)
	if err != nil {
		return csg.Result{}, err
	}
	for i, h := range cutters {
		st.cut(fmt.Sprintf("mount.hole[%d]", i), h)
	}
	return c.Compose(body, st)
}

// countersunkHole is a screw shaft through the whole mount, a flat recess
// for the head at the front face and a taper below it matching the head's
// underside.
func countersunkHole(b builder, c *csg.Compositor, label string, m MountConfig, total, x, y float64) (*kernel.Solid, error) {
	const overlap = 0.05
	seat := total - m.CountersinkFlat
	shaft, err := b.cylinder(label+".shaft", m.ScrewHole/2, seat+0.2, x, y, -0.2)
	if err != nil {
		return nil, err
	}
	flat, err := b.cylinder(label+".flat", m.Countersink/2, m.CountersinkFlat+0.1+overlap, x, y, seat-overlap)
	if err != nil {
		return nil, err
	}
	// Slightly narrower than the recess so its rim stays clear of the
	// recess wall.
	taper, err := b.taper(label+".taper", m.Countersink/2-overlap, m.CountersinkDepth-m.CountersinkFlat, x, y, seat+overlap)
	if err != nil {
		return nil, err
	}
	return merged(c, "mount."+label, shaft, flat, taper)
}
