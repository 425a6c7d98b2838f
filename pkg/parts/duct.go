package parts

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

// DuctProfile is the duct's cross-section, counter-clockwise in (X, Z):
// a mounting base, two walls open at the top, and a retention lip on each
// wall that narrows the channel to RetentionWidth.
func DuctProfile(d DuctConfig) []r2.Vec {
	b := d.BaseWidth / 2
	w := d.OpeningWidth / 2
	in := w - d.WallThickness
	s := d.RetentionWidth / 2
	r0, r1 := d.RetentionHeight, d.RetentionHeight+d.WallThickness
	h := d.OpeningHeight
	return []r2.Vec{
		{X: -b, Y: -d.BaseThickness},
		{X: b, Y: -d.BaseThickness},
		{X: b, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: in, Y: h},
		{X: in, Y: r1},
		{X: s, Y: r1},
		{X: s, Y: r0},
		{X: in, Y: r0},
		{X: in, Y: 0},
		{X: -in, Y: 0},
		{X: -in, Y: r0},
		{X: -s, Y: r0},
		{X: -s, Y: r1},
		{X: -in, Y: r1},
		{X: -in, Y: h},
		{X: -w, Y: h},
		{X: -w, Y: 0},
		{X: -b, Y: 0},
	}
}

// Duct builds the wire duct: the channel profile run along Y, optional
// ribs on the outer walls, and two countersunk screw holes through the
// floor.
func Duct(cfg Config, c *csg.Compositor) (csg.Result, error) {
	d := cfg.Duct
	if err := d.Validate(); err != nil {
		return csg.Result{}, err
	}
	b := newBuilder("duct", c)

	body, err := b.b.Build("duct.channel", primitive.Extrusion{Profile: DuctProfile(d), Length: d.Length})
	if err != nil {
		return csg.Result{}, err
	}
	body = placement.ProfileAlongY(d.Length).Apply(body)

	var st steps
	if d.Ribs {
		n := int(d.Length / d.RibSpacing)
		for i := 1; i < n; i++ {
			y := float64(i) * d.RibSpacing
			for _, x := range []float64{-d.OpeningWidth/2 - d.RibDepth, d.OpeningWidth / 2} {
				r, err := b.box("rib", d.RibDepth, d.RibWidth, d.OpeningHeight, x, y-d.RibWidth/2, 0)
				if err != nil {
					return csg.Result{}, err
				}
				st.add(fmt.Sprintf("duct.rib[%d]", len(st)), r)
			}
		}
	}

	var holes []func() (*kernel.Solid, error)
	for i, y := range []float64{d.ScrewInset, d.Length - d.ScrewInset} {
		label := fmt.Sprintf("hole[%d]", i)
		holes = append(holes, func() (*kernel.Solid, error) {
			shaft, err := b.cylinder(label+".shaft", d.ScrewHole/2, d.BaseThickness+2, 0, y, -d.BaseThickness-1)
			if err != nil {
				return nil, err
			}
			// The screw head sits in the floor, inside the channel.
			sink, err := b.cylinder(label+".countersink", d.Countersink/2, d.CountersinkDepth+1, 0, y, -d.CountersinkDepth)
			if err != nil {
				return nil, err
			}
			return merged(c, "duct."+label, shaft, sink)
		})
	}
	cutters, err := csg.Branches(holes...)
	if err != nil {
		return csg.Result{}, err
	}
	for i, h := range cutters {
		st.cut(fmt.Sprintf("duct.hole[%d]", i), h)
	}
	return c.Compose(body, st)
}
