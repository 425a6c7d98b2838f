package parts

import (
	"fmt"

	"github.com/chazu/trayforge/pkg/csg"
)

// ZBracket builds the Z-shaped bracket: a top plate screwed to the desk
// (its upper face at Z=0), a drop as tall as a rail head, and a lip
// reaching outward for the head to rest on.
func ZBracket(cfg Config, c *csg.Compositor) (csg.Result, error) {
	z := cfg.ZBracket
	if err := z.Validate(); err != nil {
		return csg.Result{}, err
	}
	b := newBuilder("zbracket", c)
	t := z.Thickness

	top, err := b.box("top", z.TopWidth, z.Length, t, 0, 0, -t)
	if err != nil {
		return csg.Result{}, err
	}
	drop, err := b.box("drop", t, z.Length, z.Drop, 0, 0, -t-z.Drop)
	if err != nil {
		return csg.Result{}, err
	}
	lip, err := b.box("lip", z.LipWidth, z.Length, t, t-z.LipWidth, 0, -2*t-z.Drop)
	if err != nil {
		return csg.Result{}, err
	}

	var st steps
	st.add("zbracket.drop", drop)
	st.add("zbracket.lip", lip)
	for i, y := range []float64{z.Length / 4, 3 * z.Length / 4} {
		label := fmt.Sprintf("hole[%d]", i)
		h, err := b.cylinder(label, z.ScrewHole/2, t+2, z.TopWidth/2, y, -t-1)
		if err != nil {
			return csg.Result{}, err
		}
		st.cut("zbracket."+label, h)
	}
	return c.Compose(top, st)
}
